// Package services implements the server's use cases on top of the
// repositories: accounts and sessions, API keys, the authorization gate,
// positions and valuation, snapshots and exports.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/dbx"
	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/auth"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
)

// TokenPair is what a successful login returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	tokens                       *auth.TokenIssuer
	passwords                    *auth.PasswordHasher
	denylist                     auth.Denylist
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenIssuer,
	passwords *auth.PasswordHasher, denylist auth.Denylist, refreshTTL time.Duration, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		tokens:                       tokens,
		passwords:                    passwords,
		denylist:                     denylist,
		refreshTokenValidityDuration: refreshTTL,
		logger:                       logger.With("module", "users"),
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account and logs it in. A taken email yields
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}

	digest, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordLength) {
			return nil, nil, fmt.Errorf("%w: password must be %d to %d characters",
				common.ErrorValidation, auth.MinPasswordLength, auth.MaxPasswordLength)
		}
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:        email,
		PasswordHash: &digest,
		Tier:         models.TierFree,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)

	pair, err := s.generateTokenPair(ctx, s.db, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login checks a password. Unknown email, OAuth-only account, wrong password
// and inactive account all return common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.passwords.CompareDummy(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !user.HasPassword() {
		s.passwords.CompareDummy(password)
		return nil, common.ErrInvalidCredentials
	}
	if !auth.VerifyPassword(password, *user.PasswordHash) || !user.IsActive {
		return nil, common.ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, s.db, user)
}

// RefreshToken exchanges a refresh token for a new pair. The old refresh
// token is deleted in the same transaction that stores the new one.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.ExpiredAt(time.Now()) {
		if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "failed to delete expired refresh token", "error", err)
		}
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Only the rotation that actually removes the row may issue a new pair.
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading user: %w", err)
		}
		if !user.IsActive {
			return common.ErrorUnauthorized
		}

		pair, err = s.generateTokenPair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout denylists the session token until it would have expired and drops
// the refresh token if one is given. Callers authenticated by API key have
// no session token; only the refresh token is removed then.
func (s *UserService) Logout(ctx context.Context, identity *Identity, refreshToken string) error {
	if identity.TokenID != "" {
		if err := s.denylist.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
			return fmt.Errorf("error revoking token: %w", err)
		}
	}

	if refreshToken == "" {
		return nil
	}

	repo := s.repomanager.RefreshTokens(s.db)
	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error searching refresh token: %w", err)
	}
	// Someone else's refresh token is left alone.
	if token.UserID != identity.UserID {
		return nil
	}
	if err := repo.Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

func (s *UserService) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// SetTier changes a user's tier.
func (s *UserService) SetTier(ctx context.Context, userID int64, tier models.Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", common.ErrorValidation, tier)
	}
	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := repo.UpdateTier(ctx, userID, tier); err != nil {
		return fmt.Errorf("error updating tier: %w", err)
	}
	s.logger.Info(ctx, "tier changed", "user_id", userID, "tier", tier)
	return nil
}

// PurgeExpiredRefreshTokens deletes refresh tokens past their expiry.
func (s *UserService) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx)
}

func (s *UserService) generateTokenPair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	accessToken, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	err = s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refreshToken, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt}, nil
}
