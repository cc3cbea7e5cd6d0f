package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/dbx"
	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/auth"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
)

// MaxKeyNameLength bounds the optional key label.
const MaxKeyNameLength = 100

// APIKeyService creates, resolves, lists and revokes API keys. Only the
// keyed digest of a key is ever stored.
type APIKeyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.KeyHasher
	logger      logging.Logger
	now         func() time.Time
}

func NewAPIKeyService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.KeyHasher, logger logging.Logger) *APIKeyService {
	return &APIKeyService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		logger:      logger.With("module", "apikeys"),
		now:         time.Now,
	}
}

// Create issues a new key for userID and returns its metadata together with
// the plaintext, which is not retrievable later. The owner's row is locked
// while keys are counted so concurrent calls cannot exceed
// common.MaxAPIKeysPerUser.
func (s *APIKeyService) Create(ctx context.Context, userID int64, name *string) (*models.APIKey, string, error) {
	if name != nil && len(*name) > MaxKeyNameLength {
		return nil, "", fmt.Errorf("%w: key name longer than %d characters", common.ErrorValidation, MaxKeyNameLength)
	}

	plaintext, prefix, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("error generating api key: %w", err)
	}

	var key *models.APIKey
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, userID); err != nil {
			return err
		}

		repo := s.repomanager.APIKeys(tx)
		count, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count >= common.MaxAPIKeysPerUser {
			return common.ErrLimitExceeded
		}

		key, err = repo.Create(ctx, &models.APIKey{
			UserID:    userID,
			Name:      name,
			KeyHash:   s.hasher.Hash(plaintext),
			KeyPrefix: prefix,
		})
		return err
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "api key created", "user_id", userID, "key_id", key.ID)
	return key, plaintext, nil
}

// Resolve finds the key matching plaintext. Anything that is not a live key
// yields common.ErrKeyNotFound.
func (s *APIKeyService) Resolve(ctx context.Context, plaintext string) (*models.APIKey, error) {
	if !auth.LooksLikeAPIKey(plaintext) {
		return nil, common.ErrKeyNotFound
	}

	repo := s.repomanager.APIKeys(s.db)
	key, err := repo.FindByHash(ctx, s.hasher.Hash(plaintext))
	if err != nil {
		return nil, err
	}

	if err := repo.TouchLastUsed(ctx, key.ID, s.now()); err != nil {
		s.logger.Warn(ctx, "failed to update api key last use", "key_id", key.ID, "error", err)
	}
	return key, nil
}

func (s *APIKeyService) List(ctx context.Context, userID int64) ([]*models.APIKey, error) {
	keys, err := s.repomanager.APIKeys(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		k.KeyHash = ""
	}
	return keys, nil
}

// Revoke deletes keyID if userID owns it, otherwise common.ErrKeyNotFound.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID int64) error {
	err := s.repomanager.APIKeys(s.db).Delete(ctx, userID, keyID)
	if err != nil {
		if errors.Is(err, common.ErrKeyNotFound) {
			return err
		}
		return fmt.Errorf("error revoking api key: %w", err)
	}
	s.logger.Info(ctx, "api key revoked", "user_id", userID, "key_id", keyID)
	return nil
}
