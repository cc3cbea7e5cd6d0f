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
	"github.com/dmitrijs2005/metaltracker/internal/server/auth"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
)

const (
	MethodAPIKey = "api_key"
	MethodBearer = "bearer"
)

// UnlimitedPositions stands for "no limit" in tier responses.
const UnlimitedPositions = 999999

var tierPositionLimits = map[models.Tier]int{
	models.TierFree:    10,
	models.TierPremium: UnlimitedPositions,
}

// PositionLimit returns how many positions tier may hold. Unknown tiers get
// the free limit.
func PositionLimit(tier models.Tier) int {
	if l, ok := tierPositionLimits[tier]; ok {
		return l
	}
	return tierPositionLimits[models.TierFree]
}

// Identity is the caller resolved by the Gate.
type Identity struct {
	UserID  int64
	Email   string
	Tier    models.Tier
	IsAdmin bool
	Method  string

	// TokenID and ExpiresAt describe the session token; they are empty for
	// API key callers.
	TokenID   string
	ExpiresAt time.Time
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// TierLimitError reports that a tier quota is used up. It matches
// common.ErrForbidden.
type TierLimitError struct {
	Tier  models.Tier
	Limit int
}

func (e *TierLimitError) Error() string {
	return fmt.Sprintf("%s tier allows at most %d positions", e.Tier, e.Limit)
}

func (e *TierLimitError) Is(target error) bool {
	return target == common.ErrForbidden
}

// TierInfo summarizes a user's quota usage.
type TierInfo struct {
	Tier               models.Tier
	PositionsCount     int
	PositionsLimit     int
	PositionsRemaining int
	IsAtLimit          bool
}

// Gate decides who is calling.
type Gate struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenIssuer
	denylist    auth.Denylist
	keys        *APIKeyService
}

func NewGate(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenIssuer, denylist auth.Denylist, keys *APIKeyService) *Gate {
	return &Gate{db: db, repomanager: m, tokens: tokens, denylist: denylist, keys: keys}
}

// ResolveIdentity inspects the raw X-API-Key and Authorization header values.
// A present API key decides the outcome on its own; a bad key never falls
// back to the bearer token. Every rejection matches common.ErrorUnauthorized
// and also wraps the underlying cause; storage failures are returned as is.
func (g *Gate) ResolveIdentity(ctx context.Context, apiKey, authorization string) (*Identity, error) {
	if apiKey != "" {
		key, err := g.keys.Resolve(ctx, apiKey)
		if err != nil {
			if errors.Is(err, common.ErrKeyNotFound) {
				return nil, unauthorized(err)
			}
			return nil, fmt.Errorf("error resolving api key: %w", err)
		}
		identity, err := g.loadIdentity(ctx, key.UserID)
		if err != nil {
			return nil, err
		}
		identity.Method = MethodAPIKey
		return identity, nil
	}

	if authorization != "" {
		token, ok := bearerToken(authorization)
		if !ok {
			return nil, unauthorized(common.ErrTokenMalformed)
		}
		info, err := g.tokens.Validate(token)
		if err != nil {
			return nil, unauthorized(err)
		}
		if info.TokenID != "" {
			revoked, err := g.denylist.IsRevoked(ctx, info.TokenID)
			if err != nil {
				return nil, fmt.Errorf("error checking denylist: %w", err)
			}
			if revoked {
				return nil, unauthorized(common.ErrTokenRevoked)
			}
		}
		identity, err := g.loadIdentity(ctx, info.UserID)
		if err != nil {
			return nil, err
		}
		identity.Method = MethodBearer
		identity.TokenID = info.TokenID
		identity.ExpiresAt = info.ExpiresAt
		return identity, nil
	}

	return nil, common.ErrorUnauthorized
}

func (g *Gate) loadIdentity(ctx context.Context, userID int64) (*Identity, error) {
	user, err := g.repomanager.Users(g.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, unauthorized(err)
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !user.IsActive {
		return nil, common.ErrorUnauthorized
	}
	return &Identity{UserID: user.ID, Email: user.Email, Tier: user.Tier, IsAdmin: user.IsAdmin}, nil
}

// CheckPositionLimit returns a *TierLimitError when the caller cannot add
// another position.
func (g *Gate) CheckPositionLimit(ctx context.Context, identity *Identity) error {
	return checkPositionLimit(ctx, g.repomanager, g.db, identity)
}

func (g *Gate) TierInfo(ctx context.Context, identity *Identity) (*TierInfo, error) {
	count, err := g.repomanager.Positions(g.db).CountByUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	limit := PositionLimit(identity.Tier)
	return &TierInfo{
		Tier:               identity.Tier,
		PositionsCount:     count,
		PositionsLimit:     limit,
		PositionsRemaining: max(limit-count, 0),
		IsAtLimit:          count >= limit,
	}, nil
}

func checkPositionLimit(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, identity *Identity) error {
	count, err := m.Positions(db).CountByUser(ctx, identity.UserID)
	if err != nil {
		return err
	}
	limit := PositionLimit(identity.Tier)
	if count >= limit {
		return &TierLimitError{Tier: identity.Tier, Limit: limit}
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(cause error) error {
	return fmt.Errorf("%w: %w", common.ErrorUnauthorized, cause)
}
