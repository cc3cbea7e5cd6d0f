// Package apikeys declares the store of hashed API keys.
package apikeys

import (
	"context"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

type Repository interface {
	// CountByUser returns the number of live keys owned by userID.
	CountByUser(ctx context.Context, userID int64) (int, error)
	// Create inserts key and fills ID and CreatedAt.
	Create(ctx context.Context, key *models.APIKey) (*models.APIKey, error)
	// FindByHash looks a key up by its digest through the unique index.
	// Unknown digests yield common.ErrKeyNotFound.
	FindByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.APIKey, error)
	// Delete removes keyID only if userID owns it; otherwise
	// common.ErrKeyNotFound.
	Delete(ctx context.Context, userID, keyID int64) error
	TouchLastUsed(ctx context.Context, keyID int64, at time.Time) error
}
