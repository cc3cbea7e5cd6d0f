// Package snapshots declares the store of daily portfolio snapshots.
package snapshots

import (
	"context"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

type Repository interface {
	// Upsert writes the snapshot for (UserID, Date), replacing an earlier
	// one for the same day.
	Upsert(ctx context.Context, s *models.Snapshot) error
	// ListSince returns the user's snapshots dated on or after since, oldest
	// first.
	ListSince(ctx context.Context, userID int64, since time.Time) ([]*models.Snapshot, error)
}
