// Package settings declares the store of per-user default discounts.
package settings

import (
	"context"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the user never saved settings.
	Get(ctx context.Context, userID int64) (*models.UserSettings, error)
	Upsert(ctx context.Context, s *models.UserSettings) error
}
