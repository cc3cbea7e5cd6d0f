// Package users declares the credential store: persisted accounts looked up
// by id, email or Google subject.
package users

import (
	"context"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills ID and timestamps. An email that is
	// already registered yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogleID(ctx context.Context, id int64, googleID string) error
	UpdateTier(ctx context.Context, id int64, tier models.Tier) error
	// LockByID takes a row lock on the user until the transaction ends.
	LockByID(ctx context.Context, id int64) error
	// ListActiveWithPositions returns active users owning at least one
	// position, ordered by id.
	ListActiveWithPositions(ctx context.Context) ([]*models.User, error)
}
