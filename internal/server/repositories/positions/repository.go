// Package positions declares the store of portfolio positions. Every
// operation is scoped by the owning user id.
package positions

import (
	"context"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Position) (*models.Position, error)
	// Get returns common.ErrorNotFound for ids owned by someone else.
	Get(ctx context.Context, userID, id int64) (*models.Position, error)
	// List returns the user's positions, newest purchase first. A nil metal
	// means all metals.
	List(ctx context.Context, userID int64, metal *models.Metal) ([]*models.Position, error)
	Update(ctx context.Context, p *models.Position) (*models.Position, error)
	Delete(ctx context.Context, userID, id int64) error
	CountByUser(ctx context.Context, userID int64) (int, error)
}
