// Package refreshtokens declares the store of server-side refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

type Repository interface {
	// Create stores token for userID, expiring at now+validity.
	Create(ctx context.Context, userID int64, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token. A token that is already gone yields
	// common.ErrorNotFound, which is how concurrent rotations are told apart.
	Delete(ctx context.Context, token string) error

	// DeleteExpired purges tokens past their expiry and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}
