package refreshtokens

import (
	"context"
	"time"

	"github.com/clarifio/clarifio/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, token string, validity time.Duration) error
	// Get returns the token row regardless of expiry; the caller decides
	// what an expired token means.
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
}
