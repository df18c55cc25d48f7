package subscriptions

import (
	"context"

	"github.com/clarifio/clarifio/internal/server/models"
)

type Repository interface {
	// Upsert inserts the subscription or, when the user already has one,
	// updates it in place. At most one subscription exists per user.
	Upsert(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	GetByUserID(ctx context.Context, userID string) (*models.Subscription, error)
}
