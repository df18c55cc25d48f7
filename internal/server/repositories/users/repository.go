package users

import (
	"context"

	"github.com/clarifio/clarifio/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// AttachCredential fills in email and password hash on an existing
	// (anonymous) user, preserving its id.
	AttachCredential(ctx context.Context, id, email string, passwordHash []byte) error
	// ConfirmByToken marks the user holding the confirmation token as
	// confirmed and clears the token.
	ConfirmByToken(ctx context.Context, token string) error
}
