// Package api defines the client's view of the Clarifio backend: the
// identity provider, the keyed record store, the billing endpoints, and
// the term definition service, all behind one interface so services and
// tests can swap in fakes.
package api

import (
	"context"
	"time"

	"github.com/clarifio/clarifio/internal/client/models"
)

// Client is the collaborator surface used by the client services.
//
// All methods honor context cancellation. Transport failures surface as
// ErrUnavailable; rejected credentials as common.ErrUnauthorized or, for
// credential operations, as a common.ErrAuth wrap carrying the provider's
// message verbatim.
type Client interface {
	Close() error

	// Identity provider.
	SignInAnonymously(ctx context.Context) (*models.Identity, error)
	SignIn(ctx context.Context, email string, password []byte) (*models.Identity, error)
	SignUp(ctx context.Context, email string, password []byte) error
	LinkCredential(ctx context.Context, email string, password []byte) (*models.Identity, error)
	SignOut(ctx context.Context) error
	RestoreSession(ctx context.Context) (*models.Identity, error)

	// Record store: programs → courses → note sessions → terms.
	CreateProgram(ctx context.Context, name string) (*models.Program, error)
	ListPrograms(ctx context.Context) ([]*models.Program, error)
	DeleteProgram(ctx context.Context, id string) error

	CreateCourse(ctx context.Context, programID, name string) (*models.Course, error)
	ListCourses(ctx context.Context, programID string) ([]*models.Course, error)
	DeleteCourse(ctx context.Context, id string) error

	CreateSession(ctx context.Context, courseID, name string) (*models.NoteSession, error)
	ListSessions(ctx context.Context, courseID string) ([]*models.NoteSession, error)
	SaveNotes(ctx context.Context, sessionID, notes string, updatedAt time.Time) error
	DeleteSession(ctx context.Context, id string) error

	CreateTerm(ctx context.Context, sessionID, term string) (*models.Term, error)
	ListTerms(ctx context.Context, sessionID string) ([]*models.Term, error)
	UpdateDefinition(ctx context.Context, termID, definition string) (*models.Term, error)
	DeleteTerm(ctx context.Context, id string) error

	// Billing.
	GetSubscription(ctx context.Context) (*models.Subscription, error)
	CreateCheckout(ctx context.Context, plan, email string) (string, error)
	VerifyPayment(ctx context.Context, checkoutSessionID string) (bool, error)

	// Definition service. The result maps term text to definition; a term
	// absent from the map was not defined, which is not an error.
	Define(ctx context.Context, terms []string, notes, sessionID string) (map[string]string, error)
}
