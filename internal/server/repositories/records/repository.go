// Package records stores the study hierarchy. Every operation takes the
// calling user's id and is scoped to rows that user owns: ownership lives
// on programs, and child rows reach it through the parent chain, so a
// record belonging to someone else is indistinguishable from a missing
// one (common.ErrNotFound either way).
package records

import (
	"context"
	"time"

	"github.com/clarifio/clarifio/internal/server/models"
)

type Repository interface {
	CreateProgram(ctx context.Context, userID, id, name string) (*models.Program, error)
	ListPrograms(ctx context.Context, userID string) ([]*models.Program, error)
	DeleteProgram(ctx context.Context, userID, id string) error

	CreateCourse(ctx context.Context, userID, id, programID, name string) (*models.Course, error)
	ListCourses(ctx context.Context, userID, programID string) ([]*models.Course, error)
	DeleteCourse(ctx context.Context, userID, id string) error

	CreateSession(ctx context.Context, userID, id, courseID, name string) (*models.NoteSession, error)
	ListSessions(ctx context.Context, userID, courseID string) ([]*models.NoteSession, error)
	GetSession(ctx context.Context, userID, id string) (*models.NoteSession, error)
	UpdateSessionNotes(ctx context.Context, userID, id, notes string, updatedAt time.Time) error
	DeleteSession(ctx context.Context, userID, id string) error

	CreateTerm(ctx context.Context, userID, id, sessionID, term string) (*models.Term, error)
	ListTerms(ctx context.Context, userID, sessionID string) ([]*models.Term, error)
	UpdateTermDefinition(ctx context.Context, userID, id, definition string) (*models.Term, error)
	DeleteTerm(ctx context.Context, userID, id string) error
}
