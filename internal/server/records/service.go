// Package records implements the study hierarchy operations on top of
// the ownership-scoped repository.
package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/server/models"
	"github.com/clarifio/clarifio/internal/server/repositories/records"
	"github.com/google/uuid"
)

type Service struct {
	repo records.Repository
}

func NewService(repo records.Repository) *Service {
	return &Service{repo: repo}
}

func requireName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be empty", common.ErrValidation, field)
	}
	return nil
}

func (s *Service) CreateProgram(ctx context.Context, userID, name string) (*models.Program, error) {
	if err := requireName("name", name); err != nil {
		return nil, err
	}
	return s.repo.CreateProgram(ctx, userID, uuid.NewString(), strings.TrimSpace(name))
}

func (s *Service) ListPrograms(ctx context.Context, userID string) ([]*models.Program, error) {
	return s.repo.ListPrograms(ctx, userID)
}

func (s *Service) DeleteProgram(ctx context.Context, userID, id string) error {
	return s.repo.DeleteProgram(ctx, userID, id)
}

func (s *Service) CreateCourse(ctx context.Context, userID, programID, name string) (*models.Course, error) {
	if err := requireName("name", name); err != nil {
		return nil, err
	}
	return s.repo.CreateCourse(ctx, userID, uuid.NewString(), programID, strings.TrimSpace(name))
}

func (s *Service) ListCourses(ctx context.Context, userID, programID string) ([]*models.Course, error) {
	return s.repo.ListCourses(ctx, userID, programID)
}

func (s *Service) DeleteCourse(ctx context.Context, userID, id string) error {
	return s.repo.DeleteCourse(ctx, userID, id)
}

func (s *Service) CreateSession(ctx context.Context, userID, courseID, name string) (*models.NoteSession, error) {
	if err := requireName("name", name); err != nil {
		return nil, err
	}
	return s.repo.CreateSession(ctx, userID, uuid.NewString(), courseID, strings.TrimSpace(name))
}

func (s *Service) ListSessions(ctx context.Context, userID, courseID string) ([]*models.NoteSession, error) {
	return s.repo.ListSessions(ctx, userID, courseID)
}

func (s *Service) GetSession(ctx context.Context, userID, id string) (*models.NoteSession, error) {
	return s.repo.GetSession(ctx, userID, id)
}

// SaveNotes overwrites a session's notes. The updatedAt stamp comes from
// the client's commit, not from the write time, so a delayed retry does
// not reorder history.
func (s *Service) SaveNotes(ctx context.Context, userID, id, notes string, updatedAt time.Time) error {
	return s.repo.UpdateSessionNotes(ctx, userID, id, notes, updatedAt)
}

func (s *Service) DeleteSession(ctx context.Context, userID, id string) error {
	return s.repo.DeleteSession(ctx, userID, id)
}

func (s *Service) CreateTerm(ctx context.Context, userID, sessionID, term string) (*models.Term, error) {
	if err := requireName("term", term); err != nil {
		return nil, err
	}
	return s.repo.CreateTerm(ctx, userID, uuid.NewString(), sessionID, strings.TrimSpace(term))
}

func (s *Service) ListTerms(ctx context.Context, userID, sessionID string) ([]*models.Term, error) {
	return s.repo.ListTerms(ctx, userID, sessionID)
}

func (s *Service) UpdateTermDefinition(ctx context.Context, userID, id, definition string) (*models.Term, error) {
	return s.repo.UpdateTermDefinition(ctx, userID, id, definition)
}

func (s *Service) DeleteTerm(ctx context.Context, userID, id string) error {
	return s.repo.DeleteTerm(ctx, userID, id)
}
