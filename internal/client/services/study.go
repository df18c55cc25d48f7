// Package services holds the client-side application services that sit
// between the CLI and the collaborator API: study record management and
// billing.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clarifio/clarifio/internal/client/api"
	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/common"
)

// StudyService manages the study hierarchy. Validation happens before
// any collaborator call so a bad request never costs a round trip.
type StudyService struct {
	client api.Client
}

func NewStudyService(client api.Client) *StudyService {
	return &StudyService{client: client}
}

func requireName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be empty", common.ErrValidation, field)
	}
	return nil
}

func (s *StudyService) CreateProgram(ctx context.Context, name string) (*models.Program, error) {
	if err := requireName("program name", name); err != nil {
		return nil, err
	}
	return s.client.CreateProgram(ctx, strings.TrimSpace(name))
}

func (s *StudyService) ListPrograms(ctx context.Context) ([]*models.Program, error) {
	return s.client.ListPrograms(ctx)
}

func (s *StudyService) DeleteProgram(ctx context.Context, id string) error {
	return s.client.DeleteProgram(ctx, id)
}

func (s *StudyService) CreateCourse(ctx context.Context, programID, name string) (*models.Course, error) {
	if err := requireName("course name", name); err != nil {
		return nil, err
	}
	return s.client.CreateCourse(ctx, programID, strings.TrimSpace(name))
}

func (s *StudyService) ListCourses(ctx context.Context, programID string) ([]*models.Course, error) {
	return s.client.ListCourses(ctx, programID)
}

func (s *StudyService) DeleteCourse(ctx context.Context, id string) error {
	return s.client.DeleteCourse(ctx, id)
}

func (s *StudyService) CreateSession(ctx context.Context, courseID, name string) (*models.NoteSession, error) {
	if err := requireName("session name", name); err != nil {
		return nil, err
	}
	return s.client.CreateSession(ctx, courseID, strings.TrimSpace(name))
}

func (s *StudyService) ListSessions(ctx context.Context, courseID string) ([]*models.NoteSession, error) {
	return s.client.ListSessions(ctx, courseID)
}

func (s *StudyService) DeleteSession(ctx context.Context, id string) error {
	return s.client.DeleteSession(ctx, id)
}

// SaveNotes is the autosave engine's write path.
func (s *StudyService) SaveNotes(ctx context.Context, sessionID, notes string, updatedAt time.Time) error {
	return s.client.SaveNotes(ctx, sessionID, notes, updatedAt)
}

func (s *StudyService) AddTerm(ctx context.Context, sessionID, term string) (*models.Term, error) {
	if err := requireName("term", term); err != nil {
		return nil, err
	}
	return s.client.CreateTerm(ctx, sessionID, strings.TrimSpace(term))
}

func (s *StudyService) ListTerms(ctx context.Context, sessionID string) ([]*models.Term, error) {
	return s.client.ListTerms(ctx, sessionID)
}

// RemoveTerm deletes a term immediately, defined or not.
func (s *StudyService) RemoveTerm(ctx context.Context, id string) error {
	return s.client.DeleteTerm(ctx, id)
}
