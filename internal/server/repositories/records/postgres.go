package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/server/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateProgram(ctx context.Context, userID, id, name string) (*models.Program, error) {
	query :=
		`INSERT INTO programs (id, user_id, name)
         VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at
		 `

	p := &models.Program{ID: id, UserID: userID, Name: name}
	err := r.db.QueryRowContext(ctx, query, id, userID, name).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListPrograms(ctx context.Context, userID string) ([]*models.Program, error) {
	query :=
		`SELECT id, user_id, name, created_at, updated_at FROM programs
		 WHERE user_id = $1
		 ORDER BY created_at ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Program
	for rows.Next() {
		p := &models.Program{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DeleteProgram(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM programs WHERE id = $1 AND user_id = $2`, id, userID)
	return checkAffected(res, err)
}

func (r *PostgresRepository) CreateCourse(ctx context.Context, userID, id, programID, name string) (*models.Course, error) {
	// The insert succeeds only when the parent program belongs to the
	// caller; otherwise no row is produced and the parent reads as missing.
	query :=
		`INSERT INTO courses (id, program_id, name)
         SELECT $1, $2, $3
         WHERE EXISTS (SELECT 1 FROM programs WHERE id = $2 AND user_id = $4)
		 RETURNING created_at, updated_at
		 `

	c := &models.Course{ID: id, ProgramID: programID, Name: name}
	err := r.db.QueryRowContext(ctx, query, id, programID, name, userID).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListCourses(ctx context.Context, userID, programID string) ([]*models.Course, error) {
	query :=
		`SELECT c.id, c.program_id, c.name, c.created_at, c.updated_at
		 FROM courses c
		 JOIN programs p ON p.id = c.program_id
		 WHERE c.program_id = $1 AND p.user_id = $2
		 ORDER BY c.created_at ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, programID, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Course
	for rows.Next() {
		c := &models.Course{}
		if err := rows.Scan(&c.ID, &c.ProgramID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DeleteCourse(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM courses c
		 USING programs p
		 WHERE c.id = $1 AND p.id = c.program_id AND p.user_id = $2`, id, userID)
	return checkAffected(res, err)
}

func (r *PostgresRepository) CreateSession(ctx context.Context, userID, id, courseID, name string) (*models.NoteSession, error) {
	query :=
		`INSERT INTO note_sessions (id, course_id, name)
         SELECT $1, $2, $3
         WHERE EXISTS (
             SELECT 1 FROM courses c
             JOIN programs p ON p.id = c.program_id
             WHERE c.id = $2 AND p.user_id = $4
         )
		 RETURNING notes, created_at, updated_at
		 `

	s := &models.NoteSession{ID: id, CourseID: courseID, Name: name}
	err := r.db.QueryRowContext(ctx, query, id, courseID, name, userID).
		Scan(&s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListSessions(ctx context.Context, userID, courseID string) ([]*models.NoteSession, error) {
	query :=
		`SELECT s.id, s.course_id, s.name, s.notes, s.created_at, s.updated_at
		 FROM note_sessions s
		 JOIN courses c ON c.id = s.course_id
		 JOIN programs p ON p.id = c.program_id
		 WHERE s.course_id = $1 AND p.user_id = $2
		 ORDER BY s.created_at ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.NoteSession
	for rows.Next() {
		s := &models.NoteSession{}
		if err := rows.Scan(&s.ID, &s.CourseID, &s.Name, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetSession(ctx context.Context, userID, id string) (*models.NoteSession, error) {
	query :=
		`SELECT s.id, s.course_id, s.name, s.notes, s.created_at, s.updated_at
		 FROM note_sessions s
		 JOIN courses c ON c.id = s.course_id
		 JOIN programs p ON p.id = c.program_id
		 WHERE s.id = $1 AND p.user_id = $2
		 `

	s := &models.NoteSession{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&s.ID, &s.CourseID, &s.Name, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) UpdateSessionNotes(ctx context.Context, userID, id, notes string, updatedAt time.Time) error {
	query :=
		`UPDATE note_sessions s
		 SET notes = $3, updated_at = $4
		 FROM courses c
		 JOIN programs p ON p.id = c.program_id
		 WHERE s.id = $1 AND c.id = s.course_id AND p.user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, userID, notes, updatedAt)
	return checkAffected(res, err)
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM note_sessions s
		 USING courses c
		 JOIN programs p ON p.id = c.program_id
		 WHERE s.id = $1 AND c.id = s.course_id AND p.user_id = $2`, id, userID)
	return checkAffected(res, err)
}

func (r *PostgresRepository) CreateTerm(ctx context.Context, userID, id, sessionID, term string) (*models.Term, error) {
	query :=
		`INSERT INTO terms (id, session_id, term)
         SELECT $1, $2, $3
         WHERE EXISTS (
             SELECT 1 FROM note_sessions s
             JOIN courses c ON c.id = s.course_id
             JOIN programs p ON p.id = c.program_id
             WHERE s.id = $2 AND p.user_id = $4
         )
		 RETURNING definition, created_at
		 `

	t := &models.Term{ID: id, SessionID: sessionID, Term: term}
	err := r.db.QueryRowContext(ctx, query, id, sessionID, term, userID).
		Scan(&t.Definition, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) ListTerms(ctx context.Context, userID, sessionID string) ([]*models.Term, error) {
	query :=
		`SELECT t.id, t.session_id, t.term, t.definition, t.created_at
		 FROM terms t
		 JOIN note_sessions s ON s.id = t.session_id
		 JOIN courses c ON c.id = s.course_id
		 JOIN programs p ON p.id = c.program_id
		 WHERE t.session_id = $1 AND p.user_id = $2
		 ORDER BY t.created_at ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Term
	for rows.Next() {
		t := &models.Term{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Term, &t.Definition, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateTermDefinition(ctx context.Context, userID, id, definition string) (*models.Term, error) {
	query :=
		`UPDATE terms t
		 SET definition = $3
		 FROM note_sessions s
		 JOIN courses c ON c.id = s.course_id
		 JOIN programs p ON p.id = c.program_id
		 WHERE t.id = $1 AND s.id = t.session_id AND p.user_id = $2
		 RETURNING t.id, t.session_id, t.term, t.definition, t.created_at
		 `

	t := &models.Term{}
	err := r.db.QueryRowContext(ctx, query, id, userID, definition).
		Scan(&t.ID, &t.SessionID, &t.Term, &t.Definition, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) DeleteTerm(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM terms t
		 USING note_sessions s
		 JOIN courses c ON c.id = s.course_id
		 JOIN programs p ON p.id = c.program_id
		 WHERE t.id = $1 AND s.id = t.session_id AND p.user_id = $2`, id, userID)
	return checkAffected(res, err)
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
