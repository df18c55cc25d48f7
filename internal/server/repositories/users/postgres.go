package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/server/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email, password_hash, anonymous, confirmed, confirmation_token)
         VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Anonymous, user.Confirmed, user.ConfirmationToken).
		Scan(&user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, COALESCE(email, ''), password_hash, anonymous, confirmed, COALESCE(confirmation_token, ''), created_at
		 FROM users
		 WHERE id = $1
		 `

	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, COALESCE(email, ''), password_hash, anonymous, confirmed, COALESCE(confirmation_token, ''), created_at
		 FROM users
		 WHERE email = $1
		 `

	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) AttachCredential(ctx context.Context, id, email string, passwordHash []byte) error {
	query :=
		`UPDATE users
		 SET email = $2, password_hash = $3, anonymous = FALSE, confirmed = TRUE
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, email, passwordHash)
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

func (r *PostgresRepository) ConfirmByToken(ctx context.Context, token string) error {
	query :=
		`UPDATE users
		 SET confirmed = TRUE, confirmation_token = NULL
		 WHERE confirmation_token = $1
		 `

	res, err := r.db.ExecContext(ctx, query, token)
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

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Anonymous,
		&user.Confirmed, &user.ConfirmationToken, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
