package subscriptions

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

func (r *PostgresRepository) Upsert(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {

	query :=
		`INSERT INTO subscriptions (id, user_id, status, plan, checkout_session_id)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (user_id) DO UPDATE
         SET status = EXCLUDED.status,
             plan = EXCLUDED.plan,
             checkout_session_id = EXCLUDED.checkout_session_id,
             updated_at = now()
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		sub.ID, sub.UserID, sub.Status, sub.Plan, sub.CheckoutSessionID).
		Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return sub, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	query :=
		`SELECT id, user_id, status, plan, COALESCE(checkout_session_id, ''), created_at, updated_at
		 FROM subscriptions
		 WHERE user_id = $1
		 `

	sub := &models.Subscription{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&sub.ID, &sub.UserID, &sub.Status, &sub.Plan, &sub.CheckoutSessionID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return sub, nil
}
