package models

import "time"

// Subscription is keyed by user: at most one row per user_id, upserted
// on payment verification.
type Subscription struct {
	ID                string
	UserID            string
	Status            string
	Plan              string
	CheckoutSessionID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
