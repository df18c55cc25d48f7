package models

import "time"

// RefreshToken is an opaque single-use session token. Rotation on use
// means a stored token that has already been presented no longer exists.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
