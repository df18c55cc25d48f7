package models

import "time"

// User is an identity record. Anonymous users carry no email or password
// hash; linking a credential fills them in without changing the id.
type User struct {
	ID                string
	Email             string
	PasswordHash      []byte
	Anonymous         bool
	Confirmed         bool
	ConfirmationToken string
	CreatedAt         time.Time
}
