// Package models defines the client-side domain records: the study
// hierarchy (programs → courses → note sessions → terms), the caller's
// identity, and the billing subscription it may hold.
package models

import "time"

// IdentityKind distinguishes automatically created anonymous identities
// from identities backed by an email+password credential.
type IdentityKind string

const (
	IdentityAnonymous     IdentityKind = "anonymous"
	IdentityAuthenticated IdentityKind = "authenticated"
)

// Identity is the active authentication principal. Exactly one Identity is
// active per client process at any time once resolution has succeeded.
type Identity struct {
	ID    string
	Kind  IdentityKind
	Email string
}

// IsAnonymous reports whether the identity has no permanent credential.
func (i *Identity) IsAnonymous() bool {
	return i != nil && i.Kind == IdentityAnonymous
}

// SubscriptionStatus mirrors the billing collaborator's status values.
// Anything other than "active" grants no entitlement.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is owned by the billing collaborator and read-only here,
// except for the verify-and-upsert path used right after checkout.
type Subscription struct {
	UserID string             `json:"user_id"`
	Status SubscriptionStatus `json:"status"`
	Plan   string             `json:"plan"`
}

// IsActive reports whether the subscription currently grants entitlement.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionActive
}

// Tier is the derived access level gating feature limits. It is never
// stored: it is recomputed from Identity and Subscription on every read.
type Tier string

const (
	TierGuest Tier = "guest"
	TierFree  Tier = "free"
	TierPaid  Tier = "paid"
)

// Program is the top of the study hierarchy ("Calculus I").
type Program struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course belongs to a Program.
type Course struct {
	ID        string    `json:"id"`
	ProgramID string    `json:"program_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteSession holds the free-text notes for one study session. The Notes
// field is mutated only through the autosave engine.
type NoteSession struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Term is a glossary entry extracted from a session's notes. A Term whose
// Definition is empty is pending clarification.
type Term struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	CreatedAt  time.Time `json:"created_at"`
}

// Pending reports whether the term still lacks a definition.
func (t *Term) Pending() bool { return t.Definition == "" }
