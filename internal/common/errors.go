// Package common defines shared constants and sentinel errors used across
// client and server layers of Clarifio. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal        = errors.New("internal error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnauthenticated = errors.New("no active identity")

	// ErrQuotaExceeded is a gate, not a failure: the guest's single free
	// clarification has been consumed.
	ErrQuotaExceeded = errors.New("guest clarification quota exceeded")

	// Validation errors, rejected before any network call.
	ErrValidation = errors.New("validation error")

	// ErrService covers a failed or malformed collaborator response.
	// It is always batch-level: no partial merge happens under it.
	ErrService = errors.New("service error")

	// Auth errors. Provider messages are wrapped over ErrAuth so the
	// original text passes through verbatim.
	ErrAuth = errors.New("auth error")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
