// Package metadata provides the client's durable local key-value store.
// It backs device-level state that must survive process restarts: the
// guest clarification flag and the cached auth session tokens.
package metadata

import "context"

// Repository is a durable string-keyed byte store. Get returns nil (not an
// error) for an absent key, so callers can treat "unset" as a zero value.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
