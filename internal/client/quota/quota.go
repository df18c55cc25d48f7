// Package quota tracks the guest's single free clarification.
//
// The flag is keyed to the local device, not to any identity id: it is an
// intentionally coarse throttle, and a determined user clearing local state
// can evade it. That is an accepted limitation of the design, not a bug.
package quota

import (
	"context"
	"fmt"

	"github.com/clarifio/clarifio/internal/client/repositories/metadata"
)

// clarifiedKey is the metadata key holding the flag. The value is the
// literal string "true"; anything else (including absence) reads as false.
const clarifiedKey = "guest_clarified"

// GuestQuota reads and writes the device-level "has used free
// clarification" flag through the injected durable store.
type GuestQuota struct {
	store metadata.Repository
}

func New(store metadata.Repository) *GuestQuota {
	return &GuestQuota{store: store}
}

// HasClarified reports whether this device's guest already consumed the
// free clarification. An unset flag reads as false.
func (q *GuestQuota) HasClarified(ctx context.Context) (bool, error) {
	v, err := q.store.Get(ctx, clarifiedKey)
	if err != nil {
		return false, fmt.Errorf("reading guest quota flag: %w", err)
	}
	return string(v) == "true", nil
}

// MarkClarified durably sets the flag. Setting an already-set flag is a
// no-op, so callers do not need to check first.
func (q *GuestQuota) MarkClarified(ctx context.Context) error {
	if err := q.store.Set(ctx, clarifiedKey, []byte("true")); err != nil {
		return fmt.Errorf("writing guest quota flag: %w", err)
	}
	return nil
}

// Reset clears the flag. Called after an upgrade to paid.
func (q *GuestQuota) Reset(ctx context.Context) error {
	if err := q.store.Delete(ctx, clarifiedKey); err != nil {
		return fmt.Errorf("clearing guest quota flag: %w", err)
	}
	return nil
}
