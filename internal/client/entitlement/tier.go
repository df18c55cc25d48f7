// Package entitlement derives the caller's access tier from identity facts
// and subscription status.
//
// Derive is a pure projection: it is recomputed on every read rather than
// cached, because a stale tier would gate monetized actions incorrectly.
package entitlement

import "github.com/clarifio/clarifio/internal/client/models"

// Derive maps the current identity and subscription to an access tier.
//
//   - paid:  an active subscription exists for the identity, regardless of
//     whether the identity itself is still anonymous
//   - guest: anonymous identity (or no identity at all — fail closed)
//   - free:  authenticated identity without an active subscription
func Derive(identity *models.Identity, sub *models.Subscription) models.Tier {
	if identity != nil && sub.IsActive() && sub.UserID == identity.ID {
		return models.TierPaid
	}
	if identity == nil || identity.IsAnonymous() {
		return models.TierGuest
	}
	return models.TierFree
}
