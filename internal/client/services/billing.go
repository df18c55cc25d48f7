package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/clarifio/clarifio/internal/client/api"
	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/logging"
)

// Plans accepted by the checkout endpoint.
const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

// QuotaResetter clears the guest's free-clarification flag.
type QuotaResetter interface {
	Reset(ctx context.Context) error
}

// BillingService drives the upgrade flow and caches the caller's
// subscription. The cache is refreshed explicitly, never on a timer:
// entitlement checks read Current() and tolerate staleness between
// refreshes.
type BillingService struct {
	client api.Client
	quota  QuotaResetter
	log    logging.Logger

	mu  sync.Mutex
	sub *models.Subscription
}

func NewBillingService(client api.Client, quota QuotaResetter, log logging.Logger) *BillingService {
	return &BillingService{client: client, quota: quota, log: log}
}

// Current returns the last refreshed subscription, nil when none exists.
func (s *BillingService) Current() *models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

// Refresh re-reads the subscription from the billing collaborator. An
// absent subscription is not an error; it clears the cache.
func (s *BillingService) Refresh(ctx context.Context) (*models.Subscription, error) {
	sub, err := s.client.GetSubscription(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing subscription: %w", err)
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return sub, nil
}

// StartCheckout creates a checkout session and returns the URL the user
// must open to pay.
func (s *BillingService) StartCheckout(ctx context.Context, plan, email string) (string, error) {
	if plan != PlanMonthly && plan != PlanAnnual {
		return "", fmt.Errorf("%w: plan must be %q or %q", common.ErrValidation, PlanMonthly, PlanAnnual)
	}
	return s.client.CreateCheckout(ctx, plan, email)
}

// VerifyPayment confirms a completed checkout with the billing
// collaborator. Verification is idempotent server-side, so re-running it
// after a flaky redirect is safe. On success the subscription cache is
// refreshed and the guest quota flag is cleared.
func (s *BillingService) VerifyPayment(ctx context.Context, checkoutSessionID string) (bool, error) {
	verified, err := s.client.VerifyPayment(ctx, checkoutSessionID)
	if err != nil {
		return false, fmt.Errorf("verifying payment: %w", err)
	}
	if !verified {
		return false, nil
	}

	if _, err := s.Refresh(ctx); err != nil {
		// The upgrade went through; a stale cache just means the next
		// explicit refresh picks it up.
		s.log.Error(ctx, "subscription refresh after verified payment failed", "error", err)
	}
	if err := s.quota.Reset(ctx); err != nil {
		s.log.Error(ctx, "guest quota reset after upgrade failed", "error", err)
	}
	return true, nil
}
