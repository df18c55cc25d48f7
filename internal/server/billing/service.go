package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/logging"
	"github.com/clarifio/clarifio/internal/server/config"
	"github.com/clarifio/clarifio/internal/server/models"
	"github.com/clarifio/clarifio/internal/server/repositories/subscriptions"
	"github.com/google/uuid"
)

const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"

	StatusPending = "pending"
	StatusActive  = "active"
)

// Service records a pending subscription when checkout starts and
// activates it once the provider confirms payment. Both writes go through
// the same per-user upsert, so retries and re-verification are idempotent.
type Service struct {
	oracle Oracle
	subs   subscriptions.Repository
	cfg    *config.Config
	log    logging.Logger
}

func NewService(oracle Oracle, subs subscriptions.Repository, cfg *config.Config, log logging.Logger) *Service {
	return &Service{oracle: oracle, subs: subs, cfg: cfg, log: log}
}

// CreateCheckout opens a hosted checkout for the plan and returns the URL
// the user must visit. The subscription row is created up front in the
// pending state carrying the checkout session id, so Verify can tie the
// payment back to the plan.
func (s *Service) CreateCheckout(ctx context.Context, userID, plan, email string) (string, error) {
	priceID, err := s.priceFor(plan)
	if err != nil {
		return "", err
	}

	session, err := s.oracle.Create(ctx, priceID, email, s.cfg.CheckoutRedirectURL)
	if err != nil {
		return "", err
	}

	sub := &models.Subscription{
		ID:                uuid.NewString(),
		UserID:            userID,
		Status:            StatusPending,
		Plan:              plan,
		CheckoutSessionID: session.ID,
	}
	if _, err := s.subs.Upsert(ctx, sub); err != nil {
		return "", common.ErrInternal
	}

	s.log.Info(ctx, "checkout created", "user_id", userID, "plan", plan, "checkout_session_id", session.ID)
	return session.URL, nil
}

// Verify asks the provider whether the checkout has been paid and, if so,
// activates the user's subscription. Verifying an already active
// subscription again just reports true.
func (s *Service) Verify(ctx context.Context, userID, checkoutSessionID string) (bool, error) {
	if checkoutSessionID == "" {
		return false, fmt.Errorf("%w: session_id required", common.ErrValidation)
	}

	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, fmt.Errorf("%w: no checkout in progress", common.ErrValidation)
		}
		return false, common.ErrInternal
	}
	if sub.CheckoutSessionID != checkoutSessionID {
		return false, fmt.Errorf("%w: unknown checkout session", common.ErrValidation)
	}
	if sub.Status == StatusActive {
		return true, nil
	}

	session, err := s.oracle.Retrieve(ctx, checkoutSessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, fmt.Errorf("%w: unknown checkout session", common.ErrValidation)
		}
		return false, err
	}
	if !session.Paid {
		return false, nil
	}

	sub.Status = StatusActive
	if _, err := s.subs.Upsert(ctx, sub); err != nil {
		return false, common.ErrInternal
	}

	s.log.Info(ctx, "subscription activated", "user_id", userID, "plan", sub.Plan)
	return true, nil
}

// Subscription returns the user's subscription record, or ErrNotFound
// when none exists.
func (s *Service) Subscription(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.subs.GetByUserID(ctx, userID)
}

func (s *Service) priceFor(plan string) (string, error) {
	switch plan {
	case PlanMonthly:
		return s.cfg.PriceMonthly, nil
	case PlanAnnual:
		return s.cfg.PriceAnnual, nil
	default:
		return "", fmt.Errorf("%w: unknown plan %q", common.ErrValidation, plan)
	}
}
