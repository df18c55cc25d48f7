// Package billing drives paid-plan checkout through an external payment
// provider and records the resulting subscription.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clarifio/clarifio/internal/common"
)

// CheckoutSession is the provider-side checkout: the user completes
// payment at URL, and Status/Paid are what Retrieve reports afterwards.
type CheckoutSession struct {
	ID     string
	URL    string
	Status string
	Paid   bool
}

// Oracle is the payment provider. Create opens a hosted checkout for a
// price; Retrieve reports whether a checkout has been paid.
type Oracle interface {
	Create(ctx context.Context, priceID, email, redirectURL string) (*CheckoutSession, error)
	Retrieve(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// HTTPOracle talks to a Stripe-style REST API: form-encoded requests,
// bearer key auth, JSON responses.
type HTTPOracle struct {
	base   string
	apiKey string
	client *http.Client
}

func NewHTTPOracle(base, apiKey string) *HTTPOracle {
	return &HTTPOracle{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type checkoutSessionResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

func (o *HTTPOracle) Create(ctx context.Context, priceID, email, redirectURL string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", redirectURL)
	form.Set("cancel_url", redirectURL)
	if email != "" {
		form.Set("customer_email", email)
	}

	var out checkoutSessionResponse
	if err := o.do(ctx, http.MethodPost, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: out.ID, URL: out.URL, Status: out.Status, Paid: out.PaymentStatus == "paid"}, nil
}

func (o *HTTPOracle) Retrieve(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var out checkoutSessionResponse
	if err := o.do(ctx, http.MethodGet, "/checkout/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: out.ID, URL: out.URL, Status: out.Status, Paid: out.PaymentStatus == "paid"}, nil
}

func (o *HTTPOracle) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, o.base+path, body)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", common.ErrService, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: payment provider unreachable: %v", common.ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return common.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: payment provider returned %d", common.ErrService, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding provider response: %v", common.ErrService, err)
	}
	return nil
}
