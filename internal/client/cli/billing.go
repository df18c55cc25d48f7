package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/client/services"
)

// Upgrade starts the checkout flow and prints the payment URL. The CLI
// cannot open a browser; the user completes payment there and returns
// with 'verify'.
func (a *App) Upgrade(ctx context.Context) error {
	if a.Tier() == models.TierPaid {
		fmt.Println("Already on the paid tier.")
		return nil
	}

	plan, err := getSimpleText(a.reader, fmt.Sprintf("Enter plan (%s or %s)", services.PlanMonthly, services.PlanAnnual), os.Stdout)
	if err != nil {
		return err
	}

	email := ""
	if id := a.identity.Current(); id != nil {
		email = id.Email
	}
	if email == "" {
		email, err = getSimpleText(a.reader, "Enter billing email", os.Stdout)
		if err != nil {
			return err
		}
	}

	url, err := a.billing.StartCheckout(ctx, plan, email)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Printf("Open this URL to pay, then run 'verify':\n%s\n", url)
	return nil
}

// Verify confirms a completed checkout. Safe to repeat after a flaky
// redirect; verification is idempotent server-side.
func (a *App) Verify(ctx context.Context) error {
	sessionID, err := getSimpleText(a.reader, "Enter checkout session id", os.Stdout)
	if err != nil {
		return err
	}

	verified, err := a.billing.VerifyPayment(ctx, sessionID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	if !verified {
		fmt.Println("Payment not confirmed yet; try again in a moment.")
		return nil
	}

	fmt.Printf("You are on the paid tier now (%s)\n", a.Tier())
	return nil
}
