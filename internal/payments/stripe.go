package payments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/jmarlow/fluxgen-golang/internal/models"
)

// Service wraps the Stripe client for the two things this API does with
// money: creating hosted checkout sessions and verifying webhook events.
type Service struct {
	Client        *stripe.Client
	SigningSecret string
	SuccessURL    string
	CancelURL     string
}

// NewService creates the Stripe service from the secret API key and the
// webhook signing secret.
func NewService(apiKey, signingSecret, successURL, cancelURL string) *Service {
	return &Service{
		Client:        stripe.NewClient(apiKey),
		SigningSecret: signingSecret,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
	}
}

// CheckoutSession is the slice of the Stripe session the handlers need.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession creates a hosted Stripe Checkout session for one
// credit package. The user ID and package details travel in the session
// metadata so the webhook can credit the right account later.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID int64, pkg models.CreditPackage) (*CheckoutSession, error) {
	metadata := map[string]string{
		"user_id":    strconv.FormatInt(userID, 10),
		"package_id": pkg.ID,
		"credits":    strconv.Itoa(pkg.Credits),
	}

	params := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(s.SuccessURL),
		CancelURL:          stripe.String(s.CancelURL),
		Metadata:           metadata,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(pkg.Currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(pkg.Name),
				},
				UnitAmount: stripe.Int64(pkg.AmountCents),
			},
			Quantity: stripe.Int64(1),
		}},
	}

	session, err := s.Client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header against the signing
// secret and returns the decoded event. Unsigned or tampered payloads
// never reach the credit-granting code.
func (s *Service) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.SigningSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("error verifying webhook signature: %w", err)
	}
	return event, nil
}
