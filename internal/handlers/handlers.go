package handlers

import (
	"context"
	"database/sql"

	"github.com/stripe/stripe-go/v82"

	"github.com/jmarlow/fluxgen-golang/internal/fal"
	"github.com/jmarlow/fluxgen-golang/internal/models"
	"github.com/jmarlow/fluxgen-golang/internal/payments"
)

// ImageGenerator is the slice of the fal service the handlers call.
// It is an interface so tests can count and fake provider calls.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, imageSize string, seed *int64) (*fal.GenerationResult, error)
}

// PaymentProvider is the slice of the Stripe service the handlers call.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, userID int64, pkg models.CreditPackage) (*payments.CheckoutSession, error)
	VerifyWebhook(payload []byte, signature string) (stripe.Event, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB       *sql.DB
	Fal      ImageGenerator
	Payments PaymentProvider
}
