package models

import "time"

// Purchase statuses. A purchase starts 'pending' when the checkout session
// is created and moves to 'completed' (webhook confirmed) or 'expired'.
const (
	PurchasePending   = "pending"
	PurchaseCompleted = "completed"
	PurchaseExpired   = "expired"
)

// CreditPurchase is the model for the 'credit_purchases' table.
// StripeSessionID carries a UNIQUE constraint: it is what makes the
// webhook credit-grant safe against duplicate deliveries.
type CreditPurchase struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"userId" db:"user_id"`
	PackageID       string    `json:"packageId" db:"package_id"`
	Credits         int       `json:"credits" db:"credits"`
	AmountCents     int64     `json:"amountCents" db:"amount_cents"`
	Currency        string    `json:"currency" db:"currency"`
	StripeSessionID string    `json:"stripeSessionId" db:"stripe_session_id"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// CreditPackage describes a purchasable bundle of credits.
// These are fixed in code (like the frontend's product config), not stored
// in the database.
type CreditPackage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Credits     int    `json:"credits"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// CreditPackages is the catalog shown at checkout.
var CreditPackages = []CreditPackage{
	{ID: "single", Name: "Image Generator - single image", Credits: 1, AmountCents: 100, Currency: "cad"},
	{ID: "pack10", Name: "Image Generator - 10 image pack", Credits: 10, AmountCents: 900, Currency: "cad"},
	{ID: "pack25", Name: "Image Generator - 25 image pack", Credits: 25, AmountCents: 2000, Currency: "cad"},
}

// FindCreditPackage looks up a package by its ID.
func FindCreditPackage(id string) (CreditPackage, bool) {
	for _, p := range CreditPackages {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPackage{}, false
}
