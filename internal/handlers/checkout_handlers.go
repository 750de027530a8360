package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmarlow/fluxgen-golang/internal/models"
)

//
// --- Checkout Handlers ---
//

// GetCreditPackages is the handler for GET /v1/checkout/packages
// The package catalog is fixed in code, so this is a plain read.
func (h *Handlers) GetCreditPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": models.CreditPackages})
}

// CreateCheckoutInput defines the JSON body for starting a purchase.
type CreateCheckoutInput struct {
	PackageID string `json:"packageId" binding:"required"`
}

// CreateCheckout is the handler for POST /v1/checkout
// It creates a hosted Stripe Checkout session and a matching 'pending'
// purchase row. Credits are NEVER granted here: only the webhook, after
// Stripe confirms payment, may credit the balance.
func (h *Handlers) CreateCheckout(c *gin.Context) {
	// 1. --- Get User ID ---
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	// 2. --- Bind & Validate JSON ---
	var input CreateCheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pkg, ok := models.FindCreditPackage(input.PackageID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown credit package"})
		return
	}

	// 3. --- Create the Stripe Session ---
	session, err := h.Payments.CreateCheckoutSession(c.Request.Context(), userID, pkg)
	if err != nil {
		log.Printf("Failed to create checkout session for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	// 4. --- Record the Pending Purchase ---
	// The UNIQUE stripe_session_id on this row is what the webhook keys
	// its one-time credit grant on.
	now := time.Now()
	query := `
		INSERT INTO credit_purchases
		(user_id, package_id, credits, amount_cents, currency, stripe_session_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = h.DB.Exec(query, userID, pkg.ID, pkg.Credits, pkg.AmountCents, pkg.Currency, session.ID, models.PurchasePending, now, now)
	if err != nil {
		// The session exists at Stripe but we have no record of it, so we
		// must not hand out the URL: an untracked payment could never be
		// credited.
		log.Printf("Failed to record purchase for user %d (session %s): %v", userID, session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record purchase"})
		return
	}

	// 5. --- Send the Checkout URL ---
	c.JSON(http.StatusOK, gin.H{
		"url":       session.URL,
		"sessionId": session.ID,
	})
}

// ExpireStalePurchases marks pending purchases older than 24 hours as
// expired. Called by the background worker in main.
func (h *Handlers) ExpireStalePurchases() {
	result, err := h.DB.Exec(
		"UPDATE credit_purchases SET status = ? WHERE status = ? AND created_at < NOW() - INTERVAL 24 HOUR",
		models.PurchaseExpired, models.PurchasePending,
	)
	if err != nil {
		log.Printf("Failed to expire stale purchases: %v", err)
		return
	}

	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		log.Printf("Expired %d stale checkout session(s)", affected)
	}
}
