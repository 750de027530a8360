package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"

	"github.com/jmarlow/fluxgen-golang/internal/models"
)

//
// --- Stripe Webhook ---
//

// StripeWebhook is the handler for POST /v1/webhooks/stripe
// This is the ONLY code path that increases a credit balance. The client
// never talks to it; Stripe does, and every payload must carry a valid
// signature.
func (h *Handlers) StripeWebhook(c *gin.Context) {
	// 1. --- Read & Verify the Payload ---
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	event, err := h.Payments.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("Invalid webhook signature: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	// 2. --- Dispatch by Event Type ---
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
			return
		}
		if err := h.completePurchase(session.ID); err != nil {
			log.Printf("Failed to complete purchase for session %s: %v", session.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment"})
			return
		}

	case "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
			return
		}
		_, err := h.DB.Exec(
			"UPDATE credit_purchases SET status = ? WHERE stripe_session_id = ? AND status = ?",
			models.PurchaseExpired, session.ID, models.PurchasePending,
		)
		if err != nil {
			log.Printf("Failed to expire purchase for session %s: %v", session.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
			return
		}

	default:
		// Other event types are acknowledged and ignored.
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// completePurchase flips a pending purchase to completed and grants its
// credits, all in one transaction.
//
// The conditional UPDATE is the idempotency gate: Stripe retries webhooks
// and can deliver the same event more than once, but only the delivery
// that moves the row from 'pending' wins the grant. Every later delivery
// affects zero rows and is a no-op.
func (h *Handlers) completePurchase(sessionID string) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // Safety net

	// 1. --- Claim the Pending Purchase ---
	result, err := tx.Exec(
		"UPDATE credit_purchases SET status = ? WHERE stripe_session_id = ? AND status = ?",
		models.PurchaseCompleted, sessionID, models.PurchasePending,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Already processed (duplicate delivery) or a session we never
		// issued. Either way there is nothing to grant.
		log.Printf("Webhook for session %s matched no pending purchase; skipping grant", sessionID)
		return tx.Commit()
	}

	// 2. --- Look Up What Was Bought ---
	var userID int64
	var credits int
	err = tx.QueryRow(
		"SELECT user_id, credits FROM credit_purchases WHERE stripe_session_id = ?",
		sessionID,
	).Scan(&userID, &credits)
	if err != nil {
		return err
	}

	// 3. --- Grant the Credits ---
	if err := h.grantCredits(tx, userID, credits); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("Granted %d credit(s) to user %d for session %s", credits, userID, sessionID)
	return nil
}
