package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jmarlow/fluxgen-golang/internal/fal"
	"github.com/jmarlow/fluxgen-golang/internal/models"
)

// GenerateImageInput defines the JSON body for a generation request.
type GenerateImageInput struct {
	Prompt    string `json:"prompt" binding:"required"`
	ImageSize string `json:"imageSize"`
	Seed      *int64 `json:"seed"`
}

// GenerateImage is the handler for POST /v1/generate
//
// This is the one paid operation in the API, so the ordering matters:
// the balance is checked BEFORE the provider is called, and the credit is
// deducted only AFTER the provider reports success. A failed generation
// must never cost the user a credit.
//
// Note: there is no idempotency key. A client that times out and resubmits
// will be billed for both generations.
func (h *Handlers) GenerateImage(c *gin.Context) {
	// 1. --- Get User ID ---
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	// 2. --- Bind & Validate Input ---
	var input GenerateImageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	imageSize := input.ImageSize
	if imageSize == "" {
		imageSize = models.DefaultImageSize
	}
	if !models.IsValidImageSize(imageSize) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid imageSize"})
		return
	}

	// 3. --- Load Balance (Initialize On First Use) ---
	credits, err := h.getCredits(userID)
	if err != nil {
		if err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to verify credits"})
			return
		}

		// First-ever request: provision the starter allowance but do NOT
		// generate. The client is told to retry, so the very first call
		// only costs us a row insert, never a provider call.
		if _, err := h.ensureCreditRow(userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to initialize credits"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"error":           "Credits initialized. Please try again.",
			"credits_granted": models.StarterCredits,
		})
		return
	}

	// 4. --- Check Sufficiency BEFORE the Paid Call ---
	if credits.Credits < 1 {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient credits"})
		return
	}

	// 5. --- Call the Image Provider ---
	// No ledger lock is held here: the call can take many seconds, and
	// correctness comes from deducting only after success, not from
	// locking the balance row for the whole call.
	result, err := h.Fal.GenerateImage(c.Request.Context(), prompt, imageSize, input.Seed)
	if err != nil {
		var apiErr *fal.APIError
		if errors.As(err, &apiErr) {
			log.Printf("fal API error for user %d: status=%d details=%s", userID, apiErr.Status, apiErr.Details)

			// Pass the provider's own error status through when it is an
			// error status; a 2xx-but-unusable response becomes a 502.
			status := apiErr.Status
			if status < 400 {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{
				"error":   "Failed to generate image",
				"details": apiErr.Details,
				"status":  apiErr.Status,
			})
			return
		}

		// Transport-level failure (DNS, timeout, connection reset).
		log.Printf("fal request failed for user %d: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate image", "details": err.Error()})
		return
	}

	// 6. --- Deduct One Credit ---
	// If a concurrent request drained the balance between steps 4 and 5,
	// the deduction finds nothing to take. The image has already been
	// produced (and paid for upstream), so we log the anomaly and still
	// hand it over rather than throw it away.
	debited, err := h.debitCredits(userID, 1)
	if err != nil {
		log.Printf("Failed to deduct credit for user %d: %v", userID, err)
	} else if !debited {
		log.Printf("Credit race: user %d balance drained between check and debit; image delivered anyway", userID)
	}

	// 7. --- Record the Generation ---
	// The user already has their image at this point; a failed history
	// insert is logged, never surfaced.
	query := `
		INSERT INTO image_generations
		(id, user_id, prompt, image_url, seed, image_size, credits_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, dbErr := h.DB.Exec(query, uuid.New().String(), userID, prompt, result.ImageURL, result.Seed, imageSize, 1, time.Now())
	if dbErr != nil {
		log.Printf("Warning: failed to save generation record for user %d: %v", userID, dbErr)
	}

	// 8. --- Send the Image Back ---
	c.JSON(http.StatusOK, gin.H{
		"images": []gin.H{{"url": result.ImageURL}},
		"seed":   result.Seed,
	})
}
