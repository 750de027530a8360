package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jmarlow/fluxgen-golang/internal/models"
)

// ListMyGenerations is the handler for GET /v1/generations
// It returns the caller's generation history, newest first.
func (h *Handlers) ListMyGenerations(c *gin.Context) {
	// 1. --- Get User ID ---
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	// 2. --- Parse Limit (default 20, max 50) ---
	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}
	if limit > 50 {
		limit = 50
	}

	// 3. --- Query History ---
	query := `
		SELECT id, user_id, prompt, image_url, seed, image_size, credits_used, created_at
		FROM image_generations
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := h.DB.Query(query, userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load generations"})
		return
	}
	defer rows.Close()

	generations := []models.ImageGeneration{}
	for rows.Next() {
		var g models.ImageGeneration
		if err := rows.Scan(&g.ID, &g.UserID, &g.Prompt, &g.ImageURL, &g.Seed, &g.ImageSize, &g.CreditsUsed, &g.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan generation"})
			return
		}
		generations = append(generations, g)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load generations"})
		return
	}

	// 4. --- Send Response ---
	c.JSON(http.StatusOK, gin.H{"generations": generations})
}
