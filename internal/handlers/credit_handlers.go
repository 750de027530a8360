package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmarlow/fluxgen-golang/internal/models"
)

//
// --- Credit Ledger Core Functions ---
//

// ensureCreditRow lazily provisions a user's credit row with the free
// starter allowance. INSERT IGNORE + the primary key on user_id means two
// concurrent first requests can never create two rows: exactly one INSERT
// wins and the loser sees zero affected rows.
//
// Returns true when THIS call created the row.
func (h *Handlers) ensureCreditRow(userID int64) (bool, error) {
	result, err := h.DB.Exec(
		"INSERT IGNORE INTO user_credits (user_id, credits, total_credits_purchased) VALUES (?, ?, 0)",
		userID, models.StarterCredits,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// getCredits reads a user's balance row. Returns sql.ErrNoRows when the
// user has never been provisioned.
func (h *Handlers) getCredits(userID int64) (*models.UserCredit, error) {
	var uc models.UserCredit
	uc.UserID = userID

	query := "SELECT credits, total_credits_purchased FROM user_credits WHERE user_id = ?"
	err := h.DB.QueryRow(query, userID).Scan(&uc.Credits, &uc.TotalCreditsPurchased)
	if err != nil {
		return nil, err
	}

	return &uc, nil
}

// debitCredits deducts 'amount' credits in a single conditional UPDATE.
// The WHERE clause carries the sufficiency check, so two concurrent
// requests can never both spend the same credit: the database applies the
// updates one at a time and the condition is re-evaluated for each.
//
// Returns false (with no error) when the balance was insufficient.
func (h *Handlers) debitCredits(userID int64, amount int) (bool, error) {
	result, err := h.DB.Exec(
		"UPDATE user_credits SET credits = credits - ? WHERE user_id = ? AND credits >= ?",
		amount, userID, amount,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// grantCredits adds purchased credits to a user's balance inside the
// given transaction. The row is provisioned first in case the user buys
// credits before ever generating an image.
func (h *Handlers) grantCredits(tx *sql.Tx, userID int64, amount int) error {
	_, err := tx.Exec(
		"INSERT IGNORE INTO user_credits (user_id, credits, total_credits_purchased) VALUES (?, ?, 0)",
		userID, models.StarterCredits,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"UPDATE user_credits SET credits = credits + ?, total_credits_purchased = total_credits_purchased + ? WHERE user_id = ?",
		amount, amount, userID,
	)
	return err
}

//
// --- Credit HTTP Handlers ---
//

// GetMyCredits is the handler for GET /v1/credits
// It returns the user's balance, provisioning the starter allowance on
// first sight (the frontend calls this on page load).
func (h *Handlers) GetMyCredits(c *gin.Context) {
	// 1. --- Get User ID ---
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	// 2. --- Read Balance ---
	credits, err := h.getCredits(userID)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"credits":               credits.Credits,
			"totalCreditsPurchased": credits.TotalCreditsPurchased,
		})
		return
	}

	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to verify credits"})
		return
	}

	// 3. --- First Sight: Provision Starter Credits ---
	if _, err := h.ensureCreditRow(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to initialize credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credits":               models.StarterCredits,
		"totalCreditsPurchased": 0,
	})
}
