package models

import "time"

// StarterCredits is the free allowance granted when a user's credit
// row is created for the first time.
const StarterCredits = 3

// UserCredit is the model for the 'user_credits' table.
// One row per user; 'credits' must never go below zero.
type UserCredit struct {
	UserID                int64     `json:"userId" db:"user_id"`
	Credits               int       `json:"credits" db:"credits"`
	TotalCreditsPurchased int       `json:"totalCreditsPurchased" db:"total_credits_purchased"`
	UpdatedAt             time.Time `json:"updatedAt" db:"updated_at"`
}
