package models

import "time"

// DefaultImageSize is used when the client does not send an imageSize.
const DefaultImageSize = "landscape_4_3"

// validImageSizes are the aspect-ratio presets the provider accepts.
var validImageSizes = map[string]bool{
	"square_hd":      true,
	"square":         true,
	"portrait_4_3":   true,
	"portrait_16_9":  true,
	"landscape_4_3":  true,
	"landscape_16_9": true,
}

// IsValidImageSize reports whether 'size' is one of the supported presets.
func IsValidImageSize(size string) bool {
	return validImageSizes[size]
}

// ImageGeneration is the model for the 'image_generations' table.
// Rows are written once after a successful generation and never updated.
type ImageGeneration struct {
	ID          string    `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	Prompt      string    `json:"prompt" db:"prompt"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Seed        *int64    `json:"seed,omitempty" db:"seed"`
	ImageSize   string    `json:"imageSize" db:"image_size"`
	CreditsUsed int       `json:"creditsUsed" db:"credits_used"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
