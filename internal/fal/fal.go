package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// fluxEndpoint is the hosted flux/dev model on fal.ai.
const fluxEndpoint = "https://fal.run/fal-ai/flux/dev"

// Service holds the fal.ai API key and the HTTP client used for
// generation calls.
type Service struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewService creates the fal.ai client. The timeout is generous because a
// flux generation routinely takes several seconds.
func NewService(apiKey string) *Service {
	return &Service{
		APIKey:  apiKey,
		BaseURL: fluxEndpoint,
		HTTPClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// GenerationResult is what a successful provider call yields.
type GenerationResult struct {
	ImageURL string
	Seed     *int64
}

// APIError is a failure reported by the provider itself (a non-2xx status,
// or a 2xx response with no usable image). Transport-level failures are
// returned as ordinary wrapped errors instead, so callers can log the two
// cases distinctly.
type APIError struct {
	Status  int
	Details string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fal API error (status %d): %s", e.Status, e.Details)
}

// generateRequest mirrors the flux/dev request body.
type generateRequest struct {
	Prompt              string  `json:"prompt"`
	ImageSize           string  `json:"image_size"`
	NumInferenceSteps   int     `json:"num_inference_steps"`
	GuidanceScale       float64 `json:"guidance_scale"`
	NumImages           int     `json:"num_images"`
	EnableSafetyChecker bool    `json:"enable_safety_checker"`
	Seed                *int64  `json:"seed,omitempty"`
}

// generateResponse covers both response shapes fal has used: an 'images'
// array and a single 'image' object.
type generateResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Image *struct {
		URL string `json:"url"`
	} `json:"image"`
	Seed *int64 `json:"seed"`
}

// GenerateImage makes ONE call to the provider and returns the image URL
// and the seed fal picked (or echoed back).
//
// There is deliberately no retry here: by the time a call fails we cannot
// know whether fal billed us, so retrying is the caller's decision.
func (s *Service) GenerateImage(ctx context.Context, prompt, imageSize string, seed *int64) (*GenerationResult, error) {
	// 1. Build the request body with the same generation settings the
	// frontend has always used.
	reqBody := generateRequest{
		Prompt:              prompt,
		ImageSize:           imageSize,
		NumInferenceSteps:   28,
		GuidanceScale:       3.5,
		NumImages:           1,
		EnableSafetyChecker: true,
		Seed:                seed,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build fal request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	// 2. Execute the call.
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fal request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read fal response: %w", err)
	}

	// 3. A non-2xx status means fal rejected or failed the generation.
	// We keep the raw body as details so the handler can pass it through.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Details: string(body)}
	}

	// 4. Decode and pick the image URL out of either response shape.
	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Details: "unparseable provider response: " + err.Error()}
	}

	imageURL := ""
	if len(result.Images) > 0 {
		imageURL = result.Images[0].URL
	} else if result.Image != nil {
		imageURL = result.Image.URL
	}

	// A 200 without an image URL is still a provider failure, but a
	// different one than an error status; keep the details distinct.
	if imageURL == "" {
		return nil, &APIError{Status: resp.StatusCode, Details: "provider response contained no image URL"}
	}

	return &GenerationResult{
		ImageURL: imageURL,
		Seed:     result.Seed,
	}, nil
}
