package synth

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAudio is returned when the backend answered without audio.
	ErrNoAudio = errors.New("synth: no audio data returned")

	// ErrNoAPIKey is returned when the backend has no credentials.
	ErrNoAPIKey = errors.New("synth: API key required")

	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("synth: input text is empty")

	// ErrUnknownReciter is returned by Catalog.Find when nothing matches.
	ErrUnknownReciter = errors.New("synth: unknown reciter")
)

// APIError represents an error response from the speech API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Status is the API status string, e.g. RESOURCE_EXHAUSTED.
	Status string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("synth: API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("synth: API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps authentication failures to ErrNoAPIKey so callers can treat
// a rejected key like a missing one.
func (e *APIError) Unwrap() error {
	if e.IsUnauthorized() {
		return ErrNoAPIKey
	}
	return nil
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized returns true if the key was rejected.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.StatusCode >= 500
}
