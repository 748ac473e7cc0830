package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is returned when a provider answers with a non-success status.
// Callers branch on StatusCode to decide whether a retry is worthwhile;
// RetryAfter carries the provider's requested backoff on 429 responses.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Transient reports whether the failure is worth retrying: rate limits and
// server-side errors are; auth and request errors are not.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether an error from a provider call is a transient
// failure. Network errors and timeouts arrive as plain wrapped errors, not
// APIErrors, and are treated as transient; only a non-transient APIError
// (quota, auth, bad request) stops the retry loop.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return true
}

// retryAfterDuration parses a Retry-After header value in seconds. Malformed
// or absent values yield zero.
func retryAfterDuration(header string) time.Duration {
	if header == "" {
		return 0
	}
	var secs int
	if _, err := fmt.Sscanf(header, "%d", &secs); err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
