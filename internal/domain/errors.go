package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is a missing or malformed request parameter
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConfigurationError is a deployment fault such as a missing secret
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// UpstreamError is a failed call to a third-party provider.
// Status is 0 when the request never produced a response.
type UpstreamError struct {
	Provider   string
	Status     int
	RetryAfter string
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.Status == 0:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s API responded with status: %d - %s", e.Provider, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s API responded with status: %d", e.Provider, e.Status)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsRateLimited reports whether the provider answered 429
func (e *UpstreamError) IsRateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// ShapeError is a provider payload missing an expected field
type ShapeError struct {
	Provider string
	Field    string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid %s data received: missing %q", e.Provider, e.Field)
}

// NewValidationError creates a ValidationError
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(msg string) error {
	return &ConfigurationError{Message: msg}
}

// RateLimit extracts a rate-limit failure from an error chain
func RateLimit(err error) (*UpstreamError, bool) {
	var up *UpstreamError
	if errors.As(err, &up) && up.IsRateLimited() {
		return up, true
	}
	return nil, false
}

// StatusFor maps an error to the HTTP status returned to clients
func StatusFor(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	if _, ok := RateLimit(err); ok {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
