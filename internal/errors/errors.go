// Package errors provides structured error types for the conversational service.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrAuthFailure means a collaborator rejected our credentials.
	// Fatal for the session, never retried.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrUnavailable means a collaborator could not be reached or answered
	// with something we could not parse. Recoverable per turn.
	ErrUnavailable = errors.New("service unavailable")

	ErrTimeout      = errors.New("operation timed out")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// APIError represents an error from an external collaborator call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error and maps the HTTP status onto the
// sentinel taxonomy so callers can branch with errors.Is.
func NewAPIError(service string, statusCode int, message string) *APIError {
	e := &APIError{Service: service, StatusCode: statusCode, Message: message}
	switch statusCode {
	case 401, 403:
		e.Err = ErrAuthFailure
	case 429:
		e.Err = ErrRateLimit
	case 404:
		e.Err = ErrNotFound
	default:
		if statusCode >= 500 {
			e.Err = ErrUnavailable
		}
	}
	return e
}

// Unavailable wraps err as a collaborator-unavailable failure.
func Unavailable(service string, err error) error {
	return &APIError{Service: service, Message: "collaborator unavailable", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
}

// IsRetryable returns true if the error is likely transient and worth retrying.
// Auth failures are never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrAuthFailure) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
