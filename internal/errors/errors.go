// Package errors provides the error taxonomy shared by the intake service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
var (
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("concurrent modification")
	ErrTimeout         = errors.New("operation timed out")
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrUnavailable     = errors.New("service unavailable")
	ErrAuthFailure     = errors.New("authentication failed")
	ErrDependency      = errors.New("dependency failure")
	ErrMaxRetries      = errors.New("max retries exceeded")
)

// ClientInputError reports a malformed or incomplete client request.
type ClientInputError struct {
	Field  string
	Reason string
}

func (e *ClientInputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ClientInputError) Unwrap() error { return ErrInvalidInput }

// NewClientInputError creates a ClientInputError for field.
func NewClientInputError(field, reason string) *ClientInputError {
	return &ClientInputError{Field: field, Reason: reason}
}

// APIError represents an error from an external API call.
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

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// MaxRetriesError is returned once a retry budget is spent. It carries the
// configured budget so callers can tell it apart from a raw operation failure.
type MaxRetriesError struct {
	MaxRetries int
	LastErr    error
}

func (e *MaxRetriesError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("Max retries (%d) exceeded. Last error: %v", e.MaxRetries, e.LastErr)
	}
	return fmt.Sprintf("Max retries (%d) exceeded", e.MaxRetries)
}

// Is matches ErrMaxRetries. Unwrap exposes the last attempt's error.
func (e *MaxRetriesError) Is(target error) bool { return target == ErrMaxRetries }

func (e *MaxRetriesError) Unwrap() error { return e.LastErr }

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrUnavailable) || errors.Is(err, ErrConflict)
}

// HTTPStatus maps an error onto the status code the API returns for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthFailure):
		return http.StatusUnauthorized
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimit):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
