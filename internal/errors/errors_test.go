package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError("crm", 403, "forbidden")
	assert.Contains(t, err.Error(), "crm")
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "forbidden")
}

func TestAPIError_WithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := &APIError{Service: "email", StatusCode: 500, Message: "fail", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClientInputError(t *testing.T) {
	err := NewClientInputError("sessionId", "is required")
	assert.Equal(t, "sessionId: is required", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)

	wrapped := fmt.Errorf("answer: %w", err)
	var cie *ClientInputError
	assert.True(t, errors.As(wrapped, &cie))
	assert.Equal(t, "sessionId", cie.Field)
}

func TestMaxRetriesError(t *testing.T) {
	last := errors.New("boom")
	err := &MaxRetriesError{MaxRetries: 2, LastErr: last}

	assert.Contains(t, err.Error(), "Max retries (2) exceeded")
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, last)

	bare := &MaxRetriesError{MaxRetries: 0}
	assert.Equal(t, "Max retries (0) exceeded", bare.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAPIError("crm", 429, "rate limit")))
	assert.True(t, IsRetryable(NewAPIError("crm", 502, "bad gateway")))
	assert.True(t, IsRetryable(NewAPIError("crm", 503, "unavailable")))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(ErrUnavailable))
	assert.True(t, IsRetryable(fmt.Errorf("save: %w", ErrConflict)))

	assert.False(t, IsRetryable(NewAPIError("crm", 401, "unauth")))
	assert.False(t, IsRetryable(NewAPIError("crm", 404, "not found")))
	assert.False(t, IsRetryable(ErrAuthFailure))
	assert.False(t, IsRetryable(ErrSessionNotFound))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewClientInputError("message", "is required")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("load: %w", ErrSessionNotFound)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrConflict))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(ErrRateLimit))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("redis down")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(&MaxRetriesError{MaxRetries: 1}))
}
