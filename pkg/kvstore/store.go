// Package kvstore is a small key/value contract with expiry, backed by an
// in-process cache for development and Redis in production.
package kvstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found")

// Entry is a stored value with its expiry.
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the entry has expired.
func (e *Entry) IsExpired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// Store defines the key/value storage interface.
type Store interface {
	// Get retrieves a live entry by key. Returns ErrNotFound for missing or
	// expired keys.
	Get(ctx context.Context, key string) (*Entry, error)
	// Set stores value under key with the given TTL, replacing any entry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// CompareAndSwap replaces the value under key only if it still equals
	// old. An empty old means the key must not exist yet. It reports whether
	// the swap happened.
	CompareAndSwap(ctx context.Context, key, old, value string, ttl time.Duration) (bool, error)
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
