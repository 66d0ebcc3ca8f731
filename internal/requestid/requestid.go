// Package requestid propagates request and session identifiers via context
// and attaches them to log lines.
package requestid

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type requestKey struct{}

type sessionKey struct{}

// WithRequestID returns a context with the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey{}, id)
}

// FromContext extracts the request ID from context, or generates a new one.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// New returns ctx enriched with incoming when it is set, or with a fresh ID.
func New(ctx context.Context, incoming string) (context.Context, string) {
	id := incoming
	if id == "" || len(id) > 128 {
		id = uuid.New().String()
	}
	return WithRequestID(ctx, id), id
}

// WithSessionID returns a context carrying the audit session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session ID stored in ctx, if any.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Logger returns base enriched with whichever IDs ctx carries.
func Logger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	lc := base.With()
	if id, ok := ctx.Value(requestKey{}).(string); ok && id != "" {
		lc = lc.Str("request_id", id)
	}
	if id := SessionID(ctx); id != "" {
		lc = lc.Str("session_id", id)
	}
	return lc.Logger()
}
