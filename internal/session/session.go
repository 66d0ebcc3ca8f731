// Package session persists audit conversations in the key/value store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/p-blackswan/audit-intake/internal/audit"
	perrors "github.com/p-blackswan/audit-intake/internal/errors"
	"github.com/p-blackswan/audit-intake/pkg/kvstore"
)

const (
	// KeyPrefix namespaces session documents in the store.
	KeyPrefix = "session:"
	// DefaultTTL is how long an idle session survives. Every write refreshes it.
	DefaultTTL = 24 * time.Hour
)

// Session is one prospect's audit conversation.
type Session struct {
	ID         string              `json:"id"`
	Phase      audit.Phase         `json:"currentPhase"`
	Extracted  audit.ExtractedInfo `json:"extracted"`
	Messages   []audit.Message     `json:"messages"`
	Email      string              `json:"email,omitempty"`
	NeedsEmail bool                `json:"needsEmail"`
	ReportID   string              `json:"reportId,omitempty"`
	Version    int64               `json:"version"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// New returns a fresh session in discovery. An empty id gets a generated one.
func New(id string, now time.Time) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:        id,
		Phase:     audit.PhaseDiscovery,
		Messages:  []audit.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a message to the transcript. Assistant messages that
// repeat the previous message are dropped. It reports whether the message
// was appended.
func (s *Session) AddMessage(role audit.Role, content string, now time.Time) bool {
	m := audit.Message{ID: uuid.NewString(), Role: role, Content: content, Timestamp: now}
	if role == audit.RoleUser {
		s.Messages = append(s.Messages, m)
		return true
	}
	var added bool
	s.Messages, added = audit.AppendMessage(s.Messages, m)
	return added
}

// Key is the store key for a session id.
func Key(id string) string { return KeyPrefix + id }

// Repository loads and saves sessions with optimistic concurrency. Each
// write compares the stored document against the one that was read, so a
// concurrent writer makes the second save fail with errors.ErrConflict
// instead of silently losing data.
type Repository struct {
	kv  kvstore.Store
	ttl time.Duration
	now func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// NewRepository creates a repository over kv. A non-positive ttl uses DefaultTTL.
func NewRepository(kv kvstore.Store, ttl time.Duration, opts ...Option) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Repository{kv: kv, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Now returns the repository's clock reading.
func (r *Repository) Now() time.Time { return r.now() }

// Get loads a session. Missing or expired sessions return ErrSessionNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*Session, error) {
	s, _, err := r.load(ctx, id)
	return s, err
}

// Create stores a new session. It fails with ErrConflict if the id is taken.
func (r *Repository) Create(ctx context.Context, s *Session) error {
	s.Version = 1
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	ok, err := r.kv.CompareAndSwap(ctx, Key(s.ID), "", string(raw), r.ttl)
	if err != nil {
		return fmt.Errorf("%w: saving session: %v", perrors.ErrDependency, err)
	}
	if !ok {
		return fmt.Errorf("%w: session %s already exists", perrors.ErrConflict, s.ID)
	}
	return nil
}

// Update applies fn to the stored session and writes it back if nobody else
// changed it meanwhile. fn may be called on a session the caller must not
// retain; an error from fn aborts the write.
func (r *Repository) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	s, raw, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.Version++
	s.UpdatedAt = r.now()

	next, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	ok, err := r.kv.CompareAndSwap(ctx, Key(id), raw, string(next), r.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: saving session: %v", perrors.ErrDependency, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: session %s changed during update", perrors.ErrConflict, id)
	}
	return s, nil
}

// Delete removes a session.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.kv.Delete(ctx, Key(id)); err != nil {
		return fmt.Errorf("%w: deleting session: %v", perrors.ErrDependency, err)
	}
	return nil
}

func (r *Repository) load(ctx context.Context, id string) (*Session, string, error) {
	e, err := r.kv.Get(ctx, Key(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: %s", perrors.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: loading session: %v", perrors.ErrDependency, err)
	}
	var s Session
	if err := json.Unmarshal([]byte(e.Value), &s); err != nil {
		return nil, "", fmt.Errorf("%w: decoding session %s: %v", perrors.ErrDependency, id, err)
	}
	if s.Messages == nil {
		s.Messages = []audit.Message{}
	}
	return &s, e.Value, nil
}
