package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/audit-intake/internal/audit"
	perrors "github.com/p-blackswan/audit-intake/internal/errors"
	"github.com/p-blackswan/audit-intake/pkg/kvstore"
)

func newRepo(t *testing.T) (*Repository, *kvstore.MemoryStore) {
	t.Helper()
	kv := kvstore.NewMemoryStore(time.Minute)
	return NewRepository(kv, 0), kv
}

func TestNew(t *testing.T) {
	now := time.Now()
	s := New("", now)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, audit.PhaseDiscovery, s.Phase)
	assert.NotNil(t, s.Messages)
	assert.True(t, s.Extracted.IsEmpty())
	assert.Equal(t, "abc", New("abc", now).ID)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "session:abc", Key("abc"))
}

func TestAddMessage_DedupesAssistantOnly(t *testing.T) {
	s := New("x", time.Now())
	assert.True(t, s.AddMessage(audit.RoleAssistant, "hello", time.Now()))
	assert.False(t, s.AddMessage(audit.RoleAssistant, "hello", time.Now()))
	assert.True(t, s.AddMessage(audit.RoleUser, "hi", time.Now()))
	assert.True(t, s.AddMessage(audit.RoleUser, "hi", time.Now()))
	assert.Len(t, s.Messages, 3)
}

func TestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo, kv := newRepo(t)

	s := New("abc", time.Now())
	s.AddMessage(audit.RoleAssistant, audit.Greeting, time.Now())
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, audit.PhaseDiscovery, got.Phase)
	require.Len(t, got.Messages, 1)

	e, err := kv.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), e.ExpiresAt, 5*time.Second)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.Value), &doc))
	assert.Equal(t, "discovery", doc["currentPhase"])
}

func TestRepository_CreateTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	require.NoError(t, repo.Create(ctx, New("abc", time.Now())))
	err := repo.Create(ctx, New("abc", time.Now()))
	assert.ErrorIs(t, err, perrors.ErrConflict)
}

func TestRepository_GetMissing(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, perrors.ErrSessionNotFound)
	assert.Equal(t, 404, perrors.HTTPStatus(err))
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	kv := kvstore.NewMemoryStore(time.Minute)
	repo := NewRepository(kv, time.Hour, WithClock(func() time.Time { return clock }))
	require.NoError(t, repo.Create(ctx, New("abc", clock)))

	clock = clock.Add(time.Minute)
	got, err := repo.Update(ctx, "abc", func(s *Session) error {
		s.Phase = audit.PhasePainPoints
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, clock, got.UpdatedAt)

	reloaded, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, audit.PhasePainPoints, reloaded.Phase)
}

func TestRepository_UpdateAbortsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	require.NoError(t, repo.Create(ctx, New("abc", time.Now())))

	_, err := repo.Update(ctx, "abc", func(s *Session) error {
		s.Phase = audit.PhaseFinished
		return perrors.NewClientInputError("email", "required")
	})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, audit.PhaseDiscovery, got.Phase)
	assert.Equal(t, int64(1), got.Version)
}

func TestRepository_UpdateDetectsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	require.NoError(t, repo.Create(ctx, New("abc", time.Now())))

	_, err := repo.Update(ctx, "abc", func(s *Session) error {
		// Another writer lands between our read and our write.
		_, inner := repo.Update(ctx, "abc", func(o *Session) error {
			o.Email = "other@example.com"
			return nil
		})
		require.NoError(t, inner)
		s.Email = "mine@example.com"
		return nil
	})
	assert.ErrorIs(t, err, perrors.ErrConflict)

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", got.Email)
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	require.NoError(t, repo.Create(ctx, New("abc", time.Now())))
	require.NoError(t, repo.Delete(ctx, "abc"))
	_, err := repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, perrors.ErrSessionNotFound)
}
