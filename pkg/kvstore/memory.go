package kvstore

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-memory store for development and tests.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryStore creates a store whose janitor purges expired keys every
// cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(key)
}

func (m *MemoryStore) get(key string) (*Entry, error) {
	v, exp, ok := m.cache.GetWithExpiration(key)
	if !ok {
		return nil, ErrNotFound
	}
	return &Entry{Key: key, Value: v.(string), ExpiresAt: exp}, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Set(key, value, expiry(ttl))
	return nil
}

func (m *MemoryStore) CompareAndSwap(_ context.Context, key, old, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := m.get(key)
	switch {
	case err != nil && old != "":
		return false, nil
	case err == nil && cur.Value != old:
		return false, nil
	}
	m.cache.Set(key, value, expiry(ttl))
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Len returns the number of live keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.DeleteExpired()
	return m.cache.ItemCount()
}

func expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return cache.NoExpiration
	}
	return ttl
}
