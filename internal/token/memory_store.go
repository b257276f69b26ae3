package token

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	claims    Claims
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore backs tokens with a plain map. Used in tests and when redis
// is not configured.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

func (s *memoryStore) Issue(_ context.Context, kind Kind, claims Claims, ttl time.Duration) (string, error) {
	value := newValue()
	s.mu.Lock()
	s.entries[key(kind, value)] = memoryEntry{
		claims:    claims,
		expiresAt: time.Now().UTC().Add(ttl),
	}
	s.mu.Unlock()
	return value, nil
}

func (s *memoryStore) Consume(_ context.Context, kind Kind, value string) (Claims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(kind, value)
	entry, ok := s.entries[k]
	if !ok {
		return Claims{}, ErrTokenNotFound
	}
	delete(s.entries, k)
	if time.Now().UTC().After(entry.expiresAt) {
		return Claims{}, ErrTokenExpired
	}
	return entry.claims, nil
}

func (s *memoryStore) Peek(_ context.Context, kind Kind, value string) (Claims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key(kind, value)]
	if !ok {
		return Claims{}, ErrTokenNotFound
	}
	if time.Now().UTC().After(entry.expiresAt) {
		return Claims{}, ErrTokenExpired
	}
	return entry.claims, nil
}
