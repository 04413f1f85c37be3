package memory

import (
	"context"
	"sync"
	"time"

	"furrchum-vet/internal/ports/idempotency"
)

type idemEntry struct {
	rec       idempotency.Record
	done      bool
	expiresAt time.Time
}

// IdempotencyStore es la variante en proceso; con varias réplicas usar Redis.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idemEntry
	now     func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		entries: make(map[string]idemEntry),
		now:     time.Now,
	}
}

func (s *IdempotencyStore) Load(ctx context.Context, key string) (idempotency.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok || !e.done {
		return idempotency.Record{}, false, nil
	}
	return e.rec, true, nil
}

func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = idemEntry{expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, key string, rec idempotency.Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idemEntry{rec: rec, done: true, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// live devuelve la entrada si no expiró; las vencidas se borran al pasar.
func (s *IdempotencyStore) live(key string) (idemEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return idemEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return idemEntry{}, false
	}
	return e, true
}
