package ratelimit

import (
	"context"
	"sync"
	"time"
)

// record is the per-identity window state. Mutated only under the store
// mutex so two concurrent boundary submissions cannot both be admitted.
type record struct {
	count   int
	resetAt time.Time
}

// MemoryStore implements Store with an in-process map. State lives from
// process start to process stop; expired records are removed by the sweep
// worker so memory stays bounded.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Increment implements Store. The counter mutation is a short, local,
// lock-protected operation; no network I/O happens here.
func (s *MemoryStore) Increment(_ context.Context, key string, limit int, window time.Duration) (*Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[key]
	if !ok || now.After(r.resetAt) {
		r = &record{count: 1, resetAt: now.Add(window)}
		s.records[key] = r
	} else {
		r.count++
	}

	allowed := r.count <= limit
	remaining := limit - r.count
	if remaining < 0 {
		remaining = 0
	}

	return &Decision{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    r.resetAt,
		RetryAfter: retryAfterSeconds(allowed, r.resetAt, now),
	}, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// SweepExpired removes every record whose window has passed and returns the
// number removed. Called by the cleanup worker on a fixed interval.
func (s *MemoryStore) SweepExpired(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, r := range s.records {
		if now.After(r.resetAt) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live records. Used by tests and metrics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
