package cooldown

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Records live for the lifetime of the
// process.
type MemoryStore struct {
	window  time.Duration
	mu      sync.Mutex
	lastHit map[string]time.Time
}

// NewMemoryStore creates a process-local store.
func NewMemoryStore(window time.Duration) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		window:  window,
		lastHit: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastHit[key]; ok {
		if elapsed := now.Sub(last); elapsed < s.window {
			return Decision{Allowed: false, RetryAfter: s.window - elapsed}, nil
		}
	}
	s.lastHit[key] = now
	return Decision{Allowed: true}, nil
}

func (s *MemoryStore) Window() time.Duration {
	return s.window
}

// Len reports how many identities have a record.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastHit)
}

func (s *MemoryStore) Close() error {
	return nil
}
