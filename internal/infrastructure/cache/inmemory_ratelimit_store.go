package cache

import (
	"context"
	"sync"
	"time"
)

// window is one key's counter and its expiry
type window struct {
	hits    int64
	resetAt time.Time
}

// InMemoryRateLimitStore implements RateLimitStore using an in-memory map.
// Counts are per process, so N instances admit up to N times the limit.
type InMemoryRateLimitStore struct {
	mu        sync.Mutex
	windows   map[string]*window
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRateLimitStore creates a store that evicts expired windows
// every cleanupEvery (one minute when zero)
func NewInMemoryRateLimitStore(cleanupEvery time.Duration) *InMemoryRateLimitStore {
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	store := &InMemoryRateLimitStore{
		windows:  make(map[string]*window),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop(cleanupEvery)

	return store
}

// Increment implements RateLimitStore
func (s *InMemoryRateLimitStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(ttl)}
		s.windows[key] = w
	}
	w.hits++
	return w.hits, w.resetAt, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryRateLimitStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryRateLimitStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired windows
func (s *InMemoryRateLimitStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
		}
	}
}

// Size returns the number of live windows (for testing/monitoring)
func (s *InMemoryRateLimitStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

var _ RateLimitStore = (*InMemoryRateLimitStore)(nil)
