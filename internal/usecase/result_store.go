package usecase

import (
	"sync"

	"NetRisk/internal/domain/models"
)

// ResultStore owns the published ForecastResult. Publish atomically swaps the
// current pointer under a short-held lock; readers get an immutable snapshot
// and never observe a partial update. Subscribers are notified on each
// publish without blocking the publisher.
type ResultStore struct {
	mu      sync.RWMutex
	current *models.ForecastResult
	version uint64

	subMu sync.Mutex
	subs  map[chan uint64]struct{}
}

func NewResultStore() *ResultStore {
	return &ResultStore{subs: make(map[chan uint64]struct{})}
}

// Publish swaps in a newly completed result and bumps the version.
func (s *ResultStore) Publish(r *models.ForecastResult) uint64 {
	s.mu.Lock()
	s.current = r
	s.version++
	v := s.version
	s.mu.Unlock()

	s.subMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- v:
		default: // slow subscriber; it will catch up on the next publish
		}
	}
	s.subMu.Unlock()
	return v
}

// Current returns the latest published result and its version. The result is
// nil with version 0 when nothing has been computed yet, which lets callers
// distinguish "never computed" from "stale but valid".
func (s *ResultStore) Current() (*models.ForecastResult, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.version
}

// Subscribe registers a publish-notification channel. The returned cancel
// func must be called to release it.
func (s *ResultStore) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch, func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
}
