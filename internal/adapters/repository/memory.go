package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vibrapulse/internal/domain/report"
	"github.com/okian/vibrapulse/pkg/metrics"
)

type memEntry struct {
	report  *report.Report
	expires time.Time // zero = never
}

// MemoryStore is an in-process Store with TTL and capacity eviction.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]memEntry
	order []string // insertion order, may hold removed ids
	opts  options

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a memory store and starts its sweeper.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[string]memEntry),
		opts:     defaultOptions(),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.startSweeper(ctx)
	return s
}

func (s *MemoryStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep drops expired reports and publishes the live count.
func (s *MemoryStore) sweep() {
	now := s.opts.now()
	s.mu.Lock()
	for id, e := range s.byID {
		if e.expired(now) {
			delete(s.byID, id)
		}
	}
	s.compactLocked()
	n := len(s.byID)
	s.mu.Unlock()
	metrics.UpdateReportsStored(n)
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

func (s *MemoryStore) Save(_ context.Context, r *report.Report) error {
	if r == nil || r.ID == "" {
		return ErrInvalidID
	}
	e := memEntry{report: r}
	if s.opts.ttl > 0 {
		e.expires = s.opts.now().Add(s.opts.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.byID[r.ID] = e
	for len(s.byID) > s.opts.capacity && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, oldest)
	}
	s.compactLocked()
	return nil
}

// compactLocked trims ids of removed reports from the order slice.
func (s *MemoryStore) compactLocked() {
	if len(s.order) <= 2*len(s.byID)+16 {
		return
	}
	live := make([]string, 0, len(s.byID))
	for _, id := range s.order {
		if _, ok := s.byID[id]; ok {
			live = append(live, id)
		}
	}
	s.order = live
}

func (s *MemoryStore) Get(_ context.Context, id string) (*report.Report, error) {
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok || e.expired(s.opts.now()) {
		return nil, ErrNotFound
	}
	return e.report, nil
}

func (s *MemoryStore) Top(_ context.Context, n int) ([]report.Summary, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	now := s.opts.now()
	s.mu.RLock()
	out := make([]report.Summary, 0, len(s.byID))
	for _, e := range s.byID {
		if !e.expired(now) {
			out = append(out, e.report.Summary())
		}
	}
	s.mu.RUnlock()

	sortSummaries(out)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	now := s.opts.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.byID {
		if !e.expired(now) {
			n++
		}
	}
	return n
}
