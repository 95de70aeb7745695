package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
)

// Stats aggregates cache counters. Recording is lock-free between resets;
// Reset and Snapshot take the write side of mu so that neither observes a
// half-applied update.
type Stats struct {
	mu          sync.RWMutex
	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
	failures    atomic.Int64
	lastCleared atomic.Int64 // unix nanos
}

// NewStats creates a zeroed aggregator.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) add(c *atomic.Int64, n int64) {
	s.mu.RLock()
	c.Add(n)
	s.mu.RUnlock()
}

// RecordHit counts a lookup served from the store.
func (s *Stats) RecordHit() { s.add(&s.hits, 1) }

// RecordMiss counts a lookup that required a computation.
func (s *Stats) RecordMiss() { s.add(&s.misses, 1) }

// RecordEviction counts capacity evictions.
func (s *Stats) RecordEviction(n int) { s.add(&s.evictions, int64(n)) }

// RecordExpiration counts entries dropped for exceeding their TTL.
func (s *Stats) RecordExpiration(n int) { s.add(&s.expirations, int64(n)) }

// RecordFailure counts a failed or timed-out computation.
func (s *Stats) RecordFailure() { s.add(&s.failures, 1) }

// RecordClear resets every counter to zero.
func (s *Stats) RecordClear(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits.Store(0)
	s.misses.Store(0)
	s.evictions.Store(0)
	s.expirations.Store(0)
	s.failures.Store(0)
	s.lastCleared.Store(at.UnixNano())
}

// Snapshot returns a consistent view of the counters.
func (s *Stats) Snapshot() cache.Stats {
	s.mu.Lock()
	hits := s.hits.Load()
	misses := s.misses.Load()
	snap := cache.Stats{
		Hits:        hits,
		Misses:      misses,
		Evictions:   s.evictions.Load(),
		Expirations: s.expirations.Load(),
		Failures:    s.failures.Load(),
	}
	cleared := s.lastCleared.Load()
	s.mu.Unlock()

	snap.TotalLookups = hits + misses
	if snap.TotalLookups > 0 {
		snap.HitRate = float64(hits) / float64(snap.TotalLookups)
	}
	if cleared != 0 {
		t := time.Unix(0, cleared).UTC()
		snap.LastCleared = &t
	}
	return snap
}
