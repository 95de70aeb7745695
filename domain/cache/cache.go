// Package cache provides the domain types for memoizing analytic results.
package cache

import (
	"context"
	"time"
)

// Status reports whether a result was served from the cache.
type Status string

// Cache statuses.
const (
	StatusHit  Status = "hit"
	StatusMiss Status = "miss"
)

// Key addresses a cached result. It is derived from an operation name and
// its canonicalized parameters and is comparable.
type Key struct {
	// Operation is the analytic operation the key belongs to.
	Operation string
	// Digest is the hex SHA-256 of the canonical parameter encoding.
	Digest string
}

// String returns the key in "operation:digest" form.
func (k Key) String() string {
	return k.Operation + ":" + k.Digest
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k.Operation == "" && k.Digest == ""
}

// Entry is a cached result with its bookkeeping metadata.
type Entry struct {
	// Value is the computed result. The cache never inspects it.
	Value any
	// CreatedAt is when the entry was stored.
	CreatedAt time.Time
	// TTL is the time-to-live. Zero or negative means no expiration.
	TTL time.Duration
	// LastAccess is updated on every hit.
	LastAccess time.Time
	// Generation is the clear-generation the entry was computed in.
	Generation uint64
	// Hits counts lookups served by this entry.
	Hits int64
}

// Expired reports whether the entry is expired at now.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return !now.Before(e.CreatedAt.Add(e.TTL))
}

// ExpiresAt returns the expiry instant, or the zero time for entries that never expire.
func (e *Entry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(e.TTL)
}

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) (any, error)

// Stats is a consistent point-in-time view of cache counters.
type Stats struct {
	Hits         int64      `json:"hits"`
	Misses       int64      `json:"misses"`
	TotalLookups int64      `json:"total_lookups"`
	HitRate      float64    `json:"hit_rate"`
	Evictions    int64      `json:"evictions"`
	Expirations  int64      `json:"expirations"`
	Failures     int64      `json:"failures"`
	Size         int        `json:"size"`
	MaxEntries   int        `json:"max_entries"`
	InFlight     int64      `json:"in_flight"`
	LastCleared  *time.Time `json:"last_cleared,omitempty"`
}

// StatsProvider is implemented by caches that expose statistics.
type StatsProvider interface {
	Stats() Stats
}

// Set is an unordered collection parameter. The key codec sorts its
// members so that element order never changes the derived key.
type Set []any

// NewSet builds a Set from strings.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for i, item := range items {
		s[i] = item
	}
	return s
}
