package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// DefaultComputeTimeout bounds a single computation when no timeout is configured.
const DefaultComputeTimeout = 30 * time.Second

// DefaultTTL applies to operations without an explicit TTL.
const DefaultTTL = 5 * time.Minute

// Request describes one cached call.
type Request struct {
	// Operation names the analytic family, e.g. "similarity".
	Operation string
	// Params are the call parameters used to derive the key.
	Params map[string]any
	// TTL overrides the operation's TTL when positive. Negative means never expire.
	TTL time.Duration
	// Timeout overrides the computation timeout when positive.
	Timeout time.Duration
}

// Recorder receives cache events for metrics export.
type Recorder interface {
	RecordCacheHit(ctx context.Context, operation string)
	RecordCacheMiss(ctx context.Context, operation string)
	RecordComputation(ctx context.Context, operation string, d time.Duration, err error)
	RecordEviction(ctx context.Context, n int)
}

// Cache memoizes computations by operation and parameters.
//
// Hits are served under the read side of a quiesce lock; Clear takes the
// write side, bumps the generation and empties store and counters
// together. A computation started before a Clear still reaches its
// waiters but is neither stored nor counted. Callers arriving after the
// Clear wait for it and then compute once more, so a key never has two
// computations running at once.
type Cache struct {
	codec  *Codec
	store  *Store
	flight *Flight
	stats  *Stats

	quiesce    sync.RWMutex
	generation atomic.Uint64
	closed     atomic.Bool

	ttlMu      sync.RWMutex
	ttls       map[string]time.Duration
	defaultTTL time.Duration
	timeout    time.Duration
	now        func() time.Time
	recorder   Recorder
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	codec      *Codec
	defaultTTL time.Duration
	ttls       map[string]time.Duration
	timeout    time.Duration
	capacity   int
	shards     int
	now        func() time.Time
	recorder   Recorder
}

// WithCodec uses a codec with pre-registered parameter defaults.
func WithCodec(c *Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithDefaultTTL sets the TTL for operations without their own.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.defaultTTL = ttl
	}
}

// WithOperationTTL sets the TTL for one operation family.
func WithOperationTTL(operation string, ttl time.Duration) Option {
	return func(o *options) {
		o.ttls[operation] = ttl
	}
}

// WithComputeTimeout bounds each computation. Zero disables the bound.
func WithComputeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxEntries bounds the store with LRU eviction. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithShardCount sets the number of store lock shards.
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shards = n
	}
}

// WithTimeSource overrides the clock.
func WithTimeSource(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRecorder exports cache events.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// New creates a cache.
func New(opts ...Option) *Cache {
	o := options{
		defaultTTL: DefaultTTL,
		ttls:       make(map[string]time.Duration),
		timeout:    DefaultComputeTimeout,
		shards:     DefaultShards,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = NewCodec()
	}

	c := &Cache{
		codec:      o.codec,
		flight:     &Flight{},
		stats:      NewStats(),
		ttls:       o.ttls,
		defaultTTL: o.defaultTTL,
		timeout:    o.timeout,
		now:        o.now,
		recorder:   o.recorder,
	}
	c.store = NewStore(
		WithShards(o.shards),
		WithCapacity(o.capacity),
		WithClock(o.now),
		WithRemovalHandler(c.onRemoval),
	)
	return c
}

// Codec returns the key codec.
func (c *Cache) Codec() *Codec {
	return c.codec
}

// SetTTL changes the TTL of an operation family for future inserts.
func (c *Cache) SetTTL(operation string, ttl time.Duration) {
	c.ttlMu.Lock()
	c.ttls[operation] = ttl
	c.ttlMu.Unlock()
}

// TTL returns the TTL applied to an operation family.
func (c *Cache) TTL(operation string) time.Duration {
	c.ttlMu.RLock()
	defer c.ttlMu.RUnlock()
	if ttl, ok := c.ttls[operation]; ok {
		return ttl
	}
	return c.defaultTTL
}

// GetOrCompute returns the cached value for req or computes it with fn.
//
// Errors are a *cache.KeyDerivationError when the parameters cannot be
// encoded, a *cache.ComputationError when fn fails or times out, or
// ctx.Err() when the caller gives up waiting. Failures are never cached.
func (c *Cache) GetOrCompute(ctx context.Context, req Request, fn cache.ComputeFunc) (any, cache.Status, error) {
	if c.closed.Load() {
		return nil, "", cache.ErrClosed
	}
	key, err := c.codec.Key(req.Operation, req.Params)
	if err != nil {
		return nil, "", err
	}

	c.quiesce.RLock()
	gen := c.generation.Load()
	entry, ok := c.store.Lookup(key)
	if ok {
		c.stats.RecordHit()
	}
	c.quiesce.RUnlock()

	if ok {
		if c.recorder != nil {
			c.recorder.RecordCacheHit(ctx, req.Operation)
		}
		return entry.Value, cache.StatusHit, nil
	}

	var value any
	for {
		v, _, err := c.flight.Do(ctx, key.String(), func() (any, error) {
			return c.compute(ctx, key, gen, req, fn)
		})
		if err != nil {
			return nil, "", err
		}
		res := v.(computed)
		if res.generation >= gen {
			value = res.value
			break
		}
		// The flight started before a Clear this caller already saw.
	}

	c.quiesce.RLock()
	current := c.generation.Load() == gen
	if current {
		c.stats.RecordMiss()
	}
	c.quiesce.RUnlock()

	if current && c.recorder != nil {
		c.recorder.RecordCacheMiss(ctx, req.Operation)
	}
	return value, cache.StatusMiss, nil
}

// computed is a flight result tagged with the generation its owner observed.
type computed struct {
	value      any
	generation uint64
}

// compute runs inside the single flight for key.
func (c *Cache) compute(ctx context.Context, key cache.Key, gen uint64, req Request, fn cache.ComputeFunc) (any, error) {
	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	start := c.now()
	value, err := runBounded(ctx, timeout, fn)
	elapsed := c.now().Sub(start)

	if c.recorder != nil {
		c.recorder.RecordComputation(ctx, req.Operation, elapsed, err)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("exceeded %s: %w", timeout, err)
		}
		c.quiesce.RLock()
		if c.generation.Load() == gen {
			c.stats.RecordFailure()
		}
		c.quiesce.RUnlock()

		logging.Debug().
			Add(logging.Component("cache"), logging.Operation(req.Operation), logging.CacheKey(key.String())).
			Add(logging.Duration(elapsed), logging.ErrorField(err)).
			Msg("computation failed")
		return nil, &cache.ComputationError{Operation: req.Operation, Err: err}
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = c.TTL(req.Operation)
	}

	stored := false
	c.quiesce.RLock()
	if c.generation.Load() == gen {
		created := c.now()
		c.store.Insert(key, cache.Entry{
			Value:      value,
			CreatedAt:  created,
			TTL:        ttl,
			LastAccess: created,
			Generation: gen,
		})
		stored = true
	}
	c.quiesce.RUnlock()

	logging.Debug().
		Add(logging.Component("cache"), logging.Operation(req.Operation), logging.CacheKey(key.String())).
		Add(logging.Duration(elapsed), logging.Str("stored", strconv.FormatBool(stored))).
		Msg("computed")
	return computed{value: value, generation: gen}, nil
}

// Do is GetOrCompute with a typed computation.
func Do[T any](ctx context.Context, c *Cache, req Request, fn func(ctx context.Context) (T, error)) (T, cache.Status, error) {
	var zero T
	v, status, err := c.GetOrCompute(ctx, req, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, status, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, status, &cache.ComputationError{
			Operation: req.Operation,
			Err:       fmt.Errorf("cached value has type %T, want %T", v, zero),
		}
	}
	return typed, status, nil
}

// Clear empties the store and resets all counters. Computations already
// in flight still complete for their waiters but are not stored.
func (c *Cache) Clear() int {
	c.quiesce.Lock()
	c.generation.Add(1)
	removed := c.store.Clear()
	c.stats.RecordClear(c.now())
	c.quiesce.Unlock()

	logging.Debug().
		Add(logging.Component("cache"), logging.Count("entries_removed", removed)).
		Msg("cache cleared")
	return removed
}

// Stats returns the counters together with the store size.
func (c *Cache) Stats() cache.Stats {
	c.quiesce.RLock()
	snap := c.stats.Snapshot()
	snap.Size = c.store.Len()
	c.quiesce.RUnlock()

	snap.MaxEntries = c.store.Capacity()
	snap.InFlight = c.flight.InFlight()
	return snap
}

// Sweep removes expired entries eagerly and returns how many were removed.
func (c *Cache) Sweep() int {
	c.quiesce.RLock()
	defer c.quiesce.RUnlock()
	return c.store.SweepExpired()
}

// Generation returns the current clear-generation.
func (c *Cache) Generation() uint64 {
	return c.generation.Load()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Computations returns how many computations have been started.
func (c *Cache) Computations() int64 {
	return c.flight.Runs()
}

// Close rejects further calls. In-flight computations are unaffected.
func (c *Cache) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Cache) onRemoval(_ cache.Key, reason RemovalReason) {
	switch reason {
	case RemovedExpired:
		c.stats.RecordExpiration(1)
	case RemovedCapacity:
		c.stats.RecordEviction(1)
		if c.recorder != nil {
			c.recorder.RecordEviction(context.Background(), 1)
		}
	}
}

var _ cache.StatsProvider = (*Cache)(nil)
