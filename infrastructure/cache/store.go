package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
)

// RemovalReason explains why the store dropped an entry on its own.
type RemovalReason int

// Removal reasons reported to the removal handler.
const (
	// RemovedExpired means the entry outlived its TTL.
	RemovedExpired RemovalReason = iota
	// RemovedCapacity means the entry was the least recently used in a full store.
	RemovedCapacity
)

// String implements fmt.Stringer.
func (r RemovalReason) String() string {
	switch r {
	case RemovedExpired:
		return "expired"
	case RemovedCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 16

// Store is a sharded map from key to entry with lazy TTL expiry and an
// optional LRU capacity bound. Lookups lock only the key's shard. Recency
// is tracked in one list across all shards, so the bound applies to the
// store as a whole and eviction picks the least recently used entry.
//
// Locks are taken shard first, then the recency lock.
type Store struct {
	shards    []*shard
	capacity  int
	now       func() time.Time
	onRemoval func(key cache.Key, reason RemovalReason)

	lruMu sync.Mutex
	lru   *list.List // front is most recently used
}

type shard struct {
	mu    sync.Mutex
	items map[cache.Key]*list.Element
}

type storeItem struct {
	key   cache.Key
	entry cache.Entry
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	shards    int
	capacity  int
	now       func() time.Time
	onRemoval func(key cache.Key, reason RemovalReason)
}

// WithShards sets the number of lock shards.
func WithShards(n int) StoreOption {
	return func(c *storeConfig) {
		if n > 0 {
			c.shards = n
		}
	}
}

// WithCapacity bounds the total number of entries. Zero means unbounded.
func WithCapacity(n int) StoreOption {
	return func(c *storeConfig) {
		if n >= 0 {
			c.capacity = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRemovalHandler registers a callback for expirations and evictions.
// It runs with a shard lock held and must not call back into the store.
func WithRemovalHandler(fn func(key cache.Key, reason RemovalReason)) StoreOption {
	return func(c *storeConfig) {
		c.onRemoval = fn
	}
}

// NewStore creates an entry store.
func NewStore(opts ...StoreOption) *Store {
	cfg := storeConfig{
		shards: DefaultShards,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{
		shards:    make([]*shard, cfg.shards),
		capacity:  cfg.capacity,
		now:       cfg.now,
		onRemoval: cfg.onRemoval,
		lru:       list.New(),
	}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[cache.Key]*list.Element)}
	}
	return s
}

func (s *Store) shardFor(key cache.Key) *shard {
	if len(s.shards) == 1 {
		return s.shards[0]
	}
	h := fnv.New32a()
	h.Write([]byte(key.Operation))
	h.Write([]byte(key.Digest))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Lookup returns a copy of the live entry for key. An expired entry is
// removed and reported absent. A hit refreshes the entry's recency.
func (s *Store) Lookup(key cache.Key) (cache.Entry, bool) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	el, ok := sh.items[key]
	if !ok {
		return cache.Entry{}, false
	}
	item := el.Value.(*storeItem)
	if item.entry.Expired(now) {
		s.unlink(sh, el)
		s.notify(key, RemovedExpired)
		return cache.Entry{}, false
	}

	item.entry.LastAccess = now
	item.entry.Hits++
	s.lruMu.Lock()
	s.lru.MoveToFront(el)
	s.lruMu.Unlock()
	return item.entry, true
}

// Insert stores entry under key, replacing any previous entry. It returns
// the number of entries evicted to stay within capacity.
func (s *Store) Insert(key cache.Key, entry cache.Entry) int {
	sh := s.shardFor(key)
	now := s.now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastAccess.IsZero() {
		entry.LastAccess = entry.CreatedAt
	}

	sh.mu.Lock()
	if el, ok := sh.items[key]; ok {
		el.Value.(*storeItem).entry = entry
		s.lruMu.Lock()
		s.lru.MoveToFront(el)
		s.lruMu.Unlock()
		sh.mu.Unlock()
		return 0
	}
	s.lruMu.Lock()
	sh.items[key] = s.lru.PushFront(&storeItem{key: key, entry: entry})
	s.lruMu.Unlock()
	sh.mu.Unlock()

	if s.capacity == 0 {
		return 0
	}
	evicted := 0
	for {
		removed, more := s.evictOldest()
		if removed {
			evicted++
		}
		if !more {
			return evicted
		}
	}
}

// evictOldest removes the least recently used entry while the store is
// over capacity. more reports whether the caller should check again; an
// attempt that races with a concurrent update removes nothing and retries.
func (s *Store) evictOldest() (removed, more bool) {
	s.lruMu.Lock()
	if s.lru.Len() <= s.capacity {
		s.lruMu.Unlock()
		return false, false
	}
	oldest := s.lru.Back()
	victim := oldest.Value.(*storeItem).key
	s.lruMu.Unlock()

	sh := s.shardFor(victim)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if el, ok := sh.items[victim]; !ok || el != oldest {
		return false, true
	}
	s.lruMu.Lock()
	if s.lru.Back() != oldest || s.lru.Len() <= s.capacity {
		s.lruMu.Unlock()
		return false, true
	}
	s.lru.Remove(oldest)
	s.lruMu.Unlock()
	delete(sh.items, victim)

	s.notify(victim, RemovedCapacity)
	return true, true
}

// Remove deletes key. It reports whether an entry was present.
func (s *Store) Remove(key cache.Key) bool {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	el, ok := sh.items[key]
	if !ok {
		return false
	}
	s.unlink(sh, el)
	return true
}

// SweepExpired removes every expired entry and returns how many were removed.
func (s *Store) SweepExpired() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, el := range sh.items {
			if el.Value.(*storeItem).entry.Expired(now) {
				s.unlink(sh, el)
				s.notify(k, RemovedExpired)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Clear removes all entries and returns how many were removed.
func (s *Store) Clear() int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		s.lruMu.Lock()
		for _, el := range sh.items {
			s.lru.Remove(el)
		}
		s.lruMu.Unlock()
		removed += len(sh.items)
		sh.items = make(map[cache.Key]*list.Element)
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *Store) Len() int {
	s.lruMu.Lock()
	defer s.lruMu.Unlock()
	return s.lru.Len()
}

// Capacity returns the configured bound, zero when unbounded.
func (s *Store) Capacity() int {
	return s.capacity
}

// Shards returns the number of lock shards.
func (s *Store) Shards() int {
	return len(s.shards)
}

func (s *Store) notify(key cache.Key, reason RemovalReason) {
	if s.onRemoval != nil {
		s.onRemoval(key, reason)
	}
}

// unlink must be called with the shard lock held.
func (s *Store) unlink(sh *shard, el *list.Element) {
	item := el.Value.(*storeItem)
	delete(sh.items, item.key)
	s.lruMu.Lock()
	s.lru.Remove(el)
	s.lruMu.Unlock()
}
