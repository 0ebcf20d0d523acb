// Package cache implements the concurrent sharded LRU of spec.md §4.4,
// used on the storage side for vertex/edge decode caching: a bounded
// capacity cache split into independently-locked buckets so a hot key in
// one bucket never blocks a lookup in another.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// Inserted is a sentinel type naming the "key did not previously exist
// and val was inserted" outcome. PutIfAbsent does not return it; it
// reports that outcome through its boolean result.
type Inserted struct{}

// Cache is a sharded LRU keyed by string, sharded by
// xxhash.Sum64(key) mod 2^bits into independently-locked buckets
// (default bits=4, i.e. 16 buckets), each a golang-lru/v2/simplelru.LRU.
type Cache[V any] struct {
	buckets []*bucket[V]
	bits    uint

	lookups   atomic.Int64
	hits      atomic.Int64
	evictions atomic.Int64
}

type bucket[V any] struct {
	mu  sync.Mutex
	lru *lru.LRU[string, V]
}

// Options configures New.
type Options struct {
	// Capacity is the total number of entries across all buckets; it is
	// divided evenly (rounding down, at least one entry per bucket)
	// across 2^Bits buckets.
	Capacity int
	// Bits selects the shard count as 2^Bits. Zero defaults to 4 (16
	// buckets), matching §4.4's stated default.
	Bits uint
}

// New builds a Cache with the given Options.
func New[V any](opts Options) (*Cache[V], error) {
	bits := opts.Bits
	if bits == 0 {
		bits = 4
	}
	n := 1 << bits
	perBucket := opts.Capacity / n
	if perBucket < 1 {
		perBucket = 1
	}
	c := &Cache[V]{buckets: make([]*bucket[V], n), bits: bits}
	for i := range c.buckets {
		b := &bucket[V]{}
		idx := i
		onEvict := func(key string, val V) { c.evictions.Add(1) }
		l, err := lru.NewLRU[string, V](perBucket, onEvict)
		if err != nil {
			return nil, err
		}
		b.lru = l
		c.buckets[idx] = b
	}
	return c, nil
}

// BucketHint identifies one of a Cache's shards, returned by Hash so a
// caller who already hashed a key once can skip rehashing it for a
// follow-up call (§4.4 "caller may provide a precomputed bucket hint").
type BucketHint int

// Hash computes the bucket a key routes to without performing any
// cache operation.
func (c *Cache[V]) Hash(key string) BucketHint {
	return BucketHint(xxhash.Sum64String(key) & uint64(len(c.buckets)-1))
}

func (c *Cache[V]) bucketFor(key string, hint *BucketHint) *bucket[V] {
	var idx BucketHint
	if hint != nil {
		idx = *hint
	} else {
		idx = c.Hash(key)
	}
	return c.buckets[int(idx)%len(c.buckets)]
}

// Contains reports whether key is present without updating recency.
func (c *Cache[V]) Contains(key string, hint *BucketHint) bool {
	b := c.bucketFor(key, hint)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Contains(key)
}

// Get returns the value for key and records a lookup (and a hit, if
// found).
func (c *Cache[V]) Get(key string, hint *BucketHint) (val V, ok bool) {
	c.lookups.Add(1)
	b := c.bucketFor(key, hint)
	b.mu.Lock()
	defer b.mu.Unlock()
	val, ok = b.lru.Get(key)
	if ok {
		c.hits.Add(1)
	}
	return val, ok
}

// Insert writes key/val, overwriting any existing entry for key and
// evicting the least-recently-used entry if the bucket is full.
func (c *Cache[V]) Insert(key string, val V, hint *BucketHint) {
	b := c.bucketFor(key, hint)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lru.Add(key, val)
}

// PutIfAbsent inserts val for key only if key is not already present.
// It returns (zero value, true) when the insert happened, or the
// existing value and false otherwise.
func (c *Cache[V]) PutIfAbsent(key string, val V, hint *BucketHint) (existing V, inserted bool) {
	b := c.bucketFor(key, hint)
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.lru.Get(key); ok {
		return v, false
	}
	b.lru.Add(key, val)
	var zero V
	return zero, true
}

// Evict removes key, reporting whether it was present.
func (c *Cache[V]) Evict(key string, hint *BucketHint) bool {
	b := c.bucketFor(key, hint)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Remove(key)
}

// Clear empties every bucket.
func (c *Cache[V]) Clear() {
	for _, b := range c.buckets {
		b.mu.Lock()
		b.lru.Purge()
		b.mu.Unlock()
	}
}

// Stats is a point-in-time read of the cache's lookup/hit/eviction
// counters (§4.4 "Counters: total lookups, hits, evictions").
type Stats struct {
	Lookups, Hits, Evictions int64
}

// Stats returns the current counter values.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Lookups:   c.lookups.Load(),
		Hits:      c.hits.Load(),
		Evictions: c.evictions.Load(),
	}
}
