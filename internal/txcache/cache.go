// Package txcache provides a bounded in-process cache of decoded ledger
// transactions keyed by signature. Ledger scanning revisits the same recent
// signatures across successive searches; caching the decode avoids
// redundant fetch-and-parse round trips.
package txcache

import (
	"container/list"
	"sync"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 1000

// CachedTransaction is the decoded view of one transaction the scanner
// cares about: the post-execution token-balance mints and the block time.
type CachedTransaction struct {
	Signature string
	Mints     []string
	BlockTime *int64 // unix seconds, nil when the node had no estimate
}

// Cache is a bounded FIFO cache. Eviction removes the oldest-inserted
// entry, not the least recently used one; scan workloads walk signatures
// newest-first, so recency tracking buys nothing here.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // oldest at front

	hits   int64
	misses int64
}

type entry struct {
	key string
	tx  *CachedTransaction
}

// New creates a cache bounded at capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached transaction for signature, or (nil, false).
// Lookups do not affect eviction order.
func (c *Cache) Get(signature string) (*CachedTransaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[signature]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return elem.Value.(*entry).tx, true
}

// Put inserts or replaces the entry for signature, evicting the
// oldest-inserted entry when the capacity is exceeded. A replace keeps the
// original insertion position.
func (c *Cache) Put(signature string, tx *CachedTransaction) {
	if tx == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[signature]; ok {
		elem.Value.(*entry).tx = tx
		return
	}

	elem := c.order.PushBack(&entry{key: signature, tx: tx})
	c.items[signature] = elem

	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns cache hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
