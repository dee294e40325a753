// Package lru provides a fixed-capacity least-recently-used cache.
//
// The cache is safe for concurrent use. Reads promote entries, so Get takes
// the same lock as Put; the lock is only held for map and list pointer
// operations, never across callers' expensive work (e.g. embedding calls).
package lru

import "sync"

// node is an entry in the intrusive recency list. head.next is the
// most-recently-used entry, head.prev the least-recently-used.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// Cache is a mutex-guarded LRU cache with a fixed capacity.
//
// Recency reflects both reads and writes: Get promotes the entry to
// most-recently-used, a pure insertion-order cache would evict hot entries.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[K]*node[K, V]
	head     node[K, V] // sentinel; head.next = MRU, head.prev = LRU
}

// New creates a cache holding at most capacity entries. Capacity values below
// one are coerced to one.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	c := &Cache[K, V]{
		capacity: capacity,
		entries:  make(map[K]*node[K, V], capacity),
	}
	c.head.next = &c.head
	c.head.prev = &c.head
	return c
}

// Get returns the value for key and marks it most-recently-used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(n)
	return n.value, true
}

// Put inserts or replaces the value for key and marks it most-recently-used.
// When the insert would exceed capacity, the least-recently-used entry is
// evicted first.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		n.value = value
		c.moveToFront(n)
		return
	}

	if len(c.entries) >= c.capacity {
		lru := c.head.prev
		c.unlink(lru)
		delete(c.entries, lru.key)
	}

	n := &node[K, V]{key: key, value: value}
	c.entries[key] = n
	c.pushFront(n)
}

// Has reports whether key is cached without promoting it.
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*node[K, V], c.capacity)
	c.head.next = &c.head
	c.head.prev = &c.head
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cap returns the configured capacity.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

func (c *Cache[K, V]) unlink(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.prev = &c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *Cache[K, V]) moveToFront(n *node[K, V]) {
	c.unlink(n)
	c.pushFront(n)
}
