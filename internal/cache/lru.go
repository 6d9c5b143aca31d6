// Package cache implements a generic, thread-safe LRU cache with optional
// per-entry expiry. It fronts the question answering collaborator so repeated
// questions against the same knowledge base skip the network round trip.
//
// A hash map gives O(1) key lookup; a doubly linked list gives O(1)
// eviction ordering.
package cache

import (
	"sync"
	"time"
)

// node is a doubly linked list node holding one cache entry.
type node[K comparable, V any] struct {
	key       K
	val       V
	expiresAt time.Time
	prev      *node[K, V]
	next      *node[K, V]
}

func (n *node[K, V]) expired(now time.Time) bool {
	return !n.expiresAt.IsZero() && now.After(n.expiresAt)
}

// LRU is a generic, thread-safe LRU cache. A zero TTL means entries
// never expire and are only displaced by capacity eviction.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*node[K, V]
	head     *node[K, V] // most recently used (sentinel)
	tail     *node[K, V] // least recently used (sentinel)
}

// New creates an LRU cache with the given capacity and entry TTL.
// Panics if capacity < 1.
func New[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be >= 1")
	}

	head := &node[K, V]{}
	tail := &node[K, V]{}
	head.next = tail
	tail.prev = head

	return &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*node[K, V], capacity),
		head:     head,
		tail:     tail,
	}
}

// Get retrieves a value by key, refreshing its recency. Expired entries
// are dropped and reported as misses. O(1).
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if n.expired(time.Now()) {
		c.unlink(n)
		delete(c.items, key)
		var zero V
		return zero, false
	}

	c.moveToFront(n)
	return n.val, true
}

// Put inserts or updates an entry, evicting the least recently used
// entry when at capacity. O(1).
func (c *LRU[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if n, ok := c.items[key]; ok {
		n.val = val
		n.expiresAt = expiresAt
		c.moveToFront(n)
		return
	}

	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.unlink(victim)
		delete(c.items, victim.key)
	}

	n := &node[K, V]{key: key, val: val, expiresAt: expiresAt}
	c.items[key] = n
	c.pushFront(n)
}

// Delete removes a key. Returns true if the key existed. O(1).
func (c *LRU[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		return false
	}
	c.unlink(n)
	delete(c.items, key)
	return true
}

// Len returns the current number of entries, expired ones included. O(1).
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Purge removes all entries. O(n).
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.items = make(map[K]*node[K, V], c.capacity)
}

// --- linked list operations (caller must hold lock) ---

func (c *LRU[K, V]) unlink(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

func (c *LRU[K, V]) pushFront(n *node[K, V]) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRU[K, V]) moveToFront(n *node[K, V]) {
	c.unlink(n)
	c.pushFront(n)
}
