// Package cache provides an LRU cache bounded by entry count and by the
// total byte size of its values. The HTTP server uses it to keep
// rendered passages.
package cache

import (
	"container/list"
	"sync"
)

// Stats contains cache statistics.
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Size       int
	MaxSize    int
	TotalBytes int64
}

// Config contains cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int
}

type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

// BoundedCache is a thread-safe LRU cache with a limit on the total byte
// size of its values as measured by sizeFunc.
type BoundedCache[K comparable, V any] struct {
	mu        sync.Mutex
	maxSize   int
	maxBytes  int64
	sizeFunc  func(V) int64
	entries   map[K]*list.Element
	evictList *list.List
	bytes     int64
	stats     Stats
}

// NewBoundedCache creates a new cache with both entry count and byte size
// limits. A maxBytes of 0 disables the byte limit.
func NewBoundedCache[K comparable, V any](config Config, maxBytes int64, sizeFunc func(V) int64) *BoundedCache[K, V] {
	return &BoundedCache[K, V]{
		maxSize:   max(config.MaxSize, 0),
		maxBytes:  maxBytes,
		sizeFunc:  sizeFunc,
		entries:   make(map[K]*list.Element),
		evictList: list.New(),
	}
}

// Get retrieves a value from the cache.
func (c *BoundedCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.evictList.MoveToFront(ent)
	c.stats.Hits++
	return ent.Value.(*entry[K, V]).value, true
}

// Put stores a value, evicting least recently used entries until both
// limits hold. Values larger than the byte limit are not cached.
func (c *BoundedCache[K, V]) Put(key K, value V) {
	size := c.sizeFunc(value)
	if c.maxBytes > 0 && size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.removeElement(ent)
	}
	c.entries[key] = c.evictList.PushFront(&entry[K, V]{key: key, value: value, size: size})
	c.bytes += size

	for c.evictList.Len() > 1 && c.overLimit() {
		c.removeElement(c.evictList.Back())
		c.stats.Evictions++
	}
}

func (c *BoundedCache[K, V]) overLimit() bool {
	return (c.maxSize > 0 && c.evictList.Len() > c.maxSize) ||
		(c.maxBytes > 0 && c.bytes > c.maxBytes)
}

func (c *BoundedCache[K, V]) removeElement(ent *list.Element) {
	e := c.evictList.Remove(ent).(*entry[K, V])
	delete(c.entries, e.key)
	c.bytes -= e.size
}

// Remove removes a value from the cache.
func (c *BoundedCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.removeElement(ent)
	}
}

// Clear removes all entries from the cache.
func (c *BoundedCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.evictList.Init()
	c.bytes = 0
}

// Len returns the number of entries in the cache.
func (c *BoundedCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns cache statistics including byte size information.
func (c *BoundedCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.evictList.Len()
	s.MaxSize = c.maxSize
	s.TotalBytes = c.bytes
	return s
}
