// Package lru provides a fixed-capacity map that tracks recency of use and
// evicts the least-recently-touched entry when full.
//
// The container has no notion of time: entries leave only under capacity
// pressure or by explicit removal. It is not safe for concurrent use; callers
// that share a Cache across goroutines must serialize access themselves.
package lru

import "container/list"

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Cache is a key/value container with a hard capacity bound. Set and Touch
// promote the entry to most-recently-used; inserting into a full container
// evicts the least-recently-used entry first. All operations are O(1).
type Cache[K comparable, V any] struct {
	capacity int
	order    *list.List // front = most recently used
	items    map[K]*list.Element
}

// New returns an empty Cache bounded to capacity entries.
// Panics if capacity is less than one.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		panic("lru: capacity must be at least 1")
	}
	return &Cache[K, V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// Set stores value under key, promoting it to most-recently-used. If the
// container is at capacity and key is not already present, the
// least-recently-used entry is evicted to make room.
func (c *Cache[K, V]) Set(key K, value V) {
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[K, V]).key)
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
}

// Touch returns the value stored under key and promotes it to
// most-recently-used. The second return is false on a miss.
func (c *Cache[K, V]) Touch(key K) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Peek returns the value stored under key without affecting recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*entry[K, V]).value, true
}

// Remove deletes key if present and reports whether it was.
func (c *Cache[K, V]) Remove(key K) bool {
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// Len returns the number of entries currently stored.
func (c *Cache[K, V]) Len() int {
	return c.order.Len()
}

// Cap returns the configured capacity.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.order.Init()
	clear(c.items)
}

// Keys returns the stored keys ordered from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}
