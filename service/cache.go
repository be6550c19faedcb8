package service

import (
	"strings"
	"sync"
)

// Map holds query results keyed per source database.
type Map[K comparable, V any] struct {
	data map[K]*V
	sync.RWMutex
}

// NewMap creates an empty result map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		data: make(map[K]*V),
	}
}

// Get returns the cached result for key.
func (c *Map[K, V]) Get(key K) (*V, bool) {
	c.RLock()
	defer c.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Set caches a result under key.
func (c *Map[K, V]) Set(key K, value *V) {
	c.Lock()
	defer c.Unlock()
	c.data[key] = value
}

// DeleteIf removes every entry whose key matches.
func (c *Map[K, V]) DeleteIf(match func(K) bool) int {
	c.Lock()
	defer c.Unlock()
	removed := 0
	for k := range c.data {
		if match(k) {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

// Size returns the number of cached results.
func (c *Map[K, V]) Size() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.data)
}

// resultKey scopes cached query results to one source database.
func resultKey(dbPath string, parts ...string) string {
	return dbPath + "\x00" + strings.Join(parts, "\x00")
}

func keyOf(dbPath string) func(string) bool {
	prefix := dbPath + "\x00"
	return func(key string) bool { return strings.HasPrefix(key, prefix) }
}
