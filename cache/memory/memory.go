// Package memory provides an in-process cache backend.
package memory

import (
	"context"
	"sync"

	"github.com/johtso/http-caching/cache"
)

// Cache is a map-backed cache.Cache. Entries are cloned on the way in
// and out so callers can never mutate stored state in place.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cache.Entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]*cache.Entry)}
}

func (c *Cache) Get(_ context.Context, key string) (*cache.Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, found := c.entries[key]
	if !found {
		return nil, cache.ErrNotFound
	}
	return entry.Clone(), nil
}

func (c *Cache) Set(_ context.Context, key string, entry *cache.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry.Clone()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
