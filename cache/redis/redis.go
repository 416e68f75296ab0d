// Package redis provides a cache backend on Redis, for sharing one
// HTTP cache between processes.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johtso/http-caching/cache"
)

// Cache stores serialized entries as Redis string values.
type Cache struct {
	client *redis.Client
	// TTL bounds how long Redis keeps an entry regardless of HTTP
	// freshness. Zero means keep forever (policy still governs reuse).
	ttl time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) (*cache.Entry, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return cache.DecodeEntry(data)
}

func (c *Cache) Set(ctx context.Context, key string, entry *cache.Entry) error {
	data, err := cache.EncodeEntry(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close releases the client's connections.
func (c *Cache) Close() error {
	return c.client.Close()
}
