// Package sqlite provides a persistent cache backend on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/johtso/http-caching/cache"
)

// Cache stores serialized entries in a single-table SQLite database.
// SQLite serializes writers itself, but the driver returns busy errors
// under write contention, so writes additionally go through a mutex.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (and if needed initializes) the cache database at the
// given file name. An empty file name opens a shared in-memory db.
func New(filename string) (*Cache, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			received_at INTEGER,
			data BLOB
		)`,
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (*cache.Entry, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, "SELECT data FROM entries WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (key, received_at, data) VALUES (?, ?, ?)",
		key, entry.ReceivedAt.Unix(), data)
	return err
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", key)
	return err
}

// PurgeOlderThan deletes entries received before the cutoff.
// Useful as a periodic janitor for long-lived caches.
func (c *Cache) PurgeOlderThan(ctx context.Context, cutoff time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, "DELETE FROM entries WHERE received_at < ?", cutoff.Unix())
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
