// Package postgres provides a cache backend on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/johtso/http-caching/cache"
)

const (
	queryCreateTable = `CREATE TABLE IF NOT EXISTS http_cache_entries (
		key TEXT PRIMARY KEY,
		received_at TIMESTAMPTZ NOT NULL,
		data BYTEA NOT NULL
	)`
	queryFetch = `SELECT data FROM http_cache_entries WHERE key = $1`
	queryUpsert = `INSERT INTO http_cache_entries (key, received_at, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET received_at = $2, data = $3`
	queryDelete        = `DELETE FROM http_cache_entries WHERE key = $1`
	queryDeleteExpired = `DELETE FROM http_cache_entries WHERE received_at < $1`
)

// Config defines the optional behaviors of the PostgreSQL backend.
type Config struct {
	// DeleteExpiredItems enables a background janitor that removes
	// entries older than ItemExpiration.
	DeleteExpiredItems bool
	// ExpiredTaskInterval is how often the janitor runs.
	ExpiredTaskInterval time.Duration
	// ItemExpiration bounds how long entries stay in the database,
	// independent of HTTP freshness.
	ItemExpiration time.Duration
}

// Cache stores serialized entries in a PostgreSQL table.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// New verifies the connection, creates the table if needed and
// optionally starts the expired-entry janitor. The janitor stops when
// ctx is cancelled.
func New(ctx context.Context, db *sql.DB, config *Config) (*Cache, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, queryCreateTable); err != nil {
		return nil, err
	}
	c := &Cache{db: db, now: time.Now}
	if config != nil && config.DeleteExpiredItems {
		interval := config.ExpiredTaskInterval
		if interval <= 0 {
			interval = 10 * time.Minute
		}
		expiration := config.ItemExpiration
		if expiration <= 0 {
			expiration = 24 * time.Hour
		}
		go c.expiredTask(ctx, interval, expiration)
	}
	return c, nil
}

func (c *Cache) Get(ctx context.Context, key string) (*cache.Entry, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, queryFetch, key).Scan(&data)
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
	_, err = c.db.ExecContext(ctx, queryUpsert, key, entry.ReceivedAt.UTC(), data)
	return err
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, queryDelete, key)
	return err
}

func (c *Cache) expiredTask(ctx context.Context, interval, expiration time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.db.ExecContext(ctx, queryDeleteExpired, c.now().UTC().Add(-expiration)); err != nil && ctx.Err() == nil {
				continue
			}
		}
	}
}
