package cache

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"wikistats/pkg/db"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// memoryEntries bounds the in-process LRU sitting in front of sqlite.
const memoryEntries = 1024

// SQLiteCache implements Cacher on top of pkg/db, with a small in-memory LRU
// so repeated lookups within one run skip the database entirely.
type SQLiteCache struct {
	db  *db.DB
	mem *lru.Cache[string, []byte]
}

// NewSQLiteCache creates a new cache. Entries older than ttl are pruned at
// construction; ttl <= 0 keeps everything.
func NewSQLiteCache(d *db.DB, ttl time.Duration) *SQLiteCache {
	if ttl > 0 {
		if err := d.PruneCache(ttl); err != nil {
			slog.Warn("Cache prune failed", "error", err)
		}
	}
	mem, _ := lru.New[string, []byte](memoryEntries) // only errors on size <= 0
	return &SQLiteCache{db: d, mem: mem}
}

func (c *SQLiteCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := c.mem.Get(key); ok {
		return val, true
	}

	var val []byte
	err := c.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Cache lookup failed", "key", key, "error", err)
		}
		return nil, false
	}

	c.mem.Add(key, val)
	return val, true
}

func (c *SQLiteCache) SetCache(ctx context.Context, key string, val []byte) error {
	c.mem.Add(key, val)
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO cache (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, val)
	return err
}

// NullCache is a Cacher that never hits. Useful for tests and one-shot runs.
type NullCache struct{}

func (NullCache) GetCache(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (NullCache) SetCache(ctx context.Context, key string, val []byte) error {
	return nil
}
