// Package sqlite implements cache.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vecat-io/vecat/pkg/cache"
	"github.com/vecat-io/vecat/pkg/models"
)

// Store is a durable vehicle cache backed by SQLite. Entries never expire.
type Store struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

var _ cache.Store = (*Store)(nil)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS vehicle_cache (
	cache_key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	retrieved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New opens or creates the cache database at dbPath.
func New(dbPath string) (*Store, error) {
	dsn := filepath.Clean(dbPath) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Get retrieves the payload stored under key. A missing row is a miss, not
// an error.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM vehicle_cache WHERE cache_key = ?`, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	s.hits.Add(1)
	return data, true, nil
}

// Put upserts the payload for key and refreshes retrieved_at.
func (s *Store) Put(ctx context.Context, key string, data json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO vehicle_cache (cache_key, data, retrieved_at) VALUES (?, ?, ?)`,
		key, []byte(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache size and in-process hit/miss counters.
func (s *Store) Stats(ctx context.Context) (models.CacheStats, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicle_cache`).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}, nil
}

// Clear removes all cache entries and reports how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vehicle_cache`)
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return removed, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
