// Package cache defines the vehicle cache contract and the key derivation
// shared by its backends.
package cache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vecat-io/vecat/pkg/models"
)

// Store is a durable cache of vehicle lookup payloads keyed by Key. Entries
// have no TTL; they persist until Clear removes them.
//
// Get distinguishes a miss (found=false, err=nil) from an unavailable store
// (err != nil). Callers that treat store failures as misses must check err
// themselves.
type Store interface {
	// Get returns the stored payload for key, or found=false on a miss.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	// Put upserts the payload for key, refreshing its retrieved_at stamp.
	Put(ctx context.Context, key string, data json.RawMessage) error
	// Stats reports entry count and in-process hit/miss counters.
	Stats(ctx context.Context) (models.CacheStats, error)
	// Clear removes all entries and returns how many were deleted.
	Clear(ctx context.Context) (int64, error)
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Key derives the cache key for a query: make and model are trimmed, the
// whole string uppercased, parts joined by underscores. The year literal is
// kept as given, so "2020" and "+2020" map to distinct keys.
func Key(make, model, year string) string {
	return strings.ToUpper(strings.TrimSpace(make) + "_" + strings.TrimSpace(model) + "_" + year)
}
