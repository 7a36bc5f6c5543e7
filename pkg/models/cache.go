package models

import (
	"encoding/json"
	"time"
)

// CacheEntry is one row of the vehicle_cache table.
type CacheEntry struct {
	Key         string          `json:"cache_key"`
	Data        json.RawMessage `json:"data"`
	RetrievedAt time.Time       `json:"retrieved_at"`
}

// CacheStats reports cache contents and in-process hit/miss counters.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
