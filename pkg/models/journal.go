package models

import "time"

// JournalEntry records the outcome of one lookup request.
type JournalEntry struct {
	RequestID   string    `json:"request_id"`
	CacheKey    string    `json:"cache_key"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        string    `json:"year"`
	Source      string    `json:"source"`
	StatusCode  int       `json:"status_code"`
	RecordCount int       `json:"record_count"`
	LatencyMs   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// JournalConfig controls the lookup journal subsystem.
type JournalConfig struct {
	Enabled       bool   `yaml:"enabled" env:"VECAT_JOURNAL_ENABLED"`
	DBPath        string `yaml:"db_path" env:"VECAT_JOURNAL_DB_PATH"`
	RetentionDays int    `yaml:"retention_days" env:"VECAT_JOURNAL_RETENTION_DAYS"`
}

// JournalQueryOpts specifies filters for querying journal entries.
type JournalQueryOpts struct {
	RequestID string
	CacheKey  string
	Source    string
	Since     time.Time
	Limit     int
}

// JournalStat holds aggregate request counts for a source/day combination.
type JournalStat struct {
	Source string
	Day    string
	Count  int
}
