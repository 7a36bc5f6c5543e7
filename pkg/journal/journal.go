// Package journal records per-request lookup outcomes in a dedicated
// SQLite database, for operational queries and aggregate stats.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vecat-io/vecat/pkg/models"
)

// Journal writes and queries lookup records. A nil Journal is a valid no-op
// writer, so callers can leave journaling disabled.
type Journal struct {
	db   *sql.DB
	cfg  models.JournalConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the journal database and creates the schema. When a retention
// period is configured, a background loop prunes old entries hourly.
func New(cfg models.JournalConfig) (*Journal, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal db: %w", err)
	}

	j := &Journal{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	if cfg.RetentionDays > 0 {
		j.wg.Add(1)
		go j.retentionLoop()
	}

	return j, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS lookup_journal (
		request_id   TEXT PRIMARY KEY,
		cache_key    TEXT NOT NULL,
		make         TEXT NOT NULL,
		model        TEXT NOT NULL,
		year         TEXT NOT NULL,
		source       TEXT NOT NULL,
		status_code  INTEGER,
		record_count INTEGER,
		latency_ms   INTEGER,
		created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_journal_key ON lookup_journal(cache_key)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_journal_created ON lookup_journal(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_journal_source ON lookup_journal(source)`)
	return err
}

// Record inserts a journal entry. Recording on a nil Journal is a no-op.
func (j *Journal) Record(ctx context.Context, entry models.JournalEntry) error {
	if j == nil || j.db == nil {
		return nil
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO lookup_journal
		(request_id, cache_key, make, model, year, source,
		 status_code, record_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.CacheKey, entry.Make, entry.Model, entry.Year,
		entry.Source, entry.StatusCode, entry.RecordCount, entry.LatencyMs,
		entry.CreatedAt,
	)
	return err
}

// Query returns journal entries matching the given options, newest first.
func (j *Journal) Query(ctx context.Context, opts models.JournalQueryOpts) ([]models.JournalEntry, error) {
	q := `SELECT request_id, cache_key, make, model, year, source,
		status_code, record_count, latency_ms, created_at
		FROM lookup_journal WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.CacheKey != "" {
		q += " AND cache_key = ?"
		args = append(args, opts.CacheKey)
	}
	if opts.Source != "" {
		q += " AND source = ?"
		args = append(args, opts.Source)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(
			&e.RequestID, &e.CacheKey, &e.Make, &e.Model, &e.Year, &e.Source,
			&e.StatusCode, &e.RecordCount, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate request counts grouped by source and day.
func (j *Journal) Stats(ctx context.Context) ([]models.JournalStat, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT source, date(created_at) as day, count(*) as cnt
		 FROM lookup_journal GROUP BY source, day ORDER BY day DESC, source`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	var stats []models.JournalStat
	for rows.Next() {
		var s models.JournalStat
		var day sql.NullString
		if err := rows.Scan(&s.Source, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan journal stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period. With
// retention disabled it deletes nothing.
func (j *Journal) Cleanup(ctx context.Context) (int64, error) {
	if j.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -j.cfg.RetentionDays)
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM lookup_journal WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("journal cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	close(j.done)
	j.wg.Wait()
	return j.db.Close()
}

func (j *Journal) retentionLoop() {
	defer j.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			_, _ = j.Cleanup(context.Background())
		}
	}
}
