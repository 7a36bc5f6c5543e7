package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vecat-io/vecat/pkg/models"
)

// formatLookupResult renders a lookup outcome as text with the payload
// pretty-printed.
func formatLookupResult(res models.Result) string {
	if res.Empty {
		return fmt.Sprintf("No vehicle data found for %s (source: %s).", res.Key, res.Source)
	}

	data := []byte(res.Data)
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, res.Data, "", "  "); err == nil {
		data = pretty.Bytes()
	}
	return fmt.Sprintf("Source: %s\nKey:    %s\n%s", res.Source, res.Key, data)
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, hitRate)
}

// formatJournalEntries formats journal entries as a text table.
func formatJournalEntries(entries []models.JournalEntry) string {
	if len(entries) == 0 {
		return "No journal entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-28s %-10s %6s %8s %9s %-20s\n",
		"Request ID", "Cache Key", "Source", "Status", "Records", "Latency", "Time")
	b.WriteString(strings.Repeat("-", 125) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-38s %-28s %-10s %6d %8d %7dms %-20s\n",
			e.RequestID, e.CacheKey, e.Source, e.StatusCode,
			e.RecordCount, e.LatencyMs,
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

// formatJournalStats formats journal aggregates as a text table.
func formatJournalStats(stats []models.JournalStat) string {
	if len(stats) == 0 {
		return "No journal stats found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-12s %8s\n", "Source", "Day", "Count")
	b.WriteString(strings.Repeat("-", 37) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-15s %-12s %8d\n", s.Source, s.Day, s.Count)
	}
	return b.String()
}
