package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vecat-io/vecat/pkg/config"
	"github.com/vecat-io/vecat/pkg/journal"
	"github.com/vecat-io/vecat/pkg/models"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query and manage the lookup journal",
	}

	cmd.AddCommand(
		newJournalSearchCmd(),
		newJournalShowCmd(),
		newJournalStatsCmd(),
		newJournalCleanupCmd(),
	)
	return cmd
}

func newJournalSearchCmd() *cobra.Command {
	var (
		configPath string
		cacheKey   string
		source     string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, cleanup, err := openJournal(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.JournalQueryOpts{
				CacheKey: cacheKey,
				Source:   source,
				Limit:    limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := j.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatJournalEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to vecat config file")
	cmd.Flags().StringVar(&cacheKey, "key", "", "filter by cache key")
	cmd.Flags().StringVar(&source, "source", "", "filter by source")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newJournalShowCmd() *cobra.Command {
	var (
		configPath string
		requestID  string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a single journal entry by request ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestID == "" {
				return fmt.Errorf("--request-id is required")
			}

			j, cleanup, err := openJournal(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := j.Query(context.Background(), models.JournalQueryOpts{
				RequestID: requestID,
				Limit:     1,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No entry found for that request ID.")
				return nil
			}

			e := entries[0]
			fmt.Printf("Request ID:   %s\n", e.RequestID)
			fmt.Printf("Cache Key:    %s\n", e.CacheKey)
			fmt.Printf("Make:         %s\n", e.Make)
			fmt.Printf("Model:        %s\n", e.Model)
			fmt.Printf("Year:         %s\n", e.Year)
			fmt.Printf("Source:       %s\n", e.Source)
			fmt.Printf("Status:       %d\n", e.StatusCode)
			fmt.Printf("Records:      %d\n", e.RecordCount)
			fmt.Printf("Latency:      %dms\n", e.LatencyMs)
			fmt.Printf("Time:         %s\n", e.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to vecat config file")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request ID to show")

	return cmd
}

func newJournalStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show journal statistics by source and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, cleanup, err := openJournal(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := j.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Print(formatJournalStats(stats))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to vecat config file")
	return cmd
}

func newJournalCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete journal entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, cleanup, err := openJournal(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := j.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d journal entries.\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to vecat config file")
	return cmd
}

func openJournal(configPath string) (*journal.Journal, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	j, err := journal.New(cfg.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal db: %w", err)
	}
	return j, func() { _ = j.Close() }, nil
}

func formatJournalEntries(entries []models.JournalEntry) string {
	if len(entries) == 0 {
		return "No journal entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-28s %-10s %6s %8s %9s %-20s\n",
		"REQUEST ID", "CACHE KEY", "SOURCE", "STATUS", "RECORDS", "LATENCY", "TIME")
	b.WriteString(strings.Repeat("-", 125) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-38s %-28s %-10s %6d %8d %7dms %-20s\n",
			e.RequestID, e.CacheKey, e.Source, e.StatusCode,
			e.RecordCount, e.LatencyMs,
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func formatJournalStats(stats []models.JournalStat) string {
	if len(stats) == 0 {
		return "No journal stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-12s %8s\n", "SOURCE", "DAY", "COUNT")
	b.WriteString(strings.Repeat("-", 37) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-15s %-12s %8d\n", s.Source, s.Day, s.Count)
	}
	return b.String()
}
