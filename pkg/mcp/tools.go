package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vecat-io/vecat/pkg/models"
)

// Tool argument structs.

type lookupArgs struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
}

type journalSearchArgs struct {
	CacheKey string `json:"cache_key"`
	Source   string `json:"source"`
	Since    string `json:"since"`
	Limit    int    `json:"limit"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) toolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"vecat_lookup":         handleLookup,
	"vecat_cache_stats":    handleCacheStats,
	"vecat_journal_search": handleJournalSearch,
	"vecat_journal_stats":  handleJournalStats,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []toolDefinition{
	{
		Name:        "vecat_lookup",
		Description: "Look up catalog data for a vehicle by make, model, and year. Served from the cache when possible, otherwise fetched from the external provider.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"make", "model", "year"},
			"properties": map[string]any{
				"make": map[string]any{
					"type":        "string",
					"description": "Vehicle make, e.g. Audi",
				},
				"model": map[string]any{
					"type":        "string",
					"description": "Vehicle model, e.g. A4",
				},
				"year": map[string]any{
					"type":        "string",
					"description": "Vehicle year, e.g. 2020",
				},
			},
		},
	},
	{
		Name:        "vecat_cache_stats",
		Description: "Show vehicle cache statistics (entries, hits, misses, hit rate).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "vecat_journal_search",
		Description: "Search the lookup journal with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cache_key": map[string]any{
					"type":        "string",
					"description": "Filter by cache key (optional)",
				},
				"source": map[string]any{
					"type":        "string",
					"description": "Filter by source, cache or apify_api (optional)",
				},
				"since": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Max entries to return (optional, default 50)",
				},
			},
		},
	},
	{
		Name:        "vecat_journal_stats",
		Description: "Show lookup counts grouped by source and day.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

func textResult(text string) toolCallResult {
	return toolCallResult{
		Content: []contentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) toolCallResult {
	return toolCallResult{
		Content: []contentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleLookup(ctx context.Context, s *Server, rawArgs json.RawMessage) toolCallResult {
	var args lookupArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	res, err := s.resolver.Resolve(ctx, models.Query{
		Make:  args.Make,
		Model: args.Model,
		Year:  args.Year,
	})
	if err != nil {
		return errorResult("Lookup failed: " + err.Error())
	}
	return textResult(formatLookupResult(res))
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) toolCallResult {
	if s.cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleJournalSearch(ctx context.Context, s *Server, rawArgs json.RawMessage) toolCallResult {
	if s.journal == nil {
		return textResult("Journal is not configured.")
	}
	var args journalSearchArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	opts := models.JournalQueryOpts{
		CacheKey: args.CacheKey,
		Source:   args.Source,
		Limit:    args.Limit,
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	entries, err := s.journal.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching journal: " + err.Error())
	}
	return textResult(formatJournalEntries(entries))
}

func handleJournalStats(ctx context.Context, s *Server, _ json.RawMessage) toolCallResult {
	if s.journal == nil {
		return textResult("Journal is not configured.")
	}
	stats, err := s.journal.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching journal stats: " + err.Error())
	}
	return textResult(formatJournalStats(stats))
}
