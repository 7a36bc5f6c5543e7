package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vecat-io/vecat/pkg/config"
	"github.com/vecat-io/vecat/pkg/journal"
	"github.com/vecat-io/vecat/pkg/lookup"
	"github.com/vecat-io/vecat/pkg/mcp"
	"github.com/vecat-io/vecat/pkg/provider/apify"
)

func newMCPCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve vehicle lookups as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("init cache store: %w", err)
			}
			defer func() { _ = store.Close() }()

			client := apify.New(apify.Config{
				Token:   cfg.Provider.Token,
				ActorID: cfg.Provider.ActorID,
				BaseURL: cfg.Provider.BaseURL,
			})
			resolver := lookup.New(store, client, cfg.Provider.FetchTimeout)

			var jr mcp.JournalReader
			if cfg.Journal.Enabled {
				j, err := journal.New(cfg.Journal)
				if err != nil {
					return fmt.Errorf("init journal: %w", err)
				}
				defer func() { _ = j.Close() }()
				jr = j
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := mcp.New(resolver, store, jr, version)
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to vecat config file")
	return cmd
}
