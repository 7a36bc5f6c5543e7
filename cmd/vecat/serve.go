package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vecat-io/vecat/pkg/cache"
	"github.com/vecat-io/vecat/pkg/cache/postgres"
	"github.com/vecat-io/vecat/pkg/cache/sqlite"
	"github.com/vecat-io/vecat/pkg/config"
	"github.com/vecat-io/vecat/pkg/journal"
	"github.com/vecat-io/vecat/pkg/lookup"
	"github.com/vecat-io/vecat/pkg/provider/apify"
	"github.com/vecat-io/vecat/pkg/server"
	"github.com/vecat-io/vecat/pkg/telemetry"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the vehicle data HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.Setup(ctx, "vecat", cfg.Telemetry.OTLPEndpoint)
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					log.Printf("telemetry shutdown: %v", err)
				}
			}()

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

			var j *journal.Journal
			if cfg.Journal.Enabled {
				j, err = journal.New(cfg.Journal)
				if err != nil {
					return fmt.Errorf("init journal: %w", err)
				}
				defer func() { _ = j.Close() }()
			}

			srv := server.New(cfg, resolver, store, j)

			log.Printf("starting vecat (store=%s, actor=%s)", cfg.Store.Backend, cfg.Provider.ActorID)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to vecat config file")
	return cmd
}

func openStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		return postgres.New(cfg.Store.Postgres.DSN())
	case config.BackendSQLite:
		return sqlite.New(cfg.Store.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
