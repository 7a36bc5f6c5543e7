package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vecat-io/vecat/pkg/config"
	"github.com/vecat-io/vecat/pkg/lookup"
	"github.com/vecat-io/vecat/pkg/models"
	"github.com/vecat-io/vecat/pkg/provider/apify"
)

func newLookupCmd() *cobra.Command {
	var (
		configPath string
		vehMake    string
		vehModel   string
		vehYear    string
	)

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve one make/model/year from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			client := apify.New(apify.Config{
				Token:   cfg.Provider.Token,
				ActorID: cfg.Provider.ActorID,
				BaseURL: cfg.Provider.BaseURL,
			})
			resolver := lookup.New(store, client, cfg.Provider.FetchTimeout)

			res, err := resolver.Resolve(context.Background(), models.Query{
				Make:  vehMake,
				Model: vehModel,
				Year:  vehYear,
			})
			if err != nil {
				return err
			}
			if res.Empty {
				fmt.Printf("No vehicle data found for %s (source: %s).\n", res.Key, res.Source)
				return nil
			}

			fmt.Printf("Source: %s\n", res.Source)
			fmt.Printf("Key:    %s\n", res.Key)

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, res.Data, "", "  "); err != nil {
				fmt.Println(string(res.Data))
				return nil
			}
			fmt.Println(pretty.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to vecat config file")
	cmd.Flags().StringVar(&vehMake, "make", "", "vehicle make")
	cmd.Flags().StringVar(&vehModel, "model", "", "vehicle model")
	cmd.Flags().StringVar(&vehYear, "year", "", "vehicle year")

	return cmd
}
