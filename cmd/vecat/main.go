package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "vecat",
		Short:   "Vehicle catalog lookups backed by a durable cache",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newLookupCmd(),
		newMCPCmd(),
		newCacheCmd(),
		newJournalCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
