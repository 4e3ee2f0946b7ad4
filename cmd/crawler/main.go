package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crawler",
	Short: "Overnight crawler for new real-estate listings",
	Long: `Overnight crawler for new real-estate listings.

Each evening the listing IDs published since the previous run are planned
as a batch spread across the night; due items are then scraped one by one
and stored in Postgres.
`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("state", "", "state file path (overrides STATE_PATH)")
	rootCmd.PersistentFlags().String("backend", "", "state backend: file or sqlite (overrides STATE_BACKEND)")

	rootCmd.AddCommand(bootstrapCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(dispatchCmd())
	rootCmd.AddCommand(pruneCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(serveCmd())
}
