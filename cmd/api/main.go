// AngelaMos | 2026
// main.go

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "perumahan-api",
	Short: "Housing development back office API",
	Long: `perumahan-api serves the back office REST API for a housing
development: users and roles, divisions, module permissions, sales
and inventory.

Running it without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c", "config.yaml", "path to config file",
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}
