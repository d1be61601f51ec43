// AngelaMos | 2026
// migrate.go

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/perumahan-api/internal/config"
	"github.com/carterperez-dev/perumahan-api/internal/core"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(*cobra.Command, []string) error {
		return withMigrator(func(m *core.Migrator) error {
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(*cobra.Command, []string) error {
		return withMigrator(func(m *core.Migrator) error {
			return m.Down()
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(func(m *core.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return err
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withMigrator(fn func(*core.Migrator) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closer := setupLogger(cfg.Log)
	defer closer.Close() //nolint:errcheck // best-effort flush

	m, err := core.NewMigrator(cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("migrator close error", "error", err)
		}
	}()

	return fn(m)
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	m, err := core.NewMigrator(databaseURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("migrator close error", "error", err)
		}
	}()

	return m.Up()
}
