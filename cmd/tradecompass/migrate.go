package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"tradecompass/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures the local database has all the tables and indexes
the engine needs.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	slog.Info("Database migrated", "schema_version", storage.ExpectedSchemaVersion)
	fmt.Println("Database is up to date.")
	return nil
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show engine counters and cache state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, store, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := eng.Health(cmd.Context()); err != nil {
				return err
			}

			stats := eng.Stats()
			if jsonOutput() {
				return printJSON(stats)
			}
			fmt.Printf("state:           %s\n", stats.State)
			fmt.Printf("cache entries:   %d\n", stats.CacheEntries)
			fmt.Printf("classifications: %d\n", stats.Classifications)
			fmt.Printf("rule lookups:    %d\n", stats.RuleLookups)
			fmt.Printf("evaluations:     %d\n", stats.Evaluations)
			fmt.Printf("rate lookups:    %d\n", stats.RateLookups)
			return nil
		},
	}
}
