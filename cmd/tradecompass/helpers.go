package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"tradecompass/internal/config"
	"tradecompass/internal/engine"
	"tradecompass/internal/service"
	"tradecompass/internal/storage"
)

// defaultDBPath is used when the config names no database.
func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tradecompass", "tradecompass.db"), nil
}

// initStorage opens and migrates the configured database.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine builds a ready-to-call engine over the configured database.
// The caller owns closing the returned storage.
func initEngine(ctx context.Context) (*engine.Engine, *storage.SQLiteStorage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	cfg := config.FromViper(viper.GetViper())
	eng := engine.New(service.Stores{
		Catalog:   store,
		Rules:     store,
		Rates:     store,
		Reference: store,
	}, cfg, nil)

	return eng, store, nil
}

// jsonOutput reports whether --json was requested.
func jsonOutput() bool {
	return viper.GetBool("output.json")
}

// printJSON writes a result to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
