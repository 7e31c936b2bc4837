package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: catalog, qualification rules, duty rates",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS catalog_entries (
					code TEXT PRIMARY KEY,
					description TEXT NOT NULL,
					chapter TEXT NOT NULL,
					country_source TEXT DEFAULT '',
					standard_rate REAL NOT NULL DEFAULT 0,
					preferential_rate REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_catalog_chapter ON catalog_entries(chapter)`,
				`CREATE INDEX idx_catalog_description ON catalog_entries(description)`,

				`CREATE TABLE IF NOT EXISTS qualification_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					scope TEXT NOT NULL,
					code TEXT,
					chapter TEXT,
					business_type TEXT,
					rule_type TEXT NOT NULL,
					threshold REAL NOT NULL,
					documentation TEXT NOT NULL DEFAULT '[]',
					is_default BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_code ON qualification_rules(code)`,
				`CREATE INDEX idx_rules_chapter ON qualification_rules(chapter)`,
				`CREATE INDEX idx_rules_business ON qualification_rules(business_type)`,

				`CREATE TABLE IF NOT EXISTS duty_rates (
					code TEXT NOT NULL,
					destination_country TEXT NOT NULL,
					standard_rate REAL NOT NULL,
					preferential_rate REAL NOT NULL,
					effective_date DATETIME,
					PRIMARY KEY (code, destination_country)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add secondary reference rate table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS reference_rates (
					code TEXT PRIMARY KEY,
					standard_rate REAL NOT NULL,
					preferential_rate REAL NOT NULL,
					effective_date DATETIME
				)`)
			if err != nil {
				return fmt.Errorf("failed to create reference_rates: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add member country and trade volume reference tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS countries (
					code TEXT PRIMARY KEY,
					name TEXT NOT NULL DEFAULT '',
					regional_member BOOLEAN NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS volume_mappings (
					label TEXT PRIMARY KEY,
					annual_value REAL NOT NULL
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
