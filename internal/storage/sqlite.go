package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// catalogQueriesPerSecond bounds free-text catalog searches so one
// classification burst cannot starve rule and rate lookups.
const catalogQueriesPerSecond = 50

// SQLiteStorage backs every store interface with a single SQLite database.
type SQLiteStorage struct {
	db      *sql.DB
	limiter *rate.Limiter
	dbPath  string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:      db,
		dbPath:  dbPath,
		limiter: rate.NewLimiter(rate.Limit(catalogQueriesPerSecond), catalogQueriesPerSecond),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
