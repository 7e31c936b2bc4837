package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestStorage creates a migrated in-memory store for tests.
func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestNewSQLiteStorage(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{
			name:   "in-memory database",
			dbPath: ":memory:",
		},
		{
			name:    "empty path",
			dbPath:  "",
			wantErr: true,
		},
		{
			name:    "whitespace path",
			dbPath:  "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewSQLiteStorage(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, store.Close())
		})
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupTestStorage(t)

	// Running migrations again on a current database is a no-op.
	require.NoError(t, store.Migrate(context.Background()))

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, ExpectedSchemaVersion, version)
}
