package storage

import (
	"context"
	"database/sql"
	"fmt"

	"tradecompass/internal/model"
)

const catalogColumns = "code, description, chapter, country_source, standard_rate, preferential_rate"

// SearchCatalog performs a partial text match on entry descriptions.
func (s *SQLiteStorage) SearchCatalog(ctx context.Context, phrase string, limit int) ([]model.CatalogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(phrase, "phrase"); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog query limiter: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_entries
		WHERE description LIKE '%' || ? || '%'
		ORDER BY code
		LIMIT ?`, phrase, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanCatalogEntries(rows)
}

// SearchCatalogByChapter restricts a text match to a single chapter.
func (s *SQLiteStorage) SearchCatalogByChapter(ctx context.Context, chapter, phrase string, limit int) ([]model.CatalogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(chapter, "chapter"); err != nil {
		return nil, err
	}
	if err := validateString(phrase, "phrase"); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog query limiter: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_entries
		WHERE chapter = ? AND description LIKE '%' || ? || '%'
		ORDER BY code
		LIMIT ?`, chapter, phrase, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog by chapter: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanCatalogEntries(rows)
}

// SearchCatalogByPrefix returns entries whose code starts with prefix, used
// to find sibling products under a shared heading.
func (s *SQLiteStorage) SearchCatalogByPrefix(ctx context.Context, prefix string, limit int) ([]model.CatalogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(prefix, "prefix"); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog query limiter: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_entries
		WHERE code LIKE ? || '%'
		ORDER BY code
		LIMIT ?`, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog by prefix: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanCatalogEntries(rows)
}

// SaveCatalogEntries bulk-inserts catalog rows inside a single transaction,
// replacing entries that share a code. Used by seeding and imports.
func (s *SQLiteStorage) SaveCatalogEntries(ctx context.Context, entries []model.CatalogEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: entries", ErrEmptySlice)
	}
	for i := range entries {
		if err := validateCatalogEntry(&entries[i]); err != nil {
			return fmt.Errorf("entry at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO catalog_entries
			(code, description, chapter, country_source, standard_rate, preferential_rate)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Code, e.Description, e.Chapter, e.CountrySource, e.StandardRate, e.PreferentialRate); err != nil {
			return fmt.Errorf("failed to insert catalog entry %s: %w", e.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog entries: %w", err)
	}
	return nil
}

func validateCatalogEntry(e *model.CatalogEntry) error {
	if err := validateCode(e.Code); err != nil {
		return err
	}
	if err := validateString(e.Description, "description"); err != nil {
		return err
	}
	if err := validateString(e.Chapter, "chapter"); err != nil {
		return err
	}
	if err := validateRate(e.StandardRate, "standardRate"); err != nil {
		return err
	}
	return validateRate(e.PreferentialRate, "preferentialRate")
}

func scanCatalogEntries(rows *sql.Rows) ([]model.CatalogEntry, error) {
	var entries []model.CatalogEntry
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.Code, &e.Description, &e.Chapter, &e.CountrySource, &e.StandardRate, &e.PreferentialRate); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog row iteration: %w", err)
	}
	return entries, nil
}
