package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tradecompass/internal/common"
	"tradecompass/internal/model"
)

// GetRate returns the primary duty-rate row for an exact code and
// destination. Misses are common.ErrNotFound. Provenance tagging is the
// resolver's job; records leave storage untagged.
func (s *SQLiteStorage) GetRate(ctx context.Context, code, destination string) (*model.RateRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCode(code); err != nil {
		return nil, err
	}
	if err := validateString(destination, "destination"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT code, destination_country, standard_rate, preferential_rate, effective_date
		FROM duty_rates
		WHERE code = ? AND destination_country = ?`, code, destination)

	rec, err := scanRateRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("duty rate for %s to %s: %w", code, destination, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rec.MatchedCode = rec.Code
	return rec, nil
}

// SearchRatesByPrefix returns primary rows whose code starts with prefix,
// ordered by standard rate descending so callers can pick the most
// conservative match first.
func (s *SQLiteStorage) SearchRatesByPrefix(ctx context.Context, prefix, destination string, limit int) ([]model.RateRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(prefix, "prefix"); err != nil {
		return nil, err
	}
	if err := validateString(destination, "destination"); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, destination_country, standard_rate, preferential_rate, effective_date
		FROM duty_rates
		WHERE code LIKE ? || '%' AND destination_country = ?
		ORDER BY standard_rate DESC, code
		LIMIT ?`, prefix, destination, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search rates by prefix: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.RateRecord
	for rows.Next() {
		rec, scanErr := scanRateRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rec.MatchedCode = rec.Code
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rate row iteration: %w", err)
	}
	return records, nil
}

// GetReferenceRate returns the secondary reference row for a code. The
// reference table has no destination dimension. Misses are common.ErrNotFound.
func (s *SQLiteStorage) GetReferenceRate(ctx context.Context, code string) (*model.RateRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCode(code); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT code, '' AS destination_country, standard_rate, preferential_rate, effective_date
		FROM reference_rates
		WHERE code = ?`, code)

	rec, err := scanRateRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reference rate for %s: %w", code, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rec.MatchedCode = rec.Code
	return rec, nil
}

// SaveRates bulk-inserts primary duty-rate rows inside a single transaction.
func (s *SQLiteStorage) SaveRates(ctx context.Context, records []model.RateRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO duty_rates
			(code, destination_country, standard_rate, preferential_rate, effective_date)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if err := validateRateRecord(&r); err != nil {
			return fmt.Errorf("rate at index %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, r.Code, r.DestinationCountry, r.StandardRate, r.PreferentialRate, r.EffectiveDate); err != nil {
			return fmt.Errorf("rate at index %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rates: %w", err)
	}
	return nil
}

// SaveReferenceRates bulk-inserts secondary reference rows.
func (s *SQLiteStorage) SaveReferenceRates(ctx context.Context, records []model.RateRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO reference_rates
			(code, standard_rate, preferential_rate, effective_date)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if err := validateCode(r.Code); err != nil {
			return fmt.Errorf("reference rate at index %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, r.Code, r.StandardRate, r.PreferentialRate, r.EffectiveDate); err != nil {
			return fmt.Errorf("reference rate at index %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reference rates: %w", err)
	}
	return nil
}

func validateRateRecord(r *model.RateRecord) error {
	if err := validateCode(r.Code); err != nil {
		return err
	}
	if err := validateString(r.DestinationCountry, "destinationCountry"); err != nil {
		return err
	}
	if err := validateRate(r.StandardRate, "standardRate"); err != nil {
		return err
	}
	return validateRate(r.PreferentialRate, "preferentialRate")
}

func scanRateRecord(row rowScanner) (*model.RateRecord, error) {
	var (
		rec       model.RateRecord
		effective sql.NullTime
	)
	err := row.Scan(&rec.Code, &rec.DestinationCountry, &rec.StandardRate, &rec.PreferentialRate, &effective)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rate record: %w", err)
	}
	if effective.Valid {
		rec.EffectiveDate = effective.Time
	}
	return &rec, nil
}
