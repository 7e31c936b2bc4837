package storage

import (
	"context"
	"fmt"
)

// GetMemberCountries returns the country codes flagged as regional trade
// agreement members, warm-loaded at engine initialization.
func (s *SQLiteStorage) GetMemberCountries(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code
		FROM countries
		WHERE regional_member = 1
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query member countries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan country code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("country row iteration: %w", err)
	}
	return codes, nil
}

// GetVolumeMappings returns the trade-volume label to annual USD value map.
func (s *SQLiteStorage) GetVolumeMappings(ctx context.Context) (map[string]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT label, annual_value
		FROM volume_mappings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query volume mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	mappings := make(map[string]float64)
	for rows.Next() {
		var (
			label string
			value float64
		)
		if err := rows.Scan(&label, &value); err != nil {
			return nil, fmt.Errorf("failed to scan volume mapping: %w", err)
		}
		mappings[label] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("volume mapping iteration: %w", err)
	}
	return mappings, nil
}

// SaveCountry upserts a country row.
func (s *SQLiteStorage) SaveCountry(ctx context.Context, code, name string, regionalMember bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(code, "code"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO countries (code, name, regional_member)
		VALUES (?, ?, ?)`, code, name, regionalMember)
	if err != nil {
		return fmt.Errorf("failed to save country %s: %w", code, err)
	}
	return nil
}

// SaveVolumeMapping upserts a trade-volume label.
func (s *SQLiteStorage) SaveVolumeMapping(ctx context.Context, label string, annualValue float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(label, "label"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO volume_mappings (label, annual_value)
		VALUES (?, ?)`, label, annualValue)
	if err != nil {
		return fmt.Errorf("failed to save volume mapping %q: %w", label, err)
	}
	return nil
}
