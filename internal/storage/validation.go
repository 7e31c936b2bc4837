// Package storage provides the SQLite persistence layer for the tariff
// catalog, qualification rules, duty rates, and reference data.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrEmptySlice   = errors.New("slice cannot be empty")
	ErrInvalidLimit = errors.New("limit must be positive")
	ErrInvalidCode  = errors.New("classification code must be 4-10 digits")
	ErrInvalidRate  = errors.New("rate must be a decimal fraction in [0, 1]")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateLimit ensures a row limit is usable.
func validateLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return nil
}

// validateCode ensures a classification code looks like an HS code: digits
// only, at least a 4-digit heading.
func validateCode(code string) error {
	if len(code) < 4 || len(code) > 10 {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidCode, code)
		}
	}
	return nil
}

// validateRate ensures a duty rate is a decimal fraction, not a percentage.
func validateRate(r float64, paramName string) error {
	if r < 0 || r > 1 {
		return fmt.Errorf("%w: %s=%v", ErrInvalidRate, paramName, r)
	}
	return nil
}
