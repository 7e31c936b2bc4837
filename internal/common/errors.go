// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Data errors.
	ErrNotFound = errors.New("not found")

	// Engine errors.
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoComponents      = errors.New("no components supplied")
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrFallbackExhausted = errors.New("all fallback tiers exhausted")
	ErrNotQualified      = errors.New("product not qualified")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the caller with a
// corrective suggestion.
type UserError struct {
	Err         error
	UserMessage string
	Suggestion  string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-facing error with a corrective suggestion.
func NewUserError(userMessage, suggestion string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Suggestion:  suggestion,
		Err:         err,
	}
}

// SuggestionFor extracts the corrective suggestion from an error chain, if any.
func SuggestionFor(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Suggestion
	}
	return ""
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
