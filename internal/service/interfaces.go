// Package service defines the interfaces for the engine's data surfaces.
package service

import (
	"context"
	"time"

	"tradecompass/internal/model"
)

// CatalogStore is the searchable product catalog consumed by the
// classification pipeline. All queries are read-only.
type CatalogStore interface {
	// SearchCatalog performs a partial text match on entry descriptions.
	SearchCatalog(ctx context.Context, phrase string, limit int) ([]model.CatalogEntry, error)
	// SearchCatalogByChapter restricts a text match to a single chapter.
	SearchCatalogByChapter(ctx context.Context, chapter, phrase string, limit int) ([]model.CatalogEntry, error)
	// SearchCatalogByPrefix returns entries whose code starts with prefix.
	SearchCatalogByPrefix(ctx context.Context, prefix string, limit int) ([]model.CatalogEntry, error)
}

// RuleStore is the qualification-rule table. Misses are reported as
// common.ErrNotFound, not nil rows.
type RuleStore interface {
	GetRuleByCode(ctx context.Context, code string) (*model.QualificationRule, error)
	GetRuleByChapter(ctx context.Context, chapter string) (*model.QualificationRule, error)
	GetRuleByBusinessType(ctx context.Context, businessType, chapter string) (*model.QualificationRule, error)
	GetDefaultRule(ctx context.Context) (*model.QualificationRule, error)
	GetAllRules(ctx context.Context) ([]model.QualificationRule, error)
}

// RateStore exposes the primary duty-rate table (keyed by code and
// destination) and the secondary reference table (keyed by code alone).
type RateStore interface {
	GetRate(ctx context.Context, code, destination string) (*model.RateRecord, error)
	SearchRatesByPrefix(ctx context.Context, prefix, destination string, limit int) ([]model.RateRecord, error)
	GetReferenceRate(ctx context.Context, code string) (*model.RateRecord, error)
}

// ReferenceStore supplies the slow-moving reference data warm-loaded at
// engine initialization.
type ReferenceStore interface {
	GetMemberCountries(ctx context.Context) ([]string, error)
	GetVolumeMappings(ctx context.Context) (map[string]float64, error)
}

// Stores bundles the data surfaces an engine needs. A single SQLite store
// satisfies all of them, but tests swap individual surfaces.
type Stores struct {
	Catalog   CatalogStore
	Rules     RuleStore
	Rates     RateStore
	Reference ReferenceStore
}

// RetryOptions configures retry behavior for source lookups.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
