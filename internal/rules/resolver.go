// Package rules resolves the qualification rule that applies to a
// classification code, walking a chain of increasingly general tiers so a
// caller always receives some rule.
package rules

import (
	"context"
	"log/slog"

	"tradecompass/internal/cache"
	"tradecompass/internal/config"
	"tradecompass/internal/model"
	"tradecompass/internal/service"
)

// Tier source annotations, recorded on every resolved rule for audit.
const (
	SourceBusinessRule     = "business-rule"
	SourceCodeCache        = "code-cache"
	SourceChapterCache     = "chapter-cache"
	SourceDefaultRule      = "default-rule"
	SourceBusinessAffinity = "business-affinity"
	SourceHardDefault      = "hard-default"
)

// businessThresholds is the hand-maintained fallback threshold table used
// when no stored rule matches. High-precision industries carry stricter
// regional-content requirements.
var businessThresholds = map[string]float64{
	"Electronics":   75.0,
	"Automotive":    75.0,
	"Textiles":      62.5,
	"Manufacturing": 62.5,
}

// Resolver walks the rule tiers. Lookup errors degrade silently to the next
// tier; the hard default at the bottom guarantees a result.
type Resolver struct {
	store  service.RuleStore
	cache  *cache.Cache
	logger *slog.Logger
	cfg    config.Config
}

// NewResolver creates a rule resolver backed by a store and a shared cache.
func NewResolver(store service.RuleStore, c *cache.Cache, cfg config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		cache:  c,
		cfg:    cfg,
		logger: logger,
	}
}

// tier is one resolution attempt. A nil rule with a nil error means the tier
// had nothing to say; an error means the lookup itself failed. Both fall
// through.
type tier struct {
	resolve func(ctx context.Context, code, chapter, businessType string) (*model.QualificationRule, error)
	source  string
}

// Resolve returns the qualification rule for a code and optional business
// type. It never fails: the final tier is a built-in conservative default.
func (r *Resolver) Resolve(ctx context.Context, code, businessType string) model.QualificationRule {
	chapter := chapterOf(code)

	tiers := []tier{
		{source: SourceBusinessRule, resolve: r.businessRule},
		{source: SourceCodeCache, resolve: r.codeRule},
		{source: SourceChapterCache, resolve: r.chapterRule},
		{source: SourceDefaultRule, resolve: r.defaultRule},
		{source: SourceBusinessAffinity, resolve: r.affinityRule},
	}

	for _, t := range tiers {
		rule, err := t.resolve(ctx, code, chapter, businessType)
		if err != nil {
			r.logger.Debug("rule tier degraded",
				"tier", t.source,
				"code", code,
				"error", err)
			continue
		}
		if rule == nil {
			continue
		}
		rule.Source = t.source
		return *rule
	}

	r.logger.Warn("no stored qualification rule found, using hard default",
		"code", code,
		"business_type", businessType)
	return hardDefault()
}

func (r *Resolver) businessRule(ctx context.Context, _, chapter, businessType string) (*model.QualificationRule, error) {
	if businessType == "" {
		return nil, nil
	}
	key := "rule:business:" + businessType + ":" + chapter
	if cached, ok := r.cache.Get(key); ok {
		rule := cached.(model.QualificationRule)
		return &rule, nil
	}

	rule, err := r.store.GetRuleByBusinessType(ctx, businessType, chapter)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, *rule)
	return rule, nil
}

func (r *Resolver) codeRule(ctx context.Context, code, _, _ string) (*model.QualificationRule, error) {
	key := "rule:code:" + code
	if cached, ok := r.cache.Get(key); ok {
		rule := cached.(model.QualificationRule)
		return &rule, nil
	}

	rule, err := r.store.GetRuleByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, *rule)
	return rule, nil
}

func (r *Resolver) chapterRule(ctx context.Context, _, chapter, _ string) (*model.QualificationRule, error) {
	if chapter == "" {
		return nil, nil
	}
	key := "rule:chapter:" + chapter
	if cached, ok := r.cache.Get(key); ok {
		rule := cached.(model.QualificationRule)
		return &rule, nil
	}

	rule, err := r.store.GetRuleByChapter(ctx, chapter)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, *rule)
	return rule, nil
}

func (r *Resolver) defaultRule(ctx context.Context, _, _, _ string) (*model.QualificationRule, error) {
	const key = "rule:default"
	if cached, ok := r.cache.Get(key); ok {
		rule := cached.(model.QualificationRule)
		return &rule, nil
	}

	rule, err := r.store.GetDefaultRule(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, *rule)
	return rule, nil
}

// affinityRule answers from the hand-maintained threshold table when the
// caller declared a business type.
func (r *Resolver) affinityRule(_ context.Context, _, chapter, businessType string) (*model.QualificationRule, error) {
	if businessType == "" {
		return nil, nil
	}

	threshold, ok := businessThresholds[businessType]
	if !ok {
		threshold = r.cfg.DefaultThreshold
	}
	return &model.QualificationRule{
		Scope:        model.ScopeBusiness,
		Chapter:      chapter,
		BusinessType: businessType,
		RuleType:     model.RuleRegionalValueContent,
		Threshold:    threshold,
		DocumentationRequired: []string{
			"Bill of materials with component origins",
			"Supplier origin declarations",
		},
	}, nil
}

func hardDefault() model.QualificationRule {
	return model.QualificationRule{
		Scope:                 model.ScopeDefault,
		RuleType:              model.RuleRegionalValueContent,
		Source:                SourceHardDefault,
		Threshold:             62.5,
		DocumentationRequired: []string{"Professional review required"},
		IsDefault:             true,
	}
}

// chapterOf returns the leading two digits of a classification code.
func chapterOf(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}
