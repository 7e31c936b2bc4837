// Package config provides configuration for the decision engine. Every
// ranking weight and threshold is tunable; the defaults reproduce the
// behavior the scoring heuristics were tuned for.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// StageThresholds are the minimum normalized scores a hit must reach to
// survive each classification stage.
type StageThresholds struct {
	Phrase       float64
	Chapter      float64
	Relationship float64
	Contextual   float64
}

// Scoring holds the final-ranking weights applied after the stages are
// joined and deduplicated.
type Scoring struct {
	PhraseBonus             int
	ChapterExactBonus       int
	ChapterInferredBonus    int
	RelationshipBonus       int
	ContextualBonus         int
	RateSignalBonus         int
	PreferentialDeltaBonus  int
	ShortDescriptionPenalty int
	ShortDescriptionLength  int
	MinConfidence           int
	MaxConfidence           int
}

// Config carries the tunables for every engine component.
type Config struct {
	MemberCountries         []string
	CacheTTL                time.Duration
	EmergencyRateTTL        time.Duration
	QueryTimeout            time.Duration
	CacheMaxEntries         int
	DefaultLimit            int
	MaxLimit                int
	MinDescriptionLength    int
	MaxDescriptionLength    int
	DefaultThreshold        float64
	DefaultTradeVolume      float64
	CertificateValidityDays int
	Stages                  StageThresholds
	Scoring                 Scoring
}

// Default returns the engine configuration defaults.
func Default() Config {
	return Config{
		MemberCountries:         []string{"US", "CA", "MX"},
		CacheTTL:                15 * time.Minute,
		EmergencyRateTTL:        30 * time.Second,
		QueryTimeout:            3 * time.Second,
		CacheMaxEntries:         1000,
		DefaultLimit:            10,
		MaxLimit:                20,
		MinDescriptionLength:    3,
		MaxDescriptionLength:    500,
		DefaultThreshold:        62.5,
		DefaultTradeVolume:      500000,
		CertificateValidityDays: 365,
		Stages: StageThresholds{
			Phrase:       0.30,
			Chapter:      0.40,
			Relationship: 0.50,
			Contextual:   0.35,
		},
		Scoring: Scoring{
			PhraseBonus:             15,
			ChapterExactBonus:       12,
			ChapterInferredBonus:    3,
			RelationshipBonus:       8,
			ContextualBonus:         6,
			RateSignalBonus:         5,
			PreferentialDeltaBonus:  5,
			ShortDescriptionPenalty: 10,
			ShortDescriptionLength:  20,
			MinConfidence:           10,
			MaxConfidence:           100,
		},
	}
}

// FromViper layers viper-provided values over the defaults. Keys follow the
// config file layout, e.g. scoring.phrase_bonus, stages.phrase, cache.ttl.
func FromViper(v *viper.Viper) Config {
	cfg := Default()

	if v == nil {
		return cfg
	}

	if v.IsSet("engine.member_countries") {
		cfg.MemberCountries = v.GetStringSlice("engine.member_countries")
	}
	if v.IsSet("cache.ttl") {
		cfg.CacheTTL = v.GetDuration("cache.ttl")
	}
	if v.IsSet("cache.emergency_ttl") {
		cfg.EmergencyRateTTL = v.GetDuration("cache.emergency_ttl")
	}
	if v.IsSet("cache.max_entries") {
		cfg.CacheMaxEntries = v.GetInt("cache.max_entries")
	}
	if v.IsSet("engine.query_timeout") {
		cfg.QueryTimeout = v.GetDuration("engine.query_timeout")
	}
	if v.IsSet("engine.default_threshold") {
		cfg.DefaultThreshold = v.GetFloat64("engine.default_threshold")
	}
	if v.IsSet("engine.default_trade_volume") {
		cfg.DefaultTradeVolume = v.GetFloat64("engine.default_trade_volume")
	}
	if v.IsSet("engine.certificate_validity_days") {
		cfg.CertificateValidityDays = v.GetInt("engine.certificate_validity_days")
	}

	if v.IsSet("stages.phrase") {
		cfg.Stages.Phrase = v.GetFloat64("stages.phrase")
	}
	if v.IsSet("stages.chapter") {
		cfg.Stages.Chapter = v.GetFloat64("stages.chapter")
	}
	if v.IsSet("stages.relationship") {
		cfg.Stages.Relationship = v.GetFloat64("stages.relationship")
	}
	if v.IsSet("stages.contextual") {
		cfg.Stages.Contextual = v.GetFloat64("stages.contextual")
	}

	s := &cfg.Scoring
	for key, dst := range map[string]*int{
		"scoring.phrase_bonus":              &s.PhraseBonus,
		"scoring.chapter_exact_bonus":       &s.ChapterExactBonus,
		"scoring.chapter_inferred_bonus":    &s.ChapterInferredBonus,
		"scoring.relationship_bonus":        &s.RelationshipBonus,
		"scoring.contextual_bonus":          &s.ContextualBonus,
		"scoring.rate_signal_bonus":         &s.RateSignalBonus,
		"scoring.preferential_delta_bonus":  &s.PreferentialDeltaBonus,
		"scoring.short_description_penalty": &s.ShortDescriptionPenalty,
	} {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	return cfg
}
