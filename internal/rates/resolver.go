// Package rates resolves duty rates through a tiered fallback chain: cache,
// primary table, secondary reference table, and a conservative emergency
// estimate. A resolver call never fails; it always returns a populated
// record with provenance.
package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradecompass/internal/cache"
	"tradecompass/internal/common"
	"tradecompass/internal/config"
	"tradecompass/internal/model"
	"tradecompass/internal/service"
)

const secondaryDisclaimer = "Rate sourced from the reference table; destination-specific adjustments may apply"

const emergencyDisclaimer = "Estimated rate only; verify with a licensed customs broker before filing"

// emergencyRates is the hand-tuned per-chapter standard-rate table used when
// every data source is unreachable. Values are decimal fractions and
// deliberately biased low so estimated savings are never overstated.
var emergencyRates = map[string]float64{
	"01": 0,
	"02": 0.12,
	"39": 0.03,
	"42": 0.10,
	"52": 0.06,
	"61": 0.14,
	"62": 0.14,
	"73": 0.04,
	"84": 0.02,
	"85": 0.0,
	"87": 0.02,
	"94": 0.0,
}

// emergencyDefaultRate applies to chapters absent from the table.
const emergencyDefaultRate = 0.03

// Resolver walks the rate tiers for a code and destination.
type Resolver struct {
	store   service.RateStore
	cache   *cache.Cache
	logger  *slog.Logger
	cfg     config.Config
	retry   service.RetryOptions
	nowFunc func() time.Time
}

// NewResolver creates a rate resolver backed by a store and a shared cache.
func NewResolver(store service.RateStore, c *cache.Cache, cfg config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		cache:  c,
		cfg:    cfg,
		logger: logger,
		retry: service.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Multiplier:   2.0,
		},
		nowFunc: time.Now,
	}
}

// Resolve returns the duty rates for a code and destination. It never
// returns an error: every tier failure degrades to the next, ending at the
// built-in emergency table.
func (r *Resolver) Resolve(ctx context.Context, code, destination string) model.RateRecord {
	key := "rate:" + code + ":" + destination

	if cached, ok := r.cache.Get(key); ok {
		rec := cached.(model.RateRecord)
		rec.Source = model.RateSourceCache
		return rec
	}

	rec, err := r.fromPrimary(ctx, code, destination)
	if err == nil {
		r.cache.Set(key, *rec)
		return *rec
	}
	primaryErr := err
	r.logger.Warn("primary rate source failed",
		"code", code,
		"destination", destination,
		"error", err)

	rec, err = r.fromSecondary(ctx, code, destination)
	if err == nil {
		r.cache.Set(key, *rec)
		return *rec
	}
	r.logger.Warn("secondary rate source failed",
		"code", code,
		"error", err)

	emergency := r.emergencyRecord(code, destination, primaryErr)
	// Short TTL so real data is retried soon.
	r.cache.SetTTL(key, emergency, r.cfg.EmergencyRateTTL)
	return emergency
}

// fromPrimary queries the authoritative table under an explicit timeout,
// retrying transient failures. An exact miss falls back hierarchically to
// the 6-digit then 4-digit code prefix, taking the highest standard rate
// among prefix matches as the most conservative answer.
func (r *Resolver) fromPrimary(ctx context.Context, code, destination string) (*model.RateRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
	defer cancel()

	var rec *model.RateRecord
	err := common.WithRetry(queryCtx, func() error {
		var opErr error
		rec, opErr = r.store.GetRate(queryCtx, code, destination)
		if opErr != nil && !errors.Is(opErr, common.ErrNotFound) {
			return opErr
		}
		if errors.Is(opErr, common.ErrNotFound) {
			rec, opErr = r.prefixLookup(queryCtx, code, destination)
		}
		if opErr != nil {
			if errors.Is(opErr, common.ErrNotFound) {
				return &common.RetryableError{Err: opErr, Retryable: false}
			}
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %v", common.ErrSourceUnavailable, opErr),
				Retryable: true,
			}
		}
		return nil
	}, r.retry)
	if err != nil {
		return nil, fmt.Errorf("primary rate lookup: %w", err)
	}

	if rec.Source == "" {
		rec.Source = model.RateSourcePrimary
	}
	return rec, nil
}

// prefixLookup widens an exact miss to sibling codes.
func (r *Resolver) prefixLookup(ctx context.Context, code, destination string) (*model.RateRecord, error) {
	for _, n := range []int{6, 4} {
		if len(code) <= n {
			continue
		}
		records, err := r.store.SearchRatesByPrefix(ctx, code[:n], destination, 5)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}

		// Records arrive ordered by standard rate descending.
		rec := records[0]
		rec.MatchedCode = rec.Code
		rec.Code = code
		rec.Source = model.RateSourcePrefix
		rec.Disclaimer = fmt.Sprintf("Rate matched on code prefix %s; the exact code has no published rate", rec.MatchedCode)
		return &rec, nil
	}
	return nil, fmt.Errorf("no rate for %s or its prefixes: %w", code, common.ErrNotFound)
}

// fromSecondary queries the reference table, which has no destination
// dimension.
func (r *Resolver) fromSecondary(ctx context.Context, code, destination string) (*model.RateRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
	defer cancel()

	rec, err := r.store.GetReferenceRate(queryCtx, code)
	if err != nil {
		return nil, err
	}

	rec.DestinationCountry = destination
	rec.Source = model.RateSourceSecondary
	rec.Disclaimer = secondaryDisclaimer
	return rec, nil
}

// emergencyRecord builds the conservative last-resort estimate.
func (r *Resolver) emergencyRecord(code, destination string, cause error) model.RateRecord {
	standard, ok := emergencyRates[chapterOf(code)]
	if !ok {
		standard = emergencyDefaultRate
	}

	reason := common.ErrFallbackExhausted.Error()
	if cause != nil {
		reason = fmt.Sprintf("%s: %v", common.ErrFallbackExhausted, cause)
	}
	r.logger.Error("emergency rate fallback engaged",
		"code", code,
		"destination", destination,
		"standard_rate", standard,
		"reason", reason)

	return model.RateRecord{
		Code:               code,
		MatchedCode:        chapterOf(code),
		DestinationCountry: destination,
		Source:             model.RateSourceEmergency,
		Disclaimer:         emergencyDisclaimer,
		FallbackReason:     reason,
		EffectiveDate:      r.nowFunc(),
		StandardRate:       standard,
		PreferentialRate:   0,
	}
}

func chapterOf(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}
