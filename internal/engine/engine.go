// Package engine owns the decision-engine lifecycle and exposes the four
// call contracts: classify, resolve rule, evaluate, resolve rates, plus the
// savings and certificate helpers built on them. Responses carry an explicit
// success flag and never propagate panics or raw storage errors to callers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"tradecompass/internal/cache"
	"tradecompass/internal/classifier"
	"tradecompass/internal/common"
	"tradecompass/internal/config"
	"tradecompass/internal/qualification"
	"tradecompass/internal/rates"
	"tradecompass/internal/rules"
	"tradecompass/internal/service"
	"tradecompass/internal/tradevolume"
)

// State is the engine lifecycle phase.
type State int32

// Engine lifecycle states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Stats are cumulative per-process counters, for the stats command and
// health reporting.
type Stats struct {
	Classifications int64
	RuleLookups     int64
	Evaluations     int64
	RateLookups     int64
	CacheEntries    int
	State           string
}

// Engine is the single long-lived decision engine instance. Safe for
// concurrent use.
type Engine struct {
	stores     service.Stores
	cache      *cache.Cache
	classifier *classifier.Classifier
	rules      *rules.Resolver
	rates      *rates.Resolver
	logger     *slog.Logger
	cfg        config.Config

	initGroup singleflight.Group
	state     atomic.Int32

	mu        sync.RWMutex
	evaluator *qualification.Evaluator
	members   []string
	volumes   map[string]float64

	classifications atomic.Int64
	ruleLookups     atomic.Int64
	evaluations     atomic.Int64
	rateLookups     atomic.Int64
}

// New constructs an engine over the given stores. The engine stays
// Uninitialized until the first call triggers the warm load.
func New(stores service.Stores, cfg config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	shared := cache.New(cfg.CacheTTL, cfg.CacheMaxEntries)
	return &Engine{
		stores:     stores,
		cache:      shared,
		classifier: classifier.New(stores.Catalog, cfg, logger),
		rules:      rules.NewResolver(stores.Rules, shared, cfg, logger),
		rates:      rates.NewResolver(stores.Rates, shared, cfg, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// ensureReady performs the one-time warm load. Concurrent first callers
// share a single in-flight initialization.
func (e *Engine) ensureReady(ctx context.Context) error {
	if e.State() == StateReady {
		return nil
	}

	_, err, _ := e.initGroup.Do("init", func() (any, error) {
		if e.State() == StateReady {
			return nil, nil
		}
		e.state.Store(int32(StateInitializing))

		if err := e.warmLoad(ctx); err != nil {
			e.state.Store(int32(StateUninitialized))
			return nil, err
		}

		e.state.Store(int32(StateReady))
		return nil, nil
	})
	return err
}

// warmLoad bulk-loads rules, member countries, and volume mappings. Missing
// reference data degrades to configured defaults; only a failed rule load is
// fatal, because every downstream verdict depends on it.
func (e *Engine) warmLoad(ctx context.Context) error {
	started := time.Now()

	loaded, err := e.stores.Rules.GetAllRules(ctx)
	if err != nil {
		return fmt.Errorf("warm load rules: %w", err)
	}
	for _, rule := range loaded {
		switch {
		case rule.Code != "":
			e.cache.Set("rule:code:"+rule.Code, rule)
		case rule.IsDefault:
			e.cache.Set("rule:default", rule)
		case rule.Chapter != "":
			e.cache.Set("rule:chapter:"+rule.Chapter, rule)
		}
	}

	members, err := e.stores.Reference.GetMemberCountries(ctx)
	if err != nil || len(members) == 0 {
		e.logger.Warn("member countries unavailable, using configured defaults",
			"error", err)
		members = e.cfg.MemberCountries
	}

	volumes, err := e.stores.Reference.GetVolumeMappings(ctx)
	if err != nil {
		e.logger.Warn("volume mappings unavailable, declarations will be parsed directly",
			"error", err)
		volumes = map[string]float64{}
	}

	e.mu.Lock()
	e.members = members
	e.volumes = volumes
	e.evaluator = qualification.NewEvaluator(e.rules, members, e.logger)
	e.mu.Unlock()

	e.logger.Info("engine warm load complete",
		"rules", len(loaded),
		"member_countries", len(members),
		"volume_mappings", len(volumes),
		"elapsed", time.Since(started))
	return nil
}

// Reset returns the engine to Uninitialized and clears all cached state.
// The next call performs a fresh warm load.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.evaluator = nil
	e.members = nil
	e.volumes = nil
	e.mu.Unlock()

	e.cache.Clear()
	e.state.Store(int32(StateUninitialized))
	e.logger.Info("engine reset")
}

// Stats returns cumulative counters and the current state.
func (e *Engine) Stats() Stats {
	return Stats{
		Classifications: e.classifications.Load(),
		RuleLookups:     e.ruleLookups.Load(),
		Evaluations:     e.evaluations.Load(),
		RateLookups:     e.rateLookups.Load(),
		CacheEntries:    e.cache.Size(),
		State:           e.State().String(),
	}
}

// Health reports whether the engine can initialize and serve calls.
func (e *Engine) Health(ctx context.Context) error {
	if err := e.ensureReady(ctx); err != nil {
		return fmt.Errorf("engine unhealthy: %w", err)
	}
	return nil
}

// failure converts an internal error into caller-facing message and
// suggestion strings.
func failure(err error) (string, string) {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage, userErr.Suggestion
	}
	return err.Error(), ""
}

func newAuditID() string {
	return uuid.NewString()
}

// memberCountries returns the loaded member set, falling back to config.
func (e *Engine) memberCountries() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.members) > 0 {
		return e.members
	}
	return e.cfg.MemberCountries
}

// annualVolume resolves a trade-volume declaration to USD, preferring the
// stored mapping table over direct parsing.
func (e *Engine) annualVolume(declaration string) float64 {
	e.mu.RLock()
	v, ok := e.volumes[declaration]
	e.mu.RUnlock()
	if ok {
		return v
	}
	return tradevolume.Parse(declaration, e.cfg.DefaultTradeVolume)
}
