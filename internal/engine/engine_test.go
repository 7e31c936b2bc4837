package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecompass/internal/config"
	"tradecompass/internal/model"
	"tradecompass/internal/rules"
	"tradecompass/internal/service"
	"tradecompass/internal/storage"
)

// countingRuleStore counts warm loads so tests can assert single-flight
// initialization.
type countingRuleStore struct {
	service.RuleStore
	allRuleLoads atomic.Int64
}

func (c *countingRuleStore) GetAllRules(ctx context.Context) ([]model.QualificationRule, error) {
	c.allRuleLoads.Add(1)
	return c.RuleStore.GetAllRules(ctx)
}

func setupSeededStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	require.NoError(t, store.SaveCatalogEntries(ctx, []model.CatalogEntry{
		{Code: "85444290", Description: "Insulated copper wire for electrical circuits", Chapter: "85", StandardRate: 0.026},
		{Code: "85444910", Description: "Other insulated electric conductors", Chapter: "85", StandardRate: 0.035},
		{Code: "61091000", Description: "Cotton t-shirts, knitted", Chapter: "61", StandardRate: 0.165},
	}))
	require.NoError(t, store.SaveRules(ctx, []model.QualificationRule{
		{Scope: model.ScopeCode, Code: "85444290", Chapter: "85", RuleType: model.RuleTariffShift, Threshold: 55, DocumentationRequired: []string{"Bill of materials"}},
		{Scope: model.ScopeDefault, RuleType: model.RuleRegionalValueContent, Threshold: 62.5, DocumentationRequired: []string{"Commercial invoice"}, IsDefault: true},
	}))
	require.NoError(t, store.SaveRates(ctx, []model.RateRecord{
		{Code: "85444290", DestinationCountry: "US", StandardRate: 0.05, PreferentialRate: 0},
	}))
	for _, c := range []struct {
		code   string
		name   string
		member bool
	}{
		{"US", "United States", true},
		{"CA", "Canada", true},
		{"MX", "Mexico", true},
		{"CN", "China", false},
	} {
		require.NoError(t, store.SaveCountry(ctx, c.code, c.name, c.member))
	}
	require.NoError(t, store.SaveVolumeMapping(ctx, "$5M - $25M", 15000000))

	return store
}

func newTestEngine(t *testing.T) (*Engine, *countingRuleStore) {
	store := setupSeededStorage(t)
	counting := &countingRuleStore{RuleStore: store}
	eng := New(service.Stores{
		Catalog:   store,
		Rules:     counting,
		Rates:     store,
		Reference: store,
	}, config.Default(), nil)
	return eng, counting
}

func TestEngineLifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	assert.Equal(t, StateUninitialized, eng.State())

	resp := eng.Classify(context.Background(), ClassifyRequest{Description: "copper wire for electrical circuits"})
	assert.True(t, resp.Success)
	assert.Equal(t, StateReady, eng.State())
}

func TestEngineConcurrentInitRunsOnce(t *testing.T) {
	eng, counting := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = eng.ResolveRule(ctx, "85444290", "")
		}()
	}
	wg.Wait()

	assert.Equal(t, StateReady, eng.State())
	assert.Equal(t, int64(1), counting.allRuleLoads.Load(),
		"concurrent first callers must share one warm load")
}

func TestEngineReset(t *testing.T) {
	eng, counting := newTestEngine(t)
	ctx := context.Background()

	_ = eng.ResolveRule(ctx, "85444290", "")
	require.Equal(t, StateReady, eng.State())

	eng.Reset()
	assert.Equal(t, StateUninitialized, eng.State())

	_ = eng.ResolveRule(ctx, "85444290", "")
	assert.Equal(t, StateReady, eng.State())
	assert.Equal(t, int64(2), counting.allRuleLoads.Load(), "reset forces a fresh warm load")
}

func TestClassifyEndToEnd(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := eng.Classify(context.Background(), ClassifyRequest{
		Description:  "copper wire for electrical circuits",
		BusinessType: "Electronics",
	})
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Candidates)
	assert.NotEmpty(t, resp.AuditID)
	assert.Equal(t, "85444290", resp.Candidates[0].Code)

	for _, cand := range resp.Candidates {
		assert.GreaterOrEqual(t, cand.Confidence, 10)
		assert.LessOrEqual(t, cand.Confidence, 100)
	}
}

func TestClassifyInvalidInputIsStructured(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := eng.Classify(context.Background(), ClassifyRequest{Description: "ab"})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.Suggestion)
	assert.Empty(t, resp.Candidates)
}

func TestResolveRuleEndToEnd(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	resp := eng.ResolveRule(ctx, "85444290", "")
	require.True(t, resp.Success)
	assert.Equal(t, rules.SourceCodeCache, resp.Rule.Source)
	assert.Equal(t, 55.0, resp.Rule.Threshold)

	// Unknown code falls through to the stored default row.
	resp = eng.ResolveRule(ctx, "01012100", "")
	require.True(t, resp.Success)
	assert.Equal(t, rules.SourceDefaultRule, resp.Rule.Source)
	assert.Equal(t, 62.5, resp.Rule.Threshold)
}

func TestEvaluateEndToEnd(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := eng.Evaluate(context.Background(), EvaluateRequest{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Copper core", OriginCountry: "MX", ValuePercentage: 70},
			{Description: "Insulation", OriginCountry: "CN", ValuePercentage: 30},
		},
	})
	require.True(t, resp.Success)
	assert.True(t, resp.Result.Qualified)
	assert.Equal(t, 70.0, resp.Result.RegionalContent)
	assert.Equal(t, 55.0, resp.Result.Threshold, "code-specific rule applies")
}

func TestEvaluateRecoversFromRacingReset(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, eng.ensureReady(ctx))

	// Emulate a reset landing after a caller observed Ready but before it
	// read the evaluator.
	eng.mu.Lock()
	eng.evaluator = nil
	eng.mu.Unlock()

	resp := eng.Evaluate(ctx, EvaluateRequest{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Copper core", OriginCountry: "MX", ValuePercentage: 70},
			{Description: "Insulation", OriginCountry: "CN", ValuePercentage: 30},
		},
	})
	require.True(t, resp.Success, "a raced reset must trigger a fresh warm load")
	assert.True(t, resp.Result.Qualified)
	assert.Equal(t, StateReady, eng.State())
}

func TestEvaluateRejectsMissingComponents(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := eng.Evaluate(context.Background(), EvaluateRequest{Code: "85444290"})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.Suggestion)
}

func TestResolveRatesEndToEnd(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	resp := eng.ResolveRates(ctx, "85444290", "US")
	require.True(t, resp.Success)
	assert.Equal(t, model.RateSourcePrimary, resp.Rate.Source)
	assert.Equal(t, 0.05, resp.Rate.StandardRate)

	// A code with no stored rate anywhere still answers, conservatively.
	resp = eng.ResolveRates(ctx, "42021210", "US")
	require.True(t, resp.Success)
	assert.Equal(t, model.RateSourceEmergency, resp.Rate.Source)
	assert.Equal(t, 0.10, resp.Rate.StandardRate)
	assert.NotEmpty(t, resp.Rate.FallbackReason)
}

func TestCalculateSavings(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := eng.CalculateSavings(context.Background(), SavingsRequest{
		Code:               "85444290",
		DestinationCountry: "US",
		TradeVolume:        "$5M - $25M",
		Qualified:          true,
	})
	require.True(t, resp.Success)
	assert.Equal(t, 15000000.0, resp.AnnualVolume, "stored volume mapping wins")
	assert.Equal(t, 750000.0, resp.StandardDuty)
	assert.Equal(t, 0.0, resp.PreferentialDuty)
	assert.Equal(t, 750000.0, resp.AnnualSavings)
	assert.Equal(t, 62500.0, resp.MonthlySavings)
	assert.InDelta(t, 0.05, resp.SavingsRate, 1e-9)
	assert.Empty(t, resp.Warning, "primary rates carry no estimate warning")
}

func TestCalculateSavingsUnqualified(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := eng.CalculateSavings(context.Background(), SavingsRequest{
		Code:               "85444290",
		DestinationCountry: "US",
		TradeVolume:        "unknown volume",
		Qualified:          false,
	})
	require.True(t, resp.Success)
	assert.Equal(t, 500000.0, resp.AnnualVolume, "unparseable volume uses the default")
	assert.Equal(t, 0.0, resp.AnnualSavings)
	assert.Equal(t, resp.StandardDuty, resp.PreferentialDuty)
}

func TestCalculateSavingsConfiguredDefaultVolume(t *testing.T) {
	store := setupSeededStorage(t)
	cfg := config.Default()
	cfg.DefaultTradeVolume = 750000
	eng := New(service.Stores{
		Catalog:   store,
		Rules:     store,
		Rates:     store,
		Reference: store,
	}, cfg, nil)

	resp := eng.CalculateSavings(context.Background(), SavingsRequest{
		Code:               "85444290",
		DestinationCountry: "US",
		TradeVolume:        "no idea",
		Qualified:          false,
	})
	require.True(t, resp.Success)
	assert.Equal(t, 750000.0, resp.AnnualVolume, "unparseable volume uses the configured default")
}

func TestCalculateSavingsEmergencyWarning(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := eng.CalculateSavings(context.Background(), SavingsRequest{
		Code:               "42021210",
		DestinationCountry: "US",
		TradeVolume:        "$1M",
		Qualified:          true,
	})
	require.True(t, resp.Success)
	assert.Equal(t, model.RateSourceEmergency, resp.Rate.Source)
	assert.NotEmpty(t, resp.Warning)
}

func TestCertificateData(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	qualified := model.QualificationResult{
		Qualified:             true,
		RegionalContent:       70,
		RuleType:              model.RuleRegionalValueContent,
		RuleSource:            rules.SourceCodeCache,
		DocumentationRequired: []string{"Bill of materials"},
	}

	resp := eng.CertificateData(ctx, CertificateRequest{
		ExporterName:    "Acme Wire Co",
		Description:     "Insulated copper wire",
		Code:            "85444290",
		CountryOfOrigin: "MX",
		Qualification:   qualified,
	})
	require.True(t, resp.Success)
	assert.Equal(t, "D", resp.Certificate.PreferenceCriterion)
	assert.Equal(t, "70.0%", resp.Certificate.RegionalValueContent)
	assert.True(t, resp.Certificate.BlanketEnd.After(resp.Certificate.BlanketStart))

	// Unqualified products never get certificate data.
	resp = eng.CertificateData(ctx, CertificateRequest{
		Code:          "85444290",
		Qualification: model.QualificationResult{Qualified: false},
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "product is not qualified for preferential treatment", resp.Error)
	assert.NotEmpty(t, resp.Suggestion)
}

func TestStats(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_ = eng.Classify(ctx, ClassifyRequest{Description: "copper wire for electrical circuits"})
	_ = eng.ResolveRule(ctx, "85444290", "")
	_ = eng.ResolveRates(ctx, "85444290", "US")

	stats := eng.Stats()
	assert.Equal(t, int64(1), stats.Classifications)
	assert.Equal(t, int64(1), stats.RuleLookups)
	assert.Equal(t, int64(1), stats.RateLookups)
	assert.Equal(t, "ready", stats.State)
	assert.Positive(t, stats.CacheEntries)
}
