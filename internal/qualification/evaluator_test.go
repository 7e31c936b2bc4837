package qualification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecompass/internal/cache"
	"tradecompass/internal/common"
	"tradecompass/internal/config"
	"tradecompass/internal/model"
	"tradecompass/internal/rules"
	"tradecompass/internal/service"
)

// emptyRuleStore forces every resolution to the hard default (62.5).
type emptyRuleStore struct{}

func (emptyRuleStore) GetRuleByCode(_ context.Context, _ string) (*model.QualificationRule, error) {
	return nil, common.ErrNotFound
}
func (emptyRuleStore) GetRuleByChapter(_ context.Context, _ string) (*model.QualificationRule, error) {
	return nil, common.ErrNotFound
}
func (emptyRuleStore) GetRuleByBusinessType(_ context.Context, _, _ string) (*model.QualificationRule, error) {
	return nil, common.ErrNotFound
}
func (emptyRuleStore) GetDefaultRule(_ context.Context) (*model.QualificationRule, error) {
	return nil, common.ErrNotFound
}
func (emptyRuleStore) GetAllRules(_ context.Context) ([]model.QualificationRule, error) {
	return nil, nil
}

var _ service.RuleStore = emptyRuleStore{}

func newTestEvaluator() *Evaluator {
	resolver := rules.NewResolver(emptyRuleStore{}, cache.New(time.Minute, 100), config.Default(), nil)
	return NewEvaluator(resolver, []string{"US", "CA", "MX"}, nil)
}

func TestEvaluateRejectsEmptyComponents(t *testing.T) {
	e := newTestEvaluator()

	_, err := e.Evaluate(context.Background(), Input{Code: "85444290"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoComponents)
	assert.NotEmpty(t, common.SuggestionFor(err))
}

func TestEvaluateNotQualified(t *testing.T) {
	e := newTestEvaluator()

	// 40% regional against the 62.5% default threshold.
	result, err := e.Evaluate(context.Background(), Input{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Copper core", OriginCountry: "CN", ValuePercentage: 60},
			{Description: "Insulation", OriginCountry: "MX", ValuePercentage: 40},
		},
	})
	require.NoError(t, err)

	assert.False(t, result.Qualified)
	assert.Equal(t, model.LevelNotQualified, result.Level)
	assert.Equal(t, 40.0, result.RegionalContent)
	assert.Equal(t, 62.5, result.Threshold)
	assert.Contains(t, result.Reason, "40.0%")
	assert.Contains(t, result.Reason, "22.5%")
	assert.Equal(t, correctiveActions, result.DocumentationRequired)
}

func TestEvaluateQualified(t *testing.T) {
	e := newTestEvaluator()

	// 70% regional clears 62.5% but not 72.5%, so plain qualified.
	result, err := e.Evaluate(context.Background(), Input{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Copper core", OriginCountry: "MX", ValuePercentage: 70},
			{Description: "Insulation", OriginCountry: "CN", ValuePercentage: 30},
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Qualified)
	assert.Equal(t, model.LevelQualified, result.Level)
	assert.Equal(t, 70.0, result.RegionalContent)
	assert.Equal(t, []string{"Professional review required"}, result.DocumentationRequired)
}

func TestEvaluateHighlyQualified(t *testing.T) {
	e := newTestEvaluator()

	result, err := e.Evaluate(context.Background(), Input{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Copper core", OriginCountry: "US", ValuePercentage: 90},
			{Description: "Insulation", OriginCountry: "CN", ValuePercentage: 10},
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Qualified)
	assert.Equal(t, model.LevelHighlyQualified, result.Level)
}

func TestEvaluateThresholdBoundaryIsInclusive(t *testing.T) {
	e := newTestEvaluator()

	// Exactly 62.5% regional content qualifies.
	result, err := e.Evaluate(context.Background(), Input{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Regional part", OriginCountry: "US", ValuePercentage: 62.5},
			{Description: "Foreign part", OriginCountry: "CN", ValuePercentage: 37.5},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 62.5, result.RegionalContent)
	assert.True(t, result.Qualified)
}

func TestEvaluateIgnoresIncompleteComponents(t *testing.T) {
	e := newTestEvaluator()

	result, err := e.Evaluate(context.Background(), Input{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Valid regional", OriginCountry: "US", ValuePercentage: 50},
			{Description: "Missing origin", OriginCountry: "", ValuePercentage: 30},
			{Description: "Zero value", OriginCountry: "CN", ValuePercentage: 0},
			{Description: "Valid foreign", OriginCountry: "CN", ValuePercentage: 50},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.TotalValue)
	assert.Equal(t, 50.0, result.RegionalContent)
	assert.Len(t, result.Components, 2)
}

func TestEvaluateAllComponentsIncomplete(t *testing.T) {
	e := newTestEvaluator()

	// Components supplied but none usable: degrade to 0%, not an error.
	result, err := e.Evaluate(context.Background(), Input{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Missing origin", OriginCountry: "", ValuePercentage: 30},
			{Description: "Zero value", OriginCountry: "CN", ValuePercentage: 0},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.TotalValue)
	assert.Equal(t, 0.0, result.RegionalContent)
	assert.False(t, result.Qualified)
	assert.Equal(t, model.LevelNotQualified, result.Level)
}

func TestEvaluateNormalizesByTotal(t *testing.T) {
	e := newTestEvaluator()

	// Values summing to 50 still yield a percentage of the total.
	result, err := e.Evaluate(context.Background(), Input{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Regional", OriginCountry: "CA", ValuePercentage: 40},
			{Description: "Foreign", OriginCountry: "DE", ValuePercentage: 10},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 50.0, result.TotalValue)
	assert.Equal(t, 80.0, result.RegionalContent)
	assert.True(t, result.Qualified)
}

func TestEvaluateCountryCodesCaseInsensitive(t *testing.T) {
	e := newTestEvaluator()

	result, err := e.Evaluate(context.Background(), Input{
		Code: "85444290",
		Components: []model.Component{
			{Description: "Regional", OriginCountry: " mx ", ValuePercentage: 100},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.RegionalContent)
	require.Len(t, result.Components, 1)
	assert.True(t, result.Components[0].RegionalMember)
}
