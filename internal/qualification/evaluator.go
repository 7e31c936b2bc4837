// Package qualification computes regional value content and the resulting
// pass/fail qualification verdict.
package qualification

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"tradecompass/internal/common"
	"tradecompass/internal/model"
	"tradecompass/internal/rules"
)

// highlyQualifiedMargin is how far above the threshold regional content must
// sit before the verdict upgrades from qualified to highly qualified.
const highlyQualifiedMargin = 10.0

// correctiveActions replaces the rule's documentation list when a product
// falls short of its threshold.
var correctiveActions = []string{
	"Review supply chain for substitutable regional suppliers",
	"Increase regional sourcing to close the qualification gap",
	"Re-evaluate after the next sourcing change",
}

// Evaluator combines a resolved rule with component data. Pure aside from
// rule resolution and audit logging.
type Evaluator struct {
	resolver *rules.Resolver
	logger   *slog.Logger
	members  map[string]struct{}
}

// NewEvaluator creates an evaluator over a rule resolver and the set of
// regional trade agreement member countries.
func NewEvaluator(resolver *rules.Resolver, memberCountries []string, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	members := make(map[string]struct{}, len(memberCountries))
	for _, c := range memberCountries {
		members[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &Evaluator{
		resolver: resolver,
		members:  members,
		logger:   logger,
	}
}

// Input is one qualification request.
type Input struct {
	Code                  string
	BusinessType          string
	ManufacturingLocation string
	Components            []model.Component
}

// Evaluate resolves the applicable rule, computes regional value content
// from the components, and returns the verdict. The threshold boundary is
// inclusive: content exactly at the threshold qualifies.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (model.QualificationResult, error) {
	if len(input.Components) == 0 {
		return model.QualificationResult{}, common.NewUserError(
			"no components supplied",
			"Provide at least one component with an origin country and value percentage",
			common.ErrNoComponents,
		)
	}

	rule := e.resolver.Resolve(ctx, input.Code, input.BusinessType)

	var (
		totalValue    float64
		regionalValue float64
		assessments   []model.ComponentAssessment
	)

	for _, comp := range input.Components {
		// Entries missing origin or value carry no weight either way.
		if strings.TrimSpace(comp.OriginCountry) == "" || comp.ValuePercentage <= 0 {
			continue
		}

		_, member := e.members[strings.ToUpper(strings.TrimSpace(comp.OriginCountry))]
		totalValue += comp.ValuePercentage
		if member {
			regionalValue += comp.ValuePercentage
		}
		assessments = append(assessments, model.ComponentAssessment{
			Component:      comp,
			RegionalMember: member,
		})
	}

	var regionalContent float64
	if totalValue > 0 {
		regionalContent = regionalValue / totalValue * 100
	}
	regionalContent = math.Round(regionalContent*100) / 100

	qualified := regionalContent >= rule.Threshold

	level := model.LevelNotQualified
	switch {
	case qualified && regionalContent >= rule.Threshold+highlyQualifiedMargin:
		level = model.LevelHighlyQualified
	case qualified:
		level = model.LevelQualified
	}

	var reason string
	if qualified {
		reason = fmt.Sprintf("Regional content of %.1f%% meets the required threshold of %.1f%%",
			regionalContent, rule.Threshold)
	} else {
		reason = fmt.Sprintf("Regional content of %.1f%% falls %.1f%% short of the required threshold of %.1f%%",
			regionalContent, rule.Threshold-regionalContent, rule.Threshold)
	}

	docs := rule.DocumentationRequired
	if !qualified {
		docs = correctiveActions
	}

	e.logger.Info("qualification evaluated",
		"code", input.Code,
		"rule_source", rule.Source,
		"regional_content", regionalContent,
		"threshold", rule.Threshold,
		"qualified", qualified)

	return model.QualificationResult{
		Level:                 level,
		Rule:                  string(rule.Scope),
		Reason:                reason,
		RuleSource:            rule.Source,
		RuleType:              rule.RuleType,
		ManufacturingLocation: input.ManufacturingLocation,
		DocumentationRequired: docs,
		Components:            assessments,
		RegionalContent:       regionalContent,
		Threshold:             rule.Threshold,
		TotalValue:            totalValue,
		RegionalValue:         regionalValue,
		Qualified:             qualified,
	}, nil
}
