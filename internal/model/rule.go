package model

// RuleScope identifies how broadly a qualification rule applies.
type RuleScope string

// Rule scope constants, from most to least specific.
const (
	ScopeCode     RuleScope = "specific-code"
	ScopeChapter  RuleScope = "chapter"
	ScopeBusiness RuleScope = "business-category"
	ScopeDefault  RuleScope = "default"
)

// Rule type constants. RuleRegionalValueContent is the conservative default
// applied when no stored rule matches.
const (
	RuleRegionalValueContent  = "regional_value_content"
	RuleTariffShift           = "tariff_shift"
	RuleWhollyObtained        = "wholly_obtained"
	RuleSpecificManufacturing = "specific_manufacturing"
)

// QualificationRule describes the regional-content requirement for a product.
// Rules are loaded in bulk at engine start and refreshed via cache TTL.
type QualificationRule struct {
	Scope                 RuleScope
	Code                  string
	Chapter               string
	BusinessType          string
	RuleType              string
	Source                string
	DocumentationRequired []string
	Threshold             float64
	IsDefault             bool
}
