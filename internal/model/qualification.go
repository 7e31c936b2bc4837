package model

// Component is one entry in a product's bill of materials, supplied by the
// caller per qualification call. ValuePercentage values need not sum to 100;
// the evaluator normalizes by the total.
type Component struct {
	Description     string
	OriginCountry   string
	ValuePercentage float64
}

// QualificationLevel grades how comfortably a product cleared its threshold.
type QualificationLevel string

// Qualification level constants.
const (
	LevelNotQualified    QualificationLevel = "not_qualified"
	LevelQualified       QualificationLevel = "qualified"
	LevelHighlyQualified QualificationLevel = "highly_qualified"
)

// ComponentAssessment is a component annotated with its trade-bloc membership.
type ComponentAssessment struct {
	Component
	RegionalMember bool
}

// QualificationResult is the outcome of a regional-content evaluation.
// Qualified is true exactly when RegionalContent >= Threshold.
type QualificationResult struct {
	Level                 QualificationLevel
	Rule                  string
	Reason                string
	RuleSource            string
	RuleType              string
	ManufacturingLocation string
	DocumentationRequired []string
	Components            []ComponentAssessment
	RegionalContent       float64
	Threshold             float64
	TotalValue            float64
	RegionalValue         float64
	Qualified             bool
}
