package model

import "time"

// RateSource records which fallback tier produced a rate record, for audit.
type RateSource string

// Rate provenance tags.
const (
	RateSourceCache     RateSource = "cache"
	RateSourcePrimary   RateSource = "primary"
	RateSourcePrefix    RateSource = "primary-prefix"
	RateSourceSecondary RateSource = "secondary"
	RateSourceEmergency RateSource = "emergency-fallback"
)

// RateRecord carries the duty rates for a classification code and destination.
// Rates are decimal fractions: 0.025 means 2.5%. Every record carries a
// non-empty Source tag naming the tier that answered.
type RateRecord struct {
	Code               string
	MatchedCode        string
	DestinationCountry string
	Source             RateSource
	Disclaimer         string
	FallbackReason     string
	EffectiveDate      time.Time
	StandardRate       float64
	PreferentialRate   float64
}

// PreferentialBenefit reports whether qualifying would change the duty owed.
func (r RateRecord) PreferentialBenefit() bool {
	return r.StandardRate != r.PreferentialRate
}
