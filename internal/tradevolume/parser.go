// Package tradevolume converts human trade-volume declarations, like
// "$5M - $25M", into annual USD values for savings estimates.
package tradevolume

import (
	"strconv"
	"strings"
)

// DefaultAnnualValue is the fallback when the caller has no configured one.
const DefaultAnnualValue = 500000

// Parse returns the annual USD value for a trade-volume declaration.
// Ranges resolve to their midpoint; "Under $X" and "Over $X" resolve to the
// named bound; a bare figure resolves to itself. Unparseable input returns
// fallback.
func Parse(declaration string, fallback float64) float64 {
	s := strings.TrimSpace(declaration)
	if s == "" {
		return fallback
	}

	// Range: midpoint of the two bounds.
	for _, sep := range []string{" - ", "-", " to "} {
		lo, hi, found := strings.Cut(s, sep)
		if !found {
			continue
		}
		loVal, loOK := parseAmount(lo)
		hiVal, hiOK := parseAmount(hi)
		if loOK && hiOK && hiVal >= loVal {
			return (loVal + hiVal) / 2
		}
	}

	if v, ok := parseAmount(s); ok {
		return v
	}
	return fallback
}

// parseAmount reads a single figure like "$5M", "250K", or "1.5B".
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.ToUpper(s), "UNDER ")
	s = strings.TrimPrefix(s, "OVER ")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1e3
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1e6
		s = s[:len(s)-1]
	case 'B':
		multiplier = 1e9
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v * multiplier, true
}
