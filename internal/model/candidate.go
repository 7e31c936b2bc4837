// Package model defines the core domain models used throughout the application.
package model

// MatchType indicates which classification stage discovered a candidate.
type MatchType string

// Match type constants, ordered roughly by specificity.
const (
	MatchPhrase          MatchType = "phrase"
	MatchChapterExact    MatchType = "chapter-exact"
	MatchChapterInferred MatchType = "chapter-inferred"
	MatchRelationship    MatchType = "relationship"
	MatchContextual      MatchType = "contextual"
)

// CatalogEntry is a row from the searchable product catalog.
type CatalogEntry struct {
	Code             string
	Description      string
	Chapter          string
	CountrySource    string
	StandardRate     float64
	PreferentialRate float64
}

// ProductCandidate is one ranked classification suggestion for a product
// description. Candidates are created per classification call, never
// persisted, and immutable once ranked.
type ProductCandidate struct {
	Code             string
	Description      string
	Chapter          string
	CountrySource    string
	MatchType        MatchType
	MatchedPhrase    string
	RelatedTo        string
	StandardRate     float64
	PreferentialRate float64
	Confidence       int
}

// Heading returns the 4-digit heading of the candidate's code, used to find
// sibling products.
func (c ProductCandidate) Heading() string {
	if len(c.Code) < 4 {
		return c.Code
	}
	return c.Code[:4]
}
