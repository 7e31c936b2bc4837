package classifier

import (
	"strings"

	"tradecompass/internal/model"
)

// Scorer produces the normalized match score, in [0, 1], for each pipeline
// stage. The default scorer is token-overlap based; tests substitute fixed
// scorers to exercise thresholds.
type Scorer interface {
	ScorePhrase(phrase string, entry model.CatalogEntry) float64
	ScoreChapter(queryTokens []string, entry model.CatalogEntry, direct bool) float64
	ScoreRelationship(anchor model.ProductCandidate, entry model.CatalogEntry) float64
	ScoreContextual(queryTokens []string, entry model.CatalogEntry) float64
}

// genericVocab lists tokens that match almost any catalog row. A phrase made
// only of these earns a penalty in ScorePhrase.
var genericVocab = map[string]struct{}{
	"parts": {}, "goods": {}, "products": {}, "items": {}, "articles": {},
	"equipment": {}, "materials": {}, "general": {}, "assorted": {},
	"miscellaneous": {}, "various": {},
}

func allGeneric(tokens []string) bool {
	for _, t := range tokens {
		if _, ok := genericVocab[t]; !ok {
			return false
		}
	}
	return len(tokens) > 0
}

// overlapScorer scores by token coverage: the fraction of query tokens that
// appear in the entry description.
type overlapScorer struct{}

// NewScorer returns the default token-overlap scorer.
func NewScorer() Scorer {
	return overlapScorer{}
}

// coverage returns the fraction of query tokens present in the entry tokens.
func coverage(queryTokens []string, entryDescription string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	entryTokens := make(map[string]struct{})
	for _, t := range tokenize(entryDescription) {
		entryTokens[t] = struct{}{}
	}

	matched := 0
	for _, t := range queryTokens {
		if _, ok := entryTokens[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// ScorePhrase rewards entries containing the whole phrase verbatim, then
// falls back to token coverage. Longer phrases score higher because they are
// less likely to match by accident.
func (overlapScorer) ScorePhrase(phrase string, entry model.CatalogEntry) float64 {
	tokens := tokenize(phrase)
	if len(tokens) == 0 {
		return 0
	}

	specificity := 0.6 + 0.4*min(1.0, float64(len(tokens))/3.0)
	if allGeneric(tokens) {
		specificity *= 0.5
	}

	if strings.Contains(strings.ToLower(entry.Description), strings.ToLower(phrase)) {
		return specificity
	}
	return coverage(tokens, entry.Description) * specificity * 0.85
}

// ScoreChapter scores a within-chapter hit. Direct chapter signals score
// full coverage; affinity-inferred chapters are discounted.
func (overlapScorer) ScoreChapter(queryTokens []string, entry model.CatalogEntry, direct bool) float64 {
	score := coverage(queryTokens, entry.Description)
	if !direct {
		score *= 0.8
	}
	return score
}

// ScoreRelationship scores a sibling of a high-confidence anchor. The
// sibling inherits a discounted version of the anchor's confidence, boosted
// slightly when its description overlaps the anchor's.
func (overlapScorer) ScoreRelationship(anchor model.ProductCandidate, entry model.CatalogEntry) float64 {
	base := float64(anchor.Confidence) / 100 * 0.75
	overlap := coverage(tokenize(anchor.Description), entry.Description)
	return min(1.0, base+overlap*0.15)
}

// ScoreContextual scores a loose full-catalog hit by coverage alone.
func (overlapScorer) ScoreContextual(queryTokens []string, entry model.CatalogEntry) float64 {
	return coverage(queryTokens, entry.Description)
}
