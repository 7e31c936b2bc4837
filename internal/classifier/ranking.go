package classifier

import (
	"sort"

	"tradecompass/internal/model"
)

// matchBonus returns the ranking bonus for a match type. Phrase hits carry
// the most direct evidence and outrank chapter-exact hits; inferred-chapter
// hits carry the least.
func (c *Classifier) matchBonus(mt model.MatchType) int {
	switch mt {
	case model.MatchPhrase:
		return c.cfg.Scoring.PhraseBonus
	case model.MatchChapterExact:
		return c.cfg.Scoring.ChapterExactBonus
	case model.MatchRelationship:
		return c.cfg.Scoring.RelationshipBonus
	case model.MatchContextual:
		return c.cfg.Scoring.ContextualBonus
	case model.MatchChapterInferred:
		return c.cfg.Scoring.ChapterInferredBonus
	default:
		return 0
	}
}

// rank deduplicates candidates by code (first occurrence wins, in stage
// order), applies the final scoring adjustments, clamps confidence, and
// returns the top candidates sorted by descending confidence. The sort is
// stable: ties keep discovery order, so identical inputs produce identical
// output.
func (c *Classifier) rank(candidates []model.ProductCandidate, limit int) []model.ProductCandidate {
	seen := make(map[string]struct{}, len(candidates))
	ranked := make([]model.ProductCandidate, 0, len(candidates))

	for _, cand := range candidates {
		if _, ok := seen[cand.Code]; ok {
			continue
		}
		seen[cand.Code] = struct{}{}

		score := cand.Confidence + c.matchBonus(cand.MatchType)
		if cand.StandardRate > 0 {
			score += c.cfg.Scoring.RateSignalBonus
		}
		if cand.PreferentialRate != cand.StandardRate {
			score += c.cfg.Scoring.PreferentialDeltaBonus
		}
		if len(cand.Description) < c.cfg.Scoring.ShortDescriptionLength {
			score -= c.cfg.Scoring.ShortDescriptionPenalty
		}

		if score < c.cfg.Scoring.MinConfidence {
			score = c.cfg.Scoring.MinConfidence
		}
		if score > c.cfg.Scoring.MaxConfidence {
			score = c.cfg.Scoring.MaxConfidence
		}

		cand.Confidence = score
		ranked = append(ranked, cand)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
