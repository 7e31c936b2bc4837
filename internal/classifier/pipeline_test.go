package classifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecompass/internal/common"
	"tradecompass/internal/config"
	"tradecompass/internal/model"
)

var errCatalogDown = errors.New("catalog down")

// mockCatalog serves in-memory entries with per-method failure switches.
type mockCatalog struct {
	entries     []model.CatalogEntry
	failSearch  bool
	failChapter bool
	failPrefix  bool

	mu          sync.Mutex
	searchCalls int
}

func (m *mockCatalog) SearchCatalog(_ context.Context, phrase string, limit int) ([]model.CatalogEntry, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()

	if m.failSearch {
		return nil, errCatalogDown
	}
	var out []model.CatalogEntry
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Description), strings.ToLower(phrase)) {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockCatalog) SearchCatalogByChapter(_ context.Context, chapter, phrase string, limit int) ([]model.CatalogEntry, error) {
	if m.failChapter {
		return nil, errCatalogDown
	}
	var out []model.CatalogEntry
	for _, e := range m.entries {
		if e.Chapter == chapter && strings.Contains(strings.ToLower(e.Description), strings.ToLower(phrase)) {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockCatalog) SearchCatalogByPrefix(_ context.Context, prefix string, limit int) ([]model.CatalogEntry, error) {
	if m.failPrefix {
		return nil, errCatalogDown
	}
	var out []model.CatalogEntry
	for _, e := range m.entries {
		if strings.HasPrefix(e.Code, prefix) {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func testEntries() []model.CatalogEntry {
	return []model.CatalogEntry{
		{Code: "85444290", Description: "Insulated copper wire for electrical circuits", Chapter: "85", StandardRate: 0.026, PreferentialRate: 0},
		{Code: "85444910", Description: "Other insulated electric conductors", Chapter: "85", StandardRate: 0.035, PreferentialRate: 0},
		{Code: "74081100", Description: "Refined copper wire, maximum cross-section over 6mm", Chapter: "74", StandardRate: 0.01, PreferentialRate: 0},
		{Code: "61091000", Description: "Cotton t-shirts, knitted", Chapter: "61", StandardRate: 0.165, PreferentialRate: 0},
	}
}

func newTestClassifier(catalog *mockCatalog) *Classifier {
	return New(catalog, config.Default(), nil)
}

func TestClassifyInvalidInput(t *testing.T) {
	c := newTestClassifier(&mockCatalog{entries: testEntries()})
	ctx := context.Background()

	tests := []struct {
		name        string
		description string
	}{
		{name: "empty", description: ""},
		{name: "whitespace only", description: "   "},
		{name: "too short after trim", description: " ab "},
		{name: "too long", description: strings.Repeat("wire ", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Classify(ctx, Input{Description: tt.description})
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
			assert.NotEmpty(t, common.SuggestionFor(err))
		})
	}
}

func TestClassifyPhraseMatch(t *testing.T) {
	c := newTestClassifier(&mockCatalog{entries: testEntries()})

	result, err := c.Classify(context.Background(), Input{Description: "copper wire for electrical circuits"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.Candidates)

	top := result.Candidates[0]
	assert.Equal(t, "85444290", top.Code)
	assert.Equal(t, model.MatchPhrase, top.MatchType)
	assert.NotEmpty(t, top.MatchedPhrase)
}

func TestClassifySortedAndClamped(t *testing.T) {
	c := newTestClassifier(&mockCatalog{entries: testEntries()})

	result, err := c.Classify(context.Background(), Input{
		Description:  "copper wire for electrical circuits",
		BusinessType: "Electronics",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.Candidates)

	for i, cand := range result.Candidates {
		assert.GreaterOrEqual(t, cand.Confidence, 10, "candidate %d below floor", i)
		assert.LessOrEqual(t, cand.Confidence, 100, "candidate %d above ceiling", i)
		if i > 0 {
			assert.GreaterOrEqual(t, result.Candidates[i-1].Confidence, cand.Confidence,
				"candidates not sorted at %d", i)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := newTestClassifier(&mockCatalog{entries: testEntries()})
	input := Input{Description: "copper wire for electrical circuits", BusinessType: "Electronics"}

	first, err := c.Classify(context.Background(), input)
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first.Candidates, second.Candidates)
}

func TestClassifyDeduplicatesAcrossStages(t *testing.T) {
	c := newTestClassifier(&mockCatalog{entries: testEntries()})

	result, err := c.Classify(context.Background(), Input{
		Description:  "copper wire for electrical circuits",
		BusinessType: "Electronics",
	})
	require.NoError(t, err)

	seen := make(map[string]model.MatchType)
	for _, cand := range result.Candidates {
		_, dup := seen[cand.Code]
		require.False(t, dup, "code %s appears twice", cand.Code)
		seen[cand.Code] = cand.MatchType
	}

	// The earliest stage that found the code decides its match type.
	assert.Equal(t, model.MatchPhrase, seen["85444290"])
}

func TestClassifyRelationshipExpansion(t *testing.T) {
	c := newTestClassifier(&mockCatalog{entries: testEntries()})

	result, err := c.Classify(context.Background(), Input{Description: "copper wire for electrical circuits"})
	require.NoError(t, err)

	var sibling *model.ProductCandidate
	for i := range result.Candidates {
		if result.Candidates[i].Code == "85444910" {
			sibling = &result.Candidates[i]
			break
		}
	}
	require.NotNil(t, sibling, "expected a sibling under heading 8544")
	assert.Equal(t, model.MatchRelationship, sibling.MatchType)
	assert.Equal(t, "85444290", sibling.RelatedTo)
}

func TestClassifyPartialDegradation(t *testing.T) {
	// Free-text search down, chapter search still up: the chapter stage
	// carries the call.
	c := newTestClassifier(&mockCatalog{entries: testEntries(), failSearch: true})

	result, err := c.Classify(context.Background(), Input{Description: "copper wire for electrical circuits"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.FallbackRecommended)
	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, model.MatchChapterInferred, result.Candidates[0].MatchType)
}

func TestClassifyChapterProvenance(t *testing.T) {
	// Keyword-derived chapter hits are inferences; only a caller-supplied
	// chapter yields an exact chapter match.
	c := newTestClassifier(&mockCatalog{entries: testEntries(), failSearch: true})

	result, err := c.Classify(context.Background(), Input{Description: "copper wire for electrical circuits"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	for _, cand := range result.Candidates {
		if cand.Code == "85444290" || cand.Code == "74081100" {
			assert.Equal(t, model.MatchChapterInferred, cand.MatchType, cand.Code)
		}
	}

	result, err = c.Classify(context.Background(), Input{
		Description:  "copper wire for electrical circuits",
		KnownChapter: "85",
	})
	require.NoError(t, err)
	for _, cand := range result.Candidates {
		switch cand.Code {
		case "85444290":
			assert.Equal(t, model.MatchChapterExact, cand.MatchType)
		case "74081100":
			assert.Equal(t, model.MatchChapterInferred, cand.MatchType)
		}
	}
}

func TestClassifyTotalCatalogFailure(t *testing.T) {
	c := newTestClassifier(&mockCatalog{
		entries:     testEntries(),
		failSearch:  true,
		failChapter: true,
		failPrefix:  true,
	})

	result, err := c.Classify(context.Background(), Input{
		Description:  "copper wire for electrical circuits",
		BusinessType: "Electronics",
	})
	require.NoError(t, err, "catalog failure must not escape as an error")
	assert.False(t, result.Success)
	assert.True(t, result.FallbackRecommended)
	assert.Empty(t, result.Candidates)
	assert.NotEmpty(t, result.Suggestion)
}

func TestClassifyLimit(t *testing.T) {
	c := newTestClassifier(&mockCatalog{entries: testEntries()})
	ctx := context.Background()

	result, err := c.Classify(ctx, Input{Description: "copper wire for electrical circuits", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 1)

	// Limits above the hard cap are clamped, not honored.
	result, err = c.Classify(ctx, Input{Description: "copper wire for electrical circuits", Limit: 500})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Candidates), config.Default().MaxLimit)
}

func TestClassifyKnownChapter(t *testing.T) {
	c := newTestClassifier(&mockCatalog{entries: testEntries()})

	result, err := c.Classify(context.Background(), Input{
		Description:  "knitted cotton shirts",
		KnownChapter: "61",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, "61091000", result.Candidates[0].Code)
}

func TestPickAnchors(t *testing.T) {
	phraseHits := []model.ProductCandidate{
		{Code: "11110000", Confidence: 72},
		{Code: "22220000", Confidence: 65},
	}
	chapterHits := []model.ProductCandidate{
		{Code: "33330000", Confidence: 90},
		{Code: "44440000", Confidence: 85},
		{Code: "55550000", Confidence: 80},
	}

	anchors := pickAnchors(phraseHits, chapterHits)
	require.Len(t, anchors, 3, "anchors capped at three")
	assert.Equal(t, "33330000", anchors[0].Code)
	assert.Equal(t, "44440000", anchors[1].Code)
	assert.Equal(t, "55550000", anchors[2].Code)

	for _, a := range anchors {
		assert.Greater(t, a.Confidence, 70)
	}
}
