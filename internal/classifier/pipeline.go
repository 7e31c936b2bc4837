package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"tradecompass/internal/common"
	"tradecompass/internal/config"
	"tradecompass/internal/model"
	"tradecompass/internal/service"
)

// Input is one classification request.
type Input struct {
	Description  string
	KnownChapter string
	BusinessType string
	Limit        int
}

// Result is the joined, ranked output of all pipeline stages. Success is
// false only when every stage failed to reach the catalog; a single failing
// stage degrades to "no results" for that stage.
type Result struct {
	Candidates          []model.ProductCandidate
	Suggestion          string
	Success             bool
	FallbackRecommended bool
}

// Classifier runs the four-stage classification pipeline against a catalog.
type Classifier struct {
	catalog service.CatalogStore
	scorer  Scorer
	logger  *slog.Logger
	cfg     config.Config
}

// New creates a classifier over the given catalog store.
func New(catalog service.CatalogStore, cfg config.Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		catalog: catalog,
		scorer:  NewScorer(),
		cfg:     cfg,
		logger:  logger,
	}
}

// WithScorer replaces the stage scorer. Used by tests.
func (c *Classifier) WithScorer(s Scorer) *Classifier {
	c.scorer = s
	return c
}

// Classify validates the input, fans the four stages out concurrently, joins
// and deduplicates their hits, and returns the ranked candidate list.
func (c *Classifier) Classify(ctx context.Context, input Input) (Result, error) {
	description := strings.TrimSpace(input.Description)
	if len(description) < c.cfg.MinDescriptionLength {
		return Result{}, common.NewUserError(
			"product description is too short",
			fmt.Sprintf("Provide a description of at least %d characters, e.g. \"insulated copper wire\"", c.cfg.MinDescriptionLength),
			common.ErrInvalidInput,
		)
	}
	if len(description) > c.cfg.MaxDescriptionLength {
		return Result{}, common.NewUserError(
			"product description is too long",
			fmt.Sprintf("Shorten the description to at most %d characters", c.cfg.MaxDescriptionLength),
			common.ErrInvalidInput,
		)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = c.cfg.DefaultLimit
	}
	if limit > c.cfg.MaxLimit {
		limit = c.cfg.MaxLimit
	}

	phrases := extractPhrases(description)
	queryTokens := tokenize(description)

	// Stage slots keep join order fixed regardless of completion order.
	var (
		stages    [4][]model.ProductCandidate
		queried   [4]bool
		stageErrs [4]error
	)

	g, gctx := errgroup.WithContext(ctx)

	// Stage 3 needs the anchor candidates from stages 1 and 2.
	var anchorWG sync.WaitGroup
	anchorWG.Add(2)
	anchorsReady := make(chan struct{})
	go func() {
		anchorWG.Wait()
		close(anchorsReady)
	}()

	g.Go(func() error {
		defer anchorWG.Done()
		stages[0], queried[0], stageErrs[0] = c.phraseStage(gctx, phrases)
		return nil
	})
	g.Go(func() error {
		defer anchorWG.Done()
		stages[1], queried[1], stageErrs[1] = c.chapterStage(gctx, queryTokens, description, input.KnownChapter, input.BusinessType)
		return nil
	})
	g.Go(func() error {
		select {
		case <-anchorsReady:
		case <-gctx.Done():
			stageErrs[2] = gctx.Err()
			return nil
		}
		stages[2], queried[2], stageErrs[2] = c.relationshipStage(gctx, pickAnchors(stages[0], stages[1]))
		return nil
	})
	g.Go(func() error {
		if input.BusinessType == "" {
			return nil
		}
		stages[3], queried[3], stageErrs[3] = c.contextualStage(gctx, queryTokens, input.BusinessType)
		return nil
	})

	// Stage goroutines never return errors; degradation is per stage.
	_ = g.Wait()

	reachedCatalog, failed := false, 0
	for i, err := range stageErrs {
		if queried[i] {
			reachedCatalog = true
		}
		if err != nil {
			failed++
			c.logger.Warn("classification stage degraded",
				"stage", i+1,
				"error", err)
		}
	}
	if failed > 0 && !reachedCatalog {
		c.logger.Error("catalog unavailable for all classification stages",
			"description_length", len(description))
		return Result{
			Success:             false,
			FallbackRecommended: true,
			Suggestion:          "The product catalog is unavailable; retry shortly or consult a customs broker",
		}, nil
	}

	merged := make([]model.ProductCandidate, 0, len(stages[0])+len(stages[1])+len(stages[2])+len(stages[3]))
	for _, stage := range stages {
		merged = append(merged, stage...)
	}

	candidates := c.rank(merged, limit)
	result := Result{
		Candidates: candidates,
		Success:    true,
	}
	if len(candidates) == 0 {
		result.Suggestion = "No catalog matches found; try a more specific description or include the material and use"
	}
	return result, nil
}

// phraseStage queries the catalog once per extracted phrase and keeps hits
// above the phrase threshold.
func (c *Classifier) phraseStage(ctx context.Context, phrases []string) ([]model.ProductCandidate, bool, error) {
	var (
		candidates []model.ProductCandidate
		lastErr    error
		reached    bool
	)

	for _, phrase := range phrases {
		entries, err := c.catalog.SearchCatalog(ctx, phrase, c.cfg.MaxLimit)
		if err != nil {
			lastErr = err
			continue
		}
		reached = true

		for _, entry := range entries {
			score := c.scorer.ScorePhrase(phrase, entry)
			if score < c.cfg.Stages.Phrase {
				continue
			}
			cand := fromEntry(entry, model.MatchPhrase, score)
			cand.MatchedPhrase = phrase
			candidates = append(candidates, cand)
		}
	}

	if !reached && lastErr != nil {
		return nil, false, fmt.Errorf("phrase stage: %w", lastErr)
	}
	return candidates, reached, nil
}

// chapterStage searches within inferred (or known) chapters and their
// affinity-related chapters.
func (c *Classifier) chapterStage(ctx context.Context, queryTokens []string, description, knownChapter, businessType string) ([]model.ProductCandidate, bool, error) {
	signals := inferChapters(description, businessType)
	if knownChapter != "" {
		signals = append([]chapterSignal{{Chapter: knownChapter, Direct: true}}, signals...)
	}
	if len(signals) == 0 {
		return nil, false, nil
	}

	searchPhrase := strings.Join(firstN(queryTokens, 2), " ")
	if searchPhrase == "" {
		return nil, false, nil
	}

	var (
		candidates []model.ProductCandidate
		lastErr    error
		reached    bool
	)
	seen := make(map[string]struct{})

	for _, sig := range signals {
		if _, ok := seen[sig.Chapter]; ok {
			continue
		}
		seen[sig.Chapter] = struct{}{}

		entries, err := c.catalog.SearchCatalogByChapter(ctx, sig.Chapter, searchPhrase, c.cfg.MaxLimit)
		if err != nil {
			lastErr = err
			continue
		}
		reached = true

		// Only the caller-supplied chapter counts as an exact match;
		// keyword and business-category signals are inferences.
		matchType := model.MatchChapterInferred
		if knownChapter != "" && sig.Chapter == knownChapter {
			matchType = model.MatchChapterExact
		}

		for _, entry := range entries {
			score := c.scorer.ScoreChapter(queryTokens, entry, sig.Direct)
			if score < c.cfg.Stages.Chapter {
				continue
			}
			cand := fromEntry(entry, matchType, score)
			cand.MatchedPhrase = sig.Keyword
			candidates = append(candidates, cand)
		}
	}

	if !reached && lastErr != nil {
		return nil, false, fmt.Errorf("chapter stage: %w", lastErr)
	}
	return candidates, reached, nil
}

// pickAnchors selects the highest-confidence hits from the first two stages
// to anchor the relationship search: confidence above 70, at most 3.
func pickAnchors(phraseHits, chapterHits []model.ProductCandidate) []model.ProductCandidate {
	const (
		minAnchorConfidence = 70
		maxAnchors          = 3
	)

	var anchors []model.ProductCandidate
	for _, cand := range phraseHits {
		if cand.Confidence > minAnchorConfidence {
			anchors = append(anchors, cand)
		}
	}
	for _, cand := range chapterHits {
		if cand.Confidence > minAnchorConfidence {
			anchors = append(anchors, cand)
		}
	}

	// Highest confidence first, stable within the stage order.
	for i := 0; i < len(anchors); i++ {
		for j := i + 1; j < len(anchors); j++ {
			if anchors[j].Confidence > anchors[i].Confidence {
				anchors[i], anchors[j] = anchors[j], anchors[i]
			}
		}
	}
	if len(anchors) > maxAnchors {
		anchors = anchors[:maxAnchors]
	}
	return anchors
}

// relationshipStage finds sibling codes under each anchor's 4-digit heading.
func (c *Classifier) relationshipStage(ctx context.Context, anchors []model.ProductCandidate) ([]model.ProductCandidate, bool, error) {
	var (
		candidates []model.ProductCandidate
		lastErr    error
		reached    bool
	)

	for _, anchor := range anchors {
		entries, err := c.catalog.SearchCatalogByPrefix(ctx, anchor.Heading(), c.cfg.MaxLimit)
		if err != nil {
			lastErr = err
			continue
		}
		reached = true

		for _, entry := range entries {
			if entry.Code == anchor.Code {
				continue
			}
			score := c.scorer.ScoreRelationship(anchor, entry)
			if score < c.cfg.Stages.Relationship {
				continue
			}
			cand := fromEntry(entry, model.MatchRelationship, score)
			cand.RelatedTo = anchor.Code
			candidates = append(candidates, cand)
		}
	}

	if !reached && lastErr != nil {
		return nil, false, fmt.Errorf("relationship stage: %w", lastErr)
	}
	return candidates, reached, nil
}

// contextualStage widens the search with business-type vocabulary and scores
// loosely across the whole catalog.
func (c *Classifier) contextualStage(ctx context.Context, queryTokens []string, businessType string) ([]model.ProductCandidate, bool, error) {
	expanded := append([]string{}, queryTokens...)
	expanded = append(expanded, tokenize(businessType)...)

	var (
		candidates []model.ProductCandidate
		lastErr    error
		reached    bool
	)

	for _, token := range firstN(expanded, 4) {
		if len(token) < 4 {
			continue
		}
		entries, err := c.catalog.SearchCatalog(ctx, token, c.cfg.MaxLimit)
		if err != nil {
			lastErr = err
			continue
		}
		reached = true

		for _, entry := range entries {
			score := c.scorer.ScoreContextual(queryTokens, entry)
			if score < c.cfg.Stages.Contextual {
				continue
			}
			cand := fromEntry(entry, model.MatchContextual, score)
			cand.MatchedPhrase = token
			candidates = append(candidates, cand)
		}
	}

	if !reached && lastErr != nil {
		return nil, false, fmt.Errorf("contextual stage: %w", lastErr)
	}
	return candidates, reached, nil
}

// fromEntry converts a catalog row into a candidate with a stage confidence
// derived from the normalized score.
func fromEntry(entry model.CatalogEntry, matchType model.MatchType, score float64) model.ProductCandidate {
	return model.ProductCandidate{
		Code:             entry.Code,
		Description:      entry.Description,
		Chapter:          entry.Chapter,
		CountrySource:    entry.CountrySource,
		MatchType:        matchType,
		StandardRate:     entry.StandardRate,
		PreferentialRate: entry.PreferentialRate,
		Confidence:       int(score*85 + 0.5),
	}
}

func firstN(tokens []string, n int) []string {
	if len(tokens) <= n {
		return tokens
	}
	return tokens[:n]
}
