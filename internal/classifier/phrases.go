// Package classifier implements the multi-stage product classification
// pipeline: phrase matching, chapter matching, relationship expansion, and
// contextual matching, joined into a single ranked candidate list.
package classifier

import (
	"strings"
	"unicode"
)

// stopWords are tokens too common to carry classification signal.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "made": {},
	"of": {}, "on": {}, "or": {}, "other": {}, "that": {}, "the": {},
	"their": {}, "this": {}, "to": {}, "used": {}, "with": {},
}

// tokenize lowercases a description and splits it into alphanumeric tokens,
// dropping stop words and pure numerals. Pure numerals are dropped because
// they match codes and measurements rather than products.
func tokenize(description string) []string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := stopWords[f]; ok {
			continue
		}
		if isNumeric(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// extractPhrases builds the search phrases for the phrase-match stage, most
// specific first: the full cleaned description, then adjacent token pairs,
// then the longest individual tokens.
func extractPhrases(description string) []string {
	tokens := tokenize(description)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var phrases []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}

	add(strings.Join(tokens, " "))

	for i := 0; i+1 < len(tokens); i++ {
		add(tokens[i] + " " + tokens[i+1])
	}

	// Longest tokens carry the most signal on their own.
	longest := make([]string, len(tokens))
	copy(longest, tokens)
	for i := 0; i < len(longest); i++ {
		for j := i + 1; j < len(longest); j++ {
			if len(longest[j]) > len(longest[i]) {
				longest[i], longest[j] = longest[j], longest[i]
			}
		}
	}
	for i := 0; i < len(longest) && i < 3; i++ {
		if len(longest[i]) >= 4 {
			add(longest[i])
		}
	}

	return phrases
}
