package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{
			name:        "strips stop words",
			description: "wire made of copper for circuits",
			want:        []string{"wire", "copper", "circuits"},
		},
		{
			name:        "drops pure numerals",
			description: "6mm copper wire 2024",
			want:        []string{"6mm", "copper", "wire"},
		},
		{
			name:        "lowercases and splits punctuation",
			description: "Cotton T-Shirts, Knitted",
			want:        []string{"cotton", "t", "shirts", "knitted"},
		},
		{
			name:        "empty input",
			description: "",
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.description)
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractPhrases(t *testing.T) {
	phrases := extractPhrases("insulated copper wire for electrical circuits")

	// Full cleaned description first, then bigrams, then longest tokens.
	assert.Equal(t, "insulated copper wire electrical circuits", phrases[0])
	assert.Contains(t, phrases, "copper wire")
	assert.Contains(t, phrases, "electrical circuits")
	assert.Contains(t, phrases, "electrical")

	// No duplicates.
	seen := make(map[string]struct{})
	for _, p := range phrases {
		_, dup := seen[p]
		assert.False(t, dup, "duplicate phrase %q", p)
		seen[p] = struct{}{}
	}
}

func TestInferChapters(t *testing.T) {
	signals := inferChapters("insulated copper wire for electrical circuits", "Electronics")

	byChapter := make(map[string]chapterSignal)
	for _, sig := range signals {
		byChapter[sig.Chapter] = sig
	}

	// Keyword signals are direct.
	assert.True(t, byChapter["85"].Direct, "wire keyword should give chapter 85 directly")
	assert.True(t, byChapter["74"].Direct, "copper keyword should give chapter 74 directly")

	// Business category chapters are direct too.
	assert.True(t, byChapter["84"].Direct)

	// Affinity expansion of chapter 85 reaches 94 as an inferred signal.
	sig, ok := byChapter["94"]
	assert.True(t, ok)
	assert.False(t, sig.Direct)
}

func TestInferChaptersNoSignals(t *testing.T) {
	assert.Empty(t, inferChapters("mysterious unclassifiable object", ""))
}
