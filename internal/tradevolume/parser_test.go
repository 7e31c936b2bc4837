package tradevolume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		declaration string
		want        float64
	}{
		{
			name:        "range resolves to midpoint",
			declaration: "$5M - $25M",
			want:        15000000,
		},
		{
			name:        "range without spaces",
			declaration: "$1M-$5M",
			want:        3000000,
		},
		{
			name:        "range with to separator",
			declaration: "$500K to $1M",
			want:        750000,
		},
		{
			name:        "under bound",
			declaration: "Under $1M",
			want:        1000000,
		},
		{
			name:        "over bound",
			declaration: "Over $25M",
			want:        25000000,
		},
		{
			name:        "bare figure with thousands suffix",
			declaration: "250K",
			want:        250000,
		},
		{
			name:        "billions suffix",
			declaration: "$1.5B",
			want:        1500000000,
		},
		{
			name:        "plain number with commas",
			declaration: "2,500,000",
			want:        2500000,
		},
		{
			name:        "empty declaration falls back to default",
			declaration: "",
			want:        DefaultAnnualValue,
		},
		{
			name:        "unparseable declaration falls back to default",
			declaration: "a lot",
			want:        DefaultAnnualValue,
		},
		{
			name:        "negative amount falls back to default",
			declaration: "-5M",
			want:        DefaultAnnualValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.declaration, DefaultAnnualValue))
		})
	}
}

func TestParseCallerFallback(t *testing.T) {
	assert.Equal(t, 750000.0, Parse("a lot", 750000))
	assert.Equal(t, 750000.0, Parse("", 750000))
	assert.Equal(t, 15000000.0, Parse("$5M - $25M", 750000), "fallback ignored when parseable")
}
