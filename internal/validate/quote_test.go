package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const reference = `--- PAGE 4 ---
The Sponsor will pay all costs.
Participants will attend   six clinic visits over twelve weeks, including a screening visit,
a baseline visit and four follow-up visits.
--- PAGE 5 ---
Blood samples will be stored for up to 15 years for future research.`

func TestVerifyQuote(t *testing.T) {
	tests := []struct {
		name  string
		quote string
		want  bool
	}{
		{"normalized containment", "the SPONSOR will   pay all costs", true},
		{"spans a line break", "including a screening visit, a baseline visit", true},
		{"no overlap", "Participants receive $500 per visit", false},
		{
			name:  "one clean phrase of two",
			quote: "blood samples will be stored for up to 15 years for future research. xq#@ garbled ocr tail",
			want:  true,
		},
		{
			name:  "half of the phrases found",
			quote: "participants will attend six clinic visits, they will also be paid generously for travel",
			want:  true,
		},
		{
			name:  "too few phrases found",
			quote: "participants will attend six clinic visits, they will be paid for travel, parking is free for everyone",
			want:  false,
		},
		{"empty quote", "", false},
		{"whitespace quote", "   \n ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyQuote(tt.quote, reference))
		})
	}
}

func TestVerifyQuote_EmptyReference(t *testing.T) {
	assert.False(t, VerifyQuote("the sponsor will pay", ""))
}

func TestVerifyQuote_PrefixSurvivesCorruptedTail(t *testing.T) {
	ref := "samples collected during the screening visit will be shipped to the central laboratory " +
		"and analysed for hematology and chemistry panels within two days of collection"
	quote := ref[:125] + " zq## ocr noise that never appears in the protocol"

	assert.False(t, strings.Contains(ref, quote))
	assert.True(t, VerifyQuote(quote, ref))
}

func TestVerifyQuote_ShortQuoteNeedsExactMatch(t *testing.T) {
	ref := "the sponsor will pay all costs"
	assert.False(t, VerifyQuote("the sponsor will pay all costz", ref))
	assert.True(t, VerifyQuote("sponsor will pay", ref))
}

func TestVerifyQuote_AnySubstring(t *testing.T) {
	norm := normalize(reference)
	for start := 0; start+40 < len(norm); start += 37 {
		q := strings.ToUpper(norm[start : start+40])
		assert.True(t, VerifyQuote(q, reference), q)
	}
}

func TestFirstRunes(t *testing.T) {
	assert.Equal(t, "ab", firstRunes("abc", 2))
	assert.Equal(t, "ééé", firstRunes("éééé", 3))
	assert.Equal(t, "x", firstRunes("x", 10))
}
