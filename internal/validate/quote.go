package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	prefixRunes     = 120
	minPrefixRunes  = 30
	minPhraseRunes  = 15
	phraseThreshold = 0.5
)

var phraseSplit = regexp.MustCompile(`[,.]`)

// VerifyQuote reports whether quote can be found in reference. Both sides
// are lower-cased with whitespace runs collapsed, then the quote passes on
// exact containment, on containment of its first 120 characters (when that
// prefix is longer than 30), or when at least half of its longer comma- or
// period-separated phrases are contained.
func VerifyQuote(quote, reference string) bool {
	q := normalize(quote)
	ref := normalize(reference)
	if q == "" || ref == "" {
		return false
	}

	if strings.Contains(ref, q) {
		return true
	}

	if prefix := firstRunes(q, prefixRunes); utf8.RuneCountInString(prefix) > minPrefixRunes && strings.Contains(ref, prefix) {
		return true
	}

	var phrases []string
	for _, p := range phraseSplit.Split(q, -1) {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) > minPhraseRunes {
			phrases = append(phrases, p)
		}
	}
	if len(phrases) == 0 {
		return false
	}
	found := 0
	for _, p := range phrases {
		if strings.Contains(ref, p) {
			found++
		}
	}
	return float64(found)/float64(len(phrases)) >= phraseThreshold
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
