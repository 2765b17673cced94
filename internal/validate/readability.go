package validate

import (
	"math"
	"strings"
	"unicode"
)

// ReadabilityScorer grades how hard a text is to read. ok is false when the
// text cannot be assessed.
type ReadabilityScorer interface {
	Grade(text string) (grade float64, ok bool)
}

// minWords is the shortest answer worth grading
const minWords = 10

// FleschKincaid scores text with the Flesch-Kincaid grade level formula
type FleschKincaid struct{}

// Grade returns 0.39*(words/sentences) + 11.8*(syllables/words) - 15.59,
// rounded to two decimals
func (FleschKincaid) Grade(text string) (float64, bool) {
	if len(strings.Fields(text)) < minWords {
		return 0, false
	}

	words := wordsOf(text)
	if len(words) == 0 {
		return 0, false
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	sentences := len(splitSentences(text))
	if sentences == 0 {
		sentences = 1
	}

	wc := float64(len(words))
	grade := 0.39*(wc/float64(sentences)) + 11.8*(float64(syllables)/wc) - 15.59
	return math.Round(grade*100) / 100, true
}

// splitSentences cuts text after '.', '!' or '?' followed by whitespace
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); hasLetter(s) {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); hasLetter(s) {
		sentences = append(sentences, s)
	}
	return sentences
}

// wordsOf returns the lower-cased words of text with punctuation stripped
func wordsOf(text string) []string {
	var words []string
	for _, f := range strings.Fields(text) {
		w := strings.ToLower(strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// countSyllables approximates syllables as vowel groups, dropping a silent
// trailing 'e'. Every word counts at least one.
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range word {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
