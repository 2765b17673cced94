package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFleschKincaid_Grade(t *testing.T) {
	fk := FleschKincaid{}

	g, ok := fk.Grade("The cat sat on the mat and the dog sat too")
	require.True(t, ok)
	assert.InDelta(t, 0.5, g, 0.001)

	g, ok = fk.Grade("You will come to the clinic six times. Each visit takes one hour. We will take a small blood sample.")
	require.True(t, ok)
	assert.InDelta(t, 1.76, g, 0.001)

	g, ok = fk.Grade("Participants demonstrating clinically significant hepatic impairment, determined by " +
		"comprehensive laboratory evaluation, will be considered ineligible for randomization into " +
		"the investigational treatment arm.")
	require.True(t, ok)
	assert.Greater(t, g, 8.0)
}

func TestFleschKincaid_TooShort(t *testing.T) {
	_, ok := FleschKincaid{}.Grade("Nine words is not enough to grade this text.")
	assert.False(t, ok)

	_, ok = FleschKincaid{}.Grade("")
	assert.False(t, ok)
}

func TestCountSyllables(t *testing.T) {
	tests := map[string]int{
		"cat":     1,
		"table":   2,
		"make":    1,
		"the":     1,
		"study":   2,
		"visit":   2,
		"rhythm":  1,
		"nth":     1,
		"consent": 2,
	}
	for word, want := range tests {
		assert.Equal(t, want, countSyllables(word), word)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Dose is 2.5 mg. Take it daily!\nCall us? ...")
	assert.Equal(t, []string{"Dose is 2.5 mg.", "Take it daily!", "Call us?"}, got)
}
