// Package classify derives availability and effort from free-text registry tags.
package classify

import "strings"

// Availability is the classifier verdict for a work item
type Availability struct {
	Available bool // Expected to be findable in the source document
	Partial   bool // Only some fields are expected in the source document
	Standard  bool // Fixed wording, no extraction needed
}

// Complexity labels drive the agent effort budget
type Complexity string

const (
	ComplexityEasy          Complexity = "Easy"
	ComplexityModerate      Complexity = "Moderate"
	ComplexityComplex       Complexity = "Complex"
	ComplexityNotInProtocol Complexity = "Not in protocol"
)

const (
	tagStandardText  = "standard text"
	tagNotInProtocol = "not in protocol"
	tagPotentially   = "potentially in protocol"
)

var mappingTags = []string{"easy mapping", "moderate mapping", "complex mapping"}

// tagSet is the normalized view of an item's tags that rules match against
type tagSet struct {
	joined string
}

func newTagSet(tags []string) tagSet {
	lower := make([]string, 0, len(tags))
	for _, t := range tags {
		lower = append(lower, strings.ToLower(strings.TrimSpace(t)))
	}
	return tagSet{joined: strings.Join(lower, " ")}
}

func (s tagSet) has(sub string) bool {
	return strings.Contains(s.joined, sub)
}

func (s tagSet) hasMapping() bool {
	for _, m := range mappingTags {
		if s.has(m) {
			return true
		}
	}
	return false
}

// rule is one predicate -> outcome row of the availability table
type rule struct {
	name    string
	matches func(tagSet) bool
	outcome Availability
}

// rules are evaluated top-down; the first match wins
var rules = []rule{
	{
		name:    "standard-text",
		matches: func(s tagSet) bool { return s.has(tagStandardText) },
		outcome: Availability{Available: true, Standard: true},
	},
	{
		name: "not-in-protocol",
		matches: func(s tagSet) bool {
			return s.has(tagNotInProtocol) && !s.hasMapping() && !s.has(tagPotentially)
		},
		outcome: Availability{},
	},
	{
		name: "partially-in-protocol",
		matches: func(s tagSet) bool {
			return s.has(tagNotInProtocol) && (s.hasMapping() || s.has(tagPotentially))
		},
		outcome: Availability{Available: true, Partial: true},
	},
}

var fallback = Availability{Available: true}

// Classify applies the availability rules to tags. Matching is
// case-insensitive substring membership.
func Classify(tags []string) Availability {
	a, _ := ClassifyWithRule(tags)
	return a
}

// ClassifyWithRule is Classify plus the name of the rule that fired
// ("default" when none did)
func ClassifyWithRule(tags []string) (Availability, string) {
	set := newTagSet(tags)
	for _, r := range rules {
		if r.matches(set) {
			return r.outcome, r.name
		}
	}
	return fallback, "default"
}

// complexityKeywords are scanned per tag, in this order
var complexityKeywords = []struct {
	keyword string
	label   Complexity
}{
	{"easy", ComplexityEasy},
	{"moderate", ComplexityModerate},
	{"complex mapping", ComplexityComplex},
	{tagPotentially, ComplexityModerate},
}

// ComplexityLabel scans tags in order and returns the first keyword hit.
// Unavailable items with no hit are labelled "Not in protocol".
func ComplexityLabel(tags []string, available bool) Complexity {
	for _, t := range tags {
		lower := strings.ToLower(t)
		for _, kw := range complexityKeywords {
			if strings.Contains(lower, kw.keyword) {
				return kw.label
			}
		}
	}
	if !available {
		return ComplexityNotInProtocol
	}
	return ComplexityModerate
}

const unrecognizedBudget = 12

// Budget maps a complexity label to an agent iteration budget, clamped to
// maxIterations
func Budget(label Complexity, maxIterations int) int {
	var budget int
	switch label {
	case ComplexityEasy:
		budget = 10
	case ComplexityModerate:
		budget = 15
	case ComplexityComplex:
		budget = maxIterations
	case ComplexityNotInProtocol:
		budget = 8
	default:
		budget = unrecognizedBudget
	}
	if budget > maxIterations {
		return maxIterations
	}
	return budget
}
