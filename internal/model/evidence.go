package model

import "strings"

// EvidenceQuote is a verbatim excerpt the agent claims supports an answer
type EvidenceQuote struct {
	Quote   string `json:"quote"`
	Page    string `json:"page"`              // Location label, usually a page number
	Section string `json:"section,omitempty"` // Protocol section label
}

// Status is the outcome of extracting a single work item
type Status string

const (
	StatusFound        Status = "FOUND"
	StatusPartial      Status = "PARTIAL"
	StatusNotFound     Status = "NOT_FOUND"
	StatusSkipped      Status = "SKIPPED"
	StatusStandardText Status = "STANDARD_TEXT"
	StatusError        Status = "ERROR"
)

// AllStatuses lists every status in report order
var AllStatuses = []Status{
	StatusFound,
	StatusPartial,
	StatusNotFound,
	StatusSkipped,
	StatusStandardText,
	StatusError,
}

// ParseStatus maps agent-supplied text onto a Status.
// Anything unrecognized becomes StatusError.
func ParseStatus(s string) Status {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, st := range AllStatuses {
		if norm == string(st) {
			return st
		}
	}
	return StatusError
}

// Verifiable reports whether results with this status carry claims that the
// validation engine should check
func (s Status) Verifiable() bool {
	switch s {
	case StatusFound, StatusPartial:
		return true
	case StatusNotFound, StatusSkipped, StatusStandardText, StatusError:
		return false
	default:
		return false
	}
}

// Confidence is the agent's self-reported certainty
type Confidence string

const (
	ConfidenceHigh          Confidence = "HIGH"
	ConfidenceMedium        Confidence = "MEDIUM"
	ConfidenceLow           Confidence = "LOW"
	ConfidenceNotApplicable Confidence = "N/A"
)

// ParseConfidence upper-cases known labels; unknown labels are kept verbatim
// for audit, and an empty value defaults to LOW
func ParseConfidence(s string) Confidence {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ConfidenceLow
	}
	switch c := Confidence(strings.ToUpper(trimmed)); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNotApplicable:
		return c
	}
	return Confidence(trimmed)
}

// ExtractionResult is the normalized outcome for one work item.
// Exactly one is produced per item per run.
type ExtractionResult struct {
	ItemID         string          `json:"section_id"`
	Heading        string          `json:"heading"`
	SubHeading     string          `json:"sub_section"`
	Status         Status          `json:"status"`
	Answer         string          `json:"answer"`
	FilledTemplate string          `json:"filled_template"`
	Evidence       []EvidenceQuote `json:"evidence"`
	Confidence     Confidence      `json:"confidence"`
	Notes          string          `json:"notes"`
	RawResponse    string          `json:"raw_response,omitempty"` // Original agent text, kept for audit
	Error          string          `json:"error,omitempty"`        // "<type>: <message>" for agent failures
}

// ValidationResult holds the checks run against one ExtractionResult
type ValidationResult struct {
	ItemID         string   `json:"section_id"`
	QuotesVerified []bool   `json:"quotes_verified"` // Index-aligned with ExtractionResult.Evidence
	ReadingGrade   *float64 `json:"reading_grade_level"`
	Issues         []string `json:"issues"` // Empty means no issues detected, not verified correct
}

// NewValidationResult returns an empty result for the given item
func NewValidationResult(itemID string) ValidationResult {
	return ValidationResult{
		ItemID:         itemID,
		QuotesVerified: []bool{},
		Issues:         []string{},
	}
}

// FullyVerified reports whether at least one quote was checked and all passed
func (v ValidationResult) FullyVerified() bool {
	if len(v.QuotesVerified) == 0 {
		return false
	}
	for _, ok := range v.QuotesVerified {
		if !ok {
			return false
		}
	}
	return true
}
