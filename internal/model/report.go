package model

import "time"

// Report is the serialized output of one run
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	SourcePath  string    `json:"source_path,omitempty"` // Protocol the run was grounded in
	Interrupted bool      `json:"interrupted"`           // Run stopped early on user request

	Summary     RunSummary         `json:"summary"`
	Extractions []ExtractionResult `json:"extractions"`
	Validations []ValidationResult `json:"validations"`
}

// RunSummary aggregates a run. It is derived from the results and never
// persisted on its own.
type RunSummary struct {
	TotalSections    int     `json:"total_sections"`
	Found            int     `json:"found"`
	Partial          int     `json:"partial"`
	NotFound         int     `json:"not_found"`
	Skipped          int     `json:"skipped"`
	StandardText     int     `json:"standard_text"`
	Errors           int     `json:"errors"`
	ValidationIssues int     `json:"validation_issues"`
	FullyVerified    int     `json:"fully_verified"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
}

// Count returns the counter for a status
func (s RunSummary) Count(status Status) int {
	switch status {
	case StatusFound:
		return s.Found
	case StatusPartial:
		return s.Partial
	case StatusNotFound:
		return s.NotFound
	case StatusSkipped:
		return s.Skipped
	case StatusStandardText:
		return s.StandardText
	case StatusError:
		return s.Errors
	default:
		return 0
	}
}

// AsMap flattens the summary into named counters
func (s RunSummary) AsMap() map[string]float64 {
	return map[string]float64{
		"total_sections":    float64(s.TotalSections),
		"found":             float64(s.Found),
		"partial":           float64(s.Partial),
		"not_found":         float64(s.NotFound),
		"skipped":           float64(s.Skipped),
		"standard_text":     float64(s.StandardText),
		"errors":            float64(s.Errors),
		"validation_issues": float64(s.ValidationIssues),
		"fully_verified":    float64(s.FullyVerified),
		"elapsed_seconds":   s.ElapsedSeconds,
	}
}
