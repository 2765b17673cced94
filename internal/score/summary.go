// Package score derives run-level counters from per-item results.
package score

import (
	"math"
	"time"

	"github.com/ppiankov/icfextract/internal/model"
)

// Summarize counts results per status, totals validation issues and counts
// fully verified items. elapsed is rounded to a tenth of a second.
func Summarize(extractions []model.ExtractionResult, validations []model.ValidationResult, elapsed time.Duration) model.RunSummary {
	s := model.RunSummary{TotalSections: len(extractions)}

	for _, r := range extractions {
		switch r.Status {
		case model.StatusFound:
			s.Found++
		case model.StatusPartial:
			s.Partial++
		case model.StatusNotFound:
			s.NotFound++
		case model.StatusSkipped:
			s.Skipped++
		case model.StatusStandardText:
			s.StandardText++
		case model.StatusError:
			s.Errors++
		}
	}

	for _, v := range validations {
		s.ValidationIssues += len(v.Issues)
		if v.FullyVerified() {
			s.FullyVerified++
		}
	}

	s.ElapsedSeconds = math.Round(elapsed.Seconds()*10) / 10
	return s
}

// Breakdown is how a registry splits before any agent call
type Breakdown struct {
	Total        int
	Extractable  int
	StandardText int
	Skipped      int
}

// BreakdownOf classifies items by how the router will treat them
func BreakdownOf(items []model.WorkItem) Breakdown {
	b := Breakdown{Total: len(items)}
	for _, it := range items {
		switch {
		case it.IsStandardText:
			b.StandardText++
		case it.NeedsAgent():
			b.Extractable++
		default:
			b.Skipped++
		}
	}
	return b
}
