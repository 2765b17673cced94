package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/icfextract/internal/model"
)

func TestSummarize(t *testing.T) {
	extractions := []model.ExtractionResult{
		{ItemID: "1", Status: model.StatusFound},
		{ItemID: "2", Status: model.StatusFound},
		{ItemID: "3", Status: model.StatusPartial},
		{ItemID: "4", Status: model.StatusNotFound},
		{ItemID: "5", Status: model.StatusSkipped},
		{ItemID: "6", Status: model.StatusStandardText},
		{ItemID: "7", Status: model.StatusError},
	}
	validations := []model.ValidationResult{
		{ItemID: "1", QuotesVerified: []bool{true, true}, Issues: []string{}},
		{ItemID: "2", QuotesVerified: []bool{true, false}, Issues: []string{"q", "reading"}},
		{ItemID: "3", QuotesVerified: []bool{}, Issues: []string{"reading"}},
		model.NewValidationResult("4"),
		model.NewValidationResult("5"),
		model.NewValidationResult("6"),
		model.NewValidationResult("7"),
	}

	s := Summarize(extractions, validations, 12340*time.Millisecond)

	assert.Equal(t, model.RunSummary{
		TotalSections:    7,
		Found:            2,
		Partial:          1,
		NotFound:         1,
		Skipped:          1,
		StandardText:     1,
		Errors:           1,
		ValidationIssues: 3,
		FullyVerified:    1,
		ElapsedSeconds:   12.3,
	}, s)

	for _, st := range model.AllStatuses {
		total := 0
		for _, r := range extractions {
			if r.Status == st {
				total++
			}
		}
		assert.Equal(t, total, s.Count(st), st)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil, 0)
	assert.Equal(t, model.RunSummary{}, s)
	assert.Equal(t, 0.0, s.AsMap()["total_sections"])
}

func TestBreakdownOf(t *testing.T) {
	items := []model.WorkItem{
		{ID: "1", IsStandardText: true, IsAvailableInSource: true},
		{ID: "2", IsAvailableInSource: true},
		{ID: "3", IsAvailableInSource: true, IsPartiallyAvailable: true},
		{ID: "4"},
	}
	assert.Equal(t, Breakdown{Total: 4, Extractable: 2, StandardText: 1, Skipped: 1}, BreakdownOf(items))
}
