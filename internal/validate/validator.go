// Package validate checks extraction results against the protocol: cited
// quotes must be findable and answers should read at a plain-language level.
package validate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/icfextract/internal/model"
)

// DefaultGradeMax is the highest acceptable reading grade
const DefaultGradeMax = 8.0

const quotePreviewRunes = 80

// Engine produces one ValidationResult per ExtractionResult
type Engine struct {
	scorer   ReadabilityScorer
	gradeMax float64
	logger   *zap.Logger
}

// NewEngine creates an engine. A nil scorer disables the reading check.
func NewEngine(scorer ReadabilityScorer, gradeMax float64, logger *zap.Logger) *Engine {
	if gradeMax <= 0 {
		gradeMax = DefaultGradeMax
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{scorer: scorer, gradeMax: gradeMax, logger: logger}
}

// NewEngineFromConfig builds an engine from the validation config section
func NewEngineFromConfig(cfg model.ValidationConfig, logger *zap.Logger) *Engine {
	var scorer ReadabilityScorer
	if cfg.Readability {
		scorer = FleschKincaid{}
	}
	return NewEngine(scorer, cfg.ReadingGradeMax, logger)
}

// Validate checks result against reference. Results that carry no
// verifiable claims get an empty ValidationResult.
func (e *Engine) Validate(result model.ExtractionResult, reference string) model.ValidationResult {
	vr := model.NewValidationResult(result.ItemID)
	if !result.Status.Verifiable() {
		return vr
	}

	for _, ev := range result.Evidence {
		ok := VerifyQuote(ev.Quote, reference)
		vr.QuotesVerified = append(vr.QuotesVerified, ok)
		if !ok {
			vr.Issues = append(vr.Issues, fmt.Sprintf(`Quote not verified in protocol: "%s..."`, quotePreview(ev.Quote)))
		}
	}

	if grade, ok := e.grade(result.Answer); ok {
		vr.ReadingGrade = &grade
		if grade > e.gradeMax {
			vr.Issues = append(vr.Issues, fmt.Sprintf("Reading level (%.1f) exceeds Grade %.0f target.", grade, e.gradeMax))
		}
	}

	return vr
}

// ValidateAll validates results in order
func (e *Engine) ValidateAll(results []model.ExtractionResult, reference string) []model.ValidationResult {
	out := make([]model.ValidationResult, 0, len(results))
	for _, r := range results {
		out = append(out, e.Validate(r, reference))
	}
	return out
}

// grade never fails; a misbehaving scorer means "not assessed"
func (e *Engine) grade(text string) (g float64, ok bool) {
	if e.scorer == nil || strings.TrimSpace(text) == "" {
		return 0, false
	}
	defer func() {
		if p := recover(); p != nil {
			e.logger.Warn("readability scorer failed", zap.Any("panic", p))
			g, ok = 0, false
		}
	}()
	return e.scorer.Grade(text)
}

func quotePreview(q string) string {
	return strings.ReplaceAll(firstRunes(q, quotePreviewRunes), "\n", " ")
}
