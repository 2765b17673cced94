package extract

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ppiankov/icfextract/internal/classify"
	"github.com/ppiankov/icfextract/internal/llm"
	"github.com/ppiankov/icfextract/internal/model"
)

const (
	standardTextNote = "Standard required text - no extraction needed."
	skippedNote      = "Not typically found in protocol. Requires manual entry by study team."
	parseFailureNote = "Failed to parse structured output from agent response"
	parseFailureErr  = "structured output parse failure"
)

// Router decides, per work item, whether the agent is needed and turns
// whatever comes back into a single ExtractionResult
type Router struct {
	agent         llm.Agent
	maxIterations int
	logger        *zap.Logger
}

// NewRouter creates a router. maxIterations caps every per-item budget.
func NewRouter(agent llm.Agent, maxIterations int, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{agent: agent, maxIterations: maxIterations, logger: logger}
}

// Route never fails: agent errors, unparseable replies and panics all come
// back as ERROR results.
func (r *Router) Route(ctx context.Context, item model.WorkItem, sourceText string) (result model.ExtractionResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("router panic", zap.String("item", item.ID), zap.Any("panic", p))
			result = errorResult(item, fmt.Sprintf("panic: %v", p))
		}
	}()

	if item.IsStandardText {
		return model.ExtractionResult{
			ItemID:         item.ID,
			Heading:        item.Heading,
			SubHeading:     item.SubHeading,
			Status:         model.StatusStandardText,
			Answer:         item.RequiredText,
			FilledTemplate: item.RequiredText,
			Evidence:       []model.EvidenceQuote{},
			Confidence:     model.ConfidenceHigh,
			Notes:          standardTextNote,
		}
	}

	if !item.IsAvailableInSource && !item.IsPartiallyAvailable {
		notes := skippedNote
		if item.SuggestedText != "" {
			notes += " Suggested text is available in the template."
		}
		return model.ExtractionResult{
			ItemID:     item.ID,
			Heading:    item.Heading,
			SubHeading: item.SubHeading,
			Status:     model.StatusSkipped,
			Evidence:   []model.EvidenceQuote{},
			Confidence: model.ConfidenceNotApplicable,
			Notes:      notes,
		}
	}

	return r.invoke(ctx, item, sourceText)
}

func (r *Router) invoke(ctx context.Context, item model.WorkItem, sourceText string) model.ExtractionResult {
	label := classify.ComplexityLabel(item.Tags, item.IsAvailableInSource)
	task := llm.Task{
		Prompt:  BuildTaskPrompt(item),
		Context: sourceText,
		Budget:  classify.Budget(label, r.maxIterations),
	}

	completion, err := r.agent.Invoke(ctx, task)
	if err != nil {
		r.logger.Warn("agent call failed", zap.String("item", item.ID), zap.Error(err))
		return errorResult(item, describeError(err))
	}

	r.logger.Debug("agent replied",
		zap.String("item", item.ID),
		zap.String("complexity", string(label)),
		zap.Int("budget", task.Budget),
		zap.Int("turns", completion.Turns),
		zap.Bool("cached", completion.Cached),
	)

	recovered, ok := RecoverWithMethod(completion.Text)
	if !ok {
		res := errorResult(item, parseFailureErr)
		res.Notes = parseFailureNote
		res.RawResponse = completion.Text
		return res
	}
	if recovered.Method != MethodJSON {
		r.logger.Info("recovered non-JSON agent output",
			zap.String("item", item.ID), zap.String("method", string(recovered.Method)))
	}

	return fromRecord(item, recovered.Record, completion.Text)
}

// fromRecord fills a result from a recovered record. The record's own
// section_id is ignored so results always join back to their item.
func fromRecord(item model.WorkItem, rec Record, raw string) model.ExtractionResult {
	status := model.StatusError
	if rec.Has("status") {
		status = model.ParseStatus(rec.String("status"))
	}

	evidence := []model.EvidenceQuote{}
	if status != model.StatusStandardText && status != model.StatusSkipped {
		evidence = evidenceFrom(rec["evidence"])
	}

	return model.ExtractionResult{
		ItemID:         item.ID,
		Heading:        item.Heading,
		SubHeading:     item.SubHeading,
		Status:         status,
		Answer:         rec.String("answer"),
		FilledTemplate: rec.String("filled_template"),
		Evidence:       evidence,
		Confidence:     model.ParseConfidence(rec.String("confidence")),
		Notes:          rec.String("notes"),
		RawResponse:    raw,
	}
}

func evidenceFrom(v any) []model.EvidenceQuote {
	list, ok := v.([]any)
	if !ok {
		return []model.EvidenceQuote{}
	}
	out := make([]model.EvidenceQuote, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.EvidenceQuote{
			Quote:   stringify(m["quote"]),
			Page:    stringify(m["page"]),
			Section: stringify(m["section"]),
		})
	}
	return out
}

func errorResult(item model.WorkItem, msg string) model.ExtractionResult {
	return model.ExtractionResult{
		ItemID:     item.ID,
		Heading:    item.Heading,
		SubHeading: item.SubHeading,
		Status:     model.StatusError,
		Evidence:   []model.EvidenceQuote{},
		Error:      msg,
	}
}

// describeError renders err as "<Type>: <message>", naming the type of the
// innermost cause
func describeError(err error) string {
	var kind string
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = "Timeout"
	case errors.Is(err, context.Canceled):
		kind = "Canceled"
	default:
		kind = typeName(errors.UnwrapAll(err))
	}
	return kind + ": " + err.Error()
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
