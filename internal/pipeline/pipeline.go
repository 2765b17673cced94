// Package pipeline runs one extraction pass: every work item is routed to the
// agent in registry order, the results are validated against the protocol and
// summarized into a report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/icfextract/internal/extract"
	"github.com/ppiankov/icfextract/internal/ingest"
	"github.com/ppiankov/icfextract/internal/llm"
	"github.com/ppiankov/icfextract/internal/model"
	"github.com/ppiankov/icfextract/internal/registry"
	"github.com/ppiankov/icfextract/internal/score"
	"github.com/ppiankov/icfextract/internal/validate"
)

// Pipeline orchestrates a complete extraction run
type Pipeline struct {
	agent     llm.Agent
	router    *extract.Router
	validator *validate.Engine
	loader    *ingest.Loader
	renderer  *Renderer
	config    *model.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipeline wires the router, validator and loader around one agent.
// The pipeline owns the agent; Close releases it.
func NewPipeline(cfg *model.Config, agent llm.Agent, logger *zap.Logger) (*Pipeline, error) {
	if agent == nil {
		return nil, errors.New("pipeline needs an agent")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	loader, err := ingest.NewLoader(cfg.Agent.Timeout, ingest.DefaultMaxBytes, cfg.Agent.HTTPProxy, cfg.Agent.HTTPSProxy)
	if err != nil {
		return nil, errors.Wrap(err, "protocol loader")
	}

	return &Pipeline{
		agent:     agent,
		router:    extract.NewRouter(agent, cfg.Agent.MaxIterations, logger),
		validator: validate.NewEngineFromConfig(cfg.Validation, logger),
		loader:    loader,
		renderer:  NewRenderer(),
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Close releases the agent
func (p *Pipeline) Close() error {
	return p.agent.Close()
}

// preflightTimeout bounds the agent reachability check
const preflightTimeout = 15 * time.Second

// Preflight reports whether the agent is configured and reachable. An
// unreachable agent is only a warning: the run still proceeds and its
// sections fail individually.
func (p *Pipeline) Preflight(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	if p.agent.IsAvailable(ctx) {
		return true
	}
	p.logger.Warn("agent unavailable, sections sent to it will likely fail",
		zap.String("provider", p.agent.Name()),
		zap.String("model", p.config.Agent.Model))
	return false
}

// Run extracts every item from source, one at a time and in order.
//
// Cancelling ctx stops the run between items: the item in flight finishes
// and everything extracted so far is still validated and reported, with
// Interrupted set.
func (p *Pipeline) Run(ctx context.Context, items []model.WorkItem, source *ingest.Source) (*model.Report, error) {
	if len(items) == 0 {
		return nil, errors.New("no work items to extract")
	}
	if source == nil || source.FullText == "" {
		return nil, errors.New("protocol source is empty")
	}

	start := p.now()
	report := &model.Report{
		RunID:      uuid.NewString(),
		SourcePath: source.Path,
	}

	// in-flight agent calls are not aborted by an interrupt
	itemCtx := context.WithoutCancel(ctx)

	extractions := make([]model.ExtractionResult, 0, len(items))
	for i, item := range items {
		if ctx.Err() != nil {
			p.logger.Warn("interrupted, saving partial results",
				zap.Int("completed", len(extractions)),
				zap.Int("total", len(items)))
			report.Interrupted = true
			break
		}

		result := p.router.Route(itemCtx, item, source.FullText)
		p.logProgress(i+1, len(items), item, result)
		extractions = append(extractions, result)
	}

	validations := p.validator.ValidateAll(extractions, source.FullText)

	if !p.config.Output.IncludeRaw {
		for i := range extractions {
			extractions[i].RawResponse = ""
		}
	}

	report.Extractions = extractions
	report.Validations = validations
	report.Summary = score.Summarize(extractions, validations, p.now().Sub(start))
	report.GeneratedAt = p.now().UTC()

	return report, nil
}

// RunFile loads the protocol at location and runs items against it
func (p *Pipeline) RunFile(ctx context.Context, location string, items []model.WorkItem) (*model.Report, error) {
	source, err := p.loader.Load(ctx, location)
	if err != nil {
		return nil, errors.Wrap(err, "load protocol")
	}
	p.logger.Info("protocol loaded",
		zap.String("path", source.Path),
		zap.Int("pages", source.TotalPages),
		zap.Int("chars", len(source.FullText)))

	return p.Run(ctx, items, source)
}

// LoadItems reads the template registry and keeps only the requested
// sections. An empty filter keeps everything.
func LoadItems(path string, sections []string, logger *zap.Logger) ([]model.WorkItem, error) {
	items, err := registry.Load(path)
	if err != nil {
		return nil, err
	}

	if len(sections) > 0 {
		items = registry.Filter(items, sections)
		if len(items) == 0 {
			return nil, errors.WithHintf(
				errors.Newf("no registry sections match %v", sections),
				"section ids look like 1.0, 2.3 or 4.1")
		}
	}

	if logger != nil {
		b := score.BreakdownOf(items)
		logger.Info("registry loaded",
			zap.Int("sections", b.Total),
			zap.Int("extractable", b.Extractable),
			zap.Int("standard_text", b.StandardText),
			zap.Int("skipped", b.Skipped))
	}
	return items, nil
}

// Render writes the configured report files into dir and returns their paths
func (p *Pipeline) Render(report *model.Report, items []model.WorkItem, dir string) ([]string, error) {
	return p.renderer.RenderAll(report, items, dir, p.config.Output)
}

func (p *Pipeline) logProgress(n, total int, item model.WorkItem, result model.ExtractionResult) {
	fields := []zap.Field{
		zap.String("section", item.DisplayName()),
		zap.String("status", string(result.Status)),
	}
	if result.Status == model.StatusError {
		fields = append(fields, zap.String("error", result.Error))
		p.logger.Warn(progressLabel(n, total), fields...)
		return
	}
	if result.Confidence != "" && result.Confidence != model.ConfidenceNotApplicable {
		fields = append(fields, zap.String("confidence", string(result.Confidence)))
	}
	if len(result.Evidence) > 0 {
		fields = append(fields, zap.Int("quotes", len(result.Evidence)))
	}
	p.logger.Info(progressLabel(n, total), fields...)
}

func progressLabel(n, total int) string {
	return fmt.Sprintf("[%d/%d]", n, total)
}
