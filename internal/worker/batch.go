package worker

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ppiankov/icfextract/internal/model"
)

// Runner extracts items from the protocol at location
type Runner interface {
	RunFile(ctx context.Context, location string, items []model.WorkItem) (*model.Report, error)
}

// RunResult is the outcome for one protocol in a batch
type RunResult struct {
	Location string
	Report   *model.Report
	Error    error
}

// GetError returns the error from the run
func (r *RunResult) GetError() error {
	return r.Error
}

// BatchProcessor runs the same registry against many protocols, one after
// another. Protocols share one agent, so they are never run in parallel.
type BatchProcessor struct {
	runner Runner
	logger *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner Runner, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		runner: runner,
		logger: logger,
	}
}

// ProcessPaths runs every protocol in order. A failed protocol does not stop
// the batch; cancelling ctx does, and protocols not yet started are reported
// with the context error.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string, items []model.WorkItem) []*RunResult {
	results := make([]*RunResult, 0, len(paths))

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			results = append(results, &RunResult{Location: path, Error: errors.Wrap(err, "not started")})
			continue
		}

		b.logger.Info("protocol",
			zap.Int("n", i+1),
			zap.Int("of", len(paths)),
			zap.String("path", path))

		report, err := b.runner.RunFile(ctx, path, items)
		if err != nil {
			b.logger.Error("protocol failed", zap.String("path", path), zap.Error(err))
		}
		results = append(results, &RunResult{Location: path, Report: report, Error: err})
	}

	return results
}

// ProcessFile reads protocol paths from a file and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, items []model.WorkItem) ([]*RunResult, error) {
	paths, err := ReadPathsFromFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "read protocol list")
	}

	return b.ProcessPaths(ctx, paths, items), nil
}

// ReadPathsFromFile reads protocol locations from a file (one per line).
// Blank lines and # comments are skipped, duplicates dropped.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan file")
	}

	return paths, nil
}
