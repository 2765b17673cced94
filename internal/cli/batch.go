package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/icfextract/internal/pipeline"
	"github.com/ppiankov/icfextract/internal/worker"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract ICF sections from many protocols, one after another",
	Long: `Batch runs the same registry against every protocol listed in a file:
- One protocol path (or URL) per line; blank lines and # comments are skipped
- Protocols run sequentially and share one agent, cache and rate limit
- Each protocol gets its own report directory under --output-dir
- A failed protocol is reported and the batch moves on

Example:
  icfextract batch protocols.txt --csv icf_breakdown.csv
  icfextract batch protocols.txt --csv icf_breakdown.csv --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addExtractionFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	applyFlags(cmd, cfg)

	items, err := pipeline.LoadItems(registryPath, sections, logger)
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, stop := interruptContext(logger)
	defer stop()

	processor := worker.NewBatchProcessor(p, logger)
	results, err := processor.ProcessFile(ctx, file, items)
	if err != nil {
		return errors.Wrap(err, "process file")
	}

	out := cmd.OutOrStdout()
	failures := 0
	sectionErrors := 0
	for i, result := range results {
		if result.Error != nil {
			failures++
			_, _ = fmt.Fprintf(out, "✗ %s: %v\n", result.Location, result.Error)
			continue
		}

		dir := filepath.Join(cfg.Output.Dir, fmt.Sprintf("%02d-%s", i+1, reportDirName(result.Location)))
		paths, err := p.Render(result.Report, items, dir)
		if err != nil {
			failures++
			_, _ = fmt.Fprintf(out, "✗ %s: %v\n", result.Location, err)
			continue
		}
		for _, path := range paths {
			logger.Debug("wrote", zap.String("path", path))
		}

		s := result.Report.Summary
		sectionErrors += s.Errors
		_, _ = fmt.Fprintf(out, "✓ %s (found %d, partial %d, not found %d, errors %d) -> %s\n",
			result.Location, s.Found, s.Partial, s.NotFound, s.Errors, dir)
	}

	_, _ = fmt.Fprintf(out, "\nProtocols: %d  Failed: %d  Output: %s\n", len(results), failures, cfg.Output.Dir)

	if failures > 0 || sectionErrors > 0 {
		return errors.Newf("%d protocols failed, %d sections errored", failures, sectionErrors)
	}
	return nil
}

// reportDirName derives a filesystem-safe directory name from a protocol
// path or URL
func reportDirName(location string) string {
	base := filepath.Base(strings.TrimRight(location, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	base = replacer.Replace(base)

	if len(base) > 100 {
		base = base[:100]
	}
	if base == "" || base == "." {
		base = "protocol"
	}
	return base
}
