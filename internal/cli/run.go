package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/icfextract/internal/llm"
	"github.com/ppiankov/icfextract/internal/model"
	"github.com/ppiankov/icfextract/internal/pipeline"
)

var (
	protocolPath  string
	registryPath  string
	sections      []string
	outputDir     string
	llmProvider   string
	llmModel      string
	maxIterations int
	noCache       bool
	noDraft       bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract ICF sections from one protocol",
	Long: `Run routes every registry section through the extraction pipeline:
- Standard text is copied from the template
- Sections not found in protocols are left for manual entry
- Everything else is extracted by the agent, with verbatim evidence
- Evidence quotes are verified against the protocol
- Answers are scored for reading level

Press Ctrl-C once to stop after the current section and keep partial
results; press it again to abort immediately.

Example:
  icfextract run --protocol protocol.txt --csv icf_breakdown.csv
  icfextract run --protocol protocol.txt --csv icf_breakdown.csv --sections 1.0,4.2
  icfextract run --protocol protocol.txt --csv icf_breakdown.csv --llm-provider ollama --llm-model llama3.1:8b`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&protocolPath, "protocol", "", "protocol text file or URL (required)")
	addExtractionFlags(runCmd)
	_ = runCmd.MarkFlagRequired("protocol")
}

// addExtractionFlags registers the flags run and batch share
func addExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&registryPath, "csv", "", "ICF template registry CSV (required)")
	cmd.Flags().StringSliceVar(&sections, "sections", nil, "only process these section ids (e.g. 1.0,4.2)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (default from config: output)")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "agent provider (openai, anthropic, ollama, stub)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "agent model name")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "upper bound on agent turns per section")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the completion cache")
	cmd.Flags().BoolVar(&noDraft, "no-draft", false, "write only the JSON report")
	_ = cmd.MarkFlagRequired("csv")
}

// applyFlags lays explicitly set flags over the loaded configuration
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("llm-provider") {
		cfg.Agent.Provider = llmProvider
		if !flags.Changed("llm-model") {
			// configured model belongs to the configured provider
			cfg.Agent.Model = ""
		}
	}
	if flags.Changed("llm-model") {
		cfg.Agent.Model = llmModel
	}
	if flags.Changed("max-iterations") {
		cfg.Agent.MaxIterations = maxIterations
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = outputDir
	}
	if noDraft {
		cfg.Output.DraftName = ""
	}
}

// interruptContext is cancelled by the first SIGINT/SIGTERM. After that the
// default handlers are restored, so a second signal kills the process.
func interruptContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			logger.Warn("interrupt received, finishing current section (signal again to abort)",
				zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// newPipeline builds the agent and the pipeline around it
func newPipeline(cfg *model.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	agent, err := llm.NewAgent(cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "agent")
	}
	p, err := pipeline.NewPipeline(cfg, agent, logger)
	if err != nil {
		_ = agent.Close()
		return nil, err
	}
	logger.Info("agent ready",
		zap.String("provider", agent.Name()),
		zap.String("model", cfg.Agent.Model),
		zap.Int("max_iterations", cfg.Agent.MaxIterations),
		zap.Bool("cache", cfg.Cache.Enabled))
	p.Preflight(context.Background())
	return p, nil
}

func runRun(cmd *cobra.Command, args []string) error {
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

	report, err := p.RunFile(ctx, protocolPath, items)
	if err != nil {
		return err
	}

	paths, err := p.Render(report, items, cfg.Output.Dir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		logger.Info("wrote", zap.String("path", path))
	}

	pipeline.NewRenderer().RenderSummary(cmd.OutOrStdout(), report)

	return exitStatus(report)
}

// exitStatus turns per-section failures into a non-zero exit
func exitStatus(report *model.Report) error {
	if n := report.Summary.Errors; n > 0 {
		return errors.Newf("%d of %d sections failed", n, report.Summary.TotalSections)
	}
	return nil
}
