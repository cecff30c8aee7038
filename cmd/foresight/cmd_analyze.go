package main

import (
	"context"
	"fmt"

	"foresight/cmd/foresight/ui"
	"foresight/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeRender bool
	analyzeWatch  bool
	analyzeScript bool
	analyzePDF    bool
)

// analyzeCmd runs one full analysis cycle
var analyzeCmd = &cobra.Command{
	Use:   "analyze [events-path]",
	Short: "Run a full analysis cycle over an event batch",
	Long: `Runs the complete pipeline over the events at the given path (a file,
a directory, or a glob of .json/.ndjson batches):

  ingest -> sessions -> path reports -> forecasts -> response plan

Artifacts (path_report.json, trajectory_forecast.json, response_plan.json)
are written to the artifacts directory. A schema violation in any event
aborts the whole batch before the first artifact is written.

With --watch, the path is watched and a new cycle runs each time the batch
files settle after a change.

Examples:
  foresight analyze ./events
  foresight analyze ./events --render --script
  foresight analyze ./events --watch --pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := newSignalContext()
	defer cancel()

	orch, err := pipeline.NewOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer orch.Close()

	if orch.Degraded() {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.Warning.Render(
			"vulnerability catalog unavailable: analysis runs without intelligence enrichment"))
	}

	opts := pipeline.Options{Script: analyzeScript, PDF: analyzePDF}
	if analyzeWatch {
		return watchEvents(ctx, cmd, orch, args[0], opts)
	}

	logger.Info("Running analysis cycle", zap.String("input", args[0]))
	result, err := orch.Run(ctx, args[0], opts)
	if err != nil {
		return err
	}
	printCycle(cmd, result)
	return nil
}

// watchEvents blocks until the context is cancelled, re-running the cycle
// whenever the watched directory settles.
func watchEvents(ctx context.Context, cmd *cobra.Command, orch *pipeline.Orchestrator, dir string, opts pipeline.Options) error {
	w, err := pipeline.NewWatcher(orch, dir, opts, func(result *pipeline.CycleResult, err error) {
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), styles.Error.Render(fmt.Sprintf("cycle failed: %v", err)))
			return
		}
		printCycle(cmd, result)
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s for event batches (Ctrl-C to stop)\n", dir)
	<-ctx.Done()
	return nil
}

func printCycle(cmd *cobra.Command, result *pipeline.CycleResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "analyzed %d events in %d sessions: %d decisions\n",
		result.Events, len(result.Sessions), len(result.Decisions))

	if analyzeRender {
		fmt.Fprintln(out, ui.RenderReports(styles, result.Reports))
		fmt.Fprintln(out, ui.RenderForecasts(styles, result.Forecasts))
		fmt.Fprintln(out, ui.RenderDecisions(styles, result.Decisions))
		if result.Package != nil {
			fmt.Fprintln(out, ui.RenderPackage(styles, result.Package))
		}
	}

	for _, path := range result.Artifacts {
		fmt.Fprintf(out, "  wrote %s\n", path)
	}
}
