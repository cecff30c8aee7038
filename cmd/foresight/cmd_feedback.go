package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"foresight/cmd/foresight/ui"
	"foresight/internal/auditpdf"
	"foresight/internal/governance"
	"foresight/internal/logging"
	"foresight/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var feedbackPDF bool

// feedbackCmd closes the loop: execution results adjust the model
var feedbackCmd = &cobra.Command{
	Use:   "feedback [execution-report.json]",
	Short: "Feed an execution report back into the governance core",
	Long: `Ingests the manifest of an executed remediation package and runs one
learning update: trust momentum moves with the validated outcomes, the
decision thresholds shift accordingly, a new model version is activated,
and the whole update is appended to the trust ledger.

The ledger is verified before the update; a tampered ledger rejects the
feedback and exits with code 2. Every submission is chained onto the
ledger as its own ingestion event.

With --pdf, the strategic audit document is rendered afterwards, echoing
the latest forecast and response plan artifacts when they are present.`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedback,
}

func runFeedback(cmd *cobra.Command, args []string) error {
	ctx, cancel := newSignalContext()
	defer cancel()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read execution report: %w", err)
	}
	var report types.ExecutionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("parse execution report %s: %w", args[0], err)
	}

	store, err := governance.Open(cfg.GovernanceDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("Processing execution feedback",
		zap.String("report", args[0]),
		zap.Int("actions", len(report.ActionsIncluded)))

	result, err := governance.NewEngine(store).IngestReport(ctx, &report)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderFeedback(styles, result))

	if feedbackPDF {
		path, err := auditpdf.NewGenerator(cfg.ArtifactsPath()).Generate(
			echoForecasts(), echoDecisions(), &report, &result.Config)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  wrote %s\n", path)
	}
	return nil
}

// echoForecasts reloads the last forecast artifact so the audit document
// can show trajectory context. A missing or stale artifact is fine.
func echoForecasts() []*types.PredictionSummary {
	var forecasts []*types.PredictionSummary
	readArtifact("trajectory_forecast.json", &forecasts)
	return forecasts
}

func echoDecisions() []*types.ResponseDecision {
	var decisions []*types.ResponseDecision
	readArtifact("response_plan.json", &decisions)
	return decisions
}

func readArtifact(name string, v any) {
	data, err := os.ReadFile(filepath.Join(cfg.ArtifactsPath(), name))
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		logging.GovernanceWarn("ignoring unparseable artifact %s: %v", name, err)
	}
}
