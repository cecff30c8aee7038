package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"foresight/cmd/foresight/ui"
	"foresight/internal/scripting"
	"foresight/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scriptCmd generates the remediation package from a saved plan
var scriptCmd = &cobra.Command{
	Use:   "script [response-plan.json]",
	Short: "Generate the remediation package from a response plan",
	Long: `Reads a response plan (as written by analyze) and generates the
deployment package without re-running the analysis: a context-aware
PowerShell script grouped by defense domain, the tactical guideline
markdown, and the execution report manifest that feedback consumes.

Example:
  foresight script artifacts/response_plan.json`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read response plan: %w", err)
	}
	var decisions []*types.ResponseDecision
	if err := json.Unmarshal(data, &decisions); err != nil {
		return fmt.Errorf("parse response plan %s: %w", args[0], err)
	}

	logger.Info("Generating remediation package",
		zap.String("plan", args[0]),
		zap.Int("decisions", len(decisions)))

	pkg, err := scripting.NewGenerator(cfg.ArtifactsPath()).Generate(decisions)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderPackage(styles, pkg))

	path := filepath.Join(cfg.ArtifactsPath(), "execution_report.json")
	if err := writeJSON(path, pkg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  wrote %s\n", path)
	return nil
}
