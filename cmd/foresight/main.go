package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"foresight/cmd/foresight/ui"
	"foresight/internal/config"
	"foresight/internal/logging"
	"foresight/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	workspaceDir string
	outputDir    string
	noColor      bool

	// Runtime state shared by the command handlers
	logger *zap.Logger
	cfg    *config.Config
	styles ui.Styles
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "foresight",
	Short: "Foresight - predictive breach-path analysis for SOC telemetry",
	Long: `Foresight turns enriched security events into forward-looking response
plans instead of after-the-fact alerts.

The analysis cycle has five stages:
  1. Ingest: load enriched event batches (JSON or NDJSON)
  2. Sessionize: group events into attacker sessions per surrogate identity
  3. Analyze: reconstruct the attack path and score each session
  4. Forecast: project likely kill-chain continuations with time horizons
  5. Decide: select proportionate response actions under governance thresholds

Path reports, forecasts and the response plan are written as JSON artifacts.
The optional remediation package (PowerShell script plus tactical guideline)
and the strategic audit PDF are generated from the same cycle. An adaptive
governance core learns from execution feedback and records every posture
change in a hash-chained trust ledger.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if workspaceDir != "" {
			cfg.Workspace.Root = workspaceDir
		}
		if outputDir != "" {
			cfg.Workspace.ArtifactsDir = outputDir
		}
		if noColor {
			cfg.Render.Color = "never"
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := logging.Initialize(cfg.Workspace.Root, logging.Settings{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
			JSONFormat: cfg.Logging.Format == "json",
		}); err != nil {
			return err
		}

		styles = ui.SelectStyles(cfg.ColorEnabled())
		logger.Debug("Runtime initialized",
			zap.String("workspace", cfg.Workspace.Root),
			zap.String("artifacts", cfg.ArtifactsPath()),
			zap.Bool("color", cfg.ColorEnabled()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints the release version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the foresight version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Banner(styles, "v"+cfg.Version))
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".foresight/config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "out", "o", "", "Artifacts directory (default: <workspace>/artifacts)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI styling in terminal output")

	// Analyze flags
	analyzeCmd.Flags().BoolVar(&analyzeRender, "render", false, "Render reports, forecasts and decisions to the terminal")
	analyzeCmd.Flags().BoolVar(&analyzeWatch, "watch", false, "Watch the events directory and re-run on change")
	analyzeCmd.Flags().BoolVar(&analyzeScript, "script", false, "Generate the remediation package (PowerShell + guideline)")
	analyzeCmd.Flags().BoolVar(&analyzePDF, "pdf", false, "Render the strategic audit PDF")

	// Feedback flags
	feedbackCmd.Flags().BoolVar(&feedbackPDF, "pdf", false, "Render the strategic audit PDF after the learning update")

	// Catalog subcommands
	catalogCmd.AddCommand(catalogInitCmd)
	catalogCmd.AddCommand(catalogLoadCmd)
	catalogCmd.AddCommand(catalogStatsCmd)

	// Add commands to root
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for governance
// integrity failures, 3 for internal invariant violations, 1 otherwise.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrLedgerIntegrity),
		errors.Is(err, types.ErrConfigurationConflict):
		return 2
	case errors.Is(err, types.ErrBoundaryViolation):
		return 3
	default:
		return 1
	}
}

// newSignalContext returns a context that is cancelled on SIGINT or
// SIGTERM. The returned cancel must be deferred; it also releases the
// signal watcher.
func newSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
