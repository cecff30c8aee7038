package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"foresight/cmd/foresight/ui"
	"foresight/internal/governance"

	"github.com/spf13/cobra"
)

// auditCmd reports the governance posture
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the governance posture and write status.json",
	Long: `Renders the current governance posture: active model version, decision
thresholds, trust momentum, streaks, threshold drift against genesis, the
most recent ledger events and the model version history. The same snapshot
is written to status.json in the artifacts directory.

On a fresh workspace this bootstraps the genesis model configuration.`,
	RunE: runAudit,
}

// verifyCmd walks the trust ledger hash chain
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the trust ledger hash chain",
	Long: `Recomputes the hash of every trust ledger entry and checks the chain
linkage back to genesis. Any edited, deleted or reordered entry breaks the
chain and the command exits with code 2.`,
	RunE: runVerify,
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx, cancel := newSignalContext()
	defer cancel()

	store, err := governance.Open(cfg.GovernanceDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.InsertGenesis(ctx); err != nil {
		return err
	}

	status, err := governance.NewEngine(store).Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderStatus(styles, status))

	path := filepath.Join(cfg.ArtifactsPath(), "status.json")
	if err := writeJSON(path, status); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  wrote %s\n", path)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := newSignalContext()
	defer cancel()

	store, err := governance.Open(cfg.GovernanceDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.VerifyLedger(ctx); err != nil {
		return err
	}
	count, err := store.LedgerEntryCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Success.Render(
		fmt.Sprintf("ledger verified: %d entries, hash chain intact", count)))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifacts directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
