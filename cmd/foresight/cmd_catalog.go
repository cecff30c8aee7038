package main

import (
	"context"
	"fmt"
	"strconv"

	"foresight/cmd/foresight/ui"
	"foresight/internal/vulnintel"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// catalogCmd groups catalog maintenance commands
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the vulnerability intelligence catalog",
}

var catalogInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty catalog database",
	Long: `Creates the catalog SQLite database with the cve, cwe, kev and
cve_cwe_map tables. The location comes from the configuration
(catalog.database_path) or the FORESIGHT_CATALOG_DB environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := vulnintel.Initialize(cfg.Catalog.DatabasePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "catalog initialized at %s\n", cfg.Catalog.DatabasePath)
		return nil
	},
}

var catalogLoadCmd = &cobra.Command{
	Use:   "load [dump.json]",
	Short: "Import a consolidated vulnerability dump",
	Long: `Imports CVE records, CWE weaknesses, the KEV list and CVE-to-CWE
mappings from one consolidated JSON dump. Existing records with the same
identifier are replaced, so re-running a load is safe.

Example:
  foresight catalog load nvd_consolidated.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogLoad,
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog record counts",
	RunE:  runCatalogStats,
}

func runCatalogLoad(cmd *cobra.Command, args []string) error {
	ctx, cancel := newSignalContext()
	defer cancel()

	logger.Info("Importing vulnerability dump",
		zap.String("dump", args[0]),
		zap.String("catalog", cfg.Catalog.DatabasePath))

	stats, err := vulnintel.ImportJSON(ctx, cfg.Catalog.DatabasePath, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d CVEs, %d CWEs, %d KEV entries, %d mappings\n",
		stats.CVEs, stats.CWEs, stats.KEV, stats.Mappings)
	return nil
}

func runCatalogStats(cmd *cobra.Command, args []string) error {
	catalog, err := vulnintel.Open(cfg.Catalog.DatabasePath)
	if err != nil {
		return err
	}
	defer catalog.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetCatalogTimeout())
	defer cancel()

	stats, err := catalog.Stats(ctx)
	if err != nil {
		return err
	}

	table := ui.NewTable("Vulnerability Catalog", "RECORD", "COUNT")
	table.AddRow("CVE", strconv.FormatInt(stats.CVEs, 10))
	table.AddRow("CWE", strconv.FormatInt(stats.CWEs, 10))
	table.AddRow("KEV", strconv.FormatInt(stats.KEV, 10))
	table.AddRow("CVE-CWE mappings", strconv.FormatInt(stats.Mappings, 10))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, table.View(styles))
	fmt.Fprintf(out, "database: %s\n", stats.Path)
	if stats.LastSync != "" {
		fmt.Fprintf(out, "last sync: %s\n", stats.LastSync)
	}
	return nil
}
