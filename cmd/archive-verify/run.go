// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/archive-verify/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Verify, repair and rewrite every archive file",
	Long: `Run first re-checks records left inconclusive by earlier runs, then processes
each raw archive in lexicographic order: every DOI is normalized and verified
against CrossRef, records whose DOI does not exist are sent for repair, and the
archive is rewritten atomically with verified records, a re-check section and a
removal table. Already cleaned archives are skipped.

A JSON report of the run is written to --report.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("report", "", "JSON run report path, empty to skip (default "+defaultHint("report_path")+")")
	runCmd.Flags().Bool("dry-run", false, "classify records without rewriting archives")
	runCmd.Flags().Duration("delay", 0, "minimum spacing between registry lookups (default 300ms)")
	runCmd.Flags().Duration("timeout", 0, "registry request timeout (default 15s)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	p, closeFn, err := buildPipeline(cfg)
	defer closeFn()
	if err != nil {
		return err
	}

	report, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.ReportPath != "" {
		if err := pipeline.WriteReport(cfg.ReportPath, report); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", cfg.ReportPath)
	}
	if n := len(report.FileErrors); n > 0 {
		fmt.Printf("%d archive file(s) could not be processed\n", n)
	}
	return nil
}
