// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/archive-verify/internal/archive"
	"github.com/pdiddy/archive-verify/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export verified records from cleaned archives",
	Long: `Export collects the verified records of every cleaned archive, removes
duplicate DOIs (case-insensitive, first occurrence wins) and writes them as
CSL-YAML for reference managers or JSON for the site renderer.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "csl", "output format: csl or json")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	if format != "csl" && format != "json" {
		return fmt.Errorf("unknown format %q (want csl or json)", format)
	}

	recs, err := export.Collect(cfg.ArchiveDir, cfg.FilePattern)
	if err != nil {
		return err
	}
	recs = export.Dedupe(recs)

	var buf bytes.Buffer
	if format == "json" {
		err = export.FormatJSON(recs, &buf)
	} else {
		err = export.FormatCSL(recs, &buf)
	}
	if err != nil {
		return fmt.Errorf("formatting export: %w", err)
	}

	if output == "" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := archive.WriteAtomic(output, buf.String()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d record(s) to %s\n", len(recs), output)
	return nil
}
