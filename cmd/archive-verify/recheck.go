// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/archive-verify/internal/ledger"
)

var recheckCmd = &cobra.Command{
	Use:   "recheck",
	Short: "Retry records whose verification was inconclusive",
	Long: `Recheck re-verifies every record in the re-check ledger. Records that now
verify move into the Verified section of their archive, records the registry
reports as missing move to the removal table, and the rest stay pending.

With --list, the pending entries are printed and nothing is verified.`,
	Args: cobra.NoArgs,
	RunE: runRecheck,
}

func init() {
	recheckCmd.Flags().Bool("list", false, "list pending entries without re-checking")
	recheckCmd.Flags().Bool("dry-run", false, "re-verify without rewriting archives or the ledger")

	rootCmd.AddCommand(recheckCmd)
}

func runRecheck(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	if cfg.LedgerPath == "" {
		return errors.New("no ledger configured; set --ledger or ledger_path")
	}

	if list, _ := cmd.Flags().GetBool("list"); list {
		return listPending(cmd, cfg.LedgerPath)
	}

	p, closeFn, err := buildPipeline(cfg)
	defer closeFn()
	if err != nil {
		return err
	}
	report, err := p.Recheck(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Re-checked %d record(s)\n", report.Summary.Rechecked)
	return nil
}

func listPending(cmd *cobra.Command, path string) error {
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	n, err := l.Count(cmd.Context())
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("No records awaiting re-check.")
		return nil
	}
	entries, err := l.Pending(cmd.Context())
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"File", "DOI", "Attempts", "Last error", "First seen"})
	for _, e := range entries {
		tw.AppendRow(table.Row{
			e.Record.SourceFile,
			e.Record.Identifier,
			e.Attempts,
			e.LastError,
			e.FirstSeen.Format("2006-01-02"),
		})
	}
	fmt.Println(tw.Render())
	fmt.Printf("%d record(s) awaiting re-check\n", n)
	return nil
}
