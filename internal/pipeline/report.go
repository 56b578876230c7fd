// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pdiddy/archive-verify/internal/archive"
	"github.com/pdiddy/archive-verify/pkg/types"
)

// WriteReport writes report as indented JSON to path, replacing any
// previous report atomically.
func WriteReport(path string, report types.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := archive.WriteAtomic(path, string(data)+"\n"); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func (p *Pipeline) printSummary(report types.RunReport) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, Tally(report.Summary))
	PrintRemoved(p.out, report)
}

// Tally renders the run counts as a console table.
func Tally(s types.RunSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetTitle("Verification summary")
	tw.AppendHeader(table.Row{"Outcome", "Records"})
	tw.AppendRows([]table.Row{
		{"Verified", s.Verified},
		{"  of which repaired", s.Repaired},
		{"Preprint", s.Preprints},
		{"Fake", s.Fake},
		{"Invalid", s.Invalid},
		{"Needs re-check", s.Errors},
	})
	tw.AppendFooter(table.Row{"Total", s.Total})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

// PrintRemoved lists the excluded records grouped by source file, in the
// order the files were processed.
func PrintRemoved(w io.Writer, report types.RunReport) {
	removed := report.Removed()
	if len(removed) == 0 {
		return
	}

	var files []string
	byFile := make(map[string][]types.Record)
	for _, r := range removed {
		if _, ok := byFile[r.SourceFile]; !ok {
			files = append(files, r.SourceFile)
		}
		byFile[r.SourceFile] = append(byFile[r.SourceFile], r)
	}

	fmt.Fprintf(w, "\nRemoved records (%d):\n", len(removed))
	for _, f := range files {
		fmt.Fprintf(w, "  %s:\n", f)
		for _, r := range byFile[f] {
			id := r.Identifier
			if id == "" {
				id = "no DOI"
			}
			fmt.Fprintf(w, "    - %s (%s)\n", shorten(r.Title, 60), id)
		}
	}
}
