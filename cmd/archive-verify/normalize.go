// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/archive-verify/internal/doi"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <raw>...",
	Short: "Show how raw identifiers are normalized",
	Long: `Normalize prints the canonical form of each argument as the pipeline would
compute it, and whether it is a preprint or has the shape of a registry DOI.
No network access is made.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tw := table.NewWriter()
		tw.AppendHeader(table.Row{"Input", "Normalized", "Kind"})
		for _, raw := range args {
			id := doi.Normalize(raw)
			tw.AppendRow(table.Row{raw, id, kind(id)})
		}
		fmt.Println(tw.Render())
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func kind(id string) string {
	switch {
	case id == "":
		return "invalid"
	case doi.IsPreprint(id):
		return "preprint"
	case doi.LooksLikeDOI(id):
		return "doi"
	default:
		return "unrecognized"
	}
}
