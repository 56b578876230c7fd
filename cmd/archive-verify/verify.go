// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/archive-verify/internal/doi"
	"github.com/pdiddy/archive-verify/pkg/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <doi>...",
	Short: "Verify individual DOIs against CrossRef",
	Long: `Verify normalizes and checks each argument against the registry and prints
its classification. No archive is read or written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Duration("timeout", 0, "registry request timeout (default 15s)")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	v := newVerifier(cfg)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"DOI", "Status", "Details"})

	fakes := 0
	for _, raw := range args {
		id := doi.Normalize(raw)
		res := v.Verify(cmd.Context(), id)
		if res.Status == types.StatusFake {
			fakes++
		}
		tw.AppendRow(table.Row{displayID(raw, id), res.Status.Symbol(), describe(res.Details)})
	}
	fmt.Println(tw.Render())

	if fakes > 0 {
		return fmt.Errorf("%d DOI(s) not found in the registry", fakes)
	}
	return nil
}

func displayID(raw, id string) string {
	if id == "" {
		return raw
	}
	return id
}

func describe(d types.Details) string {
	if d.HasRegistryData() {
		s := d.RegistryTitle
		if len(d.RegistryAuthors) > 0 {
			s += " (" + strings.Join(d.RegistryAuthors, ", ") + ")"
		}
		return s
	}
	return d.Message
}
