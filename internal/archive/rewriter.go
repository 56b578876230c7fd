// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pdiddy/archive-verify/pkg/types"
)

// Section headers and fixed lines of a cleaned archive.
const (
	titlePrefix     = "# Research Papers Compilation - "
	verifiedHeader  = "## Verified Papers"
	recheckHeader   = "## Needs Re-check"
	removedHeader   = "## Removed Papers (Fake/Invalid DOIs)"
	emptyState      = "*No verified papers in this archive.*"
	entryRule       = "---"
	notAvailable    = "N/A"
	removedTitleMax = 50
)

// FileOutcome is the classified content of one archive file, ready to be
// rendered. Verified holds Verified and Preprint records, Recheck holds
// Error records, and Removed holds Fake and Invalid records.
type FileOutcome struct {
	SourceFile string
	DateToken  string
	Verified   []types.Record
	Recheck    []types.Record
	Removed    []types.Record
}

// NewFileOutcome partitions recs by status. Records without a terminal
// status are treated as needing a re-check.
func NewFileOutcome(sourceFile string, recs []types.Record) FileOutcome {
	out := FileOutcome{SourceFile: sourceFile, DateToken: DateToken(sourceFile)}
	for _, r := range recs {
		switch {
		case r.Status.Survives():
			out.Verified = append(out.Verified, r)
		case r.Status.Removable():
			out.Removed = append(out.Removed, r)
		default:
			out.Recheck = append(out.Recheck, r)
		}
	}
	return out
}

// DateToken extracts the date-like token from an archive file name, e.g.
// "papers_2025-01-15.md" yields "2025-01-15".
func DateToken(sourceFile string) string {
	base := filepath.Base(sourceFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimPrefix(base, "papers_")
}

// Render produces the full replacement text for one archive. Verified
// records are grouped by category in first-seen order.
func Render(out FileOutcome, now time.Time) string {
	token := out.DateToken
	if token == "" {
		token = DateToken(out.SourceFile)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", titlePrefix, token)
	fmt.Fprintf(&b, "Generated on %s\n\n", token)

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "%s %s:\n", CleanedMarker, now.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Verified papers: %d\n", len(out.Verified))
	fmt.Fprintf(&b, "- Needs re-check: %d\n", len(out.Recheck))
	fmt.Fprintf(&b, "- Fake/Invalid papers removed: %d\n\n", len(out.Removed))

	if len(out.Verified) == 0 {
		b.WriteString(emptyState + "\n\n")
	} else {
		b.WriteString(verifiedHeader + "\n\n")
		for _, r := range groupByCategory(out.Verified) {
			writeEntry(&b, r)
		}
	}

	if len(out.Recheck) > 0 {
		b.WriteString(recheckHeader + "\n\n")
		for _, r := range out.Recheck {
			writeEntry(&b, r)
		}
	}

	if len(out.Removed) > 0 {
		b.WriteString(removedHeader + "\n\n")
		b.WriteString(removedTable(out.Removed))
		b.WriteString("\n\n")
	}

	return b.String()
}

func groupByCategory(recs []types.Record) []types.Record {
	var order []string
	groups := make(map[string][]types.Record)
	for _, r := range recs {
		if _, ok := groups[r.Category]; !ok {
			order = append(order, r.Category)
		}
		groups[r.Category] = append(groups[r.Category], r)
	}
	out := make([]types.Record, 0, len(recs))
	for _, c := range order {
		out = append(out, groups[c]...)
	}
	return out
}

func writeEntry(b *strings.Builder, r types.Record) {
	fmt.Fprintf(b, "### %s\n", oneLine(r.Title))
	fmt.Fprintf(b, "**Category:** %s\n", oneLine(r.Category))
	fmt.Fprintf(b, "**Authors:** %s\n", orNA(r.Authors))
	fmt.Fprintf(b, "**DOI:** %s\n", orNA(r.Identifier))
	fmt.Fprintf(b, "**Status:** %s\n", statusLabel(r))
	if r.Repaired && r.OriginalIdentifier != "" {
		fmt.Fprintf(b, "**Original DOI:** %s\n", oneLine(r.OriginalIdentifier))
	}
	if r.Details.HasRegistryData() {
		if r.Details.RegistryTitle != "" {
			fmt.Fprintf(b, "**Verified Title:** %s\n", oneLine(r.Details.RegistryTitle))
		}
		if len(r.Details.RegistryAuthors) > 0 {
			fmt.Fprintf(b, "**Verified Authors:** %s\n", oneLine(strings.Join(r.Details.RegistryAuthors, ", ")))
		}
	}
	writeOptional(b, "TRL", r.TRL)
	writeOptional(b, "Keywords", r.Keywords)
	writeOptional(b, "Summary", r.Summary)
	if r.Status == types.StatusError || r.Status == "" {
		fmt.Fprintf(b, "**Check Error:** %s\n", orNA(r.ErrorMessage()))
	}
	b.WriteString("\n" + entryRule + "\n\n")
}

func writeOptional(b *strings.Builder, label, value string) {
	if v := oneLine(value); v != "" {
		fmt.Fprintf(b, "**%s:** %s\n", label, v)
	}
}

func statusLabel(r types.Record) string {
	switch {
	case r.Repaired:
		return "repaired"
	case r.Status == types.StatusPreprint:
		return "preprint"
	case r.Status == types.StatusVerified:
		return "verified"
	default:
		return "error"
	}
}

func removedTable(recs []types.Record) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Title", "DOI"})
	for _, r := range recs {
		title := strings.ReplaceAll(oneLine(r.Title), "|", "/")
		tw.AppendRow(table.Row{TruncateTitle(title), orNA(r.Identifier)})
	}
	return tw.RenderMarkdown()
}

// TruncateTitle shortens a title for the removal table to the first 50
// characters followed by "...".
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= removedTitleMax {
		return title
	}
	return string(runes[:removedTitleMax]) + "..."
}

// oneLine collapses internal whitespace so a value cannot break the
// line-oriented layout.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orNA(s string) string {
	if v := oneLine(s); v != "" {
		return v
	}
	return notAvailable
}

// WriteAtomic replaces path with text. The content is written to a temp
// file in the same directory and renamed into place, so readers see either
// the old file or the new one. An existing file's permissions are kept.
func WriteAtomic(path, text string) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".archive-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.WriteString(text)
	if writeErr == nil {
		writeErr = tmpFile.Sync()
	}
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing archive: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
