// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/archive-verify/pkg/types"
)

var renderTime = time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

func verifiedRecord(title, id, category string) types.Record {
	r := types.Record{
		Title:      title,
		Authors:    "A. Person",
		Identifier: id,
		Category:   category,
		SourceFile: "papers_2025-01-15.md",
	}
	r.SetOutcome(types.StatusVerified, types.Details{
		RegistryTitle:   title + " (registry)",
		RegistryAuthors: []string{"Ann Person", "Bob Person"},
	})
	return r
}

func removedRecord(title, id string, st types.Status) types.Record {
	r := types.Record{Title: title, Identifier: id, SourceFile: "papers_2025-01-15.md"}
	r.SetOutcome(st, types.Details{Message: "DOI not found in CrossRef"})
	return r
}

func TestRender_EmptyState(t *testing.T) {
	out := FileOutcome{
		SourceFile: "papers_2025-01-15.md",
		Removed:    []types.Record{removedRecord("Ghost", "10.9/ghost", types.StatusFake)},
	}
	text := Render(out, renderTime)

	assert.Contains(t, text, "# Research Papers Compilation - 2025-01-15\n")
	assert.Contains(t, text, "Generated on 2025-01-15\n")
	assert.Contains(t, text, CleanedMarker+" 2025-02-01:")
	assert.Contains(t, text, "- Verified papers: 0\n")
	assert.Contains(t, text, "- Fake/Invalid papers removed: 1\n")
	assert.Contains(t, text, emptyState)
	assert.NotContains(t, text, "### ")
	assert.NotContains(t, text, verifiedHeader)
	assert.True(t, IsCleaned(text))
}

func TestRender_CountsEntriesAndRows(t *testing.T) {
	out := FileOutcome{
		SourceFile: "papers_2025-01-15.md",
		Verified: []types.Record{
			verifiedRecord("First", "10.1/a", "Soft Robotics"),
			verifiedRecord("Second", "10.1/b", "Neural Interfaces"),
			verifiedRecord("Third", "10.1/c", "Soft Robotics"),
		},
		Removed: []types.Record{
			removedRecord("Ghost One", "10.9/g1", types.StatusFake),
			removedRecord("Ghost Two", "", types.StatusInvalid),
		},
	}
	text := Render(out, renderTime)

	assert.Equal(t, 3, strings.Count(text, "\n### "))
	assert.Equal(t, 3, strings.Count(text, "\n---\n"))
	assert.Contains(t, text, "- Verified papers: 3\n")
	assert.Contains(t, text, "- Needs re-check: 0\n")
	assert.Contains(t, text, "- Fake/Invalid papers removed: 2\n")
	assert.Contains(t, text, removedHeader)
	assert.Contains(t, text, "| Title | DOI |")
	assert.Contains(t, text, "| Ghost One | 10.9/g1 |")
	assert.Contains(t, text, "| Ghost Two | N/A |")
	assert.NotContains(t, text, recheckHeader)

	// Grouped by category in first-seen order.
	first := strings.Index(text, "### First")
	third := strings.Index(text, "### Third")
	second := strings.Index(text, "### Second")
	assert.True(t, first < third && third < second, "entries not grouped by category:\n%s", text)
}

func TestRender_EntryLayout(t *testing.T) {
	r := verifiedRecord("Gripper", "10.1/grip", "Soft Robotics")
	r.TRL = "4"
	r.Keywords = "gripper, tendon"
	r.Summary = "Short summary."
	text := Render(FileOutcome{SourceFile: "papers_x.md", Verified: []types.Record{r}}, renderTime)

	want := "### Gripper\n" +
		"**Category:** Soft Robotics\n" +
		"**Authors:** A. Person\n" +
		"**DOI:** 10.1/grip\n" +
		"**Status:** verified\n" +
		"**Verified Title:** Gripper (registry)\n" +
		"**Verified Authors:** Ann Person, Bob Person\n" +
		"**TRL:** 4\n" +
		"**Keywords:** gripper, tendon\n" +
		"**Summary:** Short summary.\n" +
		"\n---\n"
	assert.Contains(t, text, want)
	assert.NotContains(t, text, removedHeader)
}

func TestRender_RecheckSection(t *testing.T) {
	r := types.Record{Title: "Flaky", Identifier: "10.1/flaky", Category: "C"}
	r.SetOutcome(types.StatusError, types.Details{Message: "network error: timeout"})
	text := Render(FileOutcome{SourceFile: "papers_x.md", Recheck: []types.Record{r}}, renderTime)

	assert.Contains(t, text, "- Needs re-check: 1\n")
	assert.Contains(t, text, recheckHeader)
	assert.Contains(t, text, "**Status:** error\n")
	assert.Contains(t, text, "**Check Error:** network error: timeout\n")
	assert.Contains(t, text, emptyState)
}

func TestRender_RepairedEntry(t *testing.T) {
	r := verifiedRecord("Fixed", "10.1/new", "C")
	r.Repaired = true
	r.OriginalIdentifier = "10.9/old"
	text := Render(FileOutcome{SourceFile: "papers_x.md", Verified: []types.Record{r}}, renderTime)

	assert.Contains(t, text, "**Status:** repaired\n**Original DOI:** 10.9/old\n")
}

func TestTruncateTitle(t *testing.T) {
	exact := strings.Repeat("a", 50)
	long := strings.Repeat("é", 60)

	assert.Equal(t, exact, TruncateTitle(exact))
	assert.Equal(t, strings.Repeat("é", 50)+"...", TruncateTitle(long))
	assert.Equal(t, "short", TruncateTitle("short"))
}

func TestNewFileOutcome_Partitions(t *testing.T) {
	pre := types.Record{Title: "P", Identifier: "10.48550/x"}
	pre.SetOutcome(types.StatusPreprint, types.Details{Message: "Preprint - not verified"})
	errRec := types.Record{Title: "E", Identifier: "10.1/e"}
	errRec.SetOutcome(types.StatusError, types.Details{Message: "HTTP 500"})

	recs := []types.Record{
		verifiedRecord("V", "10.1/v", "C"),
		pre,
		removedRecord("F", "10.9/f", types.StatusFake),
		removedRecord("I", "", types.StatusInvalid),
		errRec,
	}
	out := NewFileOutcome("papers_2025-03-03.md", recs)

	assert.Equal(t, "2025-03-03", out.DateToken)
	assert.Len(t, out.Verified, 2)
	assert.Len(t, out.Removed, 2)
	require.Len(t, out.Recheck, 1)
	assert.Equal(t, "E", out.Recheck[0].Title)
}

func TestDateToken(t *testing.T) {
	tests := map[string]string{
		"papers_2025-01-15.md":         "2025-01-15",
		"/a/b/papers_2025-01-15_pm.md": "2025-01-15_pm",
		"notes.md":                     "notes",
	}
	for in, want := range tests {
		assert.Equal(t, want, DateToken(in), in)
	}
}

func TestRenderParseCleanedRoundTrip(t *testing.T) {
	v := verifiedRecord("Gripper | Hand", "10.1/grip", "Soft Robotics")
	v.TRL = "5"
	pre := types.Record{Title: "Preprint", Authors: "X", Identifier: "10.48550/arXiv.1", Category: "Neural", SourceFile: "papers_2025-01-15.md"}
	pre.SetOutcome(types.StatusPreprint, types.Details{Message: "Preprint - not verified"})
	e := types.Record{Title: "Flaky", Authors: "Y", Identifier: "10.1/flaky", Category: "Neural", SourceFile: "papers_2025-01-15.md"}
	e.SetOutcome(types.StatusError, types.Details{Message: "HTTP 503"})

	out := FileOutcome{
		SourceFile: "papers_2025-01-15.md",
		DateToken:  "2025-01-15",
		Verified:   []types.Record{v, pre},
		Recheck:    []types.Record{e},
		Removed:    []types.Record{removedRecord("A | piped ghost", "10.9/g", types.StatusFake)},
	}
	got, err := ParseCleaned(Render(out, renderTime), "papers_2025-01-15.md")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-15", got.DateToken)
	require.Len(t, got.Verified, 2)
	assert.Equal(t, "Gripper | Hand", got.Verified[0].Title)
	assert.Equal(t, types.StatusVerified, got.Verified[0].Status)
	assert.Equal(t, "5", got.Verified[0].TRL)
	assert.Equal(t, []string{"Ann Person", "Bob Person"}, got.Verified[0].Details.RegistryAuthors)
	assert.Equal(t, types.StatusPreprint, got.Verified[1].Status)

	if diff := cmp.Diff(out.Recheck, got.Recheck); diff != "" {
		t.Errorf("Recheck mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, got.Removed, 1)
	assert.Equal(t, "A / piped ghost", got.Removed[0].Title)
	assert.Equal(t, "10.9/g", got.Removed[0].Identifier)
	assert.Equal(t, types.StatusFake, got.Removed[0].Status)

	// Rendering the parsed archive again is stable.
	again := Render(got.Outcome("papers_2025-01-15.md"), renderTime)
	assert.Equal(t, Render(out, renderTime), again)
}

func TestParseCleaned_LegacyLayout(t *testing.T) {
	text := "# Research Papers Compilation - 2024-12-01\n\n## Summary\n" +
		CleanedMarker + " 2025-01-02:\n- Verified papers: 1\n- Fake/Invalid papers removed: 1\n\n" +
		"## Verified Papers\n\n" +
		"### Old Entry\n\n**Authors:** A\n\n**DOI:** 10.1/old\n\n" +
		"**Verified Title:** Old Entry Real\n\n**Verified Authors:** Ann, Bob\n\n---\n\n" +
		"## Removed Papers (Fake/Invalid DOIs)\n\n| Title | DOI |\n|-------|-----|\n| Gone | 10.9/gone |\n"

	got, err := ParseCleaned(text, "papers_2024-12-01.md")
	require.NoError(t, err)
	require.Len(t, got.Verified, 1)
	assert.Equal(t, "10.1/old", got.Verified[0].Identifier)
	assert.Equal(t, types.StatusVerified, got.Verified[0].Status)
	assert.Equal(t, "Old Entry Real", got.Verified[0].Details.RegistryTitle)
	assert.Equal(t, "General Biorobotics", got.Verified[0].Category)
	assert.Empty(t, got.Recheck)
	require.Len(t, got.Removed, 1)
	assert.Equal(t, "Gone", got.Removed[0].Title)
}

func TestParseCleaned_RejectsRawArchive(t *testing.T) {
	_, err := ParseCleaned(rawArchive, "f.md")
	assert.ErrorIs(t, err, ErrNotCleaned)
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papers_2025-01-15.md")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o640))

	require.NoError(t, WriteAtomic(path, "new content\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new content\n", string(data))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestWriteAtomic_MissingDir(t *testing.T) {
	err := WriteAtomic(filepath.Join(t.TempDir(), "nope", "f.md"), "x")
	assert.Error(t, err)
}

func TestListArchives(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"papers_2025-02-01.md", "papers_2025-01-01.md", "notes.md", "papers_x.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "papers_dir.md"), 0o755))

	got, err := ListArchives(dir, "papers_*.md")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "papers_2025-01-01.md"),
		filepath.Join(dir, "papers_2025-02-01.md"),
	}, got)

	_, err = ListArchives(filepath.Join(dir, "missing"), "*.md")
	assert.Error(t, err)

	_, err = ListArchives(dir, "[")
	assert.Error(t, err)
}
