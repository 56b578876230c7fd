// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export reads verified records out of cleaned archives for
// downstream consumers (site rendering, reference managers). It is the only
// place identifiers are deduplicated.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/archive-verify/internal/archive"
	"github.com/pdiddy/archive-verify/pkg/types"
)

// Collect returns the verified records of every cleaned archive in dir
// matching pattern, in file order. Raw archives are skipped. Registry
// titles and authors replace the archived ones when present.
func Collect(dir, pattern string) ([]types.Record, error) {
	paths, err := archive.ListArchives(dir, pattern)
	if err != nil {
		return nil, err
	}

	var recs []types.Record
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		cleaned, err := archive.ParseCleaned(string(data), filepath.Base(path))
		if errors.Is(err, archive.ErrNotCleaned) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
		for _, r := range cleaned.Verified {
			recs = append(recs, canonical(r))
		}
	}
	return recs, nil
}

func canonical(r types.Record) types.Record {
	if r.Details == nil {
		return r
	}
	if r.Details.RegistryTitle != "" {
		r.Title = r.Details.RegistryTitle
	}
	if len(r.Details.RegistryAuthors) > 0 {
		r.Authors = strings.Join(r.Details.RegistryAuthors, ", ")
	}
	return r
}

// Dedupe keeps the first record for each case-insensitive identifier.
// Records without an identifier are kept as-is.
func Dedupe(recs []types.Record) []types.Record {
	seen := make(map[string]bool, len(recs))
	out := make([]types.Record, 0, len(recs))
	for _, r := range recs {
		key := r.Key()
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, r)
	}
	return out
}

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	DOI      string    `yaml:"DOI,omitempty"`
	Keyword  string    `yaml:"keyword,omitempty"`
	Abstract string    `yaml:"abstract,omitempty"`
	Note     string    `yaml:"note,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// FormatCSL writes recs as a CSL-YAML list to w.
func FormatCSL(recs []types.Record, w io.Writer) error {
	items := make([]CSLItem, len(recs))
	for i, r := range recs {
		items[i] = toCSLItem(r)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(r types.Record) CSLItem {
	item := CSLItem{
		ID:       r.Identifier,
		Type:     "article-journal",
		Title:    r.Title,
		Keyword:  r.Keywords,
		Abstract: r.Summary,
	}
	if r.Status == types.StatusPreprint {
		item.Type = "article"
	}
	if strings.HasPrefix(r.Identifier, "10.") {
		item.DOI = r.Identifier
	}
	if r.Category != "" {
		item.Note = "Category: " + r.Category
	}
	for _, a := range r.AuthorList() {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	return item
}

// parseAuthorName splits a full name on the last space into given and
// family parts. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{Given: name[:idx], Family: name[idx+1:]}
}

// SiteEntry is the JSON shape handed to the site renderer.
type SiteEntry struct {
	Title    string   `json:"title"`
	Authors  string   `json:"authors"`
	DOI      string   `json:"doi"`
	Category string   `json:"category"`
	TRL      string   `json:"trl"`
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary"`
	Source   string   `json:"source_file"`
}

// FormatJSON writes recs as an indented JSON array of SiteEntry values.
// Missing readiness, keywords and summary get the renderer's placeholders.
func FormatJSON(recs []types.Record, w io.Writer) error {
	entries := make([]SiteEntry, len(recs))
	for i, r := range recs {
		e := SiteEntry{
			Title:    r.Title,
			Authors:  r.Authors,
			DOI:      r.Identifier,
			Category: r.Category,
			TRL:      r.TRL,
			Keywords: r.KeywordList(),
			Summary:  r.Summary,
			Source:   r.SourceFile,
		}
		if e.TRL == "" {
			e.TRL = "N/A"
		}
		if len(e.Keywords) == 0 {
			e.Keywords = []string{"verified paper"}
		}
		if e.Summary == "" {
			e.Summary = "DOI verified against CrossRef."
		}
		entries[i] = e
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
