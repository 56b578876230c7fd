// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"errors"
	"strings"

	"github.com/pdiddy/archive-verify/pkg/types"
)

// ErrNotCleaned is returned by ParseCleaned for text without CleanedMarker.
var ErrNotCleaned = errors.New("archive has not been cleaned")

// CleanedArchive is the content of a previously rewritten archive.
type CleanedArchive struct {
	Title     string
	DateToken string
	Verified  []types.Record
	Recheck   []types.Record
	Removed   []types.Record
}

// Outcome converts the archive back into a FileOutcome for re-rendering.
func (c CleanedArchive) Outcome(sourceFile string) FileOutcome {
	token := c.DateToken
	if token == "" {
		token = DateToken(sourceFile)
	}
	return FileOutcome{
		SourceFile: sourceFile,
		DateToken:  token,
		Verified:   c.Verified,
		Recheck:    c.Recheck,
		Removed:    c.Removed,
	}
}

type section int

const (
	sectionNone section = iota
	sectionVerified
	sectionRecheck
	sectionRemoved
)

// ParseCleaned reads a cleaned archive written by Render. It also accepts
// the older layout that separated fields with blank lines and had no
// re-check section. Removed rows carry only a (possibly truncated) title
// and identifier; they are marked Fake, or Invalid when the identifier is
// missing.
func ParseCleaned(text, sourceFile string) (CleanedArchive, error) {
	if !IsCleaned(text) {
		return CleanedArchive{}, ErrNotCleaned
	}

	var (
		out     CleanedArchive
		sec     section
		current *types.Record
	)
	flush := func() {
		if current == nil {
			return
		}
		rec := *current
		current = nil
		if rec.Title == "" {
			return
		}
		if rec.Category == "" {
			rec.Category = Categorize(rec.Title, rec.Keywords)
		}
		switch sec {
		case sectionRecheck:
			if rec.Status == "" || rec.Status.Survives() {
				rec.Status = types.StatusError
			}
			out.Recheck = append(out.Recheck, rec)
		default:
			if rec.Status == "" {
				rec.Status = types.StatusVerified
			}
			out.Verified = append(out.Verified, rec)
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, titlePrefix):
			out.Title = strings.TrimSpace(line[2:])
			out.DateToken = strings.TrimSpace(line[len(titlePrefix):])
			continue
		case strings.HasPrefix(line, "## "):
			flush()
			sec = sectionFor(line)
			continue
		}

		switch sec {
		case sectionVerified, sectionRecheck:
			switch {
			case strings.HasPrefix(line, "### "):
				flush()
				current = &types.Record{Title: strings.TrimSpace(line[4:]), SourceFile: sourceFile}
			case trimmed == entryRule:
				flush()
			case current != nil:
				cleanedField(current, trimmed)
			}
		case sectionRemoved:
			if rec, ok := removedRow(trimmed, sourceFile); ok {
				out.Removed = append(out.Removed, rec)
			}
		}
	}
	flush()
	return out, nil
}

func sectionFor(header string) section {
	switch {
	case strings.HasPrefix(header, verifiedHeader):
		return sectionVerified
	case strings.HasPrefix(header, recheckHeader):
		return sectionRecheck
	case strings.HasPrefix(header, "## Removed Papers"):
		return sectionRemoved
	default:
		return sectionNone
	}
}

func cleanedField(rec *types.Record, line string) {
	m := fieldLine.FindStringSubmatch(line)
	if m == nil {
		return
	}
	value := strings.TrimSpace(m[2])
	if value == notAvailable {
		value = ""
	}

	switch strings.ToLower(strings.TrimSpace(m[1])) {
	case "category":
		rec.Category = value
	case "authors":
		rec.Authors = value
	case "doi":
		rec.Identifier = value
	case "original doi":
		rec.OriginalIdentifier = value
	case "status":
		switch strings.ToLower(value) {
		case "verified":
			rec.Status = types.StatusVerified
		case "preprint":
			rec.Status = types.StatusPreprint
		case "repaired":
			rec.Status = types.StatusVerified
			rec.Repaired = true
		case "error":
			rec.Status = types.StatusError
		}
	case "verified title":
		details(rec).RegistryTitle = value
	case "verified authors":
		if value != "" {
			details(rec).RegistryAuthors = splitComma(value)
		}
	case "check error":
		details(rec).Message = value
	case "trl":
		rec.TRL = value
	case "keywords":
		rec.Keywords = value
	case "summary":
		rec.Summary = value
	}
}

func details(rec *types.Record) *types.Details {
	if rec.Details == nil {
		rec.Details = &types.Details{}
	}
	return rec.Details
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// removedRow parses one "| title | doi |" row. Header and separator rows
// are rejected.
func removedRow(line, sourceFile string) (types.Record, bool) {
	if !strings.HasPrefix(line, "|") {
		return types.Record{}, false
	}
	cells := splitRow(line)
	if len(cells) < 2 {
		return types.Record{}, false
	}
	title, id := cells[0], cells[1]
	if title == "Title" && id == "DOI" {
		return types.Record{}, false
	}
	if strings.Trim(title, "-: ") == "" && strings.Trim(id, "-: ") == "" {
		return types.Record{}, false
	}
	if id == notAvailable {
		id = ""
	}

	rec := types.Record{Title: title, Identifier: id, SourceFile: sourceFile, Status: types.StatusFake}
	if id == "" {
		rec.Status = types.StatusInvalid
	}
	return rec, true
}

// splitRow splits a markdown table row on unescaped pipes.
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	var (
		cells []string
		cell  strings.Builder
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == '|' {
			cell.WriteByte('|')
			i++
			continue
		}
		if c == '|' {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
			continue
		}
		cell.WriteByte(c)
	}
	return append(cells, strings.TrimSpace(cell.String()))
}
