// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive reads and writes the markdown archive files that hold
// dated batches of bibliographic records grouped by category.
//
// Raw archives are produced upstream and look like:
//
//	# Research Papers Compilation
//	Generated on 2025-01-15
//
//	## Summary
//	Total Papers: 2
//
//	## Soft Robotics (2 papers)
//
//	### Paper title
//	**Authors:** A. Person, B. Person
//	**DOI:** https://doi.org/10.1000/xyz [2]
//	**TRL:** 4
//	**Keywords:** gripper, soft robot
//	**Summary:** One paragraph that may
//	continue on following lines.
//
// Cleaned archives are written by Render and carry CleanedMarker.
package archive

import (
	"regexp"
	"strings"

	"github.com/pdiddy/archive-verify/pkg/types"
)

// CleanedMarker identifies an archive that has already been rewritten.
const CleanedMarker = "DOI verification completed on"

// ParseResult is the outcome of parsing one raw archive.
type ParseResult struct {
	// Records are the records that carried an identifier, in source order.
	Records []types.Record

	// Skipped is set when the text was already cleaned and yielded nothing.
	Skipped bool

	// Dropped counts record headers closed without a title or identifier.
	Dropped int
}

var (
	// categoryHeader matches "## Name" with an optional "(N papers)" count.
	categoryHeader = regexp.MustCompile(`^##\s+(.+?)(?:\s*\(\d+\s+papers?\))?\s*$`)

	// fieldLine matches "**Label:** value".
	fieldLine = regexp.MustCompile(`^\*\*([^*]+?):\*\*\s*(.*)$`)
)

// IsCleaned reports whether text is a previously rewritten archive: a line
// starting with CleanedMarker inside the "## Summary" section. The marker
// quoted anywhere else does not count.
func IsCleaned(text string) bool {
	inSummary := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#"):
			inSummary = strings.EqualFold(strings.TrimSpace(strings.TrimLeft(line, "#")), "summary") &&
				strings.HasPrefix(line, "## ")
		case inSummary && strings.HasPrefix(line, CleanedMarker):
			return true
		}
	}
	return false
}

// Parse extracts records from the text of one raw archive. Records keep the
// identifier exactly as written; normalization is the caller's job. A
// record with no category header above it is categorized from its title
// and keywords.
func Parse(text, sourceFile string) ParseResult {
	if IsCleaned(text) {
		return ParseResult{Skipped: true}
	}

	p := &parser{sourceFile: sourceFile}
	for _, line := range strings.Split(text, "\n") {
		p.line(strings.TrimRight(line, " \t\r"))
	}
	p.flush()
	return p.result
}

type parser struct {
	sourceFile string
	category   string
	current    *types.Record
	result     ParseResult
}

func (p *parser) line(line string) {
	switch {
	case strings.HasPrefix(line, "### "):
		p.flush()
		p.current = &types.Record{
			Title:      strings.TrimSpace(line[4:]),
			Category:   p.category,
			SourceFile: p.sourceFile,
		}

	case strings.HasPrefix(line, "## "):
		p.flush()
		m := categoryHeader.FindStringSubmatch(line)
		name := ""
		if m != nil {
			name = strings.TrimSpace(m[1])
		}
		if strings.EqualFold(name, "summary") {
			name = ""
		}
		p.category = name

	case strings.HasPrefix(line, "# "):
		p.flush()
		p.category = ""

	case p.current == nil:
		// Preamble text outside any record.

	default:
		p.field(line)
	}
}

func (p *parser) field(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	if m := fieldLine.FindStringSubmatch(trimmed); m != nil {
		value := strings.TrimSpace(m[2])
		switch strings.ToLower(strings.TrimSpace(m[1])) {
		case "authors":
			p.current.Authors = value
		case "doi":
			p.current.Identifier = value
		case "trl":
			p.current.TRL = value
		case "keywords":
			p.current.Keywords = value
		case "summary":
			p.current.Summary = value
		}
		return
	}

	if strings.HasPrefix(trimmed, "**") || strings.HasPrefix(trimmed, "|") || trimmed == "---" {
		return
	}
	if p.current.Summary == "" {
		p.current.Summary = trimmed
		return
	}
	p.current.Summary += " " + trimmed
}

// flush emits the open record when it is usable and counts it as dropped
// otherwise.
func (p *parser) flush() {
	rec := p.current
	p.current = nil
	if rec == nil {
		return
	}
	if rec.Title == "" || strings.TrimSpace(rec.Identifier) == "" {
		p.result.Dropped++
		return
	}
	if rec.Category == "" {
		rec.Category = Categorize(rec.Title, rec.Keywords)
	}
	p.result.Records = append(p.result.Records, *rec)
}
