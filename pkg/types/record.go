// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the archive-verify pipeline:
// parsed archive records, their verification outcome, the run report, and the
// per-stage configuration.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the verification outcome of a single record.
type Status string

const (
	// StatusVerified means the registry confirmed the identifier.
	StatusVerified Status = "VERIFIED"

	// StatusFake means the registry affirmatively reported the identifier as unknown.
	StatusFake Status = "FAKE"

	// StatusPreprint means the identifier belongs to a preprint server and was
	// accepted without a registry lookup.
	StatusPreprint Status = "PREPRINT"

	// StatusInvalid means the identifier was empty or a placeholder after
	// normalization. Invalid records never reach the registry.
	StatusInvalid Status = "INVALID"

	// StatusError means the lookup was inconclusive (timeout, transport failure,
	// unexpected status). It is never evidence of non-existence.
	StatusError Status = "ERROR"
)

// Survives reports whether a record with this status is kept in the
// verified section of a rewritten archive.
func (s Status) Survives() bool {
	return s == StatusVerified || s == StatusPreprint
}

// Removable reports whether a record with this status is dropped from the
// archive. Only affirmative non-existence or an unusable identifier qualify.
func (s Status) Removable() bool {
	return s == StatusFake || s == StatusInvalid
}

// Symbol returns the console progress marker for the status.
func (s Status) Symbol() string {
	switch s {
	case StatusVerified:
		return "✓"
	case StatusFake:
		return "✗ FAKE"
	case StatusPreprint:
		return "~ preprint"
	case StatusInvalid:
		return "✗ invalid"
	case StatusError:
		return "? error"
	default:
		return "?"
	}
}

// Details carries the verification payload. A verified record holds the
// registry's own title and up to three author names; every other outcome
// holds a human-readable Message.
//
// On the wire Details is either a JSON string (the message) or an object
// {"real_title": ..., "real_authors": [...]}.
type Details struct {
	RegistryTitle   string
	RegistryAuthors []string
	Message         string
}

// HasRegistryData reports whether the registry supplied a title or authors.
func (d *Details) HasRegistryData() bool {
	return d != nil && (d.RegistryTitle != "" || len(d.RegistryAuthors) > 0)
}

type registryPayload struct {
	RealTitle   string   `json:"real_title"`
	RealAuthors []string `json:"real_authors"`
}

// MarshalJSON implements json.Marshaler.
func (d Details) MarshalJSON() ([]byte, error) {
	if d.HasRegistryData() {
		authors := d.RegistryAuthors
		if authors == nil {
			authors = []string{}
		}
		return json.Marshal(registryPayload{RealTitle: d.RegistryTitle, RealAuthors: authors})
	}
	return json.Marshal(d.Message)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Details) UnmarshalJSON(data []byte) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		*d = Details{Message: msg}
		return nil
	}
	var p registryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("verification details: %w", err)
	}
	*d = Details{RegistryTitle: p.RealTitle, RegistryAuthors: p.RealAuthors}
	return nil
}

// Record is one bibliographic entry parsed from an archive file.
type Record struct {
	// Title is the entry title from the "### " header line.
	Title string `json:"title"`

	// Authors is the author line as written in the archive, usually
	// "; " or ", " separated.
	Authors string `json:"authors"`

	// Identifier is the registry identifier (a DOI). The parser stores the raw
	// value; the pipeline replaces it with the normalized form.
	Identifier string `json:"doi"`

	// Category is the grouping label active where the record appeared.
	Category string `json:"category"`

	// SourceFile is the base name of the archive file the record came from.
	SourceFile string `json:"source_file"`

	// TRL is the free-text technology readiness level.
	TRL string `json:"trl,omitempty"`

	// Keywords is the comma-separated keyword line.
	Keywords string `json:"keywords,omitempty"`

	// Summary is the optional narrative, with continuation lines joined by spaces.
	Summary string `json:"summary,omitempty"`

	// Status is empty until the record has been evaluated.
	Status Status `json:"verification_status,omitempty"`

	Details *Details `json:"verification_details,omitempty"`

	// Repaired is set when the identifier was replaced by a successful repair.
	Repaired bool `json:"repaired,omitempty"`

	// OriginalIdentifier holds the identifier a repair replaced.
	OriginalIdentifier string `json:"original_doi,omitempty"`
}

// AuthorList splits the author line into names. Semicolons take precedence
// over commas as separators.
func (r Record) AuthorList() []string {
	return splitList(r.Authors, ";", ",")
}

// KeywordList splits the keyword line on commas.
func (r Record) KeywordList() []string {
	return splitList(r.Keywords, ",")
}

// Key returns the case-insensitive identity used to match records across
// passes and files.
func (r Record) Key() string {
	return strings.ToLower(strings.TrimSpace(r.Identifier))
}

// SetOutcome records a verification result on the record.
func (r *Record) SetOutcome(status Status, details Details) {
	r.Status = status
	d := details
	r.Details = &d
}

// ErrorMessage returns the detail message for non-verified outcomes.
func (r Record) ErrorMessage() string {
	if r.Details == nil {
		return ""
	}
	return r.Details.Message
}

func splitList(s string, seps ...string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, sep := range seps {
		if !strings.Contains(s, sep) {
			continue
		}
		var out []string
		for _, part := range strings.Split(s, sep) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return []string{s}
}
