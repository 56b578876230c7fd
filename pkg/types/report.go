// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunSummary holds the aggregate counts of one pipeline run.
type RunSummary struct {
	Total     int `json:"total"`
	Verified  int `json:"verified"`
	Fake      int `json:"fake"`
	Preprints int `json:"preprints"`
	Errors    int `json:"errors"`
	Invalid   int `json:"invalid"`
	Repaired  int `json:"repaired"`
	Rechecked int `json:"rechecked"`
}

// FileSummary records what happened to one archive file.
type FileSummary struct {
	File     string `json:"file"`
	Skipped  bool   `json:"skipped,omitempty"`
	Verified int    `json:"verified"`
	Recheck  int    `json:"recheck"`
	Removed  int    `json:"removed"`
}

// FileError records an archive file that could not be processed.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// RunReport is the derived, non-authoritative summary written once per run.
// Repaired records also appear in VerifiedPapers.
type RunReport struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Summary RunSummary `json:"summary"`

	FakePapers     []Record `json:"fake_papers"`
	VerifiedPapers []Record `json:"verified_papers"`
	Preprints      []Record `json:"preprints"`
	Errors         []Record `json:"errors"`
	InvalidPapers  []Record `json:"invalid_papers"`
	RepairedPapers []Record `json:"repaired_papers"`

	Files      []FileSummary `json:"files"`
	FileErrors []FileError   `json:"file_errors,omitempty"`
}

// NewRunReport returns an empty report with non-nil buckets so the JSON
// form always carries arrays.
func NewRunReport(runID string, at time.Time) RunReport {
	return RunReport{
		RunID:          runID,
		GeneratedAt:    at,
		FakePapers:     []Record{},
		VerifiedPapers: []Record{},
		Preprints:      []Record{},
		Errors:         []Record{},
		InvalidPapers:  []Record{},
		RepairedPapers: []Record{},
		Files:          []FileSummary{},
	}
}

// Add counts a classified record and files it into its bucket. Records
// without a status are ignored.
func (r *RunReport) Add(rec Record) {
	switch rec.Status {
	case StatusVerified:
		r.Summary.Verified++
		r.VerifiedPapers = append(r.VerifiedPapers, rec)
		if rec.Repaired {
			r.Summary.Repaired++
			r.RepairedPapers = append(r.RepairedPapers, rec)
		}
	case StatusFake:
		r.Summary.Fake++
		r.FakePapers = append(r.FakePapers, rec)
	case StatusPreprint:
		r.Summary.Preprints++
		r.Preprints = append(r.Preprints, rec)
	case StatusError:
		r.Summary.Errors++
		r.Errors = append(r.Errors, rec)
	case StatusInvalid:
		r.Summary.Invalid++
		r.InvalidPapers = append(r.InvalidPapers, rec)
	default:
		return
	}
	r.Summary.Total++
}

// Removed returns the fake and invalid records, the ones excluded from archives.
func (r RunReport) Removed() []Record {
	out := make([]Record, 0, len(r.FakePapers)+len(r.InvalidPapers))
	out = append(out, r.FakePapers...)
	return append(out, r.InvalidPapers...)
}
