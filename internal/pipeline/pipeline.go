// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences parsing, verification, repair and rewriting
// over every archive file in a directory and produces the run report.
//
// Files are processed one at a time in lexicographic order. Records whose
// lookup was inconclusive are kept in the rewritten file under a re-check
// section and stored in the ledger; every run first retries them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/archive-verify/internal/archive"
	"github.com/pdiddy/archive-verify/internal/doi"
	"github.com/pdiddy/archive-verify/internal/ledger"
	"github.com/pdiddy/archive-verify/internal/verify"
	"github.com/pdiddy/archive-verify/pkg/types"
)

// LockFile is created in the archive directory for the duration of a run.
const LockFile = ".archive-verify.lock"

var (
	// ErrLocked is returned when another run holds the archive directory.
	ErrLocked = errors.New("archive directory is locked by another run")

	// ErrNoRecords marks a raw archive without any record header. Such a
	// file is left untouched.
	ErrNoRecords = errors.New("no record headers found")
)

// Verifier classifies one identifier.
type Verifier interface {
	Verify(ctx context.Context, id string) verify.Result
}

// Repairer repairs a Fake or Invalid record in place.
type Repairer interface {
	Apply(ctx context.Context, rec *types.Record) bool
}

// Ledger stores records awaiting a re-check.
type Ledger interface {
	Put(ctx context.Context, rec types.Record, at time.Time) error
	Pending(ctx context.Context) ([]ledger.Entry, error)
	Resolve(ctx context.Context, sourceFile, identifier string) error
}

// Pipeline runs the verification pass over an archive directory.
type Pipeline struct {
	cfg      types.PipelineConfig
	verifier Verifier
	repairer Repairer
	ledger   Ledger
	logger   *zap.Logger
	out      io.Writer
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLedger enables the re-check ledger.
func WithLedger(l Ledger) Option {
	return func(p *Pipeline) {
		p.ledger = l
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithOutput sets where console progress is written.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		p.out = w
	}
}

// WithClock overrides the time source used for dates in rewritten files.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a Pipeline. repairer may be nil to skip repair.
func New(cfg types.PipelineConfig, v Verifier, repairer Repairer, opts ...Option) *Pipeline {
	if cfg.FilePattern == "" {
		cfg.FilePattern = types.DefaultFilePattern
	}
	p := &Pipeline{
		cfg:      cfg,
		verifier: v,
		repairer: repairer,
		logger:   zap.NewNop(),
		out:      io.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run re-checks pending ledger entries, then processes every raw archive.
// Per-file failures are recorded in the report and do not stop the run.
func (p *Pipeline) Run(ctx context.Context) (types.RunReport, error) {
	return p.locked(ctx, true)
}

// Recheck only retries pending ledger entries.
func (p *Pipeline) Recheck(ctx context.Context) (types.RunReport, error) {
	return p.locked(ctx, false)
}

func (p *Pipeline) locked(ctx context.Context, processFiles bool) (types.RunReport, error) {
	report := types.NewRunReport(uuid.NewString(), p.now())

	lock := flock.New(filepath.Join(p.cfg.ArchiveDir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("locking archive directory: %w", err)
	}
	if !ok {
		return report, ErrLocked
	}
	defer lock.Unlock()

	p.logger.Info("run started",
		zap.String("run_id", report.RunID),
		zap.String("archive_dir", p.cfg.ArchiveDir),
		zap.Bool("dry_run", p.cfg.DryRun),
	)

	if err := p.recheck(ctx, &report); err != nil {
		return report, err
	}

	if processFiles {
		paths, err := archive.ListArchives(p.cfg.ArchiveDir, p.cfg.FilePattern)
		if err != nil {
			return report, err
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := p.processFile(ctx, path, &report); err != nil {
				name := filepath.Base(path)
				fmt.Fprintf(p.out, "failed:  %s (%v)\n", name, err)
				p.logger.Warn("archive skipped", zap.String("file", name), zap.Error(err))
				report.FileErrors = append(report.FileErrors, types.FileError{File: name, Error: err.Error()})
			}
		}
	}

	p.printSummary(report)
	p.logger.Info("run finished",
		zap.String("run_id", report.RunID),
		zap.Int("total", report.Summary.Total),
		zap.Int("verified", report.Summary.Verified),
		zap.Int("fake", report.Summary.Fake),
		zap.Int("errors", report.Summary.Errors),
	)
	return report, nil
}

// processFile classifies and rewrites one raw archive. A cleaned archive
// is skipped.
func (p *Pipeline) processFile(ctx context.Context, path string, report *types.RunReport) error {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	parsed := archive.Parse(string(data), name)
	if parsed.Skipped {
		fmt.Fprintf(p.out, "skipped: %s (already cleaned)\n", name)
		report.Files = append(report.Files, types.FileSummary{File: name, Skipped: true})
		return nil
	}
	if len(parsed.Records) == 0 && parsed.Dropped == 0 {
		return ErrNoRecords
	}
	if parsed.Dropped > 0 {
		p.logger.Info("records without identifier dropped", zap.String("file", name), zap.Int("count", parsed.Dropped))
	}

	fmt.Fprintf(p.out, "\nProcessing %s (%d records)\n", name, len(parsed.Records))
	recs := parsed.Records
	for i := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.classify(ctx, &recs[i])
		fmt.Fprintf(p.out, "  [%d/%d] %s... %s\n", i+1, len(recs), shorten(recs[i].Title, 60), recs[i].Status.Symbol())
	}

	outcome := archive.NewFileOutcome(name, recs)
	now := p.now()
	if err := p.track(ctx, outcome.Recheck, now); err != nil {
		return err
	}

	if !p.cfg.DryRun {
		if err := archive.WriteAtomic(path, archive.Render(outcome, now)); err != nil {
			return fmt.Errorf("rewriting archive: %w", err)
		}
	}

	for _, r := range recs {
		report.Add(r)
	}
	report.Files = append(report.Files, types.FileSummary{
		File:     name,
		Verified: len(outcome.Verified),
		Recheck:  len(outcome.Recheck),
		Removed:  len(outcome.Removed),
	})
	fmt.Fprintf(p.out, "  %s: %d verified, %d re-check, %d removed\n",
		name, len(outcome.Verified), len(outcome.Recheck), len(outcome.Removed))
	return nil
}

// classify normalizes, verifies and, for Fake or Invalid outcomes, tries
// to repair one record.
func (p *Pipeline) classify(ctx context.Context, rec *types.Record) {
	rec.Identifier = doi.Normalize(rec.Identifier)
	res := p.verifier.Verify(ctx, rec.Identifier)
	rec.SetOutcome(res.Status, res.Details)

	if rec.Status.Removable() && p.repairer != nil {
		p.repairer.Apply(ctx, rec)
	}
	p.logger.Debug("record classified",
		zap.String("file", rec.SourceFile),
		zap.String("doi", rec.Identifier),
		zap.String("status", string(rec.Status)),
		zap.Bool("repaired", rec.Repaired),
	)
}

// track stores inconclusive records in the ledger, one entry per
// identifier. A dry run leaves the ledger alone since the archive keeps its
// raw form.
func (p *Pipeline) track(ctx context.Context, recs []types.Record, at time.Time) error {
	if p.ledger == nil || p.cfg.DryRun {
		return nil
	}
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		if err := p.ledger.Put(ctx, r, at); err != nil {
			return fmt.Errorf("recording re-check entry: %w", err)
		}
	}
	return nil
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
