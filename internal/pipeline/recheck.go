// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/archive-verify/internal/archive"
	"github.com/pdiddy/archive-verify/internal/ledger"
	"github.com/pdiddy/archive-verify/pkg/types"
)

// recheck retries every pending ledger entry. Entries that now resolve are
// moved out of the re-check section of their cleaned archive into the
// verified section or the removal table, and the archive is re-rendered.
// Entries that are still inconclusive stay pending.
func (p *Pipeline) recheck(ctx context.Context, report *types.RunReport) error {
	if p.ledger == nil {
		return nil
	}
	entries, err := p.ledger.Pending(ctx)
	if err != nil {
		return fmt.Errorf("loading re-check entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	fmt.Fprintf(p.out, "Re-checking %d inconclusive records\n", len(entries))
	var files []string
	byFile := make(map[string][]ledger.Entry)
	for _, e := range entries {
		f := e.Record.SourceFile
		if _, ok := byFile[f]; !ok {
			files = append(files, f)
		}
		byFile[f] = append(byFile[f], e)
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.recheckFile(ctx, name, byFile[name], report); err != nil {
			fmt.Fprintf(p.out, "failed:  re-check %s (%v)\n", name, err)
			p.logger.Warn("re-check skipped", zap.String("file", name), zap.Error(err))
			report.FileErrors = append(report.FileErrors, types.FileError{File: name, Error: err.Error()})
		}
	}
	return nil
}

func (p *Pipeline) recheckFile(ctx context.Context, name string, entries []ledger.Entry, report *types.RunReport) error {
	path := filepath.Join(p.cfg.ArchiveDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	cleaned, err := archive.ParseCleaned(string(data), name)
	if errors.Is(err, archive.ErrNotCleaned) {
		// Still raw, e.g. after a dry run; the file pass will handle it.
		return nil
	}
	if err != nil {
		return err
	}

	now := p.now()
	changed := false
	for _, e := range entries {
		key := e.Record.Key()
		var keep []types.Record
		var failing *types.Record
		matched := 0
		for _, rec := range cleaned.Recheck {
			if rec.Key() != key {
				keep = append(keep, rec)
				continue
			}
			matched++
			p.classify(ctx, &rec)
			report.Summary.Rechecked++
			report.Add(rec)
			fmt.Fprintf(p.out, "  re-check %s... %s\n", shorten(rec.Title, 60), rec.Status.Symbol())

			switch {
			case rec.Status == types.StatusError:
				keep = append(keep, rec)
				last := rec
				failing = &last
			case rec.Status.Survives():
				cleaned.Verified = append(cleaned.Verified, rec)
			default:
				cleaned.Removed = append(cleaned.Removed, rec)
			}
		}

		if matched == 0 {
			p.logger.Info("stale re-check entry", zap.String("file", name), zap.String("doi", e.Record.Identifier))
		} else {
			cleaned.Recheck = keep
			changed = true
		}
		if p.cfg.DryRun {
			continue
		}

		// One ledger row covers every copy of the identifier in the file;
		// it stays pending while any copy is still inconclusive.
		if failing != nil {
			if err := p.ledger.Put(ctx, *failing, now); err != nil {
				return fmt.Errorf("recording re-check entry: %w", err)
			}
			continue
		}
		if err := p.ledger.Resolve(ctx, name, e.Record.Identifier); err != nil {
			return err
		}
	}

	if changed && !p.cfg.DryRun {
		if err := archive.WriteAtomic(path, archive.Render(cleaned.Outcome(name), now)); err != nil {
			return fmt.Errorf("rewriting archive: %w", err)
		}
	}
	return nil
}
