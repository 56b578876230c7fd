// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists records whose verification was inconclusive so a
// later run can retry them. Entries are keyed by source file and the
// case-insensitive identifier, and leave the ledger only when Resolve is
// called after a conclusive outcome.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/archive-verify/pkg/types"
)

// Entry is one record awaiting a re-check.
type Entry struct {
	Record      types.Record
	Attempts    int
	LastError   string
	FirstSeen   time.Time
	LastChecked time.Time
}

// Ledger is the SQLite-backed re-check store.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path, creating its parent
// directory and schema as needed.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS recheck (
			source_file TEXT NOT NULL,
			doi_key TEXT NOT NULL,
			record TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 1,
			last_error TEXT,
			first_seen TEXT NOT NULL,
			last_checked TEXT NOT NULL,
			PRIMARY KEY (source_file, doi_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recheck_first_seen ON recheck(first_seen)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Put records rec as awaiting a re-check. A repeat Put for the same source
// file and identifier replaces the stored record and increments Attempts.
func (l *Ledger) Put(ctx context.Context, rec types.Record, at time.Time) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	ts := at.UTC().Format(time.RFC3339)

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO recheck (source_file, doi_key, record, attempts, last_error, first_seen, last_checked)
		 VALUES (?, ?, ?, 1, ?, ?, ?)
		 ON CONFLICT(source_file, doi_key) DO UPDATE SET
			record=excluded.record, attempts=recheck.attempts+1,
			last_error=excluded.last_error, last_checked=excluded.last_checked`,
		rec.SourceFile, rec.Key(), string(data), rec.ErrorMessage(), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("upserting re-check entry: %w", err)
	}
	return nil
}

// Pending returns every entry, ordered by source file then first sighting.
func (l *Ledger) Pending(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT record, attempts, COALESCE(last_error, ''), first_seen, last_checked
		 FROM recheck ORDER BY source_file, first_seen, doi_key`)
	if err != nil {
		return nil, fmt.Errorf("querying re-check entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			data, first, last string
		)
		if err := rows.Scan(&data, &e.Attempts, &e.LastError, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning re-check entry: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &e.Record); err != nil {
			return nil, fmt.Errorf("decoding re-check record: %w", err)
		}
		e.FirstSeen, _ = time.Parse(time.RFC3339, first)
		e.LastChecked, _ = time.Parse(time.RFC3339, last)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Resolve removes the entry for sourceFile and identifier. Resolving an
// unknown entry is not an error.
func (l *Ledger) Resolve(ctx context.Context, sourceFile, identifier string) error {
	key := types.Record{Identifier: identifier}.Key()
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM recheck WHERE source_file = ? AND doi_key = ?`, sourceFile, key,
	); err != nil {
		return fmt.Errorf("resolving re-check entry: %w", err)
	}
	return nil
}

// Count returns the number of pending entries.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT count(*) FROM recheck`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting re-check entries: %w", err)
	}
	return n, nil
}
