// Package audit records a history of checker runs to a local SQLite
// database, so an operator can later ask "when did this image last fail
// its boot gate" without re-running the checker. It is pure bookkeeping:
// nothing in pkg/fsck depends on it, and a failure here is always logged
// as a warning rather than escalated to a run failure.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Record is one completed run, as written to history.
type Record struct {
	RunID         string
	Device        string
	Variant       string
	StartedAt     time.Time
	Changed       bool
	Uncorrectable bool
	ExitCode      int
	Directories   int
	Files         int
}

// Store is a handle to the history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the runs table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	device         TEXT NOT NULL,
	variant        TEXT NOT NULL,
	started_at     TEXT NOT NULL,
	changed        INTEGER NOT NULL,
	uncorrectable  INTEGER NOT NULL,
	exit_code      INTEGER NOT NULL,
	directories    INTEGER NOT NULL,
	files          INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes one run record. The table is append-only: existing rows
// are never updated or deleted by this package.
func (s *Store) Append(r Record) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, device, variant, started_at, changed, uncorrectable, exit_code, directories, files)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Device, r.Variant, r.StartedAt.Format(time.RFC3339),
		boolToInt(r.Changed), boolToInt(r.Uncorrectable), r.ExitCode, r.Directories, r.Files,
	)
	if err != nil {
		return fmt.Errorf("appending run record: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent records for device, newest first.
func (s *Store) Recent(device string, limit int) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT run_id, device, variant, started_at, changed, uncorrectable, exit_code, directories, files
		 FROM runs WHERE device = ? ORDER BY started_at DESC LIMIT ?`,
		device, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var started string
		var changed, uncorrectable int
		if err := rows.Scan(&r.RunID, &r.Device, &r.Variant, &started, &changed, &uncorrectable, &r.ExitCode, &r.Directories, &r.Files); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.Changed = changed != 0
		r.Uncorrectable = uncorrectable != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
