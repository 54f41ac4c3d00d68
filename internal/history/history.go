// Package history keeps a SQLite log of completed scans.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is one completed scan
type Run struct {
	ID        uuid.UUID
	Root      string
	Strategy  string
	StartedAt time.Time
	Duration  time.Duration
	Files     uint64
	Bytes     uint64
	Errors    int64
	Cancelled bool
}

// Store is the scan history database
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    root TEXT NOT NULL,
    strategy TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    files INTEGER NOT NULL,
    bytes INTEGER NOT NULL,
    errors INTEGER NOT NULL,
    cancelled INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS runs_root_started ON runs (root, started_at);
`

// Open opens or creates the database at dbPath
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	db.Exec(`PRAGMA journal_mode=WAL;`)
	db.Exec(`PRAGMA synchronous=NORMAL;`)
	db.Exec(`PRAGMA busy_timeout=5000;`)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores run, assigning an ID if it has none
func (s *Store) Record(run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	query := `
        INSERT INTO runs (id, root, strategy, started_at, duration_ms, files, bytes, errors, cancelled)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            duration_ms = excluded.duration_ms,
            files = excluded.files,
            bytes = excluded.bytes,
            errors = excluded.errors,
            cancelled = excluded.cancelled
    `
	_, err := s.db.Exec(query,
		run.ID.String(),
		run.Root,
		run.Strategy,
		run.StartedAt.UnixMilli(),
		run.Duration.Milliseconds(),
		int64(run.Files),
		int64(run.Bytes),
		run.Errors,
		run.Cancelled,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first. An empty root lists every
// root.
func (s *Store) List(root string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
        SELECT id, root, strategy, started_at, duration_ms, files, bytes, errors, cancelled
        FROM runs
        WHERE ? = '' OR root = ?
        ORDER BY started_at DESC
        LIMIT ?`, root, root, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id                   string
			run                  Run
			startedMs, duration  int64
			files, bytes, errors int64
			cancelled            bool
		)
		if err := rows.Scan(&id, &run.Root, &run.Strategy, &startedMs, &duration, &files, &bytes, &errors, &cancelled); err != nil {
			return nil, err
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad run id %q: %w", id, err)
		}
		run.StartedAt = time.UnixMilli(startedMs)
		run.Duration = time.Duration(duration) * time.Millisecond
		run.Files = uint64(files)
		run.Bytes = uint64(bytes)
		run.Errors = errors
		run.Cancelled = cancelled
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Latest returns the newest run for root, or nil if there is none
func (s *Store) Latest(root string) (*Run, error) {
	runs, err := s.List(root, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}
