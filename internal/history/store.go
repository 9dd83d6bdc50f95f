// Package history keeps a SQLite log of verification runs.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Akanyi/AkayiRawjsonweb/internal/verify"
)

const schema = `
CREATE TABLE IF NOT EXISTS verification_runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	target_url  TEXT NOT NULL,
	driver      TEXT NOT NULL,
	success     BOOLEAN NOT NULL,
	failed_step TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_verification_runs_started_at ON verification_runs (started_at);
`

// Run is one stored verification run.
type Run struct {
	ID         string    `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	DurationMS int64     `db:"duration_ms"`
	TargetURL  string    `db:"target_url"`
	Driver     string    `db:"driver"`
	Success    bool      `db:"success"`
	FailedStep string    `db:"failed_step"`
	Error      string    `db:"error"`
}

// Store persists runs in SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the history database at path. ":memory:" is accepted.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores res.
func (s *Store) Record(ctx context.Context, res *verify.Result) error {
	run := Run{
		ID:         res.ID,
		StartedAt:  res.StartedAt.UTC(),
		DurationMS: res.Duration.Milliseconds(),
		TargetURL:  res.Target,
		Driver:     res.Driver,
		Success:    res.Success,
		FailedStep: res.FailedStep,
		Error:      Excerpt(res.Error, maxStoredError),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO verification_runs (id, started_at, duration_ms, target_url, driver, success, failed_step, error)
		VALUES (:id, :started_at, :duration_ms, :target_url, :driver, :success, :failed_step, :error)`, run)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", res.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, started_at, duration_ms, target_url, driver, success, failed_step, error
		FROM verification_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Stats summarizes stored runs.
type Stats struct {
	Total   int `db:"total"`
	Success int `db:"success"`
}

// Stats counts all runs and passing runs.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS success
		FROM verification_runs`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count runs: %w", err)
	}
	return st, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Handle records res; it lets the store act as a verify.Sink.
func (s *Store) Handle(ctx context.Context, res *verify.Result) error {
	return s.Record(ctx, res)
}
