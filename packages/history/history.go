// Package history records the outcome of every suitecast run in SQLite so
// trends and recoveries can be reported across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	suite       TEXT NOT NULL,
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	percentage  INTEGER NOT NULL,
	build_ok    INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	started_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// Run is one recorded run
type Run struct {
	ID         string
	Suite      string
	Total      int
	Passed     int
	Percentage int
	BuildOK    bool
	Duration   time.Duration
	StartedAt  time.Time
}

// Store persists runs
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens (and creates if needed) the history database at path. The
// "sqlite://" and "sqlite:" prefixes are accepted.
func Open(path string) (*Store, error) {
	dsn := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(path), "sqlite://"), "sqlite:")
	if dsn == "" {
		return nil, errors.New("history path is empty")
	}

	// Other processes may write the same file; wait for their locks
	if !strings.Contains(dsn, "_busy_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// Concurrent sessions share the store; SQLite allows a single writer
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores run, assigning an ID when it has none
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, suite, total, passed, percentage, build_ok, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Suite, run.Total, run.Passed, run.Percentage, run.BuildOK,
		run.Duration.Milliseconds(), run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// List returns the most recent runs first. A limit of zero or less returns all.
func (s *Store) List(ctx context.Context, suite string, limit int) ([]*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT id, suite, total, passed, percentage, build_ok, duration_ms, started_at FROM runs`
	var args []any
	if suite != "" {
		query += ` WHERE suite = ?`
		args = append(args, suite)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var durationMs int64
		if err := rows.Scan(&run.ID, &run.Suite, &run.Total, &run.Passed, &run.Percentage,
			&run.BuildOK, &durationMs, &run.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Last returns the most recent run of suite, or nil when there is none
func (s *Store) Last(ctx context.Context, suite string) (*Run, error) {
	runs, err := s.List(ctx, suite, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}
