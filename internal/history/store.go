// Package history persists benchmark outcomes to SQLite so runs can be
// compared over time.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Attempt is one model/challenge outcome within a run.
type Attempt struct {
	ID            int64
	RunID         string
	Challenge     string
	Model         string
	APISuccess    bool
	RenderSuccess bool
	ErrorMessage  string
	RenderSecs    float64
	CreatedAt     time.Time
}

// Run is the summary row for one benchmark invocation.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Models     []string
	Challenges []string
	Rendered   int
	Total      int
}

// Store manages the SQLite history database.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the history database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so the rest wait on locks instead of failing
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// execWithRetry retries a statement with backoff on "database is locked"
// errors from concurrent openers.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// RecordRun inserts the run summary row.
func (s *Store) RecordRun(run Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, started_at, finished_at, models, challenges, rendered, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		strings.Join(run.Models, ","),
		strings.Join(run.Challenges, ","),
		run.Rendered,
		run.Total,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecordAttempt inserts one attempt row.
func (s *Store) RecordAttempt(a Attempt) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO attempts (run_id, challenge, model, api_success, render_success, error_message, render_secs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Challenge, a.Model, a.APISuccess, a.RenderSuccess, a.ErrorMessage, a.RenderSecs, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT run_id, started_at, finished_at, models, challenges, rendered, total
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var models, challenges string
		if err := rows.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &models, &challenges, &run.Rendered, &run.Total); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Models = splitList(models)
		run.Challenges = splitList(challenges)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Attempts returns every attempt recorded for a run.
func (s *Store) Attempts(runID string) ([]Attempt, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, challenge, model, api_success, render_success, error_message, render_secs, created_at
		FROM attempts WHERE run_id = ? ORDER BY challenge, model`, runID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.RunID, &a.Challenge, &a.Model, &a.APISuccess, &a.RenderSuccess, &a.ErrorMessage, &a.RenderSecs, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
