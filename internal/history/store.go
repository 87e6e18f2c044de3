// Package history persists completed flow runs to a local SQLite
// database, backing the "flowctl history" subcommand. flowctl run opens
// it only after the flow finishes and reports any failure here as a
// warning, never fatal: a run that cannot be recorded is still a run
// that happened. The history subcommand returns these errors as-is.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps a *sql.DB opened against the sqlite3 driver. The pool is
// capped at one open connection: flowctl writes to it only once,
// synchronously, after the single-threaded core loop finishes, so no
// concurrent writer is possible by construction.
type Store struct {
	db *sql.DB
}

// Open creates the database file's parent directory if needed, opens
// the sqlite3 connection, and applies the embedded schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create history db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts the run row and every task row inside one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run RunRecord, tasks []TaskRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, flow_id, job_name, started_at, finished_at, duration_ms, final_state, total_tasks, failed_tasks, log_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.FlowID, run.JobName, run.StartedAt.Format(timeLayout), run.FinishedAt.Format(timeLayout),
		run.DurationMs, run.FinalState, run.TotalTasks, run.FailedTasks, run.LogDir,
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}

	for _, task := range tasks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_tasks (run_id, command_id, focus_id, is_hook, exit_code, aborted, duration_ms, started_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			task.RunID, task.CommandID, task.FocusID, task.IsHook, task.ExitCode, task.Aborted,
			task.DurationMs, task.StartedAt.Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert task record: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, capped at limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flow_id, job_name, started_at, finished_at, duration_ms, final_state, total_tasks, failed_tasks, log_dir
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunDetail returns one run and its per-task rows.
func (s *Store) RunDetail(ctx context.Context, runID string) (*RunRecord, []TaskRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, flow_id, job_name, started_at, finished_at, duration_ms, final_state, total_tasks, failed_tasks, log_dir
		FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, nil, fmt.Errorf("query run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, command_id, focus_id, is_hook, exit_code, aborted, duration_ms, started_at
		FROM run_tasks WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("query run tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var t TaskRecord
		var startedAt string
		if err := rows.Scan(&t.RunID, &t.CommandID, &t.FocusID, &t.IsHook, &t.ExitCode, &t.Aborted, &t.DurationMs, &startedAt); err != nil {
			return nil, nil, fmt.Errorf("scan run task: %w", err)
		}
		t.StartedAt = parseTime(startedAt)
		tasks = append(tasks, t)
	}
	return &run, tasks, rows.Err()
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// scanner is the common subset of *sql.Row and *sql.Rows this package
// needs, letting ListRuns and RunDetail share one row-to-RunRecord mapping.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var run RunRecord
	var startedAt, finishedAt string
	err := s.Scan(&run.ID, &run.FlowID, &run.JobName, &startedAt, &finishedAt,
		&run.DurationMs, &run.FinalState, &run.TotalTasks, &run.FailedTasks, &run.LogDir)
	if err != nil {
		return RunRecord{}, err
	}
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	return run, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
