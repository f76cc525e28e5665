package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RunEvent represents a row in the run_events table: one stage transition
// or pipeline-level event for a run.
type RunEvent struct {
	ID        int64
	RunID     string
	Issue     int
	Event     string
	Stage     string
	Attempt   int
	Detail    string
	CreatedAt string
}

// CheckRun represents a row in the check_runs table.
type CheckRun struct {
	ID         int64
	RunID      string
	Issue      int
	Stage      string
	Attempt    int
	CheckName  string
	Passed     bool
	AutoFixed  bool
	ExitCode   int
	DurationMs int
	Summary    string
	Findings   string
	CreatedAt  string
}

// GateResult represents a row in the gate_results table.
type GateResult struct {
	ID        int64
	RunID     string
	Issue     int
	Gate      string
	Passed    bool
	Reason    string
	CreatedAt string
}

// LogRunEvent inserts a run-level event (stage started/completed, retry,
// committed, pushed, moved_done, ...).
func (d *DB) LogRunEvent(ctx context.Context, runID string, issue int, event, stage string, attempt int, detail string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO run_events (run_id, issue, event, stage, attempt, detail) VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, issue, event, stage, attempt, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// GetRunHistory returns all events for issue, most recent first.
func (d *DB) GetRunHistory(ctx context.Context, issue int) ([]RunEvent, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, run_id, issue, event, stage, attempt, detail, created_at
		 FROM run_events WHERE issue = $1 ORDER BY created_at DESC, id DESC`,
		issue,
	)
	if err != nil {
		return nil, fmt.Errorf("get run history: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var stage, detail *string
		var attempt *int
		if err := rows.Scan(&e.ID, &e.RunID, &e.Issue, &e.Event, &stage, &attempt, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		if stage != nil {
			e.Stage = *stage
		}
		if attempt != nil {
			e.Attempt = *attempt
		}
		if detail != nil {
			e.Detail = *detail
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LogCheckRun inserts a check run record.
func (d *DB) LogCheckRun(ctx context.Context, runID string, issue int, stage string, attempt int, checkName string, passed, autoFixed bool, exitCode, durationMs int, summary, findings string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO check_runs (run_id, issue, stage, attempt, check_name, passed, auto_fixed, exit_code, duration_ms, summary, findings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		runID, issue, stage, attempt, checkName, passed, autoFixed, exitCode, durationMs, summary, findings,
	)
	if err != nil {
		return fmt.Errorf("log check run: %w", err)
	}
	return nil
}

// GetCheckRuns returns check runs for an issue and stage, in insertion order.
func (d *DB) GetCheckRuns(ctx context.Context, issue int, stage string) ([]CheckRun, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, run_id, issue, stage, attempt, check_name, passed, auto_fixed, exit_code, duration_ms, summary, findings, created_at
		 FROM check_runs WHERE issue = $1 AND stage = $2 ORDER BY id`,
		issue, stage,
	)
	if err != nil {
		return nil, fmt.Errorf("get check runs: %w", err)
	}
	defer rows.Close()
	return scanCheckRuns(rows)
}

// GetLatestCheckRun returns the most recent check run for an issue and check name.
func (d *DB) GetLatestCheckRun(ctx context.Context, issue int, checkName string) (*CheckRun, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, run_id, issue, stage, attempt, check_name, passed, auto_fixed, exit_code, duration_ms, summary, findings, created_at
		 FROM check_runs WHERE issue = $1 AND check_name = $2 ORDER BY id DESC LIMIT 1`,
		issue, checkName,
	)
	var r CheckRun
	err := row.Scan(&r.ID, &r.RunID, &r.Issue, &r.Stage, &r.Attempt, &r.CheckName, &r.Passed, &r.AutoFixed, &r.ExitCode, &r.DurationMs, &r.Summary, &r.Findings, &r.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest check run: %w", err)
	}
	return &r, nil
}

// LogGateResult inserts a gate outcome record.
func (d *DB) LogGateResult(ctx context.Context, runID string, issue int, gate string, passed bool, reason string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO gate_results (run_id, issue, gate, passed, reason) VALUES ($1, $2, $3, $4, $5)`,
		runID, issue, gate, passed, reason,
	)
	if err != nil {
		return fmt.Errorf("log gate result: %w", err)
	}
	return nil
}

// GetGateResults returns gate outcomes for a run, in order.
func (d *DB) GetGateResults(ctx context.Context, runID string) ([]GateResult, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, run_id, issue, gate, passed, reason, created_at
		 FROM gate_results WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get gate results: %w", err)
	}
	defer rows.Close()

	var results []GateResult
	for rows.Next() {
		var r GateResult
		var reason *string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Issue, &r.Gate, &r.Passed, &reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gate result: %w", err)
		}
		if reason != nil {
			r.Reason = *reason
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanCheckRuns(rows pgx.Rows) ([]CheckRun, error) {
	var runs []CheckRun
	for rows.Next() {
		var r CheckRun
		if err := rows.Scan(&r.ID, &r.RunID, &r.Issue, &r.Stage, &r.Attempt, &r.CheckName, &r.Passed, &r.AutoFixed, &r.ExitCode, &r.DurationMs, &r.Summary, &r.Findings, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan check run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
