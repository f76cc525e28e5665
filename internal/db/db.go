// Package db implements the run-event log: stage events, gate outcomes and
// check runs, keyed by run ID and issue number. The orchestrator writes
// gate outcomes and stage events here; the status and resume commands do
// not read it. It adapts the teacher's connection-and-migration idiom onto
// Postgres via pgx/v5, since a pipeline meant to run unattended against a
// shared team's issue queue benefits from a server rather than a SQLite
// file co-located with whichever machine happened to run it.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Open opens a connection pool against databaseURL and verifies
// connectivity with a ping.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases all pooled connections.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pool for advanced queries.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_events (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL,
    issue       INTEGER NOT NULL,
    event       TEXT NOT NULL,
    stage       TEXT,
    attempt     INTEGER,
    detail      TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_run_events_issue ON run_events(issue, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id, created_at);

CREATE TABLE IF NOT EXISTS check_runs (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL,
    issue       INTEGER NOT NULL,
    stage       TEXT NOT NULL,
    attempt     INTEGER NOT NULL,
    check_name  TEXT NOT NULL,
    passed      BOOLEAN NOT NULL,
    auto_fixed  BOOLEAN NOT NULL DEFAULT FALSE,
    exit_code   INTEGER,
    duration_ms INTEGER,
    summary     TEXT,
    findings    TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_check_runs_issue_stage ON check_runs(issue, stage, attempt);

CREATE TABLE IF NOT EXISTS gate_results (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL,
    issue       INTEGER NOT NULL,
    gate        TEXT NOT NULL,
    passed      BOOLEAN NOT NULL,
    reason      TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_gate_results_run ON gate_results(run_id, created_at);
`

// Migrate applies the schema, idempotently.
func (d *DB) Migrate(ctx context.Context) error {
	var count int
	err := d.pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, schemaV1); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit(ctx)
}

// Reset drops all tables and re-applies the schema. Intended for test
// fixtures and local development only.
func (d *DB) Reset(ctx context.Context) error {
	tables := []string{"gate_results", "check_runs", "run_events", "schema_version"}
	for _, t := range tables {
		if _, err := d.pool.Exec(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return d.Migrate(ctx)
}
