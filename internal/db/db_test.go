package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testDB opens a database against TEST_DATABASE_URL, skipping the test
// when it is unset. These are integration tests: pgx has no in-memory
// mode, unlike the teacher's SQLite store, so exercising Migrate/Reset
// and the query layer needs a real Postgres instance.
func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	ctx := context.Background()
	d, err := Open(ctx, url)
	require.NoError(t, err)
	require.NoError(t, d.Reset(ctx))
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrate_Idempotent(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	require.NoError(t, d.Migrate(ctx))

	var version int
	require.NoError(t, d.pool.QueryRow(ctx, "SELECT version FROM schema_version").Scan(&version))
	require.Equal(t, 1, version)
}

func TestLogRunEvent_GetRunHistory(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	runID := uuid.NewString()

	require.NoError(t, d.LogRunEvent(ctx, runID, 1, "run_started", "context", 1, "starting run"))
	require.NoError(t, d.LogRunEvent(ctx, runID, 1, "stage_completed", "context", 1, "context bundled"))
	require.NoError(t, d.LogRunEvent(ctx, runID, 2, "run_started", "context", 1, "issue 2"))

	history, err := d.GetRunHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "stage_completed", history[0].Event)
	require.Equal(t, "run_started", history[1].Event)

	history2, err := d.GetRunHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history2, 1)
}

func TestLogCheckRun_GetCheckRuns(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	runID := uuid.NewString()

	require.NoError(t, d.LogCheckRun(ctx, runID, 1, "tester", 1, "lint", true, false, 0, 1500, "all passed", ""))
	require.NoError(t, d.LogCheckRun(ctx, runID, 1, "tester", 1, "test", false, false, 1, 5000, "3 failed", "test_foo.go:12"))

	runs, err := d.GetCheckRuns(ctx, 1, "tester")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "lint", runs[0].CheckName)
	require.True(t, runs[0].Passed)
	require.Equal(t, "test", runs[1].CheckName)
	require.False(t, runs[1].Passed)
	require.Equal(t, 1, runs[1].ExitCode)
	require.Equal(t, 5000, runs[1].DurationMs)
}

func TestGetLatestCheckRun(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	runID := uuid.NewString()

	require.NoError(t, d.LogCheckRun(ctx, runID, 1, "tester", 1, "lint", false, false, 1, 1000, "failed", "err1"))
	require.NoError(t, d.LogCheckRun(ctx, runID, 1, "tester", 2, "lint", true, true, 0, 900, "passed", ""))

	run, err := d.GetLatestCheckRun(ctx, 1, "lint")
	require.NoError(t, err)
	require.NotNil(t, run)
	require.True(t, run.Passed)
	require.Equal(t, 2, run.Attempt)

	run2, err := d.GetLatestCheckRun(ctx, 1, "nonexistent")
	require.NoError(t, err)
	require.Nil(t, run2)
}

func TestLogGateResult_GetGateResults(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	runID := uuid.NewString()

	require.NoError(t, d.LogGateResult(ctx, runID, 1, "context", true, ""))
	require.NoError(t, d.LogGateResult(ctx, runID, 1, "validation", false, "forbidden placeholder"))

	results, err := d.GetGateResults(ctx, runID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "context", results[0].Gate)
	require.True(t, results[0].Passed)
	require.Equal(t, "validation", results[1].Gate)
	require.False(t, results[1].Passed)
	require.Equal(t, "forbidden placeholder", results[1].Reason)
}

func TestMultipleIssuesIsolation(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	d.LogCheckRun(ctx, uuid.NewString(), 10, "tester", 1, "lint", true, false, 0, 100, "", "")
	d.LogCheckRun(ctx, uuid.NewString(), 20, "tester", 1, "test", false, false, 1, 200, "", "")

	runs10, _ := d.GetCheckRuns(ctx, 10, "tester")
	runs20, _ := d.GetCheckRuns(ctx, 20, "tester")
	require.Len(t, runs10, 1)
	require.Equal(t, "lint", runs10[0].CheckName)
	require.Len(t, runs20, 1)
	require.Equal(t, "test", runs20[0].CheckName)
}
