package vcs

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lucasnoah/polyagent/internal/runner"
)

type mockCmd struct {
	calls   []mockCall
	results []mockResult
	idx     int
}

type mockCall struct {
	Args []string
}

type mockResult struct {
	Stdout   string
	ExitCode int
	Err      error
}

func (m *mockCmd) Run(ctx context.Context, cmd string, args []string, cwd string, timeout time.Duration) (runner.CommandResult, error) {
	m.calls = append(m.calls, mockCall{Args: args})
	if m.idx >= len(m.results) {
		return runner.CommandResult{}, nil
	}
	r := m.results[m.idx]
	m.idx++
	return runner.CommandResult{Stdout: r.Stdout, ExitCode: r.ExitCode}, r.Err
}

func assertArgs(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("expected args %v, got %v", want, got)
	}
}

func TestEnsureFeatureBranch_SwitchesOffProtected(t *testing.T) {
	cmd := &mockCmd{
		results: []mockResult{
			{Stdout: "main"},            // rev-parse --abbrev-ref HEAD
			{Stdout: "", ExitCode: 1, Err: fmt.Errorf("no such branch")}, // checkout existing fails
			{Stdout: ""},                // checkout -b
		},
	}
	g := New(cmd, "/repo")

	branch, err := EnsureFeatureBranch(context.Background(), g, 42, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if branch != "feature/issue-42" {
		t.Errorf("expected feature/issue-42, got %q", branch)
	}
	assertArgs(t, cmd.calls[2].Args, "checkout", "-b", "feature/issue-42")
}

func TestEnsureFeatureBranch_NoopOnFeatureBranch(t *testing.T) {
	cmd := &mockCmd{
		results: []mockResult{
			{Stdout: "feature/issue-7"},
		},
	}
	g := New(cmd, "/repo")

	branch, err := EnsureFeatureBranch(context.Background(), g, 7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if branch != "feature/issue-7" {
		t.Errorf("expected feature/issue-7, got %q", branch)
	}
	if len(cmd.calls) != 1 {
		t.Errorf("expected no branch switch, got %d calls", len(cmd.calls))
	}
}

func TestEnsureFeatureBranch_ReusesExistingBranch(t *testing.T) {
	cmd := &mockCmd{
		results: []mockResult{
			{Stdout: "master"},
			{Stdout: ""}, // checkout succeeds (branch already exists from a prior retry)
		},
	}
	g := New(cmd, "/repo")

	branch, err := EnsureFeatureBranch(context.Background(), g, 9, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if branch != "feature/issue-9" {
		t.Errorf("expected feature/issue-9, got %q", branch)
	}
	if len(cmd.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(cmd.calls))
	}
	assertArgs(t, cmd.calls[1].Args, "checkout", "feature/issue-9")
}

func TestCommit_SkipsWhenNothingStaged(t *testing.T) {
	cmd := &mockCmd{
		results: []mockResult{
			{Stdout: "abc123"}, // head_sha_before
			{Stdout: ""},       // add -A
			{Stdout: ""},       // diff --cached --name-only (empty)
		},
	}
	g := New(cmd, "/repo")

	result, err := Commit(context.Background(), g, "fix: issue 42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Committed {
		t.Error("expected Committed=false when nothing staged")
	}
	if result.HeadBefore != "abc123" || result.HeadAfter != "abc123" {
		t.Errorf("expected head unchanged, got before=%q after=%q", result.HeadBefore, result.HeadAfter)
	}
}

func TestCommit_HappyPath(t *testing.T) {
	cmd := &mockCmd{
		results: []mockResult{
			{Stdout: "abc123"},        // head_sha_before
			{Stdout: ""},              // add -A
			{Stdout: "main.js"},       // diff --cached --name-only (non-empty)
			{Stdout: ""},              // commit -m
			{Stdout: "def456"},        // head_sha_after
			{Stdout: "diff --git..."}, // diff abc123 def456
		},
	}
	g := New(cmd, "/repo")

	result, err := Commit(context.Background(), g, "fix: issue 42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Committed {
		t.Fatal("expected Committed=true")
	}
	if result.HeadBefore != "abc123" || result.HeadAfter != "def456" {
		t.Errorf("unexpected shas: before=%q after=%q", result.HeadBefore, result.HeadAfter)
	}
	if result.PatchText != "diff --git..." {
		t.Errorf("expected patch text to be captured, got %q", result.PatchText)
	}
}

func TestPush_RecordsFailureWithoutError(t *testing.T) {
	cmd := &mockCmd{
		results: []mockResult{
			{Err: fmt.Errorf("network unreachable")},
		},
	}
	g := New(cmd, "/repo")

	result := Push(context.Background(), g, "feature/issue-42")
	if result.Pushed {
		t.Error("expected Pushed=false")
	}
	if result.Err == nil {
		t.Error("expected Err to be recorded")
	}
}

func TestPush_Success(t *testing.T) {
	cmd := &mockCmd{
		results: []mockResult{
			{Stdout: ""},
		},
	}
	g := New(cmd, "/repo")

	result := Push(context.Background(), g, "feature/issue-42")
	if !result.Pushed {
		t.Error("expected Pushed=true")
	}
	if result.Err != nil {
		t.Errorf("expected no error, got %v", result.Err)
	}
}

func TestIssueBranch_Sanitizes(t *testing.T) {
	if got := IssueBranch(42); got != "feature/issue-42" {
		t.Errorf("expected feature/issue-42, got %q", got)
	}
}

func TestResetToCommit(t *testing.T) {
	cmd := &mockCmd{
		results: []mockResult{
			{Stdout: ""},
			{Stdout: ""},
		},
	}
	g := New(cmd, "/repo")

	if err := ResetToCommit(context.Background(), g, "abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertArgs(t, cmd.calls[0].Args, "reset", "--hard", "abc123")
	assertArgs(t, cmd.calls[1].Args, "clean", "-fd")
}
