package forge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lucasnoah/polyagent/internal/runner"
)

type mockCmd struct {
	lastArgs []string
	result   runner.CommandResult
	err      error
}

func (m *mockCmd) Run(ctx context.Context, cmd string, args []string, cwd string, timeout time.Duration) (runner.CommandResult, error) {
	m.lastArgs = args
	return m.result, m.err
}

func TestGetIssue(t *testing.T) {
	mock := &mockCmd{result: runner.CommandResult{
		Stdout: `{"number":42,"title":"Add Clear button","body":"## Acceptance Criteria\n- Add a Clear button","state":"open","labels":[{"name":"bug"}]}`,
	}}
	f := NewGitHubForge(mock, "owner/repo")

	issue, err := f.GetIssue(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issue.Number != 42 {
		t.Errorf("expected number=42, got %d", issue.Number)
	}
	if issue.Title != "Add Clear button" {
		t.Errorf("unexpected title: %q", issue.Title)
	}
	if len(issue.Labels) != 1 || issue.Labels[0].Name != "bug" {
		t.Errorf("unexpected labels: %+v", issue.Labels)
	}
}

func TestGetIssue_CommandError(t *testing.T) {
	mock := &mockCmd{err: fmt.Errorf("not found")}
	f := NewGitHubForge(mock, "owner/repo")

	if _, err := f.GetIssue(context.Background(), 99); err == nil {
		t.Fatal("expected error")
	}
}

func TestListOpenIssues(t *testing.T) {
	mock := &mockCmd{result: runner.CommandResult{
		Stdout: `[{"number":1,"title":"a"},{"number":2,"title":"b"}]`,
	}}
	f := NewGitHubForge(mock, "owner/repo")

	issues, err := f.ListOpenIssues(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
}

func TestListSubIssues_ParsesBodyReferences(t *testing.T) {
	f := NewGitHubForge(&mockCmd{}, "owner/repo")
	parent := &Issue{Number: 10, Body: "Blocked by #11 and #12. See also #10 (self) and #11 (dup)."}

	subs, err := f.ListSubIssues(context.Background(), parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs) != 2 || subs[0] != 11 || subs[1] != 12 {
		t.Errorf("expected [11 12], got %v", subs)
	}
}

func TestMoveColumn_Error(t *testing.T) {
	mock := &mockCmd{err: fmt.Errorf("label not found")}
	f := NewGitHubForge(mock, "owner/repo")

	if err := f.MoveColumn(context.Background(), 42, "Done"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractAcceptanceCriteria_FromHeader(t *testing.T) {
	body := "Some intro.\n\n## Acceptance Criteria\n- Add a 'Clear' button to the header\n- Button resets the form\n\n## Notes\nIgnored.\n"
	got := ExtractAcceptanceCriteria(body)
	if got == "" {
		t.Fatal("expected non-empty acceptance criteria")
	}
	if got == body {
		t.Error("expected section to be trimmed to AC block only")
	}
}

func TestExtractAcceptanceCriteria_FallsBackToCheckboxes(t *testing.T) {
	body := "- [ ] Add a Clear button\n- [x] Write tests\n"
	got := ExtractAcceptanceCriteria(body)
	if got != "- Add a Clear button\n- Write tests" {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractAcceptanceCriteria_EmptyWhenNeither(t *testing.T) {
	if got := ExtractAcceptanceCriteria("just prose, nothing structured"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
