package orchestrator

import (
	"fmt"
	"strings"

	"github.com/lucasnoah/polyagent/internal/gate"
)

// transcript accumulates each agent role's raw output across a run, plus
// the rendered requirement checklist, so a terminal plan file can be
// written on every exit path — successful or not — per §9's persisted
// state: "human-readable run report containing full agent outputs,
// structured-change record, gate outcomes, and (on success) the patch."
type transcript struct {
	RequirementsText string
	PM               string
	Auditor          string
	Architect        string
	Developer        string
	Reviewer         string
}

// Render produces the plan file's markdown body.
func (t *transcript) Render(issueNumber int, rs *gate.RunState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Issue #%d Run Report\n\n", issueNumber)
	fmt.Fprintf(&b, "Outcome: %s\n\n", outcomeLabel(rs))

	b.WriteString("## Requirements Checklist\n")
	if t.RequirementsText == "" {
		b.WriteString("(none extracted)\n")
	} else {
		b.WriteString(t.RequirementsText)
	}
	b.WriteString("\n")

	writeSection(&b, "Product Manager", t.PM)
	writeSection(&b, "Context Auditor", t.Auditor)
	writeSection(&b, "Software Architect", t.Architect)
	writeSection(&b, "Developer ChangeSet", t.Developer)
	writeSection(&b, "Reviewer", t.Reviewer)

	b.WriteString("## Gate Outcomes\n")
	fmt.Fprintf(&b, "- applied_ok: %t\n", rs.AppliedOK)
	fmt.Fprintf(&b, "- coverage_ok: %t\n", rs.CoverageOK)
	fmt.Fprintf(&b, "- did_commit: %t\n", rs.DidCommit)
	fmt.Fprintf(&b, "- did_push: %t\n", rs.DidPush)
	fmt.Fprintf(&b, "- did_move_done: %t\n", rs.DidMoveDone)
	if rs.HeadSHABefore != "" {
		fmt.Fprintf(&b, "- head_sha_before: %s\n", rs.HeadSHABefore)
	}
	if rs.HeadSHAAfter != "" {
		fmt.Fprintf(&b, "- head_sha_after: %s\n", rs.HeadSHAAfter)
	}
	if !rs.Missing.Empty() {
		fmt.Fprintf(&b, "- failed gate: %s (%s)\n", rs.Missing.FailureReason, rs.Missing.FailureSummary)
	}
	if len(rs.Errors) > 0 {
		b.WriteString("\n## Errors\n")
		for _, e := range rs.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return b.String()
}

func writeSection(b *strings.Builder, title, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n%s\n\n", title, content)
}

func outcomeLabel(rs *gate.RunState) string {
	if rs.CoverageOK {
		return "complete"
	}
	return "incomplete"
}
