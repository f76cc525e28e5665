// Package summary implements the Summary Emitter (§4.8): a two-section
// report, local changes and forge/git operations, with every claim keyed
// to a RunState boolean rather than assumed from the stage that produced
// it. Grounded in the teacher's text/tabwriter status rendering idiom
// (internal/cli/status.go), generalized from a multi-pipeline table to a
// single-run narrative report.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lucasnoah/polyagent/internal/gate"
	"github.com/lucasnoah/polyagent/internal/runner"
)

// Report is the rendered two-section summary plus the booleans it was
// keyed to, so a caller can also make an exit-code decision from it.
type Report struct {
	Text       string
	CoverageOK bool
}

// Render produces the summary for one completed RunState. workDir and cmd
// are used only to confirm the local section's "files actually changed"
// claim against git rather than trusting AppliedOK alone: the files of the
// run's commit (`git diff --name-only HEAD~1 HEAD`) when DidCommit is set,
// otherwise the uncommitted working tree (`git diff --name-only HEAD`) — a
// gate can mark AppliedOK and still leave a tree with nothing staged if
// every change was a no-op upsert.
func Render(issue int, rs *gate.RunState, workDir string, cmd runner.CommandRunner) Report {
	var b strings.Builder

	fmt.Fprintf(&b, "Issue #%d: %s\n\n", issue, headline(rs))

	b.WriteString("## Local implementation and testing\n")
	if !rs.AppliedOK {
		b.WriteString("No changes were applied to the working tree.\n")
	} else {
		changed := changedFiles(workDir, cmd, rs.DidCommit)
		if len(changed) == 0 {
			b.WriteString("Changes were applied, but the working tree shows no diff from HEAD.\n")
		} else {
			fmt.Fprintf(&b, "%d file(s) changed:\n", len(changed))
			for _, f := range changed {
				fmt.Fprintf(&b, "- %s\n", f)
			}
		}
	}
	if !rs.CoverageOK {
		b.WriteString("Coverage and requirements checks did not pass; the run is incomplete.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Forge and git operations\n")
	writeBoolClaim(&b, rs.DidCommit, "Committed to branch "+orUnknown(rs.CurrentBranch), "No commit was made.")
	if rs.DidCommit {
		fmt.Fprintf(&b, "  head_sha_before=%s head_sha_after=%s\n", orUnknown(rs.HeadSHABefore), orUnknown(rs.HeadSHAAfter))
	}
	writeBoolClaim(&b, rs.DidPush, "Pushed to origin.", "Not pushed.")
	writeBoolClaim(&b, rs.DidMoveDone, "Board moved to Done.", "Board was not moved to Done.")

	if len(rs.Errors) > 0 {
		b.WriteString("\n## Errors\n")
		for _, e := range rs.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return Report{Text: b.String(), CoverageOK: rs.CoverageOK}
}

func headline(rs *gate.RunState) string {
	if rs.CoverageOK {
		return "complete"
	}
	if !rs.Missing.Empty() || rs.Missing.FailureReason != "" {
		return fmt.Sprintf("incomplete (%s)", rs.Missing.FailureReason)
	}
	return "incomplete"
}

func writeBoolClaim(b *strings.Builder, claim bool, ifTrue, ifFalse string) {
	if claim {
		fmt.Fprintf(b, "%s\n", ifTrue)
	} else {
		fmt.Fprintf(b, "%s\n", ifFalse)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

const diffTimeout = 30 * time.Second

func changedFiles(workDir string, cmd runner.CommandRunner, committed bool) []string {
	if cmd == nil {
		return nil
	}
	args := []string{"diff", "--name-only", "HEAD"}
	if committed {
		args = []string{"diff", "--name-only", "HEAD~1", "HEAD"}
	}
	res, err := cmd.Run(context.Background(), "git", args, workDir, diffTimeout)
	if err != nil || res.ExitCode != 0 {
		return nil
	}
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
