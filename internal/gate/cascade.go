package gate

import (
	"fmt"
	"sort"
	"strings"
)

// Name identifies one of the seven gates in the cascade, in evaluation
// order.
type Name string

const (
	GateContext       Name = "context"
	GateContextAudit  Name = "context_audit"
	GateReview        Name = "review"
	GateValidation    Name = "validation"
	GatePostApply     Name = "post_apply"
	GateCoverage      Name = "coverage"
	GateRequirements  Name = "requirements"
)

// Result is the outcome of evaluating one gate.
type Result struct {
	Gate   Name
	Passed bool
	Reason string
}

// MaxDeveloperInvocations bounds the Developer stage retry budget: the
// original invocation plus two additional passes (three total), per the
// retry policy in §4.6.
const MaxDeveloperInvocations = 3

// Fail records a gate failure onto RunState: it appends the error and sets
// the failure reason and summary. It does not touch CoverageOK, the master
// "complete" flag, which only the caller sets (RunState.MarkCoverage) once
// an attempt has passed every gate. RunState fields only move forward, so
// callers must not call MarkCoverage before the cascade has fully passed.
func Fail(rs *RunState, gate Name, reason string) Result {
	rs.AddError(fmt.Sprintf("%s gate failed: %s", gate, reason))
	rs.Missing.FailureReason = string(gate)
	rs.Missing.FailureSummary = reason
	return Result{Gate: gate, Passed: false, Reason: reason}
}

// Pass records a gate pass; it performs no RunState mutation beyond
// returning a Result, since only the final successful evaluation of all
// seven gates should set CoverageOK (done explicitly by the caller via
// RunState.MarkCoverage once Gate 7 passes).
func Pass(gate Name) Result {
	return Result{Gate: gate, Passed: true}
}

// RetryPayload composes a human-readable checklist from every missing-item
// category, to be appended to the Developer task description on retry
// after a failure in Gates 3 through 7.
func RetryPayload(m Missing) string {
	var b strings.Builder
	b.WriteString("The previous attempt left the following unresolved:\n")

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sorted := append([]string{}, items...)
		sort.Strings(sorted)
		b.WriteString(fmt.Sprintf("\n%s:\n", title))
		for _, item := range sorted {
			b.WriteString(fmt.Sprintf("- %s\n", item))
		}
	}

	section("Missing functions", m.Functions)
	section("Missing CSS selectors", m.CSSSelectors)
	section("Missing test files", m.TestFiles)
	section("Missing required files", m.RequiredFiles)
	section("Validation errors", m.ValidationErrors)
	section("Unsatisfied requirements", m.UnsatisfiedRequirements)

	return b.String()
}
