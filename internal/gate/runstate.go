// Package gate implements RunState and the seven-gate cascade that blocks
// advancement to commit/push/board-transition.
package gate

// Missing categorizes the items the cascade found absent or unsatisfied,
// used both to decide whether a gate blocks and to compose the retry
// payload.
type Missing struct {
	Functions              []string `json:"functions,omitempty"`
	CSSSelectors           []string `json:"css_selectors,omitempty"`
	TestFiles              []string `json:"test_files,omitempty"`
	RequiredFiles          []string `json:"required_files,omitempty"`
	ValidationErrors       []string `json:"validation_errors,omitempty"`
	UnsatisfiedRequirements []string `json:"unsatisfied_requirements,omitempty"`
	FailureReason          string   `json:"_failure_reason,omitempty"`
	FailureSummary         string   `json:"_failure_summary,omitempty"`
}

// Empty reports whether every category is empty — i.e. nothing is missing.
func (m Missing) Empty() bool {
	return len(m.Functions) == 0 && len(m.CSSSelectors) == 0 && len(m.TestFiles) == 0 &&
		len(m.RequiredFiles) == 0 && len(m.ValidationErrors) == 0 && len(m.UnsatisfiedRequirements) == 0
}

// RunState is the single source of truth for gate cascade outcomes. It is
// created once at pipeline start and mutated only by the orchestrator;
// boolean fields are set only forward — no field ever transitions from
// true back to false within one run.
type RunState struct {
	AppliedOK    bool `json:"applied_ok"`
	CoverageOK   bool `json:"coverage_ok"`
	DidCommit    bool `json:"did_commit"`
	DidPush      bool `json:"did_push"`
	DidMoveDone  bool `json:"did_move_done"`

	Errors []string `json:"errors"`

	CurrentBranch string `json:"current_branch"`
	HeadSHABefore string `json:"head_sha_before"`
	HeadSHAAfter  string `json:"head_sha_after"`

	Missing Missing `json:"missing"`
}

// New creates a fresh RunState for one pipeline run.
func New() *RunState {
	return &RunState{}
}

// AddError appends to the ordered error list. Errors are never removed.
func (rs *RunState) AddError(msg string) {
	rs.Errors = append(rs.Errors, msg)
}

// setTrue is the only way a boolean flag is allowed to change: it can only
// move false -> true, matching the "no field transitions true->false"
// invariant tested in §8.
func setTrue(flag *bool) {
	*flag = true
}

func (rs *RunState) MarkApplied()   { setTrue(&rs.AppliedOK) }
func (rs *RunState) MarkCoverage()  { setTrue(&rs.CoverageOK) }
func (rs *RunState) MarkCommitted() { setTrue(&rs.DidCommit) }
func (rs *RunState) MarkPushed()    { setTrue(&rs.DidPush) }
func (rs *RunState) MarkMovedDone() { setTrue(&rs.DidMoveDone) }
