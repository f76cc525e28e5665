// Package orchestrator drives one issue through the full pipeline: Context
// Bundler, Requirement Extractor, the six-role Prompt Composer & Agent
// Runner sequence, the Structured Change Applier, the Coverage &
// Requirements Checks, the seven-gate cascade, and Post-Apply Actions. It
// is the single-threaded cooperative scheduler described in §5 — stages
// run strictly in sequence because each reads the prior stage's output.
//
// Grounded in the teacher's internal/orchestrator.go (lifecycle
// composition: construct once from collaborators, one method per
// lifecycle operation) and internal/stage/engine.go (the bounded-retry,
// fix-round-counted loop shape), re-purposed from the teacher's async
// tmux-polling pipeline into this package's synchronous, blocking
// Model.Invoke sequence.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lucasnoah/polyagent/internal/agent"
	"github.com/lucasnoah/polyagent/internal/board"
	"github.com/lucasnoah/polyagent/internal/changeset"
	"github.com/lucasnoah/polyagent/internal/checks"
	"github.com/lucasnoah/polyagent/internal/config"
	"github.com/lucasnoah/polyagent/internal/coverage"
	"github.com/lucasnoah/polyagent/internal/db"
	"github.com/lucasnoah/polyagent/internal/forge"
	"github.com/lucasnoah/polyagent/internal/gate"
	"github.com/lucasnoah/polyagent/internal/manifest"
	"github.com/lucasnoah/polyagent/internal/requirement"
	"github.com/lucasnoah/polyagent/internal/runner"
	"github.com/lucasnoah/polyagent/internal/store"
	"github.com/lucasnoah/polyagent/internal/vcs"
)

// testerTimeout bounds the conditional Tester stage's detected command.
const testerTimeout = 5 * time.Minute

// Orchestrator composes every collaborator the pipeline needs, constructed
// once per process and reused across issues. DB is optional: a nil DB
// silently skips event logging, so the pipeline still runs without a
// configured DATABASE_URL.
type Orchestrator struct {
	Config   *config.Config
	RepoKind config.RepoKind
	Forge    forge.Forge
	Board    board.Client
	Agent    *agent.Runner
	Checks   *checks.Runner
	Cmd      runner.CommandRunner
	DB       *db.DB

	// inflight collapses concurrent RunIssue calls for the same issue —
	// a cron-triggered run and a manual "resume" landing at the same
	// moment — into one execution, so the second caller gets the first
	// caller's result instead of racing it on the same working tree.
	inflight singleflight.Group
}

// New constructs an Orchestrator from its collaborators.
func New(cfg *config.Config, kind config.RepoKind, f forge.Forge, b board.Client, ag *agent.Runner, ch *checks.Runner, cmd runner.CommandRunner, database *db.DB) *Orchestrator {
	return &Orchestrator{
		Config:   cfg,
		RepoKind: kind,
		Forge:    f,
		Board:    b,
		Agent:    ag,
		Checks:   ch,
		Cmd:      cmd,
		DB:       database,
	}
}

// Result is what RunIssue returns: the final RunState and the rendered
// plan-file text, already persisted to disk by the time RunIssue returns.
type Result struct {
	Issue    int
	RunState *gate.RunState
	PlanText string
}

// RunIssue drives issueNumber through the full pipeline against workDir,
// a checked-out copy of the target repository. Concurrent calls for the
// same issueNumber share one execution via singleflight; the loser gets
// the winner's result rather than running a second pipeline against the
// same working tree.
func (o *Orchestrator) RunIssue(ctx context.Context, workDir string, issueNumber int) (*Result, error) {
	key := fmt.Sprintf("%s:%d", workDir, issueNumber)
	v, err, _ := o.inflight.Do(key, func() (interface{}, error) {
		return o.runIssueOnce(ctx, workDir, issueNumber)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (o *Orchestrator) runIssueOnce(ctx context.Context, workDir string, issueNumber int) (*Result, error) {
	runID := uuid.NewString()
	rs := gate.New()
	tr := &transcript{}

	// Gate 1: Context Gate. Fatal manifest errors abort before any agent
	// runs or board transition — a misconfigured working tree, not a
	// correctable agent output.
	bundler := manifest.NewBundler(o.RepoKind)
	built, err := bundler.Build(workDir)
	if err != nil {
		return nil, fmt.Errorf("build context manifest: %w", err)
	}
	if len(built.Manifest.FatalErrors) > 0 {
		gate.Fail(rs, gate.GateContext, strings.Join(built.Manifest.FatalErrors, "; "))
		o.logGate(ctx, runID, issueNumber, gate.GateContext, false, rs.Missing.FailureSummary)
		return o.finish(workDir, issueNumber, rs, tr)
	}
	o.logGate(ctx, runID, issueNumber, gate.GateContext, true, "")

	issue, err := o.Forge.GetIssue(ctx, issueNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch issue %d: %w", issueNumber, err)
	}
	reqs := requirement.Extract(issue.Title, issue.Body)
	tr.RequirementsText = renderRequirements(reqs)

	if o.Config != nil && o.Config.MoveInPipeline {
		if err := o.Board.MoveColumn(ctx, issueNumber, board.ColumnInProgress); err != nil {
			rs.AddError(fmt.Sprintf("board move to in-progress: %v", err))
		}
	}

	git := vcs.New(o.Cmd, workDir)
	var protected []string
	if o.Config != nil {
		protected = o.Config.ProtectedBranches
	}
	branch, err := vcs.EnsureFeatureBranch(ctx, git, issueNumber, protected)
	if err != nil {
		return nil, fmt.Errorf("branch safety: %w", err)
	}
	rs.CurrentBranch = branch

	headBefore, err := git.HeadSHA(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture head sha: %w", err)
	}
	rs.HeadSHABefore = headBefore

	allow, allowlistTopN := o.buildAllowlist(workDir, built)

	baseInput := agent.ComposeInput{
		IssueNumber:       issueNumber,
		IssueTitle:        issue.Title,
		IssueBody:         issue.Body,
		ContextText:       built.ContextText,
		RequirementsText:  tr.RequirementsText,
		AllowlistTopN:     allowlistTopN,
		ForbiddenPrefixes: o.RepoKind.ForbiddenPrefixes,
	}

	pmOutput, err := o.Agent.RunRole(ctx, agent.RolePM, baseInput)
	if err != nil {
		return nil, fmt.Errorf("product manager stage: %w", err)
	}
	tr.PM = pmOutput
	o.logEvent(ctx, runID, issueNumber, "stage_complete", "pm", 1, "")

	auditorInput := baseInput
	auditorInput.PMOutput = pmOutput
	auditorRaw, err := o.Agent.RunRole(ctx, agent.RoleAuditor, auditorInput)
	if err != nil {
		return nil, fmt.Errorf("context auditor stage: %w", err)
	}
	tr.Auditor = auditorRaw

	audit, err := agent.ParseContextAudit(auditorRaw)
	if err != nil || !audit.Valid() {
		reason := "malformed ContextAudit output"
		if err == nil {
			reason = fmt.Sprintf("missing: %s", strings.Join(audit.Missing, ", "))
		}
		gate.Fail(rs, gate.GateContextAudit, reason)
		o.logGate(ctx, runID, issueNumber, gate.GateContextAudit, false, reason)
		return o.finish(workDir, issueNumber, rs, tr)
	}
	o.logGate(ctx, runID, issueNumber, gate.GateContextAudit, true, "")

	architectInput := auditorInput
	architectInput.AuditorOutput = auditorRaw
	architectOutput, err := o.Agent.RunRole(ctx, agent.RoleArchitect, architectInput)
	if err != nil {
		return nil, fmt.Errorf("software architect stage: %w", err)
	}
	tr.Architect = architectOutput
	plan := coverage.ParsePlan(architectOutput)

	jsFiles, styleFiles := canonicalByExtension(o.RepoKind.CanonicalFiles)

	var retryPayload string

	for attempt := 1; attempt <= gate.MaxDeveloperInvocations; attempt++ {
		devInput := architectInput
		devInput.ArchitectOutput = architectOutput
		devInput.RetryPayload = retryPayload
		developerOutput, err := o.Agent.RunRole(ctx, agent.RoleDeveloper, devInput)
		if err != nil {
			return nil, fmt.Errorf("developer stage (attempt %d): %w", attempt, err)
		}
		tr.Developer = developerOutput

		reviewInput := devInput
		reviewInput.DeveloperOutput = developerOutput
		reviewRaw, err := o.Agent.RunRole(ctx, agent.RoleReviewer, reviewInput)
		if err != nil {
			return nil, fmt.Errorf("reviewer stage (attempt %d): %w", attempt, err)
		}
		tr.Reviewer = reviewRaw

		review, err := agent.ParseReviewGate(reviewRaw)
		if err != nil || !review.Pass {
			reason := "malformed ReviewGate output"
			if err == nil {
				reason = strings.Join(append(append([]string{}, review.FailedRequirements...), review.FailedIntegrationChecks...), "; ")
				rs.Missing.UnsatisfiedRequirements = review.FailedRequirements
			}
			gate.Fail(rs, gate.GateReview, reason)
			o.logGate(ctx, runID, issueNumber, gate.GateReview, false, reason)
			if attempt == gate.MaxDeveloperInvocations {
				return o.finish(workDir, issueNumber, rs, tr)
			}
			retryPayload = gate.RetryPayload(rs.Missing)
			continue
		}
		o.logGate(ctx, runID, issueNumber, gate.GateReview, true, "")

		cs, err := changeset.Parse([]byte(developerOutput))
		if err != nil {
			rs.Missing.ValidationErrors = []string{err.Error()}
			gate.Fail(rs, gate.GateValidation, err.Error())
			o.logGate(ctx, runID, issueNumber, gate.GateValidation, false, err.Error())
			if attempt == gate.MaxDeveloperInvocations {
				return o.finish(workDir, issueNumber, rs, tr)
			}
			retryPayload = gate.RetryPayload(rs.Missing)
			continue
		}

		if verrs := changeset.Validate(cs, allow, o.RepoKind.ForbiddenSubstrings); len(verrs) > 0 {
			var msgs []string
			for _, v := range verrs {
				msgs = append(msgs, v.Error())
			}
			rs.Missing.ValidationErrors = msgs
			reason := strings.Join(msgs, "; ")
			gate.Fail(rs, gate.GateValidation, reason)
			o.logGate(ctx, runID, issueNumber, gate.GateValidation, false, reason)
			if attempt == gate.MaxDeveloperInvocations {
				return o.finish(workDir, issueNumber, rs, tr)
			}
			retryPayload = gate.RetryPayload(rs.Missing)
			continue
		}

		result, err := changeset.Apply(workDir, cs)
		if err != nil {
			msg := err.Error()
			rs.Missing.ValidationErrors = []string{msg}
			gate.Fail(rs, gate.GateValidation, msg)
			o.logGate(ctx, runID, issueNumber, gate.GateValidation, false, msg)
			if attempt == gate.MaxDeveloperInvocations {
				return o.finish(workDir, issueNumber, rs, tr)
			}
			retryPayload = gate.RetryPayload(rs.Missing)
			continue
		}
		rs.MarkApplied()
		o.logGate(ctx, runID, issueNumber, gate.GateValidation, true, "")

		if hits := changeset.ScanWrittenFiles(workDir, result.ChangedFiles, o.RepoKind.ForbiddenSubstrings); len(hits) > 0 {
			reason := strings.Join(hits, "; ")
			gate.Fail(rs, gate.GatePostApply, reason)
			o.logGate(ctx, runID, issueNumber, gate.GatePostApply, false, reason)
			if attempt == gate.MaxDeveloperInvocations {
				return o.finish(workDir, issueNumber, rs, tr)
			}
			if err := vcs.ResetToCommit(ctx, git, headBefore); err != nil {
				return nil, fmt.Errorf("reset working tree before retry: %w", err)
			}
			retryPayload = gate.RetryPayload(rs.Missing)
			continue
		}
		o.logGate(ctx, runID, issueNumber, gate.GatePostApply, true, "")

		report := coverage.Check(workDir, plan, jsFiles, styleFiles)
		if !report.Empty() {
			rs.Missing.Functions = report.MissingFunctions
			rs.Missing.CSSSelectors = report.MissingSelectors
			rs.Missing.TestFiles = report.MissingTestFiles
			rs.Missing.RequiredFiles = report.MissingFiles
			gate.Fail(rs, gate.GateCoverage, "required items missing from working tree")
			o.logGate(ctx, runID, issueNumber, gate.GateCoverage, false, rs.Missing.FailureSummary)
			if attempt == gate.MaxDeveloperInvocations {
				return o.finish(workDir, issueNumber, rs, tr)
			}
			if err := vcs.ResetToCommit(ctx, git, headBefore); err != nil {
				return nil, fmt.Errorf("reset working tree before retry: %w", err)
			}
			retryPayload = gate.RetryPayload(rs.Missing)
			continue
		}
		o.logGate(ctx, runID, issueNumber, gate.GateCoverage, true, "")

		changedContent := readChangedContent(workDir, result.ChangedFiles)
		unsatisfied := coverage.CheckRequirements(reqs, architectOutput, changedContent)
		if len(unsatisfied) > 0 {
			rs.Missing.UnsatisfiedRequirements = unsatisfied
			gate.Fail(rs, gate.GateRequirements, strings.Join(unsatisfied, "; "))
			o.logGate(ctx, runID, issueNumber, gate.GateRequirements, false, rs.Missing.FailureSummary)
			if attempt == gate.MaxDeveloperInvocations {
				return o.finish(workDir, issueNumber, rs, tr)
			}
			if err := vcs.ResetToCommit(ctx, git, headBefore); err != nil {
				return nil, fmt.Errorf("reset working tree before retry: %w", err)
			}
			retryPayload = gate.RetryPayload(rs.Missing)
			continue
		}
		o.logGate(ctx, runID, issueNumber, gate.GateRequirements, true, "")

		rs.MarkCoverage()
		break
	}

	if !rs.CoverageOK {
		return o.finish(workDir, issueNumber, rs, tr)
	}

	if o.Config != nil && o.Config.EnableTesting {
		o.runTester(ctx, workDir, architectOutput)
	}

	o.postApply(ctx, git, workDir, issueNumber, issue.Title, rs)

	return o.finish(workDir, issueNumber, rs, tr)
}

// runTester asks the Tester role for a test command and executes it via
// the deterministic check runner; §4.3 names this stage conditional and
// informational, not one of the seven gates, so a failing or absent test
// command never flips coverage_ok back.
func (o *Orchestrator) runTester(ctx context.Context, workDir, architectOutput string) {
	testCmd, err := o.Agent.RunRole(ctx, agent.RoleTester, agent.ComposeInput{ArchitectOutput: architectOutput})
	if err != nil || strings.TrimSpace(testCmd) == "" {
		return
	}
	_, _ = o.Checks.Run(workDir, checks.CheckConfig{
		Name:    "tester",
		Command: strings.TrimSpace(testCmd),
		Parser:  "generic",
		Timeout: testerTimeout,
	})
}

// postApply implements §4.7: commit, conditional push, conditional board
// transition to Done. Invoked only once all seven gates have passed.
func (o *Orchestrator) postApply(ctx context.Context, git *vcs.Git, workDir string, issueNumber int, issueTitle string, rs *gate.RunState) {
	message := fmt.Sprintf("Issue #%d: %s", issueNumber, issueTitle)
	commitResult, err := vcs.Commit(ctx, git, message)
	if err != nil {
		rs.AddError(fmt.Sprintf("commit: %v", err))
		return
	}
	if !commitResult.Committed {
		return
	}
	rs.MarkCommitted()
	rs.HeadSHAAfter = commitResult.HeadAfter

	if err := store.SavePatch(workDir, commitResult.PatchText); err != nil {
		rs.AddError(fmt.Sprintf("save patch: %v", err))
	}

	if o.Config != nil && o.Config.AutoPush {
		push := vcs.Push(ctx, git, rs.CurrentBranch)
		if push.Pushed {
			rs.MarkPushed()
		} else if push.Err != nil {
			rs.AddError(fmt.Sprintf("push: %v", push.Err))
		}
	}

	if o.Config != nil && o.Config.MoveInPipeline {
		if err := o.Board.MoveColumn(ctx, issueNumber, board.ColumnDone); err != nil {
			rs.AddError(fmt.Sprintf("board move to done: %v", err))
		} else {
			rs.MarkMovedDone()
		}
	}

	pi, err := store.LoadProcessedIssues(o.baseDir(workDir))
	if err == nil {
		_ = pi.Add(issueNumber)
	}
}

// finish renders and persists the human-readable plan file (§9) and
// returns the Result. Called on every exit path, successful or not, since
// §4.6's retry policy requires "writes a plan file describing what was
// attempted" even on a terminal failure.
func (o *Orchestrator) finish(workDir string, issueNumber int, rs *gate.RunState, t *transcript) (*Result, error) {
	planText := t.Render(issueNumber, rs)
	if err := store.SavePlan(workDir, issueNumber, planText); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return &Result{Issue: issueNumber, RunState: rs, PlanText: planText}, nil
}

func (o *Orchestrator) baseDir(workDir string) string {
	if o.Config != nil && o.Config.BaseWorkDir != "" {
		return o.Config.BaseWorkDir
	}
	return workDir
}

func (o *Orchestrator) logEvent(ctx context.Context, runID string, issue int, event, stage string, attempt int, detail string) {
	if o.DB == nil {
		return
	}
	_ = o.DB.LogRunEvent(ctx, runID, issue, event, stage, attempt, detail)
}

func (o *Orchestrator) logGate(ctx context.Context, runID string, issue int, g gate.Name, passed bool, reason string) {
	if o.DB == nil {
		return
	}
	_ = o.DB.LogGateResult(ctx, runID, issue, string(g), passed, reason)
}

// buildAllowlist derives the PathAllowlist (§3) from the working tree's
// sampled files plus canonical files, and produces the top-N,
// canonical-files-first slice the Prompt Composer binds into the
// Architect/Developer prompts.
func (o *Orchestrator) buildAllowlist(workDir string, built *manifest.BuildResult) (changeset.Allowlist, []string) {
	paths := map[string]bool{}
	var ordered []string

	for _, rel := range o.RepoKind.CanonicalFiles {
		paths[rel] = true
	}
	canonical := make(map[string]bool, len(o.RepoKind.CanonicalFiles))
	for _, rel := range o.RepoKind.CanonicalFiles {
		canonical[rel] = true
		ordered = append(ordered, rel)
	}

	for _, dir := range append(append([]string{}, o.RepoKind.SampleDirs...), "test", "tests") {
		root := filepath.Join(workDir, dir)
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info == nil || info.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(workDir, path)
			if relErr != nil || paths[rel] {
				return nil
			}
			paths[rel] = true
			return nil
		})
	}

	var rest []string
	for rel := range paths {
		if !canonical[rel] {
			rest = append(rest, rel)
		}
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	const topN = 60
	if len(ordered) > topN {
		ordered = ordered[:topN]
	}

	allow := changeset.Allowlist{
		RepoRoot:          workDir,
		Paths:             paths,
		CanonicalFiles:    canonical,
		ForbiddenPrefixes: o.RepoKind.ForbiddenPrefixes,
	}
	return allow, ordered
}

func canonicalByExtension(files []string) (jsFiles, styleFiles []string) {
	for _, f := range files {
		switch filepath.Ext(f) {
		case ".js":
			jsFiles = append(jsFiles, f)
		case ".css":
			styleFiles = append(styleFiles, f)
		}
	}
	return jsFiles, styleFiles
}

func readChangedContent(workDir string, changed map[string]bool) []string {
	var out []string
	for rel := range changed {
		data, err := os.ReadFile(filepath.Join(workDir, rel))
		if err != nil {
			continue
		}
		out = append(out, string(data))
	}
	return out
}

func renderRequirements(reqs []requirement.Requirement) string {
	if len(reqs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range reqs {
		b.WriteString("- ")
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return b.String()
}
