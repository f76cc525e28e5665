// Package vcs implements branch safety, commit, push, and patch generation
// (§4.7 Post-Apply Actions) over the shared subprocess interface. It adapts
// the worktree manager's git-plumbing idiom from a standalone-worktree model
// to an in-place working-tree model: the pipeline never checks out a
// dedicated worktree directory, it moves the existing working tree off a
// protected branch before the first write.
package vcs

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lucasnoah/polyagent/internal/runner"
)

// DefaultTimeout bounds every git invocation this package issues.
const DefaultTimeout = 30 * time.Second

// DefaultProtectedBranches are refused as a target for direct writes.
var DefaultProtectedBranches = []string{"main", "master", "development"}

// Git wraps a runner.CommandRunner to issue git subcommands against one
// working directory, matching the worktree package's thin-wrapper idiom.
type Git struct {
	cmd     runner.CommandRunner
	workDir string
}

// New creates a Git plumbing client rooted at workDir.
func New(cmd runner.CommandRunner, workDir string) *Git {
	return &Git{cmd: cmd, workDir: workDir}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	res, err := g.cmd.Run(ctx, "git", args, g.workDir, DefaultTimeout)
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		out = strings.TrimSpace(res.Stderr)
	}
	if err != nil {
		return out, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	if res.ExitCode != 0 {
		return out, fmt.Errorf("git %s: exit %d: %s", strings.Join(args, " "), res.ExitCode, out)
	}
	return out, nil
}

// CurrentBranch returns the working tree's current branch name.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// HeadSHA returns the working tree's current HEAD commit SHA.
func (g *Git) HeadSHA(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "HEAD")
}

var nonAlphaNum = regexp.MustCompile(`[^a-zA-Z0-9/_-]+`)

// sanitizeBranch mirrors the worktree manager's branch-name cleanup.
func sanitizeBranch(name string) string {
	s := nonAlphaNum.ReplaceAllString(name, "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// IssueBranch derives the canonical feature branch name for an issue.
func IssueBranch(issue int) string {
	return sanitizeBranch(fmt.Sprintf("feature/issue-%d", issue))
}

func isProtected(branch string, protected []string) bool {
	for _, p := range protected {
		if branch == p {
			return true
		}
	}
	return false
}

// EnsureFeatureBranch implements §4.7 Branch safety: if the working tree is
// currently on a protected branch, it creates (or switches to) the feature
// branch for issue before any file is written. If checkout fails the caller
// must abort before writing anything — this function performs no write of
// its own beyond the branch switch.
func EnsureFeatureBranch(ctx context.Context, g *Git, issue int, protected []string) (branch string, err error) {
	if len(protected) == 0 {
		protected = DefaultProtectedBranches
	}

	current, err := g.CurrentBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("determine current branch: %w", err)
	}
	if !isProtected(current, protected) {
		return current, nil
	}

	branch = IssueBranch(issue)

	if _, err := g.run(ctx, "checkout", branch); err == nil {
		return branch, nil
	}

	if _, err := g.run(ctx, "checkout", "-b", branch); err != nil {
		return "", fmt.Errorf("create feature branch %q: %w", branch, err)
	}
	return branch, nil
}

// CommitResult describes the outcome of a commit attempt.
type CommitResult struct {
	Committed   bool
	HeadBefore  string
	HeadAfter   string
	PatchText   string
}

// Commit implements §4.7 Commit: stage all changes, untracked files
// included (`git add -A`), capture head_sha_before/head_sha_after, and
// produce a patch artifact from `git diff head_sha_before head_sha_after`,
// which covers the new commit only; earlier commits on the branch are not
// included. Skips entirely (no error, Committed=false) if there is nothing
// staged to commit.
func Commit(ctx context.Context, g *Git, message string) (CommitResult, error) {
	before, err := g.HeadSHA(ctx)
	if err != nil {
		return CommitResult{}, fmt.Errorf("capture head_sha_before: %w", err)
	}

	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return CommitResult{}, fmt.Errorf("stage changes: %w", err)
	}

	status, err := g.run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return CommitResult{}, fmt.Errorf("check staged diff: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return CommitResult{Committed: false, HeadBefore: before, HeadAfter: before}, nil
	}

	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return CommitResult{}, fmt.Errorf("commit: %w", err)
	}

	after, err := g.HeadSHA(ctx)
	if err != nil {
		return CommitResult{}, fmt.Errorf("capture head_sha_after: %w", err)
	}

	patch, err := GeneratePatch(ctx, g, before, after)
	if err != nil {
		return CommitResult{}, fmt.Errorf("generate patch: %w", err)
	}

	return CommitResult{
		Committed:  true,
		HeadBefore: before,
		HeadAfter:  after,
		PatchText:  patch,
	}, nil
}

// GeneratePatch derives a unified-diff patch artifact from the working
// tree's own history — never from agent-produced text (§5 "Patch
// generation: derive patches from the git working tree, never from the
// textual output of the Developer agent").
func GeneratePatch(ctx context.Context, g *Git, from, to string) (string, error) {
	if from == to {
		return "", nil
	}
	return g.run(ctx, "diff", from, to)
}

// PushResult describes the outcome of a push attempt.
type PushResult struct {
	Pushed bool
	Err    error
}

// Push implements §4.7 Push: only invoked when AUTO_PUSH is set by the
// caller. A network failure or timeout is recorded but never fails the
// run — the run remains "complete" locally (§8 "Post-commit forge
// failures: warning-level; never roll back a completed commit").
func Push(ctx context.Context, g *Git, branch string) PushResult {
	if _, err := g.run(ctx, "push", "-u", "origin", branch); err != nil {
		return PushResult{Pushed: false, Err: err}
	}
	return PushResult{Pushed: true}
}

// ResetToCommit discards all working-tree changes back to sha, used by the
// orchestrator's retry policy (§4.6 "rolls the working tree back to its
// pre-run state on the feature branch") between Developer invocations.
func ResetToCommit(ctx context.Context, g *Git, sha string) error {
	if _, err := g.run(ctx, "reset", "--hard", sha); err != nil {
		return fmt.Errorf("reset to %s: %w", sha, err)
	}
	if _, err := g.run(ctx, "clean", "-fd"); err != nil {
		return fmt.Errorf("clean working tree: %w", err)
	}
	return nil
}
