package checks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lucasnoah/polyagent/internal/runner"
)

// Result holds the structured output of a check run.
type Result struct {
	CheckName  string `json:"check_name"`
	Passed     bool   `json:"passed"`
	AutoFixed  bool   `json:"auto_fixed"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int    `json:"duration_ms"`
	Summary    string `json:"summary"`
	Findings   string `json:"findings"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// CheckConfig describes one deterministic command-based check: the
// detected test command for the Tester agent.
type CheckConfig struct {
	Name       string
	Command    string
	Parser     string
	Timeout    time.Duration
	AutoFix    bool
	FixCommand string
}

// Runner executes checks through a shared runner.CommandRunner and parses
// their output. It no longer owns its own process-execution
// implementation — that concern now lives once in internal/runner and is
// shared with git plumbing.
type Runner struct {
	cmd     runner.CommandRunner
	parsers map[string]Parser
}

// NewRunner creates a Runner with the given command runner.
func NewRunner(cmd runner.CommandRunner) *Runner {
	r := &Runner{
		cmd:     cmd,
		parsers: make(map[string]Parser),
	}
	r.parsers["generic"] = &GenericParser{}
	return r
}

// Run executes a single check in the given directory.
func (r *Runner) Run(dir string, cfg CheckConfig) (*Result, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	result, err := r.runOnce(dir, cfg, timeout)
	if err != nil {
		return nil, err
	}

	// Auto-fix: if check failed, auto_fix enabled, and fix_command set, run fix then re-check
	if !result.Passed && cfg.AutoFix && cfg.FixCommand != "" {
		_, _ = r.cmd.Run(context.Background(), "sh", []string{"-c", cfg.FixCommand}, dir, timeout)

		recheck, err := r.runOnce(dir, cfg, timeout)
		if err != nil {
			return nil, fmt.Errorf("re-run after fix: %w", err)
		}
		recheck.AutoFixed = true
		return recheck, nil
	}

	return result, nil
}

// runOnce executes a check command once and parses the output.
func (r *Runner) runOnce(dir string, cfg CheckConfig, timeout time.Duration) (*Result, error) {
	start := time.Now()
	cmdResult, err := r.cmd.Run(context.Background(), "sh", []string{"-c", cfg.Command}, dir, timeout)
	durationMs := int(time.Since(start).Milliseconds())

	if err == context.DeadlineExceeded {
		return &Result{
			CheckName:  cfg.Name,
			Passed:     false,
			ExitCode:   -1,
			DurationMs: durationMs,
			Summary:    fmt.Sprintf("timeout after %s", timeout),
			Stdout:     cmdResult.Stdout,
			Stderr:     cmdResult.Stderr,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run check %q: %w", cfg.Name, err)
	}

	parser, ok := r.parsers[cfg.Parser]
	if !ok {
		parser = r.parsers["generic"]
	}

	parsed := parser.Parse(cmdResult.Stdout, cmdResult.Stderr, cmdResult.ExitCode)
	findingsJSON, _ := json.Marshal(parsed.Findings)

	return &Result{
		CheckName:  cfg.Name,
		Passed:     cmdResult.ExitCode == 0 && parsed.Passed,
		ExitCode:   cmdResult.ExitCode,
		DurationMs: durationMs,
		Summary:    parsed.Summary,
		Findings:   string(findingsJSON),
		Stdout:     cmdResult.Stdout,
		Stderr:     cmdResult.Stderr,
	}, nil
}
