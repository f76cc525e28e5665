// Package cli implements the polyagent command tree: the primary
// `run <owner/repo> [<max_issues> [<issue_number>]]` pipeline entrypoint plus
// a handful of administrative subcommands. Grounded in the teacher's
// cobra root-command wiring (internal/cli/root.go), pared down from a
// multi-noun subcommand tree to the single-entrypoint shape the
// specification's CLI surface (§6) defines.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion records the build version for the version subcommand.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "polyagent",
	Short: "polyagent — a multi-agent issue-to-patch pipeline",
	Long: `polyagent drives a single GitHub issue (or a batch of unprocessed issues)
through a fixed agent pipeline — PM, Context Auditor, Software Architect,
Developer, Reviewer, and a conditional Tester — gated by a seven-check
cascade before any commit, push, or board transition happens.`,
}

// Execute runs the command tree and returns its exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
