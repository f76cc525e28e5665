package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/polyagent/internal/config"
	"github.com/lucasnoah/polyagent/internal/summary"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <owner/repo> <issue>",
	Short: "Re-run a previously incomplete issue, overriding the processed set",
	Args:  cobra.ExactArgs(2),
	RunE:  resumeRunE,
}

func init() {
	resumeCmd.Flags().Bool("openai", false, "use the OpenAI model provider instead of the default local provider")
}

// resumeRunE re-invokes the pipeline for one issue from scratch. The
// orchestrator persists only a rendered plan file (§9), not a structured
// mid-run RunState, so there is no partial-stage checkpoint to resume
// from — a "resume" is a full re-run against the issue's current working
// tree and branch, which still picks up any already-applied changes the
// prior run left committed, since Gate 1's context manifest is read fresh.
func resumeRunE(cmd *cobra.Command, args []string) error {
	repo := args[0]
	issue, err := strconv.Atoi(args[1])
	if err != nil {
		exitCode = 1
		return fmt.Errorf("issue must be an integer, got %q", args[1])
	}

	openai, _ := cmd.Flags().GetBool("openai")

	cfg, err := config.Load()
	if err != nil {
		exitCode = 1
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	o, cleanup, err := buildPipeline(ctx, cfg, repo, openai)
	if err != nil {
		exitCode = 1
		return err
	}
	defer cleanup()

	result, err := o.RunIssue(ctx, cfg.BaseWorkDir, issue)
	if err != nil {
		exitCode = 1
		return err
	}

	report := summary.Render(issue, result.RunState, cfg.BaseWorkDir, o.Cmd)
	fmt.Fprintln(cmd.OutOrStdout(), report.Text)
	if report.CoverageOK {
		exitCode = 0
	} else {
		exitCode = 2
	}
	return nil
}
