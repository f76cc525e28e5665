package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/polyagent/internal/config"
	"github.com/lucasnoah/polyagent/internal/forge"
	"github.com/lucasnoah/polyagent/internal/store"
	"github.com/lucasnoah/polyagent/internal/summary"
)

var runCmd = &cobra.Command{
	Use:   "run <owner/repo> [max_issues] [issue_number]",
	Short: "Run the pipeline against one issue, or a batch of unprocessed issues",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  runRunE,
}

func init() {
	runCmd.Flags().Bool("openai", false, "use the OpenAI model provider instead of the default local provider")
	runCmd.Flags().Bool("force-openai", false, "alias for --openai")
}

func runRunE(cmd *cobra.Command, args []string) error {
	repo := args[0]
	maxIssues := 1
	issueNumber := 0
	if len(args) >= 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			exitCode = 1
			return fmt.Errorf("max_issues must be an integer, got %q", args[1])
		}
		maxIssues = n
	}
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			exitCode = 1
			return fmt.Errorf("issue_number must be an integer, got %q", args[2])
		}
		issueNumber = n
	}

	openai, _ := cmd.Flags().GetBool("openai")
	forceOpenAI, _ := cmd.Flags().GetBool("force-openai")

	cfg, err := config.Load()
	if err != nil {
		exitCode = 1
		return err
	}
	if repo == "" {
		repo = cfg.DefaultRepo
	}
	if repo == "" {
		exitCode = 1
		return fmt.Errorf("no repository given and DEFAULT_REPO is unset")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	o, cleanup, err := buildPipeline(ctx, cfg, repo, openai || forceOpenAI)
	if err != nil {
		exitCode = 1
		return err
	}
	defer cleanup()

	issues, err := resolveIssues(ctx, o.Forge, cfg, issueNumber, maxIssues)
	if err != nil {
		exitCode = 1
		return err
	}

	processed, err := store.LoadProcessedIssues(cfg.BaseWorkDir)
	if err != nil {
		exitCode = 1
		return err
	}

	allComplete := true
	ran := 0
	for _, n := range issues {
		if issueNumber == 0 && processed.Contains(n) {
			continue
		}
		if ran >= maxIssues {
			break
		}
		ran++

		result, err := o.RunIssue(ctx, cfg.BaseWorkDir, n)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "issue #%d: %v\n", n, err)
			allComplete = false
			continue
		}

		report := summary.Render(n, result.RunState, cfg.BaseWorkDir, o.Cmd)
		fmt.Fprintln(cmd.OutOrStdout(), report.Text)
		if !report.CoverageOK {
			allComplete = false
		}
	}

	if allComplete {
		exitCode = 0
	} else {
		exitCode = 2
	}
	return nil
}

// resolveIssues returns the ordered list of issue numbers to attempt. In
// single-issue mode it returns exactly [issueNumber], bypassing the
// processed set (§6 "overriding the processed set"). In batch mode it
// lists open issues and, per cfg.SubIssueStrategy, folds in or skips
// sub-issues of each.
func resolveIssues(ctx context.Context, f forge.Forge, cfg *config.Config, issueNumber, maxIssues int) ([]int, error) {
	if issueNumber != 0 {
		return []int{issueNumber}, nil
	}

	open, err := f.ListOpenIssues(ctx, maxIssues*4)
	if err != nil {
		return nil, fmt.Errorf("list open issues: %w", err)
	}

	var out []int
	for _, issue := range open {
		out = append(out, issue.Number)
		if !cfg.ProcessSubIssues || cfg.SubIssueStrategy == config.SubIssueSkip {
			continue
		}
		subs, err := f.ListSubIssues(ctx, &issue)
		if err != nil {
			continue
		}
		// Sequential folds sub-issues in immediately after their parent;
		// Include queues them for the same batch without that ordering
		// guarantee — both resolve to an in-order append against this
		// single-threaded batch loop.
		out = append(out, subs...)
	}
	return out, nil
}
