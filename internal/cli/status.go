package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/polyagent/internal/config"
	"github.com/lucasnoah/polyagent/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [issue]",
	Short: "Show the persisted plan and processed-set membership for a run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  statusRunE,
}

func statusRunE(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		exitCode = 1
		return err
	}

	if len(args) == 0 {
		return printProcessedIssues(cmd, cfg)
	}

	issue, err := strconv.Atoi(args[0])
	if err != nil {
		exitCode = 1
		return fmt.Errorf("issue must be an integer, got %q", args[0])
	}

	planPath := store.PlanPath(cfg.BaseWorkDir, issue)
	data, err := os.ReadFile(planPath)
	if err != nil {
		exitCode = 1
		return fmt.Errorf("no plan file found for issue #%d at %s: %w", issue, planPath, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func printProcessedIssues(cmd *cobra.Command, cfg *config.Config) error {
	processed, err := store.LoadProcessedIssues(cfg.BaseWorkDir)
	if err != nil {
		exitCode = 1
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ISSUE\tSTATUS")
	for _, n := range processed.All() {
		fmt.Fprintf(w, "%d\tprocessed\n", n)
	}
	return w.Flush()
}
