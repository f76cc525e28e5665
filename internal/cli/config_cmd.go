package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/polyagent/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Repo-kind configuration utilities",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a repo-kind YAML sidecar file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := config.LoadRepoKind(args[0])
		if err != nil {
			exitCode = 1
			return err
		}

		if errs := config.ValidateRepoKind(kind); len(errs) > 0 {
			exitCode = 1
			for _, e := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
			}
			return fmt.Errorf("%d validation error(s) in %s", len(errs), args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid repo kind %q\n", args[0], kind.Name)
		exitCode = 0
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
