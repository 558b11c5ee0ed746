package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/cli"
	"github.com/TimurManjosov/ruleconsole/internal/client"
)

var updateRule string

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Replace the expression of an existing rule",
	Long: `Replace the rule expression stored under the given name.

Examples:
  rulectl update adults --rule "age >= 21"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		ctx, cancel := s.context()
		defer cancel()

		rule, err := s.client.UpdateRule(ctx, args[0], updateRule)
		if client.IsNotFound(err) {
			return fmt.Errorf("rule '%s' not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}

		if quiet {
			return nil
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Rule modified successfully!")
		return cli.PrintRule(cmd.OutOrStdout(), rule, s.format)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateRule, "rule", "", "New rule expression")
	_ = updateCmd.MarkFlagRequired("rule")
}
