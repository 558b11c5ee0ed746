package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/cli"
)

var createRule string

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new rule",
	Long: `Create a new rule with the given name and rule expression.

Examples:
  rulectl create adults --rule "age >= 18"
  rulectl create premium --rule "income > 5000 AND tenure > 2" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		ctx, cancel := s.context()
		defer cancel()

		rule, err := s.client.CreateRule(ctx, args[0], createRule)
		if err != nil {
			return fmt.Errorf("failed to create rule: %w", err)
		}

		if quiet {
			return nil
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Rule created successfully!")
		return cli.PrintRule(cmd.OutOrStdout(), rule, s.format)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVar(&createRule, "rule", "", "Rule expression")
	_ = createCmd.MarkFlagRequired("rule")
}
