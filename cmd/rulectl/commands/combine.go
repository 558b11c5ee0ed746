package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/cli"
	"github.com/TimurManjosov/ruleconsole/internal/combine"
	"github.com/TimurManjosov/ruleconsole/internal/rules"
)

var (
	combineName     string
	combineOperator string
)

var combineCmd = &cobra.Command{
	Use:   "combine <names>",
	Short: "Combine existing rules into a new rule",
	Long: `Combine a comma-separated list of rules into a new rule joined by an operator.

Examples:
  rulectl combine "adults, high_income" --name adults_high_income
  rulectl combine "rule1,rule2,rule3" --name any_of --operator OR`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		ctx, cancel := s.context()
		defer cancel()

		rule, err := combine.NewController(s.client, s.log).Combine(ctx, args[0], combineName, combineOperator)
		if err != nil {
			return err
		}

		if quiet {
			return nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Rules combined successfully! New rule: %s\n", rule.Name)
		return cli.PrintRule(cmd.OutOrStdout(), rule, s.format)
	},
}

func init() {
	rootCmd.AddCommand(combineCmd)

	combineCmd.Flags().StringVar(&combineName, "name", "", "Name of the combined rule")
	combineCmd.Flags().StringVar(&combineOperator, "operator", string(rules.OpAnd), "Operator joining the rules (AND, OR)")
	_ = combineCmd.MarkFlagRequired("name")
}
