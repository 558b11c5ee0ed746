package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/cli"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules",
	Long: `List every rule stored by the rule service.

Examples:
  rulectl list
  rulectl list --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		ctx, cancel := s.context()
		defer cancel()

		list, err := s.client.ListRules(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch all rules: %w", err)
		}

		if quiet {
			return nil
		}
		if len(list) == 0 && s.format == cli.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No rules found")
			return nil
		}
		return cli.PrintRules(cmd.OutOrStdout(), list, s.format)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
