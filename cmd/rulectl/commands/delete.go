package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/client"
)

var (
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a rule",
	Long: `Delete a rule by name.

Examples:
  rulectl delete adults
  rulectl delete adults --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		s, err := newSession()
		if err != nil {
			return err
		}

		// Confirm deletion unless --force
		if !deleteForce && !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Are you sure you want to delete rule '%s'? (y/N): ", name)
			reader := bufio.NewReader(cmd.InOrStdin())
			response, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}
		}

		ctx, cancel := s.context()
		defer cancel()

		outcome, err := s.client.DeleteRule(ctx, name)
		if err != nil {
			if se, ok := client.AsServiceError(err); ok {
				return fmt.Errorf("failed to delete rule (status %s)", se.Status())
			}
			return fmt.Errorf("error deleting rule: %w", err)
		}
		if outcome == client.DeleteOutcomeNotFound {
			return fmt.Errorf("rule '%s' not found", name)
		}

		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "Rule deleted successfully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompt")
}
