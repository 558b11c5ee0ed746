package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/cli"
	"github.com/TimurManjosov/ruleconsole/internal/client"
)

var attributesCmd = &cobra.Command{
	Use:   "attributes <name>",
	Short: "Show the attribute names a rule reads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		ctx, cancel := s.context()
		defer cancel()

		names, err := s.client.FetchAttributes(ctx, args[0])
		if client.IsNotFound(err) {
			return fmt.Errorf("rule '%s' not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to fetch attributes: %w", err)
		}

		if quiet {
			return nil
		}
		return cli.PrintAttributes(cmd.OutOrStdout(), args[0], names, s.format)
	},
}

func init() {
	rootCmd.AddCommand(attributesCmd)
}
