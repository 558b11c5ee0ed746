package commands

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/cli"
	"github.com/TimurManjosov/ruleconsole/internal/console"
	"github.com/TimurManjosov/ruleconsole/internal/evaluation"
	"github.com/TimurManjosov/ruleconsole/internal/tui"
)

var (
	evaluateSet         []string
	evaluateInteractive bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <name>",
	Short: "Evaluate a rule against attribute values",
	Long: `Fetch the attributes a rule reads and evaluate it against the supplied values.
Without --set an interactive form asks for each attribute.

Examples:
  rulectl evaluate adults --set age=42
  rulectl evaluate premium --set income=9000 --set tenure=3 --format json
  rulectl evaluate premium`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		s, err := newSession()
		if err != nil {
			return err
		}
		flow := evaluation.New(s.client, s.log)

		if evaluateInteractive || len(evaluateSet) == 0 {
			model := tui.NewEvaluateModel(flow, name, s.client.HTTPClient.Timeout)
			final, err := tea.NewProgram(model, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout())).Run()
			if err != nil {
				return fmt.Errorf("interactive form failed: %w", err)
			}
			if m, ok := final.(tui.EvaluateModel); ok && m.Verdict() == nil {
				return errors.New("no verdict")
			}
			return nil
		}

		values, err := parseAssignments(evaluateSet)
		if err != nil {
			return err
		}

		ctx, cancel := s.context()
		defer cancel()

		if _, err := flow.Select(ctx, name); err != nil {
			return errors.New(console.AttributesNotice(err).Text)
		}
		st, err := flow.Submit(ctx, values)
		if err != nil {
			return errors.New(console.EvaluateNotice(err).Text)
		}

		if quiet {
			return nil
		}
		return cli.PrintVerdict(cmd.OutOrStdout(), name, *st.Verdict, s.format)
	},
}

// parseAssignments turns repeated k=v flags into a map. Later keys win.
func parseAssignments(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set value %q, expected name=value", pair)
		}
		values[k] = v
	}
	return values, nil
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringArrayVar(&evaluateSet, "set", nil, "Attribute value as name=value (repeatable)")
	evaluateCmd.Flags().BoolVarP(&evaluateInteractive, "interactive", "i", false, "Always use the interactive form")
}
