package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/ruleconsole/internal/validation"
)

var (
	importDryRun bool
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import rules from a file",
	Long: `Import rules from a YAML or JSON file written by export. Rules that already
exist are updated, the rest are created.

Examples:
  rulectl import rules.yaml
  rulectl import rules.yaml --dry-run
  rulectl import rules.yaml --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		// YAML is a superset of JSON, so one decoder reads both.
		var importData ExportFormat
		if err := yaml.Unmarshal(data, &importData); err != nil {
			return fmt.Errorf("failed to parse file: %w", err)
		}
		if len(importData.Rules) == 0 {
			return fmt.Errorf("no rules found in file")
		}
		for i, r := range importData.Rules {
			if err := validation.ValidateRule(r.Name, r.RuleString).Err(); err != nil {
				return fmt.Errorf("rule %d: %w", i+1, err)
			}
		}

		out := cmd.OutOrStdout()
		if importDryRun {
			fmt.Fprintln(out, "Dry run mode - the following rules would be imported:")
			for _, r := range importData.Rules {
				fmt.Fprintf(out, "  - %s: %s\n", r.Name, r.RuleString)
			}
			return nil
		}

		s, err := newSession()
		if err != nil {
			return err
		}
		ctx, cancel := s.context()
		defer cancel()

		existing, err := s.client.ListRules(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		known := make(map[string]bool, len(existing))
		for _, r := range existing {
			known[r.Name] = true
		}

		successCount, errorCount := 0, 0
		for _, r := range importData.Rules {
			if verbose {
				fmt.Fprintf(out, "Importing rule: %s\n", r.Name)
			}

			if known[r.Name] {
				_, err = s.client.UpdateRule(ctx, r.Name, r.RuleString)
			} else {
				_, err = s.client.CreateRule(ctx, r.Name, r.RuleString)
			}
			if err != nil {
				errorCount++
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to import rule '%s': %v\n", r.Name, err)
				if !importForce {
					return fmt.Errorf("import failed, use --force to continue on errors")
				}
				continue
			}
			known[r.Name] = true
			successCount++
		}

		if !quiet {
			fmt.Fprintf(out, "Import complete: %d succeeded, %d failed\n", successCount, errorCount)
		}
		if errorCount > 0 {
			return fmt.Errorf("import completed with errors")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Continue on errors")
}
