package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/ruleconsole/internal/evaluation"
	"github.com/TimurManjosov/ruleconsole/internal/rules"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// PrintRules outputs rules in the specified format
func PrintRules(w io.Writer, list []rules.Rule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]rules.Rule{"rules": list})
	case FormatYAML:
		return printYAML(w, map[string][]rules.Rule{"rules": list})
	case FormatTable:
		return printRuleTable(w, list)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintRule outputs a single rule in the specified format
func PrintRule(w io.Writer, rule *rules.Rule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, rule)
	case FormatYAML:
		return printYAML(w, rule)
	case FormatTable:
		return printRuleTable(w, []rules.Rule{*rule})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintAttributes outputs a rule's attribute names in the specified format
func PrintAttributes(w io.Writer, rule string, names []string, format OutputFormat) error {
	doc := struct {
		Rule       string   `json:"rule" yaml:"rule"`
		Attributes []string `json:"attributes" yaml:"attributes"`
	}{Rule: rule, Attributes: names}

	switch format {
	case FormatJSON:
		return printJSON(w, doc)
	case FormatYAML:
		return printYAML(w, doc)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("#", "Attribute")
		for i, name := range names {
			if err := table.Append(fmt.Sprintf("%d", i+1), name); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintVerdict outputs an evaluation verdict in the specified format
func PrintVerdict(w io.Writer, rule string, v evaluation.Verdict, format OutputFormat) error {
	doc := struct {
		Rule     string         `json:"rule" yaml:"rule"`
		Result   bool           `json:"result" yaml:"result"`
		Label    string         `json:"label" yaml:"label"`
		Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	}{Rule: rule, Result: v.Eligible, Label: v.Label, Metadata: v.Metadata}

	switch format {
	case FormatJSON:
		return printJSON(w, doc)
	case FormatYAML:
		return printYAML(w, doc)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Rule", "Result")
		if err := table.Append(rule, v.Label); err != nil {
			return err
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printRuleTable(w io.Writer, list []rules.Rule) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Rule", "Updated At")

	for _, r := range list {
		ruleString := r.RuleString
		if len(ruleString) > 60 {
			ruleString = ruleString[:57] + "..."
		}

		updated := ""
		if r.UpdatedAt != nil {
			updated = r.UpdatedAt.Format("2006-01-02 15:04")
		}

		if err := table.Append(r.ID, r.Name, ruleString, updated); err != nil {
			return err
		}
	}

	return table.Render()
}
