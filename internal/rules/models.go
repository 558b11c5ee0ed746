// Package rules holds the value types exchanged with the rule service. Every value
// is built for a single operator action and discarded afterwards.
package rules

// Operator is the boolean connective used to combine rules. The accepted set is
// owned by the rule service; the console forwards the selected value as-is.
type Operator string

// Operators offered by the console.
const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
)

// Operators lists the connectives offered in selection widgets, in display order.
var Operators = []Operator{OpAnd, OpOr}

// Rule is a named expression stored by the rule service. Name is the sole identity key.
type Rule struct {
	ID         string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string     `json:"name" yaml:"name"`
	RuleString string     `json:"ruleString" yaml:"ruleString"`
	CreatedAt  *Timestamp `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt  *Timestamp `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// AttributeValues maps attribute names to the operator-supplied value.
type AttributeValues map[string]string

// CombineRequest is the payload for merging rules into a new one. RuleNames keeps
// input order and duplicates.
type CombineRequest struct {
	RuleNames        []string `json:"ruleNames"`
	CombinedRuleName string   `json:"combinedRuleName"`
	Operator         Operator `json:"operator"`
}

// EvaluationResult is the verdict of evaluating a rule against AttributeValues.
type EvaluationResult struct {
	Eligible bool           `json:"result"`
	Metadata map[string]any `json:"-"`
}
