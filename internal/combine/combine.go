// Package combine turns the operator's comma-separated rule list into a combine
// request and submits it.
package combine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/ruleconsole/internal/rules"
	"github.com/TimurManjosov/ruleconsole/internal/validation"
)

// Service is the part of the rule service client the controller needs.
type Service interface {
	CombineRules(ctx context.Context, req rules.CombineRequest) (*rules.Rule, error)
}

// Controller validates and sends combine requests. It keeps no state between calls.
type Controller struct {
	svc Service
	log zerolog.Logger
}

// NewController creates a combine controller.
func NewController(svc Service, log zerolog.Logger) *Controller {
	return &Controller{svc: svc, log: log}
}

// ParseRuleNames splits raw on commas and trims each name. Order and duplicates
// are kept. A blank entry (as in "a,,b") is rejected rather than forwarded.
func ParseRuleNames(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, validation.New("ruleNames", "Please enter rule names and a combined rule name.")
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for i, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			return nil, validation.New("ruleNames", fmt.Sprintf("rule name %d is empty", i+1))
		}
		names = append(names, name)
	}
	return names, nil
}

// BuildRequest validates operator input and assembles the combine payload.
func BuildRequest(rawRuleNames, combinedName, operator string) (rules.CombineRequest, error) {
	names, err := ParseRuleNames(rawRuleNames)
	if err != nil {
		return rules.CombineRequest{}, err
	}
	combinedName = strings.TrimSpace(combinedName)
	if err := validation.Required("combinedRuleName", combinedName, "Please enter rule names and a combined rule name."); err != nil {
		return rules.CombineRequest{}, err
	}
	if err := validation.Required("operator", operator, "Please select an operator."); err != nil {
		return rules.CombineRequest{}, err
	}
	return rules.CombineRequest{
		RuleNames:        names,
		CombinedRuleName: combinedName,
		Operator:         rules.Operator(strings.TrimSpace(operator)),
	}, nil
}

// Combine validates the input, then issues exactly one combine request. Send
// failures carry the underlying error text.
func (c *Controller) Combine(ctx context.Context, rawRuleNames, combinedName, operator string) (*rules.Rule, error) {
	req, err := BuildRequest(rawRuleNames, combinedName, operator)
	if err != nil {
		return nil, err
	}

	rule, err := c.svc.CombineRules(ctx, req)
	if err != nil {
		c.log.Debug().Err(err).Strs("rules", req.RuleNames).Str("combined", req.CombinedRuleName).Msg("combine failed")
		return nil, fmt.Errorf("failed to combine rules: %w", err)
	}
	return rule, nil
}
