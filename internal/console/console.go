// Package console holds the request/render controllers for rule create, update,
// delete and list. Each action validates its input, makes one service call and
// returns the notice to show.
package console

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/ruleconsole/internal/client"
	"github.com/TimurManjosov/ruleconsole/internal/rules"
	"github.com/TimurManjosov/ruleconsole/internal/validation"
)

// Service is the part of the rule service client the CRUD controllers need.
type Service interface {
	CreateRule(ctx context.Context, name, ruleString string) (*rules.Rule, error)
	UpdateRule(ctx context.Context, name, ruleString string) (*rules.Rule, error)
	DeleteRule(ctx context.Context, name string) (client.DeleteOutcome, error)
	ListRules(ctx context.Context) ([]rules.Rule, error)
}

// Controller implements the CRUD actions.
type Controller struct {
	svc Service
	log zerolog.Logger
}

// NewController creates a CRUD controller.
func NewController(svc Service, log zerolog.Logger) *Controller {
	return &Controller{svc: svc, log: log}
}

// Create creates a rule.
func (c *Controller) Create(ctx context.Context, name, ruleString string) Notice {
	if !validation.ValidateRule(name, ruleString).Valid {
		return failure("Please enter both Rule Name and Rule.")
	}
	rule, err := c.svc.CreateRule(ctx, name, ruleString)
	if err != nil {
		c.log.Error().Err(err).Str("rule", name).Msg("create rule failed")
		return failure("Failed to create rule: " + err.Error())
	}
	c.log.Debug().Str("rule", rule.Name).Str("id", rule.ID).Msg("rule created")
	return success("Rule created successfully!")
}

// Update replaces a rule's expression.
func (c *Controller) Update(ctx context.Context, name, ruleString string) Notice {
	if !validation.ValidateRule(name, ruleString).Valid {
		return failure("Please enter both Rule Name and Rule.")
	}
	if _, err := c.svc.UpdateRule(ctx, name, ruleString); err != nil {
		c.log.Error().Err(err).Str("rule", name).Msg("update rule failed")
		if client.IsNotFound(err) {
			return failure("Rule not found")
		}
		return failure("Failed to modify rule: " + err.Error())
	}
	return success("Rule modified successfully!")
}

// Delete removes a rule. Deleted, not found and failed each get their own message.
func (c *Controller) Delete(ctx context.Context, name string) Notice {
	if !validation.ValidateRuleName("ruleName", name).Valid {
		return failure("Please enter a rule name to delete.")
	}
	outcome, err := c.svc.DeleteRule(ctx, name)
	if err != nil {
		c.log.Error().Err(err).Str("rule", name).Msg("delete rule failed")
		if se, ok := client.AsServiceError(err); ok {
			return failure(fmt.Sprintf("Failed to delete rule (status %s)", se.Status()))
		}
		return failure("Error deleting rule: " + err.Error())
	}
	if outcome == client.DeleteOutcomeNotFound {
		return Notice{Level: LevelInfo, Text: "Rule not found"}
	}
	return success("Rule deleted successfully")
}

// List fetches every rule with a single request, in service order.
func (c *Controller) List(ctx context.Context) ([]rules.Rule, Notice) {
	list, err := c.svc.ListRules(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("list rules failed")
		return nil, failure("Failed to fetch all rules: " + err.Error())
	}
	if len(list) == 0 {
		return list, Notice{Level: LevelInfo, Text: "No rules found"}
	}
	return list, success(fmt.Sprintf("Loaded %d rule(s)", len(list)))
}
