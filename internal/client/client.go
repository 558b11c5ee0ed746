package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/ruleconsole/internal/rules"
	"github.com/TimurManjosov/ruleconsole/internal/telemetry"
	"github.com/TimurManjosov/ruleconsole/internal/validation"
)

// DefaultBaseURL is where the rule service listens unless configured otherwise.
const DefaultBaseURL = "http://localhost:8086"

const maxResponseBody = 4 << 20

// Operation names used in errors, logs and metrics.
const (
	OpCreate     = "create rule"
	OpUpdate     = "update rule"
	OpDelete     = "delete rule"
	OpList       = "list rules"
	OpAttributes = "fetch attributes"
	OpEvaluate   = "evaluate rule"
	OpCombine    = "combine rules"
)

// DeleteOutcome distinguishes a deleted rule from one that did not exist.
type DeleteOutcome int

const (
	DeleteOutcomeDeleted DeleteOutcome = iota
	DeleteOutcomeNotFound
)

func (o DeleteOutcome) String() string {
	if o == DeleteOutcomeNotFound {
		return "not found"
	}
	return "deleted"
}

// Client is an HTTP client for the rule service. It holds no rule state; every
// method issues exactly one request and never retries.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewClient creates a new rule service client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Logger: zerolog.Nop(),
	}
}

// CreateRule creates a rule from its name and expression.
func (c *Client) CreateRule(ctx context.Context, name, ruleString string) (*rules.Rule, error) {
	if err := validation.ValidateRule(name, ruleString).Err(); err != nil {
		return nil, err
	}

	payload := map[string]string{"ruleName": name, "ruleString": ruleString}
	var rule rules.Rule
	if err := c.call(ctx, OpCreate, http.MethodPost, "/rules/create_rule", "", payload, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// UpdateRule replaces the expression of the rule identified by name.
func (c *Client) UpdateRule(ctx context.Context, name, ruleString string) (*rules.Rule, error) {
	if err := validation.ValidateRule(name, ruleString).Err(); err != nil {
		return nil, err
	}

	payload := map[string]string{"ruleString": ruleString}
	var rule rules.Rule
	if err := c.call(ctx, OpUpdate, http.MethodPost, "/rules/update_rule/"+url.PathEscape(name), name, payload, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// DeleteRule deletes a rule. Only 204 counts as deleted; 404 is reported as
// DeleteOutcomeNotFound with a nil error.
func (c *Client) DeleteRule(ctx context.Context, name string) (DeleteOutcome, error) {
	if err := validation.ValidateRuleName("ruleName", name).Err(); err != nil {
		return 0, err
	}

	status, body, err := c.send(ctx, OpDelete, http.MethodDelete, "/rules/"+url.PathEscape(name), nil)
	if err != nil {
		return 0, err
	}

	switch status {
	case http.StatusNoContent:
		return DeleteOutcomeDeleted, nil
	case http.StatusNotFound:
		return DeleteOutcomeNotFound, nil
	default:
		return 0, &ServiceError{Op: OpDelete, StatusCode: status, Message: errorMessage(body)}
	}
}

// ListRules returns every rule in service order.
func (c *Client) ListRules(ctx context.Context) ([]rules.Rule, error) {
	var list []rules.Rule
	if err := c.call(ctx, OpList, http.MethodGet, "/rules/all", "", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []rules.Rule{}
	}
	return list, nil
}

// FetchAttributes returns the attribute names the rule's expression references.
func (c *Client) FetchAttributes(ctx context.Context, ruleName string) ([]string, error) {
	if err := validation.ValidateRuleName("ruleName", ruleName).Err(); err != nil {
		return nil, err
	}

	var attrs []string
	if err := c.call(ctx, OpAttributes, http.MethodGet, "/rules/"+url.PathEscape(ruleName)+"/attributes", ruleName, nil, &attrs); err != nil {
		return nil, err
	}
	if attrs == nil {
		attrs = []string{}
	}
	return attrs, nil
}

// EvaluateRule evaluates the rule against values and returns the verdict.
func (c *Client) EvaluateRule(ctx context.Context, ruleName string, values rules.AttributeValues) (*rules.EvaluationResult, error) {
	if err := validation.ValidateRuleName("ruleName", ruleName).Err(); err != nil {
		return nil, err
	}
	if values == nil {
		values = rules.AttributeValues{}
	}

	var result rules.EvaluationResult
	if err := c.call(ctx, OpEvaluate, http.MethodPost, "/rules/"+url.PathEscape(ruleName)+"/evaluate_rule", ruleName, values, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CombineRules asks the service to merge req.RuleNames into a new rule.
func (c *Client) CombineRules(ctx context.Context, req rules.CombineRequest) (*rules.Rule, error) {
	result := validation.NewValidationResult()
	if len(req.RuleNames) == 0 {
		result.AddError("ruleNames", "At least one rule name is required")
	}
	result.Merge(validation.ValidateRuleName("combinedRuleName", req.CombinedRuleName))
	if strings.TrimSpace(string(req.Operator)) == "" {
		result.AddError("operator", "Operator is required")
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	var rule rules.Rule
	if err := c.call(ctx, OpCombine, http.MethodPost, "/rules/combine_rules", "", req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// call sends a request and decodes a 2xx JSON body into out. A 404 on an
// operation that targets a named rule becomes a NotFoundError. When out is
// non-nil an empty 2xx body is a TransportError, never a zero value.
func (c *Client) call(ctx context.Context, op, method, path, name string, payload, out any) error {
	status, body, err := c.send(ctx, op, method, path, payload)
	if err != nil {
		return err
	}

	if status < 200 || status > 299 {
		if status == http.StatusNotFound && name != "" {
			return &NotFoundError{Op: op, Name: name}
		}
		return &ServiceError{Op: op, StatusCode: status, Message: errorMessage(body)}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &TransportError{Op: op, Err: errEmptyResponse}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// send performs one HTTP exchange and returns the status and body.
func (c *Client) send(ctx context.Context, op, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		telemetry.ObserveServiceCall(op, "transport_error", time.Since(start))
		c.Logger.Debug().Err(err).Str("op", op).Str("request_id", requestID).Msg("rule service unreachable")
		return 0, nil, &TransportError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	elapsed := time.Since(start)
	if err != nil {
		telemetry.ObserveServiceCall(op, "transport_error", elapsed)
		return 0, nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	telemetry.ObserveServiceCall(op, outcomeLabel(resp.StatusCode), elapsed)
	c.Logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("rule service call")

	return resp.StatusCode, body, nil
}

func outcomeLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "ok"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= 400 && status < 500:
		return "client_error"
	default:
		return "server_error"
	}
}
