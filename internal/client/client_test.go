package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TimurManjosov/ruleconsole/internal/rules"
	"github.com/TimurManjosov/ruleconsole/internal/testutil"
	"github.com/TimurManjosov/ruleconsole/internal/validation"
)

func newTestClient(t *testing.T) (*Client, *testutil.FakeRuleService) {
	t.Helper()
	svc := testutil.NewFakeRuleService(t)
	return NewClient(svc.URL(), 5*time.Second), svc
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", 0)
	if c.BaseURL != DefaultBaseURL {
		t.Errorf("Expected BaseURL %q, got %q", DefaultBaseURL, c.BaseURL)
	}
	if c.HTTPClient.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", c.HTTPClient.Timeout)
	}

	c = NewClient("http://rules.internal:8086/", time.Second)
	if c.BaseURL != "http://rules.internal:8086" {
		t.Errorf("Expected trailing slash trimmed, got %q", c.BaseURL)
	}
}

func TestCreateRule_SendsOnePOSTWithBothFields(t *testing.T) {
	c, svc := newTestClient(t)

	rule, err := c.CreateRule(context.Background(), "rule1", "age > 30")
	if err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}
	if rule.Name != "rule1" || rule.RuleString != "age > 30" {
		t.Errorf("Unexpected rule: %+v", rule)
	}

	reqs := svc.Requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected exactly 1 request, got %d", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[0].Path != "/rules/create_rule" {
		t.Errorf("Unexpected request %s %s", reqs[0].Method, reqs[0].Path)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(reqs[0].Body), &body); err != nil {
		t.Fatalf("Body is not JSON: %v", err)
	}
	if body["ruleName"] != "rule1" || body["ruleString"] != "age > 30" {
		t.Errorf("Unexpected body: %v", body)
	}
}

func TestCreateRule_EmptyInputsIssueNoRequest(t *testing.T) {
	tests := []struct {
		name       string
		ruleName   string
		ruleString string
	}{
		{name: "empty name", ruleName: "", ruleString: "age > 30"},
		{name: "empty rule", ruleName: "rule1", ruleString: ""},
		{name: "both empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, svc := newTestClient(t)
			_, err := c.CreateRule(context.Background(), tt.ruleName, tt.ruleString)
			if !validation.IsValidation(err) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			if n := len(svc.Requests()); n != 0 {
				t.Errorf("Expected no requests, got %d", n)
			}
		})
	}
}

func TestCreateRule_DuplicateIsServiceError(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("rule1", "age > 30")

	_, err := c.CreateRule(context.Background(), "rule1", "age > 40")
	se, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("Expected *ServiceError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", se.StatusCode)
	}
	if !strings.Contains(se.Error(), "already exists") {
		t.Errorf("Expected service message in error, got %q", se.Error())
	}
}

func TestUpdateRule_EncodesName(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("senior sales", "age > 30")

	rule, err := c.UpdateRule(context.Background(), "senior sales", "age > 40")
	if err != nil {
		t.Fatalf("UpdateRule failed: %v", err)
	}
	if rule.RuleString != "age > 40" {
		t.Errorf("Expected updated rule string, got %q", rule.RuleString)
	}
	if n := svc.RequestCount(http.MethodPost, "/rules/update_rule/senior sales"); n != 1 {
		t.Errorf("Expected 1 update request, got %d", n)
	}
}

func TestUpdateRule_NotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.UpdateRule(context.Background(), "missing", "x = 1")
	if !IsNotFound(err) {
		t.Fatalf("Expected not found, got %v", err)
	}
}

func TestDeleteRule_Outcomes(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("rule1", "age > 30")

	outcome, err := c.DeleteRule(context.Background(), "rule1")
	if err != nil || outcome != DeleteOutcomeDeleted {
		t.Fatalf("Expected deleted, got %v, %v", outcome, err)
	}

	outcome, err = c.DeleteRule(context.Background(), "rule1")
	if err != nil || outcome != DeleteOutcomeNotFound {
		t.Fatalf("Expected not found outcome without error, got %v, %v", outcome, err)
	}

	svc.AddRule("rule2", "x = 1")
	svc.Respond("/rules/rule2", http.StatusInternalServerError, `{"error":"db down"}`)
	_, err = c.DeleteRule(context.Background(), "rule2")
	se, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("Expected *ServiceError, got %v", err)
	}
	if !strings.Contains(se.Error(), "500 Internal Server Error") {
		t.Errorf("Expected status in message, got %q", se.Error())
	}
}

func TestDeleteRule_OKWithBodyIsNotDeleted(t *testing.T) {
	c, svc := newTestClient(t)
	svc.Respond("/rules/rule1", http.StatusOK, `{}`)

	_, err := c.DeleteRule(context.Background(), "rule1")
	if _, ok := AsServiceError(err); !ok {
		t.Fatalf("Expected only 204 to count as deleted, got %v", err)
	}
}

func TestListRules_PreservesServiceOrder(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("b", "y = 2")
	svc.AddRule("a", "x = 1")
	svc.AddRule("c", "z = 3")

	first, err := c.ListRules(context.Background())
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	second, err := c.ListRules(context.Background())
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}

	names := func(rs []rules.Rule) string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Name
		}
		return strings.Join(out, ",")
	}
	if names(first) != "b,a,c" {
		t.Errorf("Expected service order b,a,c, got %s", names(first))
	}
	if names(first) != names(second) {
		t.Errorf("Expected repeated listing to match: %s vs %s", names(first), names(second))
	}
	if n := svc.RequestCount(http.MethodGet, "/rules/all"); n != 2 {
		t.Errorf("Expected one request per call, got %d", n)
	}
}

func TestListRules_Empty(t *testing.T) {
	c, _ := newTestClient(t)
	list, err := c.ListRules(context.Background())
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", list)
	}
}

func TestFetchAttributes(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("rule1", "age > 30 AND income > 5000", "age", "income")

	attrs, err := c.FetchAttributes(context.Background(), "rule1")
	if err != nil {
		t.Fatalf("FetchAttributes failed: %v", err)
	}
	if strings.Join(attrs, ",") != "age,income" {
		t.Errorf("Expected [age income], got %v", attrs)
	}

	if _, err := c.FetchAttributes(context.Background(), ""); !validation.IsValidation(err) {
		t.Errorf("Expected validation error for empty name, got %v", err)
	}
	if _, err := c.FetchAttributes(context.Background(), "nope"); !IsNotFound(err) {
		t.Errorf("Expected not found for unknown rule, got %v", err)
	}
	if n := len(svc.Requests()); n != 2 {
		t.Errorf("Expected 2 requests (empty name never sent), got %d", n)
	}
}

func TestEvaluateRule(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("rule1", "age > 30", "age")
	svc.Evaluator = func(_ string, values map[string]string) bool {
		return values["age"] == "42"
	}

	res, err := c.EvaluateRule(context.Background(), "rule1", rules.AttributeValues{"age": "42"})
	if err != nil {
		t.Fatalf("EvaluateRule failed: %v", err)
	}
	if !res.Eligible {
		t.Error("Expected eligible verdict")
	}

	res, err = c.EvaluateRule(context.Background(), "rule1", rules.AttributeValues{"age": "18"})
	if err != nil {
		t.Fatalf("EvaluateRule failed: %v", err)
	}
	if res.Eligible {
		t.Error("Expected not eligible verdict")
	}

	reqs := svc.Requests()
	if reqs[0].Path != "/rules/rule1/evaluate_rule" || reqs[0].Body != `{"age":"42"}` {
		t.Errorf("Unexpected request %s %s", reqs[0].Path, reqs[0].Body)
	}
}

func TestEvaluateRule_MalformedResponseIsTransportError(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("rule1", "age > 30", "age")
	svc.Respond("/rules/rule1/evaluate_rule", http.StatusOK, `{"verdict":true}`)

	_, err := c.EvaluateRule(context.Background(), "rule1", rules.AttributeValues{"age": "1"})
	if !IsTransport(err) {
		t.Fatalf("Expected transport error, got %T: %v", err, err)
	}
}

func TestEvaluateRule_EmptyResponseIsTransportError(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("rule1", "age > 30", "age")
	svc.Respond("/rules/rule1/evaluate_rule", http.StatusOK, "")

	res, err := c.EvaluateRule(context.Background(), "rule1", rules.AttributeValues{"age": "5"})
	if !IsTransport(err) {
		t.Fatalf("Expected transport error, got %T: %v", err, err)
	}
	if res != nil {
		t.Errorf("Expected no result, got %+v", res)
	}
	if !strings.Contains(err.Error(), "empty response") {
		t.Errorf("Expected empty response message, got %v", err)
	}
}

func TestCombineRules(t *testing.T) {
	c, svc := newTestClient(t)
	svc.AddRule("R1", "a = 1", "a")
	svc.AddRule("R2", "b = 2", "b")

	rule, err := c.CombineRules(context.Background(), rules.CombineRequest{
		RuleNames:        []string{"R1", "R2"},
		CombinedRuleName: "R4",
		Operator:         rules.OpAnd,
	})
	if err != nil {
		t.Fatalf("CombineRules failed: %v", err)
	}
	if rule.Name != "R4" || rule.RuleString != "(a = 1) AND (b = 2)" {
		t.Errorf("Unexpected combined rule: %+v", rule)
	}
}

func TestCombineRules_FailureCarriesStatusText(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.CombineRules(context.Background(), rules.CombineRequest{
		RuleNames:        []string{"R1"},
		CombinedRuleName: "R4",
		Operator:         "XOR",
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "Bad Request") {
		t.Errorf("Expected status text in error, got %q", err.Error())
	}
}

func TestCombineRules_Validation(t *testing.T) {
	c, svc := newTestClient(t)

	_, err := c.CombineRules(context.Background(), rules.CombineRequest{Operator: rules.OpOr})
	if !validation.IsValidation(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if len(svc.Requests()) != 0 {
		t.Error("Expected no request for invalid combine")
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(base, time.Second)
	_, err := c.ListRules(context.Background())
	if !IsTransport(err) {
		t.Fatalf("Expected transport error, got %T: %v", err, err)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != OpList {
		t.Errorf("Expected op %q, got %+v", OpList, te)
	}
}

func TestRequestIDHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second).ListRules(context.Background()); err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(got) != 36 {
		t.Errorf("Expected a UUID request id, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{body: `{"error":"Rule with name 'x' already exists"}`, want: "Rule with name 'x' already exists"},
		{body: `{"error":"Bad Request","message":"operator invalid"}`, want: "operator invalid"},
		{body: "plain text", want: "plain text"},
		{body: "", want: ""},
		{body: strings.Repeat("x", 300), want: strings.Repeat("x", 200) + "..."},
	}
	for _, tt := range tests {
		if got := errorMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("errorMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
