package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/TimurManjosov/ruleconsole/internal/rules"
)

// RecordedRequest is one request received by FakeRuleService.
type RecordedRequest struct {
	Method string
	Path   string
	Body   string
}

// Gate holds the next request to a path until released.
type Gate struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// Arrived is closed once the held request has reached the service.
func (g *Gate) Arrived() <-chan struct{} { return g.arrived }

// Release lets the held request complete.
func (g *Gate) Release() { g.once.Do(func() { close(g.release) }) }

type forcedResponse struct {
	status int
	body   string
}

// FakeRuleService is an in-memory stand-in for the remote rule service, served
// over httptest with the same routes and status codes.
type FakeRuleService struct {
	Server *httptest.Server

	// Evaluator decides verdicts. The default reports false for every rule.
	Evaluator func(rule string, values map[string]string) bool

	mu         sync.Mutex
	rules      []rules.Rule
	attributes map[string][]string
	requests   []RecordedRequest
	gates      map[string]*Gate
	held       []*Gate
	forced     map[string]forcedResponse
}

// NewFakeRuleService starts a fake service that is closed with the test.
func NewFakeRuleService(t *testing.T) *FakeRuleService {
	t.Helper()
	f := &FakeRuleService{
		attributes: make(map[string][]string),
		gates:      make(map[string]*Gate),
		forced:     make(map[string]forcedResponse),
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(func() {
		f.releaseAll()
		f.Server.Close()
	})
	return f
}

// URL is the base address of the fake service.
func (f *FakeRuleService) URL() string { return f.Server.URL }

// AddRule seeds a rule with the attribute names its expression uses.
func (f *FakeRuleService) AddRule(name, ruleString string, attributes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, newRule(name, ruleString))
	f.attributes[name] = append([]string(nil), attributes...)
}

// Rules returns the stored rules in insertion order.
func (f *FakeRuleService) Rules() []rules.Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rules.Rule(nil), f.rules...)
}

// Requests returns every request received so far.
func (f *FakeRuleService) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// RequestCount counts requests matching method and path.
func (f *FakeRuleService) RequestCount(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Hold makes the next request to path block until the returned gate is released.
func (f *FakeRuleService) Hold(path string) *Gate {
	g := &Gate{arrived: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.gates[path] = g
	f.held = append(f.held, g)
	f.mu.Unlock()
	return g
}

// Respond forces the next request to path to answer with status and body.
func (f *FakeRuleService) Respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced[path] = forcedResponse{status: status, body: body}
}

func (f *FakeRuleService) releaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.held {
		g.Release()
	}
}

func (f *FakeRuleService) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)
	r.Post("/rules/create_rule", f.handleCreate)
	r.Post("/rules/update_rule/{name}", f.handleUpdate)
	r.Post("/rules/combine_rules", f.handleCombine)
	r.Get("/rules/all", f.handleList)
	r.Get("/rules/{name}/attributes", f.handleAttributes)
	r.Post("/rules/{name}/evaluate_rule", f.handleEvaluate)
	r.Delete("/rules/{name}", f.handleDelete)
	return r
}

// record logs the request, then applies any gate or forced response for its path.
func (f *FakeRuleService) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		gate := f.gates[r.URL.Path]
		delete(f.gates, r.URL.Path)
		f.mu.Unlock()

		if gate != nil {
			close(gate.arrived)
			select {
			case <-gate.release:
			case <-r.Context().Done():
				return
			}
		}

		f.mu.Lock()
		forced, ok := f.forced[r.URL.Path]
		delete(f.forced, r.URL.Path)
		f.mu.Unlock()
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(forced.status)
			_, _ = io.WriteString(w, forced.body)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (f *FakeRuleService) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RuleName   string `json:"ruleName"`
		RuleString string `json:"ruleString"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexLocked(req.RuleName) >= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Rule with name '%s' already exists", req.RuleName)})
		return
	}
	rule := newRule(req.RuleName, req.RuleString)
	f.rules = append(f.rules, rule)
	writeJSON(w, http.StatusOK, rule)
}

func (f *FakeRuleService) handleUpdate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req struct {
		RuleString string `json:"ruleString"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(name)
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.rules[i].RuleString = req.RuleString
	writeJSON(w, http.StatusOK, f.rules[i])
}

func (f *FakeRuleService) handleCombine(w http.ResponseWriter, r *http.Request) {
	var req rules.CombineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Operator != rules.OpAnd && req.Operator != rules.OpOr {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	parts := make([]string, 0, len(req.RuleNames))
	var attrs []string
	for _, n := range req.RuleNames {
		i := f.indexLocked(n)
		if i < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Rule not found: %s", n)})
			return
		}
		parts = append(parts, "("+f.rules[i].RuleString+")")
		attrs = append(attrs, f.attributes[n]...)
	}
	rule := newRule(req.CombinedRuleName, strings.Join(parts, " "+string(req.Operator)+" "))
	f.rules = append(f.rules, rule)
	f.attributes[req.CombinedRuleName] = attrs
	writeJSON(w, http.StatusOK, rule)
}

func (f *FakeRuleService) handleList(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]string, 0, len(f.rules))
	for _, rule := range f.rules {
		out = append(out, map[string]string{"name": rule.Name, "ruleString": rule.RuleString})
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeRuleService) handleAttributes(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexLocked(name) < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	attrs := f.attributes[name]
	if attrs == nil {
		attrs = []string{}
	}
	writeJSON(w, http.StatusOK, attrs)
}

func (f *FakeRuleService) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	f.mu.Lock()
	known := f.indexLocked(name) >= 0
	eval := f.Evaluator
	f.mu.Unlock()
	if !known {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	verdict := false
	if eval != nil {
		verdict = eval(name, values)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"result": verdict})
}

func (f *FakeRuleService) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(name)
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.rules = append(f.rules[:i], f.rules[i+1:]...)
	delete(f.attributes, name)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeRuleService) indexLocked(name string) int {
	for i, rule := range f.rules {
		if rule.Name == name {
			return i
		}
	}
	return -1
}

func newRule(name, ruleString string) rules.Rule {
	now := rules.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
	return rules.Rule{
		ID:         uuid.NewString(),
		Name:       name,
		RuleString: ruleString,
		CreatedAt:  &now,
		UpdatedAt:  &now,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
