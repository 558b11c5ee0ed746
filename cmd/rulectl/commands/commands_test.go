package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TimurManjosov/ruleconsole/internal/testutil"
)

// run executes rulectl with args against svc. Flags keep their values between
// runs, so every call passes the ones it depends on.
func run(t *testing.T, svc *testutil.FakeRuleService, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RULECONSOLE_BASE_URL", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--base-url", svc.URL()))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCreateAndList(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)

	out, err := run(t, svc, "", "create", "adults", "--rule", "age >= 18", "--format", "table", "--quiet=false")
	if err != nil {
		t.Fatalf("create failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Rule created successfully!") {
		t.Errorf("Expected success message, got:\n%s", out)
	}

	out, err = run(t, svc, "", "list", "--format", "json", "--quiet=false")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var doc struct {
		Rules []struct {
			Name string `json:"name"`
		} `json:"rules"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Expected JSON output: %v\n%s", err, out)
	}
	if len(doc.Rules) != 1 || doc.Rules[0].Name != "adults" {
		t.Errorf("Expected [adults], got %+v", doc.Rules)
	}
	if svc.RequestCount(http.MethodGet, "/rules/all") != 1 {
		t.Errorf("Expected one list request, got %d", svc.RequestCount(http.MethodGet, "/rules/all"))
	}
}

func TestDelete(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	svc.AddRule("adults", "age >= 18")

	out, err := run(t, svc, "n\n", "delete", "adults", "--force=false", "--quiet=false")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, "Deletion cancelled") {
		t.Errorf("Expected cancellation, got:\n%s", out)
	}
	if len(svc.Rules()) != 1 {
		t.Fatal("Expected rule to survive a cancelled delete")
	}

	out, err = run(t, svc, "", "delete", "adults", "--force", "--quiet=false")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, "Rule deleted successfully") {
		t.Errorf("Expected success, got:\n%s", out)
	}

	_, err = run(t, svc, "", "delete", "adults", "--force", "--quiet=false")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestCombine_EmptyToken(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)

	_, err := run(t, svc, "", "combine", "a,,b", "--name", "c", "--operator", "AND", "--quiet=false")
	if err == nil || !strings.Contains(err.Error(), "rule name 2 is empty") {
		t.Errorf("Expected empty token error, got %v", err)
	}
	if len(svc.Requests()) != 0 {
		t.Errorf("Expected no requests, got %d", len(svc.Requests()))
	}
}

func TestEvaluate_WithSet(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	svc.AddRule("adults", "age >= 18", "age")
	svc.Evaluator = func(_ string, values map[string]string) bool { return values["age"] == "42" }

	out, err := run(t, svc, "", "evaluate", "adults", "--set", "age=42", "--format", "yaml", "--quiet=false", "--interactive=false")
	if err != nil {
		t.Fatalf("evaluate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "label: Eligible") {
		t.Errorf("Expected Eligible verdict, got:\n%s", out)
	}
}

func TestEvaluate_UnknownAttribute(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	svc.AddRule("adults", "age >= 18", "age")

	_, err := run(t, svc, "", "evaluate", "adults", "--set", "height=180", "--quiet=false", "--interactive=false")
	if err == nil || !strings.Contains(err.Error(), "unknown attributes: height") {
		t.Errorf("Expected unknown attribute error, got %v", err)
	}
	if svc.RequestCount(http.MethodPost, "/rules/adults/evaluate_rule") != 0 {
		t.Error("Expected no evaluate request")
	}
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"age=42", "city=New=York", "age=43"})
	if err != nil {
		t.Fatalf("parseAssignments failed: %v", err)
	}
	if values["age"] != "43" || values["city"] != "New=York" {
		t.Errorf("Unexpected values: %v", values)
	}

	for _, bad := range []string{"age", "=42"} {
		if _, err := parseAssignments([]string{bad}); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestImport(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	svc.AddRule("adults", "age >= 18")

	file := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "rules:\n  - name: adults\n    ruleString: age >= 21\n  - name: seniors\n    ruleString: age >= 65\n"
	if err := os.WriteFile(file, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, svc, "", "import", file, "--dry-run=false", "--force=false", "--quiet=false")
	if err != nil {
		t.Fatalf("import failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Import complete: 2 succeeded, 0 failed") {
		t.Errorf("Unexpected output:\n%s", out)
	}
	if svc.RequestCount(http.MethodPost, "/rules/update_rule/adults") != 1 {
		t.Error("Expected existing rule to be updated")
	}
	if svc.RequestCount(http.MethodPost, "/rules/create_rule") != 1 {
		t.Error("Expected new rule to be created")
	}
}
