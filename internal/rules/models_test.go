package rules

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestRuleDecode_ServicePayload(t *testing.T) {
	payload := `{
		"id": "0b7c7d0e-6f3a-4c1e-9d2a-0c8a5a1d2f10",
		"name": "rule1",
		"ruleString": "(age > 30 AND department = 'Sales')",
		"astJson": "{}",
		"createdAt": "2024-10-19T12:34:56.789",
		"updatedAt": null
	}`

	var r Rule
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if r.Name != "rule1" {
		t.Errorf("name: got %q, want %q", r.Name, "rule1")
	}
	if r.RuleString != "(age > 30 AND department = 'Sales')" {
		t.Errorf("ruleString: got %q", r.RuleString)
	}
	if r.CreatedAt == nil {
		t.Fatal("createdAt: expected value")
	}
	want := time.Date(2024, 10, 19, 12, 34, 56, 789000000, time.UTC)
	if !r.CreatedAt.Equal(want) {
		t.Errorf("createdAt: got %v, want %v", r.CreatedAt.Time, want)
	}
	if r.UpdatedAt != nil {
		t.Errorf("updatedAt: expected nil, got %v", r.UpdatedAt)
	}
}

func TestRuleDecode_ListEntry(t *testing.T) {
	var rs []Rule
	if err := json.Unmarshal([]byte(`[{"name":"a","ruleString":"x = 1"},{"name":"b","ruleString":"y = 2"}]`), &rs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rs) != 2 || rs[0].Name != "a" || rs[1].RuleString != "y = 2" {
		t.Errorf("unexpected rules: %+v", rs)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "2024-10-19T12:34:56Z"},
		{in: "2024-10-19T12:34:56.123456"},
		{in: "2024-10-19T12:34:56"},
		{in: "2024-10-19 12:34:56"},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestEvaluationResultDecode(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantEligible bool
		wantMeta     int
		wantErr      bool
	}{
		{name: "true", payload: `{"result":true}`, wantEligible: true},
		{name: "false", payload: `{"result":false}`, wantEligible: false},
		{name: "with metadata", payload: `{"result":true,"rule":"r1","took_ms":3}`, wantEligible: true, wantMeta: 2},
		{name: "missing result", payload: `{"ok":true}`, wantErr: true},
		{name: "non boolean result", payload: `{"result":"yes"}`, wantErr: true},
		{name: "not an object", payload: `[true]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res EvaluationResult
			err := json.Unmarshal([]byte(tt.payload), &res)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if res.Eligible != tt.wantEligible {
				t.Errorf("Eligible = %v, want %v", res.Eligible, tt.wantEligible)
			}
			if len(res.Metadata) != tt.wantMeta {
				t.Errorf("Metadata = %v, want %d entries", res.Metadata, tt.wantMeta)
			}
		})
	}
}

func TestCombineRequestEncode(t *testing.T) {
	req := CombineRequest{
		RuleNames:        []string{"R1", "R2", "R1"},
		CombinedRuleName: "R4",
		Operator:         OpAnd,
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"ruleNames":["R1","R2","R1"],"combinedRuleName":"R4","operator":"AND"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestRuleYAML_ExportReadsBack(t *testing.T) {
	ts, err := ParseTimestamp("2024-10-19T12:34:56")
	if err != nil {
		t.Fatal(err)
	}
	in := Rule{Name: "rule1", RuleString: "age > 30", CreatedAt: &ts}

	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}

	var out Rule
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("yaml.Unmarshal failed: %v\n%s", err, data)
	}
	if out.Name != "rule1" || out.RuleString != "age > 30" {
		t.Errorf("Expected rule1/age > 30, got %s/%s", out.Name, out.RuleString)
	}
	if out.CreatedAt == nil || !out.CreatedAt.Equal(ts.Time) {
		t.Errorf("Expected createdAt %v, got %v", ts.Time, out.CreatedAt)
	}
	if out.UpdatedAt != nil {
		t.Errorf("Expected no updatedAt, got %v", out.UpdatedAt)
	}
}
