package rules

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// timestampLayouts are tried in order when decoding service timestamps. The
// service emits zone-less local date-times; RFC 3339 is accepted as well.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp is a service timestamp that tolerates missing zone information.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the layouts the service is known to emit.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}

// MarshalYAML implements yaml.Marshaler.
func (t Timestamp) MarshalYAML() (interface{}, error) {
	return t.Format(time.RFC3339), nil
}

// UnmarshalYAML implements yaml.Unmarshaler so exported rule files read back.
func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" || node.Value == "" {
		return nil
	}
	parsed, err := ParseTimestamp(node.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalJSON decodes {"result": bool, ...}. Any other keys the service adds are
// kept in Metadata. A missing result field is an error rather than a silent false.
func (r *EvaluationResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	verdict, ok := raw["result"]
	if !ok {
		return fmt.Errorf("evaluation response has no result field")
	}
	if err := json.Unmarshal(verdict, &r.Eligible); err != nil {
		return fmt.Errorf("evaluation result must be a boolean: %w", err)
	}
	delete(raw, "result")
	if len(raw) == 0 {
		r.Metadata = nil
		return nil
	}
	r.Metadata = make(map[string]any, len(raw))
	for k, v := range raw {
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return fmt.Errorf("evaluation metadata %q: %w", k, err)
		}
		r.Metadata[k] = decoded
	}
	return nil
}
