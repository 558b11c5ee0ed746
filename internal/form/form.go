// Package form builds the input surface for a rule's attributes: one labelled,
// required text field per attribute name, in the order the service returned them.
package form

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TimurManjosov/ruleconsole/internal/rules"
	"github.com/TimurManjosov/ruleconsole/internal/validation"
)

// Field is one labelled input.
type Field struct {
	Name        string
	Label       string
	Placeholder string
	Required    bool
	Value       string
}

// Handle owns the fields created by a single Build. A new Build never reuses or
// merges a previous handle.
type Handle struct {
	fields []Field
	index  map[string]int
}

// Build creates one required field per attribute name, preserving order.
// Repeated names keep their first position.
func Build(names []string) *Handle {
	h := &Handle{
		fields: make([]Field, 0, len(names)),
		index:  make(map[string]int, len(names)),
	}
	for _, name := range names {
		if _, dup := h.index[name]; dup {
			continue
		}
		h.index[name] = len(h.fields)
		h.fields = append(h.fields, Field{
			Name:        name,
			Label:       name + ":",
			Placeholder: "Enter value for " + name,
			Required:    true,
		})
	}
	return h
}

// Len returns the number of fields.
func (h *Handle) Len() int { return len(h.fields) }

// Names returns the attribute names in display order.
func (h *Handle) Names() []string {
	out := make([]string, len(h.fields))
	for i, f := range h.fields {
		out[i] = f.Name
	}
	return out
}

// Fields returns a copy of the fields in display order.
func (h *Handle) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// Set stores the value typed into the named field.
func (h *Handle) Set(name, value string) error {
	i, ok := h.index[name]
	if !ok {
		return validation.New(name, "unknown attribute")
	}
	h.fields[i].Value = value
	return nil
}

// Load sets several fields at once. Keys the form does not have are rejected and
// nothing is changed.
func (h *Handle) Load(values map[string]string) error {
	if err := h.checkKnown(values); err != nil {
		return err
	}
	for name, v := range values {
		h.fields[h.index[name]].Value = v
	}
	return nil
}

func (h *Handle) checkKnown(values map[string]string) error {
	var unknown []string
	for name := range values {
		if _, ok := h.index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return validation.New("attributes", fmt.Sprintf("unknown attributes: %s", strings.Join(unknown, ", ")))
	}
	return nil
}

// Replace is Load on a cleared form: fields absent from values end up blank.
func (h *Handle) Replace(values map[string]string) error {
	if err := h.checkKnown(values); err != nil {
		return err
	}
	for i := range h.fields {
		h.fields[i].Value = values[h.fields[i].Name]
	}
	return nil
}

// Snapshot reads every field into AttributeValues. It fails if any required field
// is blank, naming the missing fields in display order.
func (h *Handle) Snapshot() (rules.AttributeValues, error) {
	values := make(rules.AttributeValues, len(h.fields))
	var missing []string
	for _, f := range h.fields {
		if f.Required && strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
			continue
		}
		values[f.Name] = f.Value
	}
	if len(missing) > 0 {
		return nil, &MissingError{Names: missing}
	}
	return values, nil
}

// MissingError lists the required fields left blank.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return "please enter a value for " + strings.Join(e.Names, ", ")
}

// Is reports a MissingError as a validation failure.
func (e *MissingError) Is(target error) bool {
	return target == validation.ErrValidation
}
