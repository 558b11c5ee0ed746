// Package validation provides the input checks the console runs before any request
// reaches the rule service.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// MaxRuleNameLength is the maximum length for rule names
	MaxRuleNameLength = 255
	// MaxRuleStringLength is the maximum length for rule expressions
	MaxRuleStringLength = 64 * 1024
)

// ErrValidation is matched by every *Error via errors.Is.
var ErrValidation = errors.New("validation failed")

// Error is a client-side input error detected before any network call.
type Error struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation.
func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

// New creates a validation error for a single field.
func New(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// Err converts an invalid result into an *Error. Fields are reported in sorted
// order so messages are stable. Returns nil when the result is valid.
func (v *ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	if len(fields) == 1 {
		return New(fields[0], v.Errors[fields[0]])
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f+": "+v.Errors[f])
	}
	return New("", strings.Join(msgs, "; "))
}

// ValidateRuleName validates a rule name
func ValidateRuleName(field, name string) *ValidationResult {
	result := NewValidationResult()
	name = strings.TrimSpace(name)

	if name == "" {
		result.AddError(field, "Rule name is required")
		return result
	}

	if utf8.RuneCountInString(name) > MaxRuleNameLength {
		result.AddError(field, fmt.Sprintf("Rule name must not exceed %d characters", MaxRuleNameLength))
	}

	return result
}

// ValidateRuleString validates a rule expression. The expression itself is opaque
// here; only presence and size are checked.
func ValidateRuleString(ruleString string) *ValidationResult {
	result := NewValidationResult()

	if strings.TrimSpace(ruleString) == "" {
		result.AddError("ruleString", "Rule is required")
		return result
	}

	if len(ruleString) > MaxRuleStringLength {
		result.AddError("ruleString", "Rule must not exceed 64KB")
	}

	return result
}

// ValidateRule validates the name/expression pair used by create and update.
func ValidateRule(name, ruleString string) *ValidationResult {
	result := ValidateRuleName("ruleName", name)
	result.Merge(ValidateRuleString(ruleString))
	return result
}

// Required checks that value is non-blank.
func Required(field, value, message string) error {
	if strings.TrimSpace(value) == "" {
		return New(field, message)
	}
	return nil
}
