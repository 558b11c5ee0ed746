package console

import (
	"errors"

	"github.com/TimurManjosov/ruleconsole/internal/client"
	"github.com/TimurManjosov/ruleconsole/internal/evaluation"
	"github.com/TimurManjosov/ruleconsole/internal/rules"
	"github.com/TimurManjosov/ruleconsole/internal/validation"
)

// Level classifies a notice for rendering.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is the message shown to the operator after an action.
type Notice struct {
	Level Level
	Text  string
}

// OK reports whether the action the notice describes succeeded. Informational
// outcomes such as a missing rule on delete are not successes.
func (n Notice) OK() bool { return n.Level == LevelSuccess }

func success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }

func failure(text string) Notice { return Notice{Level: LevelError, Text: text} }

// CombineNotice renders the outcome of a combine action.
func CombineNotice(rule *rules.Rule, err error) Notice {
	if err != nil {
		if validation.IsValidation(err) {
			return failure(validationText(err))
		}
		return failure(err.Error())
	}
	return success("Rules combined successfully! New rule: " + rule.Name)
}

// AttributesNotice renders a failed attribute fetch. Superseded responses are
// informational; the newer selection owns the screen.
func AttributesNotice(err error) Notice {
	switch {
	case err == nil:
		return Notice{}
	case errors.Is(err, evaluation.ErrSuperseded):
		return Notice{Level: LevelInfo, Text: "Ignored attributes for a rule that is no longer selected."}
	case validation.IsValidation(err):
		return failure(validationText(err))
	case client.IsNotFound(err):
		return failure("Failed to fetch attributes: rule not found")
	default:
		return failure("Failed to fetch attributes: " + err.Error())
	}
}

// EvaluateNotice renders a failed evaluation.
func EvaluateNotice(err error) Notice {
	switch {
	case err == nil:
		return Notice{}
	case errors.Is(err, evaluation.ErrSuperseded):
		return Notice{Level: LevelInfo, Text: "Ignored a verdict for a rule that is no longer selected."}
	case errors.Is(err, evaluation.ErrNotReady), errors.Is(err, evaluation.ErrInFlight):
		return failure(err.Error())
	case validation.IsValidation(err):
		return failure(validationText(err))
	default:
		return failure("Failed to evaluate rule: " + err.Error())
	}
}

func validationText(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
