package tui

import (
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimurManjosov/ruleconsole/internal/client"
	"github.com/TimurManjosov/ruleconsole/internal/evaluation"
	"github.com/TimurManjosov/ruleconsole/internal/testutil"
)

func newModel(t *testing.T, svc *testutil.FakeRuleService, rule string) EvaluateModel {
	t.Helper()
	c := client.NewClient(svc.URL(), 5*time.Second)
	return NewEvaluateModel(evaluation.New(c, zerolog.Nop()), rule, 5*time.Second)
}

// step runs a command synchronously and feeds its message back into the model.
func step(t *testing.T, m EvaluateModel, cmd tea.Cmd) EvaluateModel {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(EvaluateModel)
}

func press(m EvaluateModel, msg tea.KeyMsg) (EvaluateModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(EvaluateModel), cmd
}

func typeText(m EvaluateModel, text string) EvaluateModel {
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestEvaluateModel_FullFlow(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	svc.AddRule("rule1", "age > 30 AND income > 5000", "age", "income")
	svc.Evaluator = func(_ string, values map[string]string) bool { return values["age"] == "42" }

	m := newModel(t, svc, "rule1")
	assert.Contains(t, m.View(), "Fetching attributes...")

	m = step(t, m, m.Init())
	require.Len(t, m.inputs, 2)
	assert.Equal(t, []string{"age", "income"}, m.names)
	assert.Contains(t, m.View(), "age:")
	assert.Contains(t, m.View(), "income:")

	m = typeText(m, "42")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "enter on a non-final field only moves focus")
	assert.Equal(t, 1, m.focus)

	m = typeText(m, "9000")
	assert.Equal(t, map[string]string{"age": "42", "income": "9000"}, m.Values())

	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, cmd)

	require.NotNil(t, m.Verdict())
	assert.True(t, m.Verdict().Eligible)
	assert.Contains(t, m.View(), "Eligible")
	assert.Equal(t, 1, svc.RequestCount(http.MethodPost, "/rules/rule1/evaluate_rule"))
}

func TestEvaluateModel_NotEligible(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	svc.AddRule("rule1", "age > 30", "age")

	m := newModel(t, svc, "rule1")
	m = step(t, m, m.Init())
	m = typeText(m, "18")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, cmd)

	require.NotNil(t, m.Verdict())
	assert.False(t, m.Verdict().Eligible)
	assert.Equal(t, evaluation.ColorNotEligible, m.Verdict().Color)
	assert.Contains(t, m.View(), "Not Eligible")
}

func TestEvaluateModel_MissingValue(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	svc.AddRule("rule1", "age > 30", "age")

	m := newModel(t, svc, "rule1")
	m = step(t, m, m.Init())
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, cmd)

	assert.Nil(t, m.Verdict())
	assert.Contains(t, m.View(), "please enter a value for age")
	assert.Equal(t, 0, svc.RequestCount(http.MethodPost, "/rules/rule1/evaluate_rule"))
}

func TestEvaluateModel_UnknownRule(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)

	m := newModel(t, svc, "ghost")
	m = step(t, m, m.Init())

	assert.Empty(t, m.inputs)
	assert.Contains(t, m.View(), "Failed to fetch attributes: rule not found")

	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "enter must not submit without attributes")
}

func TestEvaluateModel_FocusWraps(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	svc.AddRule("rule1", "a = 1 AND b = 2", "a", "b")

	m := newModel(t, svc, "rule1")
	m = step(t, m, m.Init())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 1, m.focus)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.focus)
}

func TestEvaluateModel_Quit(t *testing.T) {
	svc := testutil.NewFakeRuleService(t)
	m := newModel(t, svc, "rule1")

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}
