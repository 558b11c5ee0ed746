// Package tui is the terminal rendition of the evaluate flow. It drives the same
// evaluation.Orchestrator as the browser console, with one text input per attribute.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TimurManjosov/ruleconsole/internal/console"
	"github.com/TimurManjosov/ruleconsole/internal/evaluation"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle       = lipgloss.NewStyle().Bold(true)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	eligibleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	notEligibleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	infoStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
)

type attributesMsg struct {
	state evaluation.State
	err   error
}

type verdictMsg struct {
	state evaluation.State
	err   error
}

// EvaluateModel collects attribute values for one rule and shows the verdict.
type EvaluateModel struct {
	flow    *evaluation.Orchestrator
	rule    string
	timeout time.Duration

	state    evaluation.State
	names    []string
	inputs   []textinput.Model
	focus    int
	busy     bool
	notice   console.Notice
	quitting bool
}

// NewEvaluateModel creates the model. Attributes are fetched by Init.
func NewEvaluateModel(flow *evaluation.Orchestrator, rule string, timeout time.Duration) EvaluateModel {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return EvaluateModel{flow: flow, rule: rule, timeout: timeout, busy: true}
}

// Init starts the attribute fetch.
func (m EvaluateModel) Init() tea.Cmd {
	flow, rule, timeout := m.flow, m.rule, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		st, err := flow.Select(ctx, rule)
		return attributesMsg{state: st, err: err}
	}
}

// Update handles messages.
func (m EvaluateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case attributesMsg:
		m.busy = false
		m.state = msg.state
		if msg.err != nil {
			m.notice = console.AttributesNotice(msg.err)
			return m, nil
		}
		m.notice = console.Notice{}
		m.buildInputs()
		return m, textinput.Blink

	case verdictMsg:
		m.busy = false
		m.state = msg.state
		m.notice = console.EvaluateNotice(msg.err)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			m.moveFocus(1)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.moveFocus(-1)
			return m, nil
		case tea.KeyEnter:
			if !m.state.CanEvaluate() || m.busy {
				return m, nil
			}
			if m.focus < len(m.inputs)-1 {
				m.moveFocus(1)
				return m, nil
			}
			return m.submit()
		}
	}

	if m.focus < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *EvaluateModel) buildInputs() {
	m.names = m.names[:0]
	m.inputs = m.inputs[:0]
	for _, f := range m.state.Fields {
		in := textinput.New()
		in.Placeholder = f.Placeholder
		in.CharLimit = 256
		in.Width = 40
		in.SetValue(f.Value)
		m.names = append(m.names, f.Name)
		m.inputs = append(m.inputs, in)
	}
	m.focus = 0
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

func (m *EvaluateModel) moveFocus(delta int) {
	if len(m.inputs) == 0 {
		return
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

// Values returns what has been typed, keyed by attribute name.
func (m EvaluateModel) Values() map[string]string {
	values := make(map[string]string, len(m.inputs))
	for i, in := range m.inputs {
		values[m.names[i]] = in.Value()
	}
	return values
}

// Verdict returns the last verdict, if any.
func (m EvaluateModel) Verdict() *evaluation.Verdict {
	return m.state.Verdict
}

func (m EvaluateModel) submit() (tea.Model, tea.Cmd) {
	m.busy = true
	flow, timeout, values := m.flow, m.timeout, m.Values()
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		st, err := flow.Submit(ctx, values)
		return verdictMsg{state: st, err: err}
	}
}

// View renders the form.
func (m EvaluateModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Evaluate rule " + m.rule))
	b.WriteString("\n\n")

	if m.busy && m.state.Phase != evaluation.PhaseEvaluating && len(m.inputs) == 0 {
		b.WriteString(infoStyle.Render("Fetching attributes..."))
		b.WriteString("\n")
	}

	if m.state.CanEvaluate() || m.state.Phase == evaluation.PhaseEvaluating {
		if len(m.inputs) == 0 {
			b.WriteString(helpStyle.Render("This rule has no attributes."))
			b.WriteString("\n")
		}
		for i, in := range m.inputs {
			b.WriteString(labelStyle.Render(m.names[i] + ":"))
			b.WriteString("\n")
			b.WriteString(in.View())
			b.WriteString("\n")
		}
	}

	if v := m.state.Verdict; v != nil {
		b.WriteString("\n")
		style := notEligibleStyle
		if v.Eligible {
			style = eligibleStyle
		}
		b.WriteString(style.Render(v.Label))
		b.WriteString("\n")
	}

	if m.notice.Text != "" {
		b.WriteString("\n")
		style := errorStyle
		if m.notice.Level == console.LevelInfo {
			style = infoStyle
		}
		b.WriteString(style.Render(m.notice.Text))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: next field • enter: evaluate • esc: quit"))
	b.WriteString("\n")
	return b.String()
}
