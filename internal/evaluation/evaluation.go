// Package evaluation drives the two-step evaluate flow: discover the attributes a
// rule expects, build a form for them, then submit the operator's values and
// project the service's boolean answer into a verdict.
//
// State machine:
//
//	Idle --Select--> AttributesLoading --ok--> AttributesReady --Submit--> Evaluating --ok--> Resolved
//	                                   \--err--> Failed                                \--err--> Failed
//
// Rules enforced here:
//
//   - Submit is rejected until attributes have loaded for the selected rule.
//   - A Submit whose values fail validation stays in AttributesReady and sends nothing.
//   - Every Select starts a new generation and discards the previous form. A
//     response that arrives for an older generation is dropped (ErrSuperseded), so
//     a slow fetch for rule X never populates the form after rule Y was selected.
//   - Nothing is retried. The operator retries by repeating the action.
//
// Testing Guide:
//
// Tests drive an Orchestrator against testutil.FakeRuleService. Stale-response
// ordering is exercised with FakeRuleService.Hold, which parks a request until
// the test releases it.
package evaluation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/ruleconsole/internal/form"
	"github.com/TimurManjosov/ruleconsole/internal/rules"
	"github.com/TimurManjosov/ruleconsole/internal/telemetry"
	"github.com/TimurManjosov/ruleconsole/internal/validation"
)

// Phase is a state of the evaluate flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAttributesLoading
	PhaseAttributesReady
	PhaseEvaluating
	PhaseResolved
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAttributesLoading:
		return "attributes_loading"
	case PhaseAttributesReady:
		return "attributes_ready"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseResolved:
		return "resolved"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrSuperseded is returned when a response arrives after a newer Select.
	ErrSuperseded = errors.New("rule selection changed while the request was in flight")
	// ErrNotReady is returned by Submit before attributes have loaded.
	ErrNotReady = errors.New("fetch the rule's attributes before evaluating")
	// ErrInFlight is returned by Submit while an evaluation is outstanding.
	ErrInFlight = errors.New("an evaluation is already in progress")
)

// Service is the part of the rule service client the flow needs.
type Service interface {
	FetchAttributes(ctx context.Context, ruleName string) ([]string, error)
	EvaluateRule(ctx context.Context, ruleName string, values rules.AttributeValues) (*rules.EvaluationResult, error)
}

// Verdict colors.
const (
	ColorEligible    = "green"
	ColorNotEligible = "red"
)

// Verdict is the rendered form of an evaluation result.
type Verdict struct {
	Eligible bool
	Label    string
	Color    string
	Metadata map[string]any
}

// VerdictFor projects a result onto its label and color. Only the boolean is consulted.
func VerdictFor(res rules.EvaluationResult) Verdict {
	if res.Eligible {
		return Verdict{Eligible: true, Label: "Eligible", Color: ColorEligible, Metadata: res.Metadata}
	}
	return Verdict{Eligible: false, Label: "Not Eligible", Color: ColorNotEligible, Metadata: res.Metadata}
}

// State is a point-in-time copy of the flow.
type State struct {
	Phase      Phase
	Rule       string
	Generation uint64
	Fields     []form.Field
	Verdict    *Verdict
	Err        error
}

// CanEvaluate reports whether the evaluate action should be offered.
func (s State) CanEvaluate() bool {
	switch s.Phase {
	case PhaseAttributesReady, PhaseResolved:
		return true
	case PhaseFailed:
		return s.Fields != nil
	default:
		return false
	}
}

// Orchestrator owns the single active form and the verdict for one operator.
// It is safe for concurrent use; the lock is never held across a service call.
type Orchestrator struct {
	svc Service
	log zerolog.Logger

	mu      sync.Mutex
	phase   Phase
	rule    string
	gen     uint64
	form    *form.Handle
	verdict *Verdict
	err     error
}

// New creates an idle orchestrator.
func New(svc Service, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{svc: svc, log: log}
}

// Select starts a new evaluate cycle for ruleName: the previous form is torn
// down, attributes are fetched, and a fresh form is built from them.
func (o *Orchestrator) Select(ctx context.Context, ruleName string) (State, error) {
	ruleName = strings.TrimSpace(ruleName)
	if ruleName == "" {
		return o.State(), validation.New("ruleName", "Please enter a rule name.")
	}

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.rule = ruleName
	o.form = nil
	o.verdict = nil
	o.err = nil
	o.transitionLocked(PhaseAttributesLoading)
	o.mu.Unlock()

	attrs, err := o.svc.FetchAttributes(ctx, ruleName)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		o.log.Debug().Str("rule", ruleName).Uint64("generation", gen).Msg("discarding superseded attribute response")
		return o.stateLocked(), ErrSuperseded
	}
	if err != nil {
		o.err = err
		o.transitionLocked(PhaseFailed)
		return o.stateLocked(), err
	}
	o.form = form.Build(attrs)
	o.transitionLocked(PhaseAttributesReady)
	return o.stateLocked(), nil
}

// Submit replaces the current form's values, snapshots it and asks the service
// for a verdict. Values from an earlier Submit are not carried over. Validation
// failures never reach the service.
func (o *Orchestrator) Submit(ctx context.Context, values map[string]string) (State, error) {
	o.mu.Lock()
	if o.phase == PhaseEvaluating {
		o.mu.Unlock()
		return o.State(), ErrInFlight
	}
	if o.form == nil || o.phase == PhaseAttributesLoading {
		o.mu.Unlock()
		return o.State(), ErrNotReady
	}

	payload, err := o.prepareLocked(values)
	if err != nil {
		o.verdict = nil
		o.err = err
		o.transitionLocked(PhaseAttributesReady)
		st := o.stateLocked()
		o.mu.Unlock()
		return st, err
	}

	gen := o.gen
	rule := o.rule
	o.verdict = nil
	o.err = nil
	o.transitionLocked(PhaseEvaluating)
	o.mu.Unlock()

	res, err := o.svc.EvaluateRule(ctx, rule, payload)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		o.log.Debug().Str("rule", rule).Uint64("generation", gen).Msg("discarding superseded evaluation response")
		return o.stateLocked(), ErrSuperseded
	}
	if err != nil {
		o.err = err
		o.transitionLocked(PhaseFailed)
		return o.stateLocked(), err
	}
	v := VerdictFor(*res)
	o.verdict = &v
	o.transitionLocked(PhaseResolved)
	telemetry.ObserveVerdict(v.Eligible)
	return o.stateLocked(), nil
}

// Reset returns to Idle and invalidates anything in flight.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.rule = ""
	o.form = nil
	o.verdict = nil
	o.err = nil
	o.transitionLocked(PhaseIdle)
}

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

func (o *Orchestrator) prepareLocked(values map[string]string) (rules.AttributeValues, error) {
	if err := o.form.Replace(values); err != nil {
		return nil, err
	}
	return o.form.Snapshot()
}

func (o *Orchestrator) transitionLocked(next Phase) {
	if o.phase != next {
		o.log.Debug().
			Str("rule", o.rule).
			Uint64("generation", o.gen).
			Stringer("from", o.phase).
			Stringer("to", next).
			Msg("evaluation state")
	}
	o.phase = next
}

func (o *Orchestrator) stateLocked() State {
	st := State{
		Phase:      o.phase,
		Rule:       o.rule,
		Generation: o.gen,
		Err:        o.err,
	}
	if o.form != nil {
		st.Fields = o.form.Fields()
	}
	if o.verdict != nil {
		v := *o.verdict
		st.Verdict = &v
	}
	return st
}
