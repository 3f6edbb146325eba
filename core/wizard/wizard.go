// Package wizard implements the step controller of the portal's multi-step flows:
// an ordered list of steps, each gated by the validation of its fields, ending with an asynchronous submission.
package wizard

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core/async"
	"github.com/trezcool/engsoc/core/form"
)

var (
	ErrInvalidStep = errors.New("step has invalid fields")
	ErrBusy        = errors.New("submission in progress")
	ErrTerminal    = errors.New("flow is complete")
	ErrInvalidFlow = errors.New("a flow needs at least 2 steps")
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Step is one stage of a flow. Fields are validated when leaving the step; Check adds cross-field errors.
type Step struct {
	Name   string
	Fields []string
	Check  func(s *form.State) form.Errors
}

// Flow is the static definition of a wizard. The last step is terminal:
// it is reached only once the submission started from the step before it succeeded.
type Flow struct {
	Name   string
	Schema form.Schema
	Steps  []Step
}

func (f Flow) StepNames() []string {
	names := make([]string, 0, len(f.Steps))
	for _, s := range f.Steps {
		names = append(names, s.Name)
	}
	return names
}

// SubmitFunc builds the final submission from the form values.
type SubmitFunc func(values map[string]interface{}) async.Operation

type Options struct {
	Validator *form.Validator
	Scope     *async.Scope
	Submit    SubmitFunc
	// OnChange is called, with the machine locked, after every transition.
	OnChange func(Snapshot)
}

// Snapshot is a point-in-time copy of a machine's state.
type Snapshot struct {
	Flow      string                 `json:"flow"`
	Steps     []string               `json:"steps"`
	Step      string                 `json:"step"`
	StepIndex int                    `json:"step_index"`
	Status    Status                 `json:"status"`
	Values    map[string]interface{} `json:"values"`
	Errors    form.Errors            `json:"errors"`
	Error     string                 `json:"error,omitempty"`
	Result    interface{}            `json:"result,omitempty"`
}

// Machine is one running instance of a Flow.
type Machine struct {
	mu     sync.Mutex
	flow   Flow
	opts   Options
	idx    int
	state  *form.State
	errs   form.Errors
	status Status
	result interface{}
	err    error
	done   chan struct{}
}

func New(flow Flow, opts Options) (*Machine, error) {
	if len(flow.Steps) < 2 {
		return nil, ErrInvalidFlow
	}
	if opts.Validator == nil {
		return nil, errors.New("validator is required")
	}
	if opts.Submit != nil && opts.Scope == nil {
		return nil, errors.New("a scope is required to submit")
	}
	done := make(chan struct{})
	close(done)
	return &Machine{
		flow:   flow,
		opts:   opts,
		state:  form.NewState(flow.Schema),
		errs:   make(form.Errors),
		status: StatusIdle,
		done:   done,
	}, nil
}

func (m *Machine) terminal() int { return len(m.flow.Steps) - 1 }

// Set updates the form values and clears the errors of the updated fields.
func (m *Machine) Set(values map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idx == m.terminal() {
		return ErrTerminal
	}
	if m.status == StatusSubmitting {
		return ErrBusy
	}
	if err := m.state.SetAll(values); err != nil {
		return err
	}
	for name := range values {
		delete(m.errs, name)
	}
	m.changed()
	return nil
}

// Advance validates the steps up to the current one and moves to the next one.
// If a step before the current one no longer validates, the machine goes back to it.
// From the step before the terminal one, it starts the submission instead: the machine reaches the
// terminal step once it succeeds, or stays put with StatusFailed so Advance can be retried.
func (m *Machine) Advance() error {
	m.mu.Lock()

	if m.idx == m.terminal() {
		m.mu.Unlock()
		return ErrTerminal
	}
	if m.status == StatusSubmitting {
		m.mu.Unlock()
		return ErrBusy
	}

	// fields of earlier steps may have been set since they were left
	for i := 0; i <= m.idx; i++ {
		errs := m.validate(m.flow.Steps[i])
		if errs.Empty() {
			continue
		}
		if i < m.idx {
			m.idx = i
			m.status = StatusIdle
			m.err = nil
		}
		m.errs = errs
		m.changed()
		m.mu.Unlock()
		return errors.Wrap(errs.Err(), ErrInvalidStep.Error())
	}
	m.errs = make(form.Errors)

	if m.idx < m.terminal()-1 {
		m.idx++
		m.status = StatusIdle
		m.err = nil
		m.changed()
		m.mu.Unlock()
		return nil
	}

	// final submission
	if m.opts.Submit == nil {
		m.complete(nil)
		m.mu.Unlock()
		return nil
	}
	op := m.opts.Submit(m.state.Values())
	m.status = StatusSubmitting
	m.err = nil
	m.done = make(chan struct{})
	done := m.done
	m.changed()
	m.mu.Unlock()

	err := m.opts.Scope.Go(func(ctx context.Context) {
		defer close(done)
		res, err := op.Run(ctx)
		m.opts.Scope.Apply(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if err != nil {
				m.status = StatusFailed
				m.err = err
				m.changed()
				return
			}
			m.complete(res)
		})
	})
	if err != nil {
		close(done)
		return err
	}
	return nil
}

func (m *Machine) complete(res interface{}) {
	m.idx = m.terminal()
	m.status = StatusCompleted
	m.result = res
	m.err = nil
	m.changed()
}

func (m *Machine) validate(step Step) form.Errors {
	errs := make(form.Errors)
	if len(step.Fields) > 0 {
		errs = m.opts.Validator.Validate(m.state, step.Fields...)
	}
	if step.Check != nil {
		errs = errs.Merge(step.Check(m.state))
	}
	return errs
}

// Edit runs fn while no transition can happen. Like Set, it is refused once terminal or while submitting.
func (m *Machine) Edit(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idx == m.terminal() {
		return ErrTerminal
	}
	if m.status == StatusSubmitting {
		return ErrBusy
	}
	return fn()
}

// Retreat moves back one step. It is a no-op on the first step and forbidden once terminal or while submitting.
func (m *Machine) Retreat() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idx == m.terminal() {
		return ErrTerminal
	}
	if m.status == StatusSubmitting {
		return ErrBusy
	}
	if m.idx == 0 {
		return nil
	}
	m.idx--
	m.status = StatusIdle
	m.err = nil
	m.errs = make(form.Errors)
	m.changed()
	return nil
}

// Done is closed when no submission is in flight.
func (m *Machine) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Wait blocks until no submission is in flight and returns the submission error, if any.
func (m *Machine) Wait(ctx context.Context) error {
	select {
	case <-m.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Machine) Step() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flow.Steps[m.idx].Name
}

func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Result returns the submission result once completed.
func (m *Machine) Result() interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Machine) snapshot() Snapshot {
	errs := make(form.Errors, len(m.errs))
	for k, v := range m.errs {
		errs[k] = v
	}
	snap := Snapshot{
		Flow:      m.flow.Name,
		Steps:     m.flow.StepNames(),
		Step:      m.flow.Steps[m.idx].Name,
		StepIndex: m.idx,
		Status:    m.status,
		Values:    m.state.Values(),
		Errors:    errs,
		Result:    m.result,
	}
	if m.err != nil {
		snap.Error = m.err.Error()
	}
	return snap
}

func (m *Machine) changed() {
	if m.opts.OnChange != nil {
		m.opts.OnChange(m.snapshot())
	}
}
