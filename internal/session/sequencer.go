package session

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

// Sequencer states.
const (
	StateAtStep     = "at_step"
	StateReady      = "ready_to_submit"
	StateSubmitting = "submitting"
	StateDone       = "done"
)

const (
	eventFinish  = "finish"
	eventRevise  = "revise"
	eventSubmit  = "submit"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

// Sequencer walks the steps of a flow and tracks the submission lifecycle.
// The position inside the at_step state is kept as a separate index.
type Sequencer struct {
	flow    *Flow
	index   int
	machine *fsm.FSM
	onStep  func(Step)
	logger  zerolog.Logger
}

// NewSequencer creates a sequencer positioned on the first step.
func NewSequencer(flow *Flow, logger zerolog.Logger) *Sequencer {
	q := &Sequencer{flow: flow, logger: logger}
	q.machine = fsm.NewFSM(
		StateAtStep,
		fsm.Events{
			{Name: eventFinish, Src: []string{StateAtStep}, Dst: StateReady},
			{Name: eventRevise, Src: []string{StateReady}, Dst: StateAtStep},
			{Name: eventSubmit, Src: []string{StateReady}, Dst: StateSubmitting},
			{Name: eventSucceed, Src: []string{StateSubmitting}, Dst: StateDone},
			{Name: eventFail, Src: []string{StateSubmitting}, Dst: StateReady},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				q.logger.Debug().
					Str("flow", q.flow.Name).
					Str("event", e.Event).
					Str("from", e.Src).
					Str("to", e.Dst).
					Msg("session transition")
			},
		},
	)
	return q
}

// OnStep registers fn to be called every time the active step changes.
func (q *Sequencer) OnStep(fn func(Step)) {
	q.onStep = fn
}

// State returns the current state name.
func (q *Sequencer) State() string {
	return q.machine.Current()
}

// Index returns the position of the active step, or of the last step once past it.
func (q *Sequencer) Index() int {
	return q.index
}

// Len returns the number of steps.
func (q *Sequencer) Len() int {
	return len(q.flow.Steps)
}

// Current returns the active step. ok is false when the sequencer is not at a step.
func (q *Sequencer) Current() (step Step, ok bool) {
	if q.State() != StateAtStep {
		return Step{}, false
	}
	return q.flow.Steps[q.index], true
}

// IsLast reports whether the active step is the final one.
func (q *Sequencer) IsLast() bool {
	return q.State() == StateAtStep && q.index == len(q.flow.Steps)-1
}

// Advance moves past the active step when it validates against snap.
// A failing verdict leaves the position unchanged.
func (q *Sequencer) Advance(snap Snapshot) (Verdict, error) {
	step, ok := q.Current()
	if !ok {
		return Verdict{}, fmt.Errorf("%w: state is %s", ErrNotAtStep, q.State())
	}

	verdict := CanAdvance(q.flow, step, snap)
	if !verdict.OK() {
		return verdict, nil
	}

	if q.index < len(q.flow.Steps)-1 {
		q.index++
		q.notify()
		return verdict, nil
	}

	if err := q.fire(eventFinish); err != nil {
		return verdict, err
	}
	return verdict, nil
}

// Back rewinds one step. From ready_to_submit it returns to the last step.
// It reports whether the position changed.
func (q *Sequencer) Back() bool {
	switch q.State() {
	case StateReady:
		if err := q.fire(eventRevise); err != nil {
			return false
		}
		q.index = len(q.flow.Steps) - 1
		q.notify()
		return true
	case StateAtStep:
		if q.index == 0 {
			return false
		}
		q.index--
		q.notify()
		return true
	}
	return false
}

func (q *Sequencer) begin() error   { return q.fire(eventSubmit) }
func (q *Sequencer) succeed() error { return q.fire(eventSucceed) }
func (q *Sequencer) fail() error    { return q.fire(eventFail) }

func (q *Sequencer) fire(event string) error {
	if err := q.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("%s from %s: %w", event, q.State(), err)
	}
	return nil
}

func (q *Sequencer) notify() {
	if q.onStep == nil {
		return
	}
	if step, ok := q.Current(); ok {
		q.onStep(step)
	}
}
