package core

import (
	"fmt"
	"time"
)

// SequencerState is the coarse state of a StepSequencer.
//
//	        start                advance                complete
//	Idle ─────────► Step(0) ───────────► Step(i+1) ···──────────► Finished
//	  ▲                                                              │
//	  └──────────────────────────── reset ───────────────────────────┘
type SequencerState int

const (
	// Idle is the initial state and the state after Reset.
	Idle SequencerState = iota
	// StepInProgress means step Index() is playing or paused.
	StepInProgress
	// Finished means the last step's hold elapsed; playback auto-paused.
	Finished
)

// String returns a human-readable representation of the state.
func (s SequencerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case StepInProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("SequencerState(%d)", int(s))
	}
}

// MarshalText lets the state render as its name in JSON.
func (s SequencerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *SequencerState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "in_progress":
		*s = StepInProgress
	case "finished":
		*s = Finished
	default:
		return fmt.Errorf("unknown sequencer state %q", text)
	}
	return nil
}

// Transition names the edge taken by a sequencer call.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionStart
	TransitionAdvance
	TransitionComplete
	TransitionManual
	TransitionReset
)

// String returns the metric-label spelling of the transition.
func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionStart:
		return "start"
	case TransitionAdvance:
		return "advance"
	case TransitionComplete:
		return "complete"
	case TransitionManual:
		return "manual"
	case TransitionReset:
		return "reset"
	default:
		return fmt.Sprintf("Transition(%d)", int(t))
	}
}

// StepSequencer is the state machine that moves a schedule from step to
// step. It owns only the step index; the caller owns the clock and resets
// per-step elapsed time when the sequencer reports an advance.
type StepSequencer struct {
	schedule Schedule
	state    SequencerState
	index    int
}

// NewStepSequencer returns a sequencer in Idle, or Finished when the
// schedule has no steps.
func NewStepSequencer(s Schedule) *StepSequencer {
	seq := &StepSequencer{schedule: s}
	seq.Reset()
	return seq
}

// State returns the current state.
func (q *StepSequencer) State() SequencerState { return q.state }

// Index returns the current step index. It is 0 while Idle.
func (q *StepSequencer) Index() int { return q.index }

// StepCount returns the number of steps in the schedule.
func (q *StepSequencer) StepCount() int { return len(q.schedule.Steps) }

// Step returns the current step, or false for an empty schedule.
func (q *StepSequencer) Step() (Step, bool) {
	if q.index < 0 || q.index >= len(q.schedule.Steps) {
		return Step{}, false
	}
	return q.schedule.Steps[q.index], true
}

// CanStepForward reports whether a manual advance is possible.
func (q *StepSequencer) CanStepForward() bool {
	return q.state != Finished && q.index+1 < len(q.schedule.Steps)
}

// Start leaves Idle for step 0. Empty schedules go straight to Finished.
func (q *StepSequencer) Start() Transition {
	if q.state != Idle {
		return TransitionNone
	}
	if len(q.schedule.Steps) == 0 {
		q.state = Finished
		return TransitionComplete
	}
	q.state = StepInProgress
	q.index = 0
	return TransitionStart
}

// Evaluate checks whether the current step's hold has elapsed at
// stepElapsed. Timer-driven transitions only happen while running, and
// advance by at most one step per call.
func (q *StepSequencer) Evaluate(stepElapsed time.Duration, running bool) Transition {
	if q.state != StepInProgress || !running {
		return TransitionNone
	}
	if stepElapsed < q.schedule.HoldEnd(q.index) {
		return TransitionNone
	}
	if q.index+1 < len(q.schedule.Steps) {
		q.index++
		return TransitionAdvance
	}
	q.state = Finished
	return TransitionComplete
}

// StepForward moves to the next step regardless of timing. From Idle it
// implicitly starts playback at step 1. It is a no-op on the last step and
// once Finished.
func (q *StepSequencer) StepForward() Transition {
	if !q.CanStepForward() {
		return TransitionNone
	}
	q.state = StepInProgress
	q.index++
	return TransitionManual
}

// Reset returns to Idle at step 0 (Finished for an empty schedule).
func (q *StepSequencer) Reset() Transition {
	q.index = 0
	q.state = Idle
	if len(q.schedule.Steps) == 0 {
		q.state = Finished
	}
	return TransitionReset
}
