package core

import (
	"fmt"
	"time"
)

// RenderState is everything a frontend needs to draw one frame of an
// animation. It is recomputed from scratch every tick.
type RenderState struct {
	Schedule       string         `json:"schedule"`
	State          SequencerState `json:"state"`
	StepIndex      int            `json:"step_index"`
	StepCount      int            `json:"step_count"`
	Description    string         `json:"description"`
	Elapsed        time.Duration  `json:"-"`
	ElapsedMs      float64        `json:"elapsed_ms"`
	Running        bool           `json:"running"`
	Speed          float64        `json:"speed"`
	Active         []ActiveEvent  `json:"active"`
	Completed      []int          `json:"completed"`
	Finished       bool           `json:"finished"`
	CanStepForward bool           `json:"can_step_forward"`
}

// Badge returns the "Step i/N" label shown next to the step description.
func (r RenderState) Badge() string {
	if r.StepCount == 0 {
		return "Step 0/0"
	}
	return fmt.Sprintf("Step %d/%d", r.StepIndex+1, r.StepCount)
}

// ActiveByID returns the in-flight event with the given ID.
func (r RenderState) ActiveByID(id string) (ActiveEvent, bool) {
	for _, a := range r.Active {
		if a.Event.ID == id {
			return a, true
		}
	}
	return ActiveEvent{}, false
}

// DeriveState computes the render state of schedule s with the sequencer in
// state at step index step, elapsed into that step. It has no side effects.
// Running and Speed are left zero; they belong to the clock, not the
// schedule.
func DeriveState(s Schedule, state SequencerState, step int, elapsed time.Duration) RenderState {
	if elapsed < 0 {
		elapsed = 0
	}
	rs := RenderState{
		Schedule:  s.Name,
		State:     state,
		StepIndex: step,
		StepCount: len(s.Steps),
		Elapsed:   elapsed,
		ElapsedMs: millis(elapsed),
		Active:    []ActiveEvent{},
		Completed: []int{},
		Finished:  state == Finished,
	}
	rs.CanStepForward = state != Finished && step+1 < len(s.Steps)
	if step < 0 || step >= len(s.Steps) {
		return rs
	}
	rs.Description = s.Steps[step].Description
	if state == Idle {
		return rs
	}

	f := Derive(s.Steps[step].Events, elapsed)
	if f.Active != nil {
		rs.Active = f.Active
	}
	if f.Completed != nil {
		rs.Completed = f.Completed
	}
	return rs
}
