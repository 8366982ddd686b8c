package core

import (
	"fmt"
	"time"
)

// Phase classifies an event relative to the step's elapsed time.
type Phase int

const (
	PhasePending Phase = iota
	PhaseActive
	PhaseCompleted
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseActive:
		return "active"
	case PhaseCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Progress returns the elapsed fraction of ev's window at elapsed, clamped
// to [0, 1].
func Progress(ev TimedEvent, elapsed time.Duration) float64 {
	if elapsed < ev.Start {
		return 0
	}
	if ev.Duration <= 0 {
		return 1
	}
	return Clamp01(float64(elapsed-ev.Start) / float64(ev.Duration))
}

// PhaseAt classifies ev at elapsed. An event completes on the evaluation
// where its progress first reaches 1, so it is active on [Start, End).
func PhaseAt(ev TimedEvent, elapsed time.Duration) Phase {
	switch {
	case elapsed < ev.Start:
		return PhasePending
	case elapsed < ev.End():
		return PhaseActive
	default:
		return PhaseCompleted
	}
}

// ActiveEvent is an in-flight event and how far along it is.
type ActiveEvent struct {
	Index    int        `json:"index"`
	Event    TimedEvent `json:"event"`
	Progress float64    `json:"progress"`
}

// Frame is the classification of one step's events at one instant.
// Index slices refer to positions in the step's event list.
type Frame struct {
	Elapsed   time.Duration
	Active    []ActiveEvent
	Completed []int
	Pending   []int
}

// IsCompleted reports whether event i is in the completed set.
func (f Frame) IsCompleted(i int) bool {
	for _, c := range f.Completed {
		if c == i {
			return true
		}
	}
	return false
}

// Derive classifies events at elapsed. It is a pure function of its
// inputs; calling it twice with the same arguments yields equal frames.
func Derive(events []TimedEvent, elapsed time.Duration) Frame {
	f := Frame{Elapsed: elapsed}
	for i, ev := range events {
		switch PhaseAt(ev, elapsed) {
		case PhasePending:
			f.Pending = append(f.Pending, i)
		case PhaseActive:
			f.Active = append(f.Active, ActiveEvent{Index: i, Event: ev, Progress: Progress(ev, elapsed)})
		case PhaseCompleted:
			f.Completed = append(f.Completed, i)
		}
	}
	return f
}

// SequencePlayer walks the events of the current step. On top of Derive it
// remembers which events already completed so callers learn about each
// completion exactly once, and so a completed event is never reported as
// active again until Reset.
type SequencePlayer struct {
	events []TimedEvent
	done   []bool
}

// NewSequencePlayer returns a player over events. The slice is not copied
// and must not be modified afterwards.
func NewSequencePlayer(events []TimedEvent) *SequencePlayer {
	p := &SequencePlayer{}
	p.Load(events)
	return p
}

// Load switches the player to a new event list and clears completion
// state.
func (p *SequencePlayer) Load(events []TimedEvent) {
	p.events = events
	p.done = make([]bool, len(events))
}

// Reset clears completion state, keeping the loaded events.
func (p *SequencePlayer) Reset() {
	for i := range p.done {
		p.done[i] = false
	}
}

// Events returns the loaded event list.
func (p *SequencePlayer) Events() []TimedEvent { return p.events }

// Advance derives the frame at elapsed and returns, in event order, the
// indices of events that completed since the previous call.
func (p *SequencePlayer) Advance(elapsed time.Duration) (Frame, []int) {
	f := Derive(p.events, elapsed)

	var newly []int
	for _, i := range f.Completed {
		if !p.done[i] {
			p.done[i] = true
			newly = append(newly, i)
		}
	}

	// Completion is sticky: if elapsed moved backwards without a Reset,
	// keep reporting already-completed events as completed.
	if len(f.Completed) < p.CompletedCount() {
		f = p.stickyFrame(f)
	}
	return f, newly
}

// CompletedCount returns how many events have completed since the last
// Load or Reset.
func (p *SequencePlayer) CompletedCount() int {
	n := 0
	for _, d := range p.done {
		if d {
			n++
		}
	}
	return n
}

func (p *SequencePlayer) stickyFrame(f Frame) Frame {
	out := Frame{Elapsed: f.Elapsed}
	for _, a := range f.Active {
		if !p.done[a.Index] {
			out.Active = append(out.Active, a)
		}
	}
	for i, d := range p.done {
		if d {
			out.Completed = append(out.Completed, i)
		}
	}
	for _, i := range f.Pending {
		if !p.done[i] {
			out.Pending = append(out.Pending, i)
		}
	}
	return out
}
