package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Authoring defaults of the reference schedules.
const (
	// DefaultEventDuration is how long one scripted event stays in flight.
	DefaultEventDuration = 2 * time.Second
	// DefaultSettle is the hold after a step's last event before the next
	// step starts.
	DefaultSettle = time.Second
)

var (
	// ErrEmptySchedule indicates a schedule without steps.
	ErrEmptySchedule = errors.New("schedule has no steps")
	// ErrEmptyStep indicates a step without events.
	ErrEmptyStep = errors.New("step has no events")
	// ErrInvalidDuration indicates an event with a non-positive duration.
	ErrInvalidDuration = errors.New("event duration must be positive")
	// ErrNegativeStart indicates an event scheduled before its step begins.
	ErrNegativeStart = errors.New("event start offset must not be negative")
	// ErrDuplicateEventID indicates two events in a schedule share an ID.
	ErrDuplicateEventID = errors.New("duplicate event id")
	// ErrNegativeSettle indicates a negative settle hold.
	ErrNegativeSettle = errors.New("settle hold must not be negative")
)

// TimedEvent is one scripted occurrence, such as a packet crossing a link.
// Start is relative to the beginning of the event's step.
type TimedEvent struct {
	ID       string
	Source   int
	Target   int
	Kind     string
	Start    time.Duration
	Duration time.Duration
}

// End returns the step-relative offset at which the event completes.
func (e TimedEvent) End() time.Duration {
	return e.Start + e.Duration
}

type timedEventJSON struct {
	ID         string  `json:"id"`
	Source     int     `json:"source"`
	Target     int     `json:"target"`
	Kind       string  `json:"kind"`
	StartMs    float64 `json:"start_ms"`
	DurationMs float64 `json:"duration_ms"`
}

// MarshalJSON renders offsets in milliseconds for the browser frontends.
func (e TimedEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(timedEventJSON{
		ID:         e.ID,
		Source:     e.Source,
		Target:     e.Target,
		Kind:       e.Kind,
		StartMs:    millis(e.Start),
		DurationMs: millis(e.Duration),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *TimedEvent) UnmarshalJSON(data []byte) error {
	var raw timedEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = TimedEvent{
		ID:       raw.ID,
		Source:   raw.Source,
		Target:   raw.Target,
		Kind:     raw.Kind,
		Start:    time.Duration(raw.StartMs * float64(time.Millisecond)),
		Duration: time.Duration(raw.DurationMs * float64(time.Millisecond)),
	}
	return nil
}

// Step is an ordered group of events that together form one phase of a
// schedule, e.g. "Routers send Hello packets to discover neighbors".
type Step struct {
	Description string
	Events      []TimedEvent
}

// End returns the latest completion offset of any event in the step.
func (s Step) End() time.Duration {
	var end time.Duration
	for _, ev := range s.Events {
		if e := ev.End(); e > end {
			end = e
		}
	}
	return end
}

// Schedule is a fixed, hand-authored animation script.
type Schedule struct {
	Name   string
	Settle time.Duration
	Steps  []Step
}

// HoldEnd returns the step-relative time at which step i is done: its last
// event's end plus the settle hold.
func (s Schedule) HoldEnd(i int) time.Duration {
	if i < 0 || i >= len(s.Steps) {
		return 0
	}
	return s.Steps[i].End() + s.Settle
}

// EventCount returns the total number of events across all steps.
func (s Schedule) EventCount() int {
	n := 0
	for _, st := range s.Steps {
		n += len(st.Events)
	}
	return n
}

// Validate checks the authoring invariants of the schedule. It is meant for
// load and authoring time; the engine itself tolerates malformed schedules.
func (s Schedule) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("schedule %q: %w", s.Name, ErrEmptySchedule)
	}
	if s.Settle < 0 {
		return fmt.Errorf("schedule %q: %w", s.Name, ErrNegativeSettle)
	}
	seen := make(map[string]struct{}, s.EventCount())
	for i, st := range s.Steps {
		if len(st.Events) == 0 {
			return fmt.Errorf("schedule %q step %d: %w", s.Name, i, ErrEmptyStep)
		}
		for j, ev := range st.Events {
			if ev.Start < 0 {
				return fmt.Errorf("schedule %q step %d event %d: %w", s.Name, i, j, ErrNegativeStart)
			}
			if ev.Duration <= 0 {
				return fmt.Errorf("schedule %q step %d event %d: %w", s.Name, i, j, ErrInvalidDuration)
			}
			if ev.ID == "" {
				continue
			}
			if _, dup := seen[ev.ID]; dup {
				return fmt.Errorf("schedule %q: %w: %s", s.Name, ErrDuplicateEventID, ev.ID)
			}
			seen[ev.ID] = struct{}{}
		}
	}
	return nil
}

// MustSchedule panics if s is invalid. Use it for schedules compiled into
// the binary so authoring mistakes surface immediately.
func MustSchedule(s Schedule) Schedule {
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

// Staggered builds count events spaced interval apart, each lasting
// interval, so exactly one event is in flight at any time. The build
// function fills in identity fields for event i; timing is overwritten.
func Staggered(count int, interval time.Duration, build func(i int) TimedEvent) []TimedEvent {
	events := make([]TimedEvent, 0, count)
	for i := 0; i < count; i++ {
		ev := build(i)
		ev.Start = time.Duration(i) * interval
		ev.Duration = interval
		events = append(events, ev)
	}
	return events
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
