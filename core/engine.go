package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/timectrl"
)

// MetricsRecorder receives engine lifecycle notifications. Implementations
// must be cheap; they are called from the tick path.
type MetricsRecorder interface {
	ObserveTick(view string, elapsed time.Duration)
	ObserveTransition(view string, t Transition)
	ObserveReset(view string)
	ObserveFinished(view string)
	SetActiveEvents(view string, n int)
}

// EngineOption customises Engine construction.
type EngineOption func(*Engine)

// WithName sets the label used in logs and metrics. It defaults to the
// schedule name.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		if name != "" {
			e.name = name
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine drives one schedule: it owns the virtual clock, the step
// sequencer and the player for the current step. Per-step elapsed time is
// the clock's elapsed time; the clock is rewound whenever the step changes.
//
// Engine is not safe for concurrent use.
type Engine struct {
	name     string
	schedule Schedule
	clock    *timectrl.Clock
	seq      *StepSequencer
	player   *SequencePlayer

	log     logging.Logger
	metrics MetricsRecorder
}

// NewEngine returns a paused engine in Idle at step 0.
func NewEngine(s Schedule, opts ...EngineOption) *Engine {
	e := &Engine{
		name:     s.Name,
		schedule: s,
		clock:    timectrl.NewClock(),
		seq:      NewStepSequencer(s),
		player:   NewSequencePlayer(nil),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.loadStep()
	return e
}

// Name returns the engine's label.
func (e *Engine) Name() string { return e.name }

// Schedule returns the schedule the engine plays.
func (e *Engine) Schedule() Schedule { return e.schedule }

// SetRunning plays or pauses. Playing from Idle starts step 0; playing
// once Finished restarts from the initial state.
func (e *Engine) SetRunning(running bool) {
	if !running {
		e.clock.SetRunning(false)
		return
	}
	if e.seq.State() == Finished {
		e.Reset()
		if e.seq.State() == Finished {
			return
		}
	}
	if e.seq.State() == Idle {
		tr := e.seq.Start()
		e.observeTransition(tr)
		if tr == TransitionComplete {
			return
		}
		e.loadStep()
	}
	e.clock.SetRunning(true)
}

// Play is SetRunning(true).
func (e *Engine) Play() { e.SetRunning(true) }

// Pause is SetRunning(false).
func (e *Engine) Pause() { e.SetRunning(false) }

// SetSpeed sets the clock's speed multiplier.
func (e *Engine) SetSpeed(multiplier float64) { e.clock.SetSpeed(multiplier) }

// SetSpeedPercent applies a speed slider value and returns the multiplier.
func (e *Engine) SetSpeedPercent(percent int) float64 {
	return e.clock.SetSpeedPercent(percent)
}

// Reset rewinds to Idle at step 0 with zero elapsed time and pauses. The
// speed multiplier is kept.
func (e *Engine) Reset() {
	e.clock.SetRunning(false)
	e.clock.Reset()
	e.seq.Reset()
	e.loadStep()
	if e.metrics != nil {
		e.metrics.ObserveReset(e.name)
		e.metrics.SetActiveEvents(e.name, 0)
	}
	e.log.Debug(context.Background(), "engine reset", logging.String("view", e.name))
}

// StepForward jumps to the next step without waiting for the current one
// to finish. It returns false when there is no next step.
func (e *Engine) StepForward() bool {
	tr := e.seq.StepForward()
	if tr == TransitionNone {
		return false
	}
	e.clock.Reset()
	e.loadStep()
	e.observeTransition(tr)
	return true
}

// Tick advances the engine by one frame of wall time delta. Within a tick
// the clock advances first, then event states are recomputed, then the
// step transition is evaluated.
func (e *Engine) Tick(delta time.Duration) Transition {
	if !e.clock.Running() {
		return TransitionNone
	}
	e.clock.Tick(delta)
	elapsed := e.clock.Elapsed()

	frame, newly := e.player.Advance(elapsed)
	for _, i := range newly {
		ev := e.player.Events()[i]
		e.log.Debug(context.Background(), "event completed",
			logging.String("view", e.name),
			logging.String("event", ev.ID),
			logging.Int("step", e.seq.Index()),
		)
	}
	if e.metrics != nil {
		e.metrics.ObserveTick(e.name, elapsed)
		e.metrics.SetActiveEvents(e.name, len(frame.Active))
	}

	tr := e.seq.Evaluate(elapsed, e.clock.Running())
	switch tr {
	case TransitionAdvance:
		e.clock.Reset()
		e.loadStep()
	case TransitionComplete:
		e.clock.SetRunning(false)
		if e.metrics != nil {
			e.metrics.SetActiveEvents(e.name, 0)
		}
	}
	e.observeTransition(tr)
	return tr
}

// State returns the render state for the current instant.
func (e *Engine) State() RenderState {
	rs := DeriveState(e.schedule, e.seq.State(), e.seq.Index(), e.clock.Elapsed())
	rs.Running = e.clock.Running()
	rs.Speed = e.clock.Speed()
	return rs
}

func (e *Engine) loadStep() {
	st, ok := e.seq.Step()
	if !ok {
		e.player.Load(nil)
		return
	}
	e.player.Load(st.Events)
}

func (e *Engine) observeTransition(tr Transition) {
	if tr == TransitionNone {
		return
	}
	if e.metrics != nil {
		e.metrics.ObserveTransition(e.name, tr)
	}
	ctx := context.Background()
	switch tr {
	case TransitionComplete:
		if e.metrics != nil {
			e.metrics.ObserveFinished(e.name)
		}
		e.log.Info(ctx, "playback finished",
			logging.String("view", e.name),
			logging.Int("steps", e.seq.StepCount()),
		)
	default:
		st, _ := e.seq.Step()
		e.log.Debug(ctx, "step transition",
			logging.String("view", e.name),
			logging.String("reason", tr.String()),
			logging.Int("step", e.seq.Index()),
			logging.String("description", st.Description),
		)
	}
}
