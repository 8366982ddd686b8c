// Package state holds the running set of animation views behind a single
// lock so the ticker, the HTTP API and the gRPC control service can share
// them.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/internal/views"
	"github.com/signalsfoundry/ospf-animator/timectrl"
)

var (
	// ErrUnknownView indicates a request for a view that is not registered.
	ErrUnknownView = errors.New("unknown view")
	// ErrDuplicateView indicates two views registered under one name.
	ErrDuplicateView = errors.New("view already registered")
	// ErrInvalidSpeed indicates a speed slider value outside its range.
	ErrInvalidSpeed = errors.New("speed percent out of range")
	// ErrUnknownAction indicates an unsupported playback action.
	ErrUnknownAction = errors.New("unknown playback action")
)

// Action is a playback control request.
type Action string

const (
	ActionPlay  Action = "play"
	ActionPause Action = "pause"
	ActionReset Action = "reset"
	ActionStep  Action = "step"
)

// ParseAction maps a case-insensitive name onto an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionPlay, ActionPause, ActionReset, ActionStep:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// MetricsRecorder receives engine events plus per-frame timing.
type MetricsRecorder interface {
	core.MetricsRecorder
	ObserveFrame(d time.Duration)
}

// FrameListener receives the snapshots produced by each TickAll. It is
// called without the state lock held.
type FrameListener func([]views.Snapshot)

// PlaybackState owns the views and serialises every access to their
// engines.
type PlaybackState struct {
	mu    sync.Mutex
	views map[string]views.View
	order []string

	listenersMu sync.RWMutex
	listeners   []FrameListener

	initial []views.View
	log     logging.Logger
	metrics MetricsRecorder
}

// PlaybackStateOption customises PlaybackState construction.
type PlaybackStateOption func(*PlaybackState)

// WithViews registers vs instead of the built-in views.
func WithViews(vs ...views.View) PlaybackStateOption {
	return func(s *PlaybackState) {
		s.initial = append(s.initial, vs...)
	}
}

// WithMetricsRecorder attaches an optional metrics recorder. It is wired
// into the built-in views' engines and observes frame timing.
func WithMetricsRecorder(m MetricsRecorder) PlaybackStateOption {
	return func(s *PlaybackState) {
		s.metrics = m
	}
}

// NewPlaybackState registers the views supplied through WithViews, or the
// three built-in views when none are given.
func NewPlaybackState(log logging.Logger, opts ...PlaybackStateOption) (*PlaybackState, error) {
	if log == nil {
		log = logging.Noop()
	}
	s := &PlaybackState{
		views: make(map[string]views.View),
		log:   log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	vs := s.initial
	s.initial = nil
	if len(vs) == 0 {
		var err error
		vs, err = views.Builtin(views.Overrides{}, s.EngineOptions()...)
		if err != nil {
			return nil, err
		}
	}
	for _, v := range vs {
		if _, dup := s.views[v.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateView, v.Name())
		}
		s.views[v.Name()] = v
		s.order = append(s.order, v.Name())
	}
	return s, nil
}

// EngineOptions returns the engine options matching this state's logger
// and metrics recorder, for callers that build their own views.
func (s *PlaybackState) EngineOptions() []core.EngineOption {
	opts := []core.EngineOption{core.WithLogger(s.log)}
	if s.metrics != nil {
		opts = append(opts, core.WithMetricsRecorder(s.metrics))
	}
	return opts
}

// Views returns the registered view names in registration order.
func (s *PlaybackState) Views() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// OnFrame registers fn to receive snapshots after every TickAll.
func (s *PlaybackState) OnFrame(fn FrameListener) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// TickAll advances every view by delta and publishes the resulting
// snapshots to frame listeners.
func (s *PlaybackState) TickAll(delta time.Duration) []views.Snapshot {
	start := time.Now()

	s.mu.Lock()
	snaps := make([]views.Snapshot, 0, len(s.order))
	for _, name := range s.order {
		v := s.views[name]
		v.Engine().Tick(delta)
		snaps = append(snaps, v.Snapshot())
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveFrame(time.Since(start))
	}

	s.listenersMu.RLock()
	listeners := append([]FrameListener(nil), s.listeners...)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snaps)
	}
	return snaps
}

// AttachTicker feeds t's deltas into TickAll.
func (s *PlaybackState) AttachTicker(t *timectrl.Ticker) {
	t.AddListener(func(delta time.Duration) {
		s.TickAll(delta)
	})
}

// Snapshot returns the current render state of one view.
func (s *PlaybackState) Snapshot(name string) (views.Snapshot, error) {
	var snap views.Snapshot
	err := s.withView(name, func(v views.View) error {
		snap = v.Snapshot()
		return nil
	})
	return snap, err
}

// Snapshots returns every view's render state in registration order.
func (s *PlaybackState) Snapshots() []views.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps := make([]views.Snapshot, 0, len(s.order))
	for _, name := range s.order {
		snaps = append(snaps, s.views[name].Snapshot())
	}
	return snaps
}

// Play starts or resumes a view. A finished view restarts from the top.
func (s *PlaybackState) Play(ctx context.Context, name string) (views.Snapshot, error) {
	return s.Apply(ctx, name, ActionPlay)
}

// Pause freezes a view.
func (s *PlaybackState) Pause(ctx context.Context, name string) (views.Snapshot, error) {
	return s.Apply(ctx, name, ActionPause)
}

// Reset returns a view to its initial state.
func (s *PlaybackState) Reset(ctx context.Context, name string) (views.Snapshot, error) {
	return s.Apply(ctx, name, ActionReset)
}

// StepForward skips a view to its next step. Stepping past the last step
// is a no-op, not an error.
func (s *PlaybackState) StepForward(ctx context.Context, name string) (views.Snapshot, error) {
	return s.Apply(ctx, name, ActionStep)
}

// Apply performs action on the named view and returns its new state.
func (s *PlaybackState) Apply(ctx context.Context, name string, action Action) (views.Snapshot, error) {
	var snap views.Snapshot
	err := s.withView(name, func(v views.View) error {
		e := v.Engine()
		switch action {
		case ActionPlay:
			e.Play()
		case ActionPause:
			e.Pause()
		case ActionReset:
			e.Reset()
		case ActionStep:
			e.StepForward()
		default:
			return fmt.Errorf("%w: %q", ErrUnknownAction, action)
		}
		snap = v.Snapshot()
		return nil
	})
	if err != nil {
		return views.Snapshot{}, err
	}
	s.logger(ctx).Info(ctx, "playback control",
		logging.String("view", name),
		logging.String("action", string(action)),
		logging.String("state", snap.State.State.String()),
		logging.Int("step", snap.State.StepIndex),
	)
	return snap, nil
}

// SetSpeed applies a speed slider value to the named view.
func (s *PlaybackState) SetSpeed(ctx context.Context, name string, percent int) (views.Snapshot, error) {
	if percent < timectrl.MinSpeedPercent || percent > timectrl.MaxSpeedPercent {
		return views.Snapshot{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidSpeed,
			percent, timectrl.MinSpeedPercent, timectrl.MaxSpeedPercent)
	}
	var snap views.Snapshot
	err := s.withView(name, func(v views.View) error {
		v.Engine().SetSpeedPercent(percent)
		snap = v.Snapshot()
		return nil
	})
	if err != nil {
		return views.Snapshot{}, err
	}
	s.logger(ctx).Info(ctx, "playback speed changed",
		logging.String("view", name),
		logging.Int("percent", percent),
		logging.Float("multiplier", snap.State.Speed),
	)
	return snap, nil
}

func (s *PlaybackState) withView(name string, fn func(views.View) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return fn(v)
}

func (s *PlaybackState) logger(ctx context.Context) logging.Logger {
	return logging.FromContext(ctx, s.log)
}
