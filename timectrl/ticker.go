package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the Ticker produces frame deltas.
type Mode int

const (
	// RealTime sleeps between frames and reports the measured wall-clock
	// delta, like a browser animation-frame callback.
	RealTime Mode = iota
	// Accelerated reports a fixed Interval per frame regardless of the
	// wall-clock delta. Bounded runs (limit > 0) do not sleep; unbounded
	// runs are paced at one frame per Interval. Deltas are deterministic.
	Accelerated
)

// String returns the flag/config spelling of the mode.
func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of Mode.String. Unknown values map to RealTime.
func ParseMode(s string) Mode {
	if s == "accelerated" {
		return Accelerated
	}
	return RealTime
}

// Ticker is the periodic driver of one or more animation engines. Every
// frame it calls the registered listeners, in registration order and on
// a single goroutine, with the frame delta.
type Ticker struct {
	Interval time.Duration
	Mode     Mode

	mu        sync.RWMutex
	listeners []func(delta time.Duration)
	fed       time.Duration

	now func() time.Time
}

// NewTicker constructs a ticker producing frames every interval.
func NewTicker(interval time.Duration, mode Mode) *Ticker {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Ticker{
		Interval: interval,
		Mode:     mode,
		now:      time.Now,
	}
}

// AddListener registers a callback invoked on every frame.
func (t *Ticker) AddListener(fn func(delta time.Duration)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Fed returns the total frame delta delivered to listeners so far.
func (t *Ticker) Fed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fed
}

// Start runs the ticker in a separate goroutine until ctx is cancelled or,
// when limit > 0, until at least limit of frame delta has been delivered.
// It returns a channel that is closed when the ticker finishes.
func (t *Ticker) Start(ctx context.Context, limit time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		switch t.Mode {
		case Accelerated:
			t.runAccelerated(ctx, limit)
		default:
			t.runRealTime(ctx, limit)
		}
	}()
	return done
}

func (t *Ticker) runAccelerated(ctx context.Context, limit time.Duration) {
	if limit <= 0 {
		t.runPaced(ctx)
		return
	}
	for t.Fed() < limit {
		select {
		case <-ctx.Done():
			return
		default:
		}
		t.emit(t.Interval)
	}
}

// runPaced emits the fixed Interval once per wall-clock Interval.
func (t *Ticker) runPaced(ctx context.Context) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		t.emit(t.Interval)
	}
}

func (t *Ticker) runRealTime(ctx context.Context, limit time.Duration) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	last := t.now()
	for {
		if limit > 0 && t.Fed() >= limit {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		now := t.now()
		delta := now.Sub(last)
		last = now
		if delta < 0 {
			delta = 0
		}
		t.emit(delta)
	}
}

func (t *Ticker) emit(delta time.Duration) {
	t.mu.Lock()
	t.fed += delta
	listeners := append([]func(time.Duration){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(delta)
	}
}
