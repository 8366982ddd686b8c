package timectrl

import "time"

// Speed slider bounds. The slider value maps onto a multiplier of
// percent/DefaultSpeedPercent, so the default plays at 1x.
const (
	MinSpeedPercent     = 10
	MaxSpeedPercent     = 100
	DefaultSpeedPercent = 50
)

// Clock owns the virtual time of one animation. Time only advances through
// Tick, only while running, and scaled by the speed multiplier.
//
// Clock is not safe for concurrent use; the owning engine is driven from a
// single tick source.
type Clock struct {
	elapsed time.Duration
	running bool
	speed   float64
}

// NewClock returns a paused clock at zero elapsed time playing at 1x.
func NewClock() *Clock {
	return &Clock{speed: 1}
}

// Tick advances elapsed time by delta scaled by the speed multiplier.
// It is a no-op while paused. Negative deltas count as zero.
func (c *Clock) Tick(delta time.Duration) time.Duration {
	if !c.running || delta <= 0 {
		return 0
	}
	step := time.Duration(float64(delta) * c.speed)
	c.elapsed += step
	return step
}

// Elapsed returns the virtual time accumulated since the last reset.
func (c *Clock) Elapsed() time.Duration { return c.elapsed }

// Running reports whether Tick currently advances the clock.
func (c *Clock) Running() bool { return c.running }

// SetRunning starts or pauses the clock. Pausing freezes elapsed time.
func (c *Clock) SetRunning(running bool) { c.running = running }

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 { return c.speed }

// SetSpeed sets the speed multiplier. Negative values are clamped to zero.
func (c *Clock) SetSpeed(multiplier float64) {
	if multiplier < 0 {
		multiplier = 0
	}
	c.speed = multiplier
}

// SetSpeedPercent applies a slider value in [MinSpeedPercent,
// MaxSpeedPercent] and returns the resulting multiplier.
func (c *Clock) SetSpeedPercent(percent int) float64 {
	c.speed = SpeedFromPercent(percent)
	return c.speed
}

// Reset rewinds elapsed time to zero. Running state and speed are kept;
// callers decide whether a reset also pauses.
func (c *Clock) Reset() { c.elapsed = 0 }

// SpeedFromPercent converts a slider value into a multiplier, clamping the
// value into the slider's range first.
func SpeedFromPercent(percent int) float64 {
	if percent < MinSpeedPercent {
		percent = MinSpeedPercent
	}
	if percent > MaxSpeedPercent {
		percent = MaxSpeedPercent
	}
	return float64(percent) / DefaultSpeedPercent
}
