package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/ospf-animator/core"
)

// EngineCollector exposes animation engine metrics. It satisfies
// core.MetricsRecorder so engines report directly into it.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	Ticks          *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
	RunsFinished   *prometheus.CounterVec
	Resets         *prometheus.CounterVec
	ActiveEvents   *prometheus.GaugeVec
	VirtualElapsed *prometheus.GaugeVec
	FrameDuration  prometheus.Histogram
}

// NewEngineCollector registers engine metrics against the provided registerer.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	reg, gatherer := registryOrDefault(reg)

	ticks, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_ticks_total",
		Help: "Ticks that advanced an engine's virtual clock.",
	}, []string{"view"}), "engine_ticks_total")
	if err != nil {
		return nil, err
	}
	transitions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_step_transitions_total",
		Help: "Step sequencer transitions, labeled by view and reason.",
	}, []string{"view", "reason"}), "engine_step_transitions_total")
	if err != nil {
		return nil, err
	}
	finished, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_runs_finished_total",
		Help: "Playbacks that reached the end of their schedule.",
	}, []string{"view"}), "engine_runs_finished_total")
	if err != nil {
		return nil, err
	}
	resets, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_resets_total",
		Help: "Explicit engine resets.",
	}, []string{"view"}), "engine_resets_total")
	if err != nil {
		return nil, err
	}
	active, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engine_active_events",
		Help: "Events currently in flight.",
	}, []string{"view"}), "engine_active_events")
	if err != nil {
		return nil, err
	}
	elapsed, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engine_virtual_elapsed_seconds",
		Help: "Virtual time elapsed in the current step.",
	}, []string{"view"}), "engine_virtual_elapsed_seconds")
	if err != nil {
		return nil, err
	}
	frame, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_frame_duration_seconds",
		Help:    "Wall time spent ticking all engines for one frame.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "engine_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:       gatherer,
		Ticks:          ticks,
		Transitions:    transitions,
		RunsFinished:   finished,
		Resets:         resets,
		ActiveEvents:   active,
		VirtualElapsed: elapsed,
		FrameDuration:  frame,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTick satisfies core.MetricsRecorder.
func (c *EngineCollector) ObserveTick(view string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(view).Inc()
	c.VirtualElapsed.WithLabelValues(view).Set(elapsed.Seconds())
}

// ObserveTransition satisfies core.MetricsRecorder.
func (c *EngineCollector) ObserveTransition(view string, t core.Transition) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(view, t.String()).Inc()
}

// ObserveReset satisfies core.MetricsRecorder.
func (c *EngineCollector) ObserveReset(view string) {
	if c == nil {
		return
	}
	c.Resets.WithLabelValues(view).Inc()
	c.VirtualElapsed.WithLabelValues(view).Set(0)
}

// ObserveFinished satisfies core.MetricsRecorder.
func (c *EngineCollector) ObserveFinished(view string) {
	if c == nil {
		return
	}
	c.RunsFinished.WithLabelValues(view).Inc()
}

// SetActiveEvents satisfies core.MetricsRecorder.
func (c *EngineCollector) SetActiveEvents(view string, n int) {
	if c == nil {
		return
	}
	c.ActiveEvents.WithLabelValues(view).Set(float64(n))
}

// ObserveFrame records how long one frame of engine ticks took.
func (c *EngineCollector) ObserveFrame(d time.Duration) {
	if c == nil || c.FrameDuration == nil {
		return
	}
	c.FrameDuration.Observe(d.Seconds())
}
