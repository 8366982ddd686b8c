// Package views binds the fixed teaching datasets to animation engines and
// turns engine state into render frames for the three visualizations.
package views

import (
	"errors"

	"github.com/signalsfoundry/ospf-animator/core"
)

// View names, used as engine labels, metric labels and URL segments.
const (
	ViewPacket   = "packet"
	ViewTopology = "topology"
	ViewRouting  = "routing"
)

var (
	// ErrUnknownRouter indicates a schedule event referencing a router
	// missing from the dataset.
	ErrUnknownRouter = errors.New("event references unknown router")
	// ErrUnknownLink indicates a discovery event with no matching link.
	ErrUnknownLink = errors.New("event references unknown link")
	// ErrUnknownRoute indicates a calculation event with no matching route.
	ErrUnknownRoute = errors.New("event references unknown route")
)

// View is one visualization: a dataset, the engine replaying its schedule
// and a renderer for the current frame.
type View interface {
	Name() string
	Engine() *core.Engine
	Snapshot() Snapshot
}

// Snapshot is the render-ready state of a view. Detail holds the
// view-specific frame (PacketFrame, TopologyFrame or RoutingFrame).
type Snapshot struct {
	View   string           `json:"view"`
	Badge  string           `json:"badge"`
	State  core.RenderState `json:"state"`
	Detail any              `json:"detail"`
}

func newSnapshot(name string, rs core.RenderState, detail any) Snapshot {
	return Snapshot{View: name, Badge: rs.Badge(), State: rs, Detail: detail}
}

// eventDone reports whether event ev of step step counts as completed in
// rs. Events of earlier steps are done once playback has moved past them.
func eventDone(rs core.RenderState, step, ev int) bool {
	if rs.State == core.Idle {
		return false
	}
	if step < rs.StepIndex {
		return true
	}
	if step > rs.StepIndex {
		return false
	}
	for _, c := range rs.Completed {
		if c == ev {
			return true
		}
	}
	return false
}

// activeAt returns the in-flight state of event ev of step step.
func activeAt(rs core.RenderState, step, ev int) (core.ActiveEvent, bool) {
	if step != rs.StepIndex {
		return core.ActiveEvent{}, false
	}
	for _, a := range rs.Active {
		if a.Index == ev {
			return a, true
		}
	}
	return core.ActiveEvent{}, false
}

func engineOptions(name string, opts []core.EngineOption) []core.EngineOption {
	out := make([]core.EngineOption, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, core.WithName(name))
}
