package views

import (
	"fmt"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/kb"
	"github.com/signalsfoundry/ospf-animator/model"
)

// Area is the shaded box drawn behind the routers of one OSPF area.
type Area struct {
	Name   string      `json:"name"`
	Origin model.Point `json:"origin"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
}

// DefaultAreas are the backbone and area 1 boxes of the built-in topology.
func DefaultAreas() []Area {
	return []Area{
		{Name: "Area 0.0.0.0", Origin: model.Point{X: 50, Y: 50}, Width: 400, Height: 280},
		{Name: "Area 0.0.0.1", Origin: model.Point{X: 450, Y: 50}, Width: 200, Height: 280},
	}
}

// LinkStatus is a link annotated with its discovery state.
type LinkStatus struct {
	Link       model.Link `json:"link"`
	Discovered bool       `json:"discovered"`
	Animating  bool       `json:"animating"`
	Progress   float64    `json:"progress"`
}

// RouterStatus is a router annotated with whether it is flooding right now.
type RouterStatus struct {
	Router model.Router `json:"router"`
	Active bool         `json:"active"`
}

// TopologyFrame is the topology-discovery view at one instant.
type TopologyFrame struct {
	Areas      []Area         `json:"areas"`
	Routers    []RouterStatus `json:"routers"`
	Links      []LinkStatus   `json:"links"`
	Discovered int            `json:"discovered"`
	Total      int            `json:"total"`
	// ActiveRouter is the ID of the router whose link is animating, or 0.
	ActiveRouter int `json:"active_router"`
}

type eventRef struct {
	step, index int
}

// TopologyView reveals the links of an OSPF topology one at a time.
type TopologyView struct {
	store  *kb.KnowledgeBase
	areas  []Area
	links  []eventRef
	engine *core.Engine
}

// NewTopologyView binds schedule s to the links in store. Each event names
// a link by its endpoints; links with no event are never discovered.
func NewTopologyView(store *kb.KnowledgeBase, areas []Area, s core.Schedule, opts ...core.EngineOption) (*TopologyView, error) {
	links := store.Links()
	refs := make([]eventRef, len(links))
	for i := range refs {
		refs[i] = eventRef{step: -1, index: -1}
	}
	for i, st := range s.Steps {
		for j, ev := range st.Events {
			found := false
			for li, l := range links {
				if l.Connects(ev.Source, ev.Target) {
					refs[li] = eventRef{step: i, index: j}
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("step %d event %d: %w: %d-%d", i, j, ErrUnknownLink, ev.Source, ev.Target)
			}
		}
	}
	return &TopologyView{
		store:  store,
		areas:  areas,
		links:  refs,
		engine: core.NewEngine(s, engineOptions(ViewTopology, opts)...),
	}, nil
}

// NewDefaultTopologyView is the topology view over the built-in two-area
// network, discovering one link every LinkDiscoveryInterval.
func NewDefaultTopologyView(opts ...core.EngineOption) *TopologyView {
	store := kb.OSPFTopology()
	v, err := NewTopologyView(store, DefaultAreas(), TopologySchedule(store.Links()), opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// Name implements View.
func (v *TopologyView) Name() string { return ViewTopology }

// Engine implements View.
func (v *TopologyView) Engine() *core.Engine { return v.engine }

// Frame renders discovery state for every link and router.
func (v *TopologyView) Frame() TopologyFrame {
	return v.frame(v.engine.State())
}

// Snapshot implements View.
func (v *TopologyView) Snapshot() Snapshot {
	rs := v.engine.State()
	return newSnapshot(ViewTopology, rs, v.frame(rs))
}

func (v *TopologyView) frame(rs core.RenderState) TopologyFrame {
	links := v.store.Links()
	f := TopologyFrame{
		Areas: v.areas,
		Links: make([]LinkStatus, 0, len(links)),
		Total: len(links),
	}
	for i, l := range links {
		ref := v.links[i]
		ls := LinkStatus{Link: l}
		if ref.step >= 0 {
			if eventDone(rs, ref.step, ref.index) {
				ls.Discovered = true
				ls.Progress = 1
			} else if a, ok := activeAt(rs, ref.step, ref.index); ok {
				ls.Progress = a.Progress
				// The link flashes and its source router lights up for the
				// first half of its discovery window.
				ls.Animating = a.Progress < 0.5
				if ls.Animating && f.ActiveRouter == 0 {
					f.ActiveRouter = l.From
				}
			}
		}
		if core.IsDiscovered(ls.Progress) {
			f.Discovered++
		}
		f.Links = append(f.Links, ls)
	}
	for _, r := range v.store.Routers() {
		f.Routers = append(f.Routers, RouterStatus{Router: r, Active: r.ID == f.ActiveRouter})
	}
	return f
}
