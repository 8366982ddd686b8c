package views

import (
	"fmt"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/kb"
	"github.com/signalsfoundry/ospf-animator/model"
)

// RouteStatus is a routing table row annotated with calculation state.
type RouteStatus struct {
	Entry       model.RouteEntry `json:"entry"`
	Calculated  bool             `json:"calculated"`
	Calculating bool             `json:"calculating"`
	Progress    float64          `json:"progress"`
}

// RouteCounts tallies calculated routes by category. Directly connected
// routes count as intra-area.
type RouteCounts struct {
	IntraArea  int `json:"intra_area"`
	InterArea  int `json:"inter_area"`
	External   int `json:"external"`
	Calculated int `json:"calculated"`
	Total      int `json:"total"`
}

// RoutingFrame is the routing-table view at one instant.
type RoutingFrame struct {
	Routes []RouteStatus `json:"routes"`
	Counts RouteCounts   `json:"counts"`
	// Calculating is the destination currently being calculated, if any.
	Calculating string `json:"calculating,omitempty"`
}

// RoutingView fills in a routing table one route at a time.
type RoutingView struct {
	store  *kb.KnowledgeBase
	routes []eventRef
	engine *core.Engine
}

// NewRoutingView binds schedule s to the routes in store. Event IDs name
// routes by destination prefix.
func NewRoutingView(store *kb.KnowledgeBase, s core.Schedule, opts ...core.EngineOption) (*RoutingView, error) {
	routes := store.Routes()
	byDest := make(map[string]int, len(routes))
	refs := make([]eventRef, len(routes))
	for i, r := range routes {
		byDest[r.Destination] = i
		refs[i] = eventRef{step: -1, index: -1}
	}
	for i, st := range s.Steps {
		for j, ev := range st.Events {
			ri, ok := byDest[ev.ID]
			if !ok {
				return nil, fmt.Errorf("step %d event %d: %w: %q", i, j, ErrUnknownRoute, ev.ID)
			}
			refs[ri] = eventRef{step: i, index: j}
		}
	}
	return &RoutingView{
		store:  store,
		routes: refs,
		engine: core.NewEngine(s, engineOptions(ViewRouting, opts)...),
	}, nil
}

// NewDefaultRoutingView is the routing view over the built-in table,
// calculating one route every RouteCalculationInterval.
func NewDefaultRoutingView(opts ...core.EngineOption) *RoutingView {
	store := kb.RoutingTable()
	v, err := NewRoutingView(store, RoutingSchedule(store.Routes()), opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// Name implements View.
func (v *RoutingView) Name() string { return ViewRouting }

// Engine implements View.
func (v *RoutingView) Engine() *core.Engine { return v.engine }

// Frame renders calculation state for every route.
func (v *RoutingView) Frame() RoutingFrame {
	return v.frame(v.engine.State())
}

// Snapshot implements View.
func (v *RoutingView) Snapshot() Snapshot {
	rs := v.engine.State()
	return newSnapshot(ViewRouting, rs, v.frame(rs))
}

func (v *RoutingView) frame(rs core.RenderState) RoutingFrame {
	routes := v.store.Routes()
	f := RoutingFrame{
		Routes: make([]RouteStatus, 0, len(routes)),
		Counts: RouteCounts{Total: len(routes)},
	}
	for i, r := range routes {
		ref := v.routes[i]
		st := RouteStatus{Entry: r}
		if ref.step >= 0 {
			if eventDone(rs, ref.step, ref.index) {
				st.Calculated = true
				st.Progress = 1
			} else if a, ok := activeAt(rs, ref.step, ref.index); ok {
				st.Calculating = true
				st.Progress = a.Progress
				if f.Calculating == "" {
					f.Calculating = r.Destination
				}
			}
		}
		if st.Calculated {
			f.Counts.Calculated++
			switch {
			case r.IsIntraArea():
				f.Counts.IntraArea++
			case r.Type == model.RouteInterArea:
				f.Counts.InterArea++
			case r.Type == model.RouteExternal:
				f.Counts.External++
			}
		}
		f.Routes = append(f.Routes, st)
	}
	return f
}
