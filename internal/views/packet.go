package views

import (
	"fmt"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/kb"
	"github.com/signalsfoundry/ospf-animator/model"
)

// PacketSprite is one packet in flight between two routers.
type PacketSprite struct {
	ID       string            `json:"id"`
	Kind     model.PacketKind  `json:"kind"`
	Style    model.PacketStyle `json:"style"`
	From     int               `json:"from"`
	To       int               `json:"to"`
	Progress float64           `json:"progress"`
	Position model.Point       `json:"position"`
}

// PacketFrame is the packet-exchange view at one instant.
type PacketFrame struct {
	Routers []model.Router      `json:"routers"`
	Links   []model.Link        `json:"links"`
	Packets []PacketSprite      `json:"packets"`
	Legend  []model.PacketStyle `json:"legend"`
}

// PacketView animates OSPF packets travelling between neighbours.
type PacketView struct {
	store  *kb.KnowledgeBase
	engine *core.Engine
}

// NewPacketView binds schedule s to the routers in store. Every event must
// name two routers present in store.
func NewPacketView(store *kb.KnowledgeBase, s core.Schedule, opts ...core.EngineOption) (*PacketView, error) {
	for i, st := range s.Steps {
		for j, ev := range st.Events {
			for _, id := range []int{ev.Source, ev.Target} {
				if _, ok := store.Router(id); !ok {
					return nil, fmt.Errorf("step %d event %d: %w: %d", i, j, ErrUnknownRouter, id)
				}
			}
		}
	}
	return &PacketView{
		store:  store,
		engine: core.NewEngine(s, engineOptions(ViewPacket, opts)...),
	}, nil
}

// NewDefaultPacketView is the packet view over the built-in network and
// exchange schedule.
func NewDefaultPacketView(opts ...core.EngineOption) *PacketView {
	v, err := NewPacketView(kb.PacketExchangeNetwork(), PacketExchangeSchedule(), opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// Name implements View.
func (v *PacketView) Name() string { return ViewPacket }

// Engine implements View.
func (v *PacketView) Engine() *core.Engine { return v.engine }

// Frame renders the packets currently in flight.
func (v *PacketView) Frame() PacketFrame {
	return v.frame(v.engine.State())
}

// Snapshot implements View.
func (v *PacketView) Snapshot() Snapshot {
	rs := v.engine.State()
	return newSnapshot(ViewPacket, rs, v.frame(rs))
}

func (v *PacketView) frame(rs core.RenderState) PacketFrame {
	f := PacketFrame{
		Routers: v.store.Routers(),
		Links:   v.store.Links(),
		Packets: make([]PacketSprite, 0, len(rs.Active)),
	}
	for _, k := range model.PacketKinds() {
		f.Legend = append(f.Legend, k.Style())
	}
	for _, a := range rs.Active {
		from, _ := v.store.Router(a.Event.Source)
		to, _ := v.store.Router(a.Event.Target)
		kind := model.PacketKind(a.Event.Kind)
		f.Packets = append(f.Packets, PacketSprite{
			ID:       a.Event.ID,
			Kind:     kind,
			Style:    kind.Style(),
			From:     a.Event.Source,
			To:       a.Event.Target,
			Progress: a.Progress,
			Position: core.Interpolate(a.Progress, from.Position, to.Position),
		})
	}
	return f
}
