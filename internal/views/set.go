package views

import (
	"fmt"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/kb"
)

// Overrides replaces built-in schedules. Nil fields keep the default.
type Overrides struct {
	Packet   *core.Schedule
	Topology *core.Schedule
	Routing  *core.Schedule
}

// Builtin returns the packet, topology and routing views, in that order,
// over the built-in datasets.
func Builtin(o Overrides, opts ...core.EngineOption) ([]View, error) {
	packetSchedule := PacketExchangeSchedule()
	if o.Packet != nil {
		packetSchedule = *o.Packet
	}
	packet, err := NewPacketView(kb.PacketExchangeNetwork(), packetSchedule, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s view: %w", ViewPacket, err)
	}

	topoStore := kb.OSPFTopology()
	topoSchedule := TopologySchedule(topoStore.Links())
	if o.Topology != nil {
		topoSchedule = *o.Topology
	}
	topology, err := NewTopologyView(topoStore, DefaultAreas(), topoSchedule, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s view: %w", ViewTopology, err)
	}

	routeStore := kb.RoutingTable()
	routeSchedule := RoutingSchedule(routeStore.Routes())
	if o.Routing != nil {
		routeSchedule = *o.Routing
	}
	routing, err := NewRoutingView(routeStore, routeSchedule, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s view: %w", ViewRouting, err)
	}

	return []View{packet, topology, routing}, nil
}
