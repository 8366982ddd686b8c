package views

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/model"
)

const (
	// PacketSpacing separates consecutive packets of one exchange step.
	PacketSpacing = 500 * time.Millisecond
	// PacketSettle is the pause after a step's last packet lands.
	PacketSettle = time.Second
	// LinkDiscoveryInterval is the time spent discovering each link.
	LinkDiscoveryInterval = 2 * time.Second
	// RouteCalculationInterval is the time spent calculating each route.
	RouteCalculationInterval = 1500 * time.Millisecond

	// KindDiscover marks topology link discovery events.
	KindDiscover = "discover"
	// KindCalculate marks routing table calculation events.
	KindCalculate = "calculate"
)

// PacketExchangeSchedule is the five-step neighbour adjacency exchange:
// Hello, DBD, LSR, LSU and LSAck rounds across the packet network.
func PacketExchangeSchedule() core.Schedule {
	return core.MustSchedule(core.Schedule{
		Name:   ViewPacket,
		Settle: PacketSettle,
		Steps: []core.Step{
			packetStep("Routers send Hello packets to discover neighbors", model.PacketHello,
				[2]int{1, 2}, [2]int{2, 1}, [2]int{2, 3}, [2]int{3, 2}, [2]int{4, 5},
				[2]int{5, 4}, [2]int{5, 6}, [2]int{6, 5}, [2]int{2, 5}, [2]int{5, 2}),
			packetStep("Routers exchange Database Description (DBD) packets", model.PacketDBD,
				[2]int{1, 2}, [2]int{2, 1}, [2]int{2, 3}, [2]int{3, 2}, [2]int{2, 5}, [2]int{5, 2}),
			packetStep("Routers request missing LSAs with Link State Request (LSR) packets", model.PacketLSR,
				[2]int{1, 2}, [2]int{2, 1}, [2]int{2, 3}, [2]int{3, 2}),
			packetStep("Routers send Link State Update (LSU) packets with actual LSAs", model.PacketLSU,
				[2]int{2, 1}, [2]int{1, 2}, [2]int{3, 2}, [2]int{2, 3}, [2]int{2, 5}, [2]int{5, 2}),
			packetStep("Routers acknowledge receipt with Link State Acknowledgment (LSAck) packets", model.PacketLSAck,
				[2]int{1, 2}, [2]int{2, 1}, [2]int{2, 3}, [2]int{3, 2}, [2]int{5, 2}, [2]int{2, 5}),
		},
	})
}

func packetStep(desc string, kind model.PacketKind, hops ...[2]int) core.Step {
	events := make([]core.TimedEvent, 0, len(hops))
	for i, h := range hops {
		events = append(events, core.TimedEvent{
			ID:       fmt.Sprintf("%s-%d-%d", kind, h[0], h[1]),
			Source:   h[0],
			Target:   h[1],
			Kind:     string(kind),
			Start:    time.Duration(i) * PacketSpacing,
			Duration: core.DefaultEventDuration,
		})
	}
	return core.Step{Description: desc, Events: events}
}

// TopologySchedule discovers links one after another in dataset order.
func TopologySchedule(links []model.Link) core.Schedule {
	events := core.Staggered(len(links), LinkDiscoveryInterval, func(i int) core.TimedEvent {
		l := links[i]
		return core.TimedEvent{
			ID:     fmt.Sprintf("link-%d-%d", l.From, l.To),
			Source: l.From,
			Target: l.To,
			Kind:   KindDiscover,
		}
	})
	return core.MustSchedule(core.Schedule{
		Name: ViewTopology,
		Steps: []core.Step{{
			Description: "Routers flood LSAs and discover the topology link by link",
			Events:      events,
		}},
	})
}

// RoutingSchedule calculates routes one after another in table order. The
// event ID is the route's destination prefix.
func RoutingSchedule(routes []model.RouteEntry) core.Schedule {
	events := core.Staggered(len(routes), RouteCalculationInterval, func(i int) core.TimedEvent {
		return core.TimedEvent{
			ID:     routes[i].Destination,
			Target: i,
			Kind:   KindCalculate,
		}
	})
	return core.MustSchedule(core.Schedule{
		Name: ViewRouting,
		Steps: []core.Step{{
			Description: "SPF calculates shortest paths and builds the routing table",
			Events:      events,
		}},
	})
}
