package kb

import "github.com/signalsfoundry/ospf-animator/model"

// The three datasets below are the hand-authored reference data of the
// teaching views. They are built once and panic on authoring mistakes.

// PacketExchangeNetwork is the six-router network the packet-exchange
// view draws packets across.
func PacketExchangeNetwork() *KnowledgeBase {
	store := NewKnowledgeBase()
	for _, r := range []model.Router{
		{ID: 1, Name: "Router 1", Position: model.Point{X: 100, Y: 100}},
		{ID: 2, Name: "Router 2", Position: model.Point{X: 300, Y: 100}},
		{ID: 3, Name: "Router 3", Position: model.Point{X: 500, Y: 100}},
		{ID: 4, Name: "Router 4", Position: model.Point{X: 100, Y: 300}},
		{ID: 5, Name: "Router 5", Position: model.Point{X: 300, Y: 300}},
		{ID: 6, Name: "Router 6", Position: model.Point{X: 500, Y: 300}},
	} {
		must(store.AddRouter(r))
	}
	for _, l := range []model.Link{
		{From: 1, To: 2},
		{From: 2, To: 3},
		{From: 4, To: 5},
		{From: 5, To: 6},
		{From: 2, To: 5},
	} {
		must(store.AddLink(l))
	}
	return store
}

// OSPFTopology is the two-area network whose links the topology view
// discovers one by one.
func OSPFTopology() *KnowledgeBase {
	store := NewKnowledgeBase()
	for _, r := range []model.Router{
		{ID: 1, Name: "R1", Area: "0.0.0.0", Cost: 0, Position: model.Point{X: 150, Y: 100}},
		{ID: 2, Name: "R2", Area: "0.0.0.0", Cost: 10, Position: model.Point{X: 350, Y: 100}},
		{ID: 3, Name: "R3", Area: "0.0.0.1", Cost: 20, Position: model.Point{X: 550, Y: 100}},
		{ID: 4, Name: "R4", Area: "0.0.0.0", Cost: 15, Position: model.Point{X: 150, Y: 300}},
		{ID: 5, Name: "R5", Area: "0.0.0.0", Cost: 5, Position: model.Point{X: 350, Y: 300}},
		{ID: 6, Name: "R6", Area: "0.0.0.1", Cost: 25, Position: model.Point{X: 550, Y: 300}},
	} {
		must(store.AddRouter(r))
	}
	for _, l := range []model.Link{
		{From: 1, To: 2, Cost: 10},
		{From: 2, To: 3, Cost: 20},
		{From: 1, To: 4, Cost: 15},
		{From: 4, To: 5, Cost: 5},
		{From: 5, To: 6, Cost: 25},
		{From: 2, To: 5, Cost: 8},
		{From: 3, To: 6, Cost: 12},
	} {
		must(store.AddLink(l))
	}
	return store
}

// RoutingTable holds the routing entries the calculation view reveals.
func RoutingTable() *KnowledgeBase {
	store := NewKnowledgeBase()
	for _, r := range []model.RouteEntry{
		{Destination: "10.1.1.0/24", NextHop: "10.1.2.2", Interface: "GE1/0/0", Cost: 10, Type: model.RouteIntraArea, Area: "0.0.0.0"},
		{Destination: "10.1.2.0/24", NextHop: "0.0.0.0", Interface: "GE1/0/0", Cost: 0, Type: model.RouteDirect, Area: "0.0.0.0"},
		{Destination: "10.1.3.0/24", NextHop: "10.1.2.2", Interface: "GE1/0/0", Cost: 30, Type: model.RouteIntraArea, Area: "0.0.0.0"},
		{Destination: "10.2.1.0/24", NextHop: "10.1.2.2", Interface: "GE1/0/0", Cost: 50, Type: model.RouteInterArea, Area: "0.0.0.1"},
		{Destination: "10.2.2.0/24", NextHop: "10.1.2.2", Interface: "GE1/0/0", Cost: 45, Type: model.RouteInterArea, Area: "0.0.0.1"},
		{Destination: "192.168.1.0/24", NextHop: "10.1.2.2", Interface: "GE1/0/0", Cost: 100, Type: model.RouteExternal, Area: "External"},
	} {
		must(store.AddRoute(r))
	}
	return store
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
