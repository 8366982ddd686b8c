package model

// RouteType classifies an OSPF routing table entry.
type RouteType string

const (
	RouteDirect    RouteType = "Directly Connected"
	RouteIntraArea RouteType = "Intra-Area"
	RouteInterArea RouteType = "Inter-Area"
	RouteExternal  RouteType = "External"
)

// RouteEntry is one row of the routing table the calculation view reveals.
type RouteEntry struct {
	Destination string    `json:"destination" yaml:"destination"`
	NextHop     string    `json:"next_hop" yaml:"next_hop"`
	Interface   string    `json:"interface" yaml:"interface"`
	Cost        int       `json:"cost" yaml:"cost"`
	Type        RouteType `json:"type" yaml:"type"`
	Area        string    `json:"area" yaml:"area"`
}

// IsIntraArea reports whether the route counts towards the intra-area
// total. Directly connected networks are grouped with intra-area routes.
func (r RouteEntry) IsIntraArea() bool {
	return r.Type == RouteDirect || r.Type == RouteIntraArea
}
