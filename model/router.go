package model

import "fmt"

// Point is a position on the 2-D drawing surface of a visualization.
// Coordinates are a rendering concern; the engine never mutates them.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Router is a node in one of the fixed teaching topologies.
type Router struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Area is the OSPF area the router sits in, e.g. "0.0.0.0".
	// Empty for datasets that do not model areas.
	Area string `json:"area,omitempty" yaml:"area,omitempty"`
	Cost int    `json:"cost,omitempty" yaml:"cost,omitempty"`

	Position Point `json:"position" yaml:"position"`
}

// RouterID renders the dotted router identifier shown under each router,
// e.g. router 3 is "3.3.3.3".
func (r Router) RouterID() string {
	return fmt.Sprintf("%d.%d.%d.%d", r.ID, r.ID, r.ID, r.ID)
}

// Label returns the short label drawn inside the router circle.
func (r Router) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("R%d", r.ID)
}
