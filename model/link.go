package model

// LinkState is the administrative state of a link in the dataset.
type LinkState string

const (
	LinkUp   LinkState = "up"
	LinkDown LinkState = "down"
)

// Link connects two routers. Links are static reference data; whether a
// link has been "discovered" is derived by the topology view from the
// engine's progress, never stored here.
type Link struct {
	From  int       `json:"from" yaml:"from"`
	To    int       `json:"to" yaml:"to"`
	Cost  int       `json:"cost,omitempty" yaml:"cost,omitempty"`
	State LinkState `json:"state,omitempty" yaml:"state,omitempty"`
}

// Connects reports whether the link joins routers a and b in either direction.
func (l Link) Connects(a, b int) bool {
	return (l.From == a && l.To == b) || (l.From == b && l.To == a)
}
