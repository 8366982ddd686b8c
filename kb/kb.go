package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/ospf-animator/model"
)

var (
	// ErrRouterExists indicates a router with the same ID was already added.
	ErrRouterExists = errors.New("router already exists")
	// ErrRouterNotFound indicates a referenced router is not in the KB.
	ErrRouterNotFound = errors.New("router not found")
	// ErrInvalidLink indicates a link failed validation.
	ErrInvalidLink = errors.New("invalid link")
	// ErrInvalidRoute indicates a routing entry failed validation.
	ErrInvalidRoute = errors.New("invalid route")
)

// KnowledgeBase is an in-memory, thread-safe store for the static
// reference data of one visualization: routers, links and routing entries.
//
// Contents are authored once at startup. Accessors return copies so
// views can annotate them without touching the KB.
type KnowledgeBase struct {
	mu sync.RWMutex

	routers map[int]model.Router
	order   []int
	links   []model.Link
	routes  []model.RouteEntry
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		routers: make(map[int]model.Router),
	}
}

// AddRouter adds a router. It returns ErrRouterExists if the ID is taken.
func (kb *KnowledgeBase) AddRouter(r model.Router) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.routers[r.ID]; exists {
		return fmt.Errorf("%w: %d", ErrRouterExists, r.ID)
	}
	kb.routers[r.ID] = r
	kb.order = append(kb.order, r.ID)
	return nil
}

// AddLink appends a link. Both endpoints must already exist and must differ.
func (kb *KnowledgeBase) AddLink(l model.Link) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if l.From == l.To {
		return fmt.Errorf("%w: self-loop on router %d", ErrInvalidLink, l.From)
	}
	for _, id := range []int{l.From, l.To} {
		if _, ok := kb.routers[id]; !ok {
			return fmt.Errorf("%w: %d", ErrRouterNotFound, id)
		}
	}
	if l.State == "" {
		l.State = model.LinkUp
	}
	kb.links = append(kb.links, l)
	return nil
}

// AddRoute appends a routing table entry. Destinations must be unique.
func (kb *KnowledgeBase) AddRoute(r model.RouteEntry) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if r.Destination == "" {
		return fmt.Errorf("%w: empty destination", ErrInvalidRoute)
	}
	for _, existing := range kb.routes {
		if existing.Destination == r.Destination {
			return fmt.Errorf("%w: duplicate destination %q", ErrInvalidRoute, r.Destination)
		}
	}
	kb.routes = append(kb.routes, r)
	return nil
}

// Router returns the router with the given ID.
func (kb *KnowledgeBase) Router(id int) (model.Router, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	r, ok := kb.routers[id]
	return r, ok
}

// Routers returns all routers in insertion order.
func (kb *KnowledgeBase) Routers() []model.Router {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Router, 0, len(kb.order))
	for _, id := range kb.order {
		res = append(res, kb.routers[id])
	}
	return res
}

// Links returns a snapshot of all links in insertion order.
func (kb *KnowledgeBase) Links() []model.Link {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]model.Link(nil), kb.links...)
}

// Routes returns a snapshot of all routing entries in insertion order.
func (kb *KnowledgeBase) Routes() []model.RouteEntry {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]model.RouteEntry(nil), kb.routes...)
}

// Counts returns the number of routers, links and routes held.
func (kb *KnowledgeBase) Counts() (routers, links, routes int) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.routers), len(kb.links), len(kb.routes)
}
