// Package schematic is the in-memory graph model of a circuit diagram:
// placed components and the connections wired between them. It is pure
// data plus mutation operations - no rendering, no I/O.
//
// All operations are total over invalid input. A stale id (for example a
// delayed pointer-up referencing an already-removed component) reports a
// no-op result instead of panicking, because the hosting editor must never
// crash on late events.
//
// Graph is not safe for concurrent use. The editor mutates it from a
// single event goroutine; see the editor package.
package schematic

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/nuno18084/Ampflux-sub000/pkg/geom"
)

var (
	// ErrInvalidConnection is returned by [Graph.AddConnection] when the
	// connection would be a self-loop, reference a missing component, or
	// duplicate an existing (from, to) pair. Callers typically ignore it:
	// an invalid connection attempt is not a user-facing error.
	ErrInvalidConnection = errors.New("invalid connection")

	// ErrMalformedSnapshot is returned by [UnmarshalSnapshot] when stored
	// JSON cannot be parsed. Loaders treat it as absent data and start
	// from an empty graph.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// Component is one placed component on the canvas. Pos is the top-left
// anchor in world coordinates. Props is schema-less: values are numbers,
// booleans, or strings, and unknown keys are permitted.
type Component struct {
	ID    string         `json:"id"`
	Kind  string         `json:"componentKindId"`
	Name  string         `json:"displayName"`
	Pos   geom.Point     `json:"position"`
	Props map[string]any `json:"properties,omitempty"`
}

// Connection is a wire between two placed components. Direction is stored
// but cosmetic: the model does not treat From and To asymmetrically beyond
// preserving them.
type Connection struct {
	ID   string `json:"id"`
	From string `json:"fromComponentId"`
	To   string `json:"toComponentId"`
}

// Touches reports whether either endpoint of the connection is id.
func (c Connection) Touches(id string) bool {
	return c.From == id || c.To == id
}

// Descriptor describes a component kind to place: typically sourced from
// the component catalog, but the model stores unknown kinds as-is.
type Descriptor struct {
	Kind     string
	Name     string
	Defaults map[string]any
}

// Graph holds the components and connections of one diagram.
// The zero value is not usable - use New.
type Graph struct {
	components  map[string]*Component
	connections []Connection
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{components: make(map[string]*Component)}
}

// AddComponent places a new component at the given world position and
// returns it. The id is a fresh UUID, collision-free even under rapid
// successive calls. The descriptor's default properties are copied into
// the component's property map.
func (g *Graph) AddComponent(desc Descriptor, pos geom.Point) Component {
	c := &Component{
		ID:    uuid.NewString(),
		Kind:  desc.Kind,
		Name:  desc.Name,
		Pos:   pos,
		Props: make(map[string]any, len(desc.Defaults)),
	}
	for k, v := range desc.Defaults {
		c.Props[k] = v
	}
	g.components[c.ID] = c
	return *c
}

// MoveComponent overwrites the component's world position.
// Returns false if the id is absent.
func (g *Graph) MoveComponent(id string, pos geom.Point) bool {
	c, ok := g.components[id]
	if !ok {
		return false
	}
	c.Pos = pos
	return true
}

// UpdateProperty merges a single key into the component's property map.
// Unknown keys are permitted. Returns false if the id is absent.
func (g *Graph) UpdateProperty(id, key string, value any) bool {
	c, ok := g.components[id]
	if !ok {
		return false
	}
	if c.Props == nil {
		c.Props = make(map[string]any)
	}
	c.Props[key] = value
	return true
}

// RemoveComponent removes the component and, atomically, every connection
// referencing it, so no connection is ever left with a dangling endpoint.
// Returns false if the id is absent.
func (g *Graph) RemoveComponent(id string) bool {
	if _, ok := g.components[id]; !ok {
		return false
	}
	delete(g.components, id)
	g.removeConnectionsTouching(id)
	return true
}

// AddConnection wires from to to. Returns ErrInvalidConnection if the two
// ids are equal, if either does not resolve to a live component, or if an
// identical (from, to) pair already exists.
func (g *Graph) AddConnection(from, to string) (Connection, error) {
	if from == to {
		return Connection{}, ErrInvalidConnection
	}
	if _, ok := g.components[from]; !ok {
		return Connection{}, ErrInvalidConnection
	}
	if _, ok := g.components[to]; !ok {
		return Connection{}, ErrInvalidConnection
	}
	for _, c := range g.connections {
		if c.From == from && c.To == to {
			return Connection{}, ErrInvalidConnection
		}
	}
	c := Connection{ID: uuid.NewString(), From: from, To: to}
	g.connections = append(g.connections, c)
	return c, nil
}

// RemoveConnection removes the connection with the given id.
// Returns false if the id is absent.
func (g *Graph) RemoveConnection(id string) bool {
	before := len(g.connections)
	g.connections = slices.DeleteFunc(g.connections, func(c Connection) bool {
		return c.ID == id
	})
	return len(g.connections) != before
}

func (g *Graph) removeConnectionsTouching(id string) {
	g.connections = slices.DeleteFunc(g.connections, func(c Connection) bool {
		return c.Touches(id)
	})
}

// Component returns a copy of the component with the given id and true,
// or a zero Component and false if not found.
func (g *Graph) Component(id string) (Component, bool) {
	c, ok := g.components[id]
	if !ok {
		return Component{}, false
	}
	return *c, true
}

// Components returns copies of all components, sorted by id for
// deterministic output.
func (g *Graph) Components() []Component {
	out := make([]Component, 0, len(g.components))
	for _, c := range g.components {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Component) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// Connections returns a copy of all connections in insertion order.
func (g *Graph) Connections() []Connection {
	return slices.Clone(g.connections)
}

// ComponentCount returns the number of placed components.
func (g *Graph) ComponentCount() int { return len(g.components) }

// ConnectionCount returns the number of connections.
func (g *Graph) ConnectionCount() int { return len(g.connections) }
