// Package catalog supplies the list of draggable component kinds shown in
// the editor palette. The catalog is a collaborator, not an authority: the
// graph model stores unknown kind ids as-is and never validates against it.
package catalog

import (
	"fmt"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
)

// Kind describes one placeable component kind.
type Kind struct {
	ID       string         `toml:"id"`
	Name     string         `toml:"name"`
	Defaults map[string]any `toml:"defaults"`
}

// Catalog is an ordered set of component kinds.
type Catalog struct {
	kinds map[string]Kind
}

// New creates a catalog from the given kinds. Later duplicates of the
// same id override earlier ones.
func New(kinds ...Kind) *Catalog {
	c := &Catalog{kinds: make(map[string]Kind, len(kinds))}
	for _, k := range kinds {
		c.kinds[k.ID] = k
	}
	return c
}

// Builtin returns the default electrical component kinds.
func Builtin() *Catalog {
	return New(
		Kind{ID: "resistor", Name: "Resistor", Defaults: map[string]any{"resistance": 100.0, "tolerance": "5%"}},
		Kind{ID: "capacitor", Name: "Capacitor", Defaults: map[string]any{"capacitance": 1e-6}},
		Kind{ID: "inductor", Name: "Inductor", Defaults: map[string]any{"inductance": 1e-3}},
		Kind{ID: "voltage_source", Name: "Voltage Source", Defaults: map[string]any{"voltage": 5.0, "ac": false}},
		Kind{ID: "ground", Name: "Ground", Defaults: map[string]any{}},
		Kind{ID: "led", Name: "LED", Defaults: map[string]any{"color": "red", "forward_voltage": 2.0}},
		Kind{ID: "switch", Name: "Switch", Defaults: map[string]any{"closed": false}},
	)
}

// Kinds returns all kinds sorted by id.
func (c *Catalog) Kinds() []Kind {
	out := make([]Kind, 0, len(c.kinds))
	for _, k := range c.kinds {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Kind) int {
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

// Lookup returns the kind with the given id and true, or a zero Kind and
// false if not found.
func (c *Catalog) Lookup(id string) (Kind, bool) {
	k, ok := c.kinds[id]
	return k, ok
}

// Descriptor builds a placement descriptor for the kind. Unknown ids pass
// through as a descriptor with the id as both kind and display name, so a
// stale palette entry still places something rather than failing.
func (c *Catalog) Descriptor(id string) schematic.Descriptor {
	k, ok := c.kinds[id]
	if !ok {
		return schematic.Descriptor{Kind: id, Name: id}
	}
	return schematic.Descriptor{Kind: k.ID, Name: k.Name, Defaults: k.Defaults}
}

// kindFile is the TOML shape of a user kind pack:
//
//	[[kind]]
//	id = "relay"
//	name = "Relay"
//	[kind.defaults]
//	coil_voltage = 12.0
type kindFile struct {
	Kind []Kind `toml:"kind"`
}

// LoadTOML reads extra kinds from a TOML file and merges them over the
// builtin catalog. Kinds with an empty id are rejected.
func LoadTOML(path string) (*Catalog, error) {
	var file kindFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}

	c := Builtin()
	for _, k := range file.Kind {
		if k.ID == "" {
			return nil, fmt.Errorf("load catalog %s: kind with empty id", path)
		}
		c.kinds[k.ID] = k
	}
	return c, nil
}
