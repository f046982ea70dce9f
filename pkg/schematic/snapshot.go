package schematic

import (
	"encoding/json"
	"fmt"

	"github.com/nuno18084/Ampflux-sub000/pkg/geom"
)

// ViewState is the persisted portion of the view transform: zoom factor
// and pan offset. It is snapshotted alongside the graph so a reload lands
// the user on the same part of the canvas.
type ViewState struct {
	Zoom float64    `json:"zoom"`
	Pan  geom.Point `json:"pan"`
}

// DefaultView returns the default view state: zoom 1, no pan.
func DefaultView() ViewState { return ViewState{Zoom: 1} }

// Transform converts the view state to a geom.Transform.
func (v ViewState) Transform() geom.Transform {
	return geom.Transform{Zoom: geom.ClampZoom(v.Zoom), Pan: v.Pan}
}

// Snapshot is the full serializable state of one diagram: components,
// connections, and the view transform. It is the single unit of save and
// load across both the local mirror and the remote version store, so its
// JSON shape is load-bearing:
//
//	{"components": [...], "connections": [...], "viewState": {"zoom": 1, "pan": {"x": 0, "y": 0}}}
type Snapshot struct {
	Components  []Component  `json:"components"`
	Connections []Connection `json:"connections"`
	View        ViewState    `json:"viewState"`
}

// TakeSnapshot captures the graph plus the given view state.
func (g *Graph) TakeSnapshot(view ViewState) Snapshot {
	return Snapshot{
		Components:  g.Components(),
		Connections: g.Connections(),
		View:        view,
	}
}

// Restore replaces the graph's contents with the snapshot's. Connections
// with a dangling endpoint are dropped, so a damaged snapshot can never
// violate the model's referential invariant.
func (g *Graph) Restore(snap Snapshot) {
	g.components = make(map[string]*Component, len(snap.Components))
	for _, c := range snap.Components {
		cc := c
		if cc.Props == nil {
			cc.Props = make(map[string]any)
		}
		g.components[cc.ID] = &cc
	}
	g.connections = g.connections[:0]
	for _, c := range snap.Connections {
		if _, ok := g.components[c.From]; !ok {
			continue
		}
		if _, ok := g.components[c.To]; !ok {
			continue
		}
		g.connections = append(g.connections, c)
	}
}

// MarshalSnapshot serializes a snapshot to its canonical JSON form.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	if snap.Components == nil {
		snap.Components = []Component{}
	}
	if snap.Connections == nil {
		snap.Connections = []Connection{}
	}
	return json.Marshal(snap)
}

// UnmarshalSnapshot parses stored snapshot JSON. It returns
// ErrMalformedSnapshot (wrapped with the underlying cause) if the data is
// not valid JSON or a property value falls outside the number/boolean/
// string domain. The view's zoom is clamped into the legal range.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for _, c := range snap.Components {
		for k, v := range c.Props {
			switch v.(type) {
			case float64, bool, string:
			default:
				return Snapshot{}, fmt.Errorf("%w: property %q of %s has unsupported type %T",
					ErrMalformedSnapshot, k, c.ID, v)
			}
		}
	}
	if snap.View.Zoom == 0 {
		snap.View = DefaultView()
	}
	snap.View.Zoom = geom.ClampZoom(snap.View.Zoom)
	return snap, nil
}
