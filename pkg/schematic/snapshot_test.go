package schematic

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nuno18084/Ampflux-sub000/pkg/geom"
)

func TestSnapshotRoundTrip(t *testing.T) {
	g := New()
	a := g.AddComponent(Descriptor{
		Kind:     "resistor",
		Name:     "R1",
		Defaults: map[string]any{"resistance": 220.0, "smd": true, "tolerance": "1%"},
	}, geom.Point{X: 140, Y: 90})
	b := g.AddComponent(Descriptor{Kind: "ground", Name: "GND"}, geom.Point{X: 300, Y: 400})
	mustConnect(t, g, a.ID, b.ID)

	view := ViewState{Zoom: 1.5, Pan: geom.Point{X: -30, Y: 12}}
	data, err := MarshalSnapshot(g.TakeSnapshot(view))
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}

	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}

	restored := New()
	restored.Restore(snap)

	if restored.ComponentCount() != 2 || restored.ConnectionCount() != 1 {
		t.Fatalf("restored %d components / %d connections",
			restored.ComponentCount(), restored.ConnectionCount())
	}
	got, ok := restored.Component(a.ID)
	if !ok {
		t.Fatal("component a missing after restore")
	}
	if got.Pos != a.Pos || got.Props["resistance"] != 220.0 || got.Props["smd"] != true {
		t.Errorf("restored component = %+v", got)
	}
	if snap.View != view {
		t.Errorf("view = %+v, want %+v", snap.View, view)
	}
}

func TestSnapshotJSONShape(t *testing.T) {
	// The wire shape is load-bearing: both the local mirror and the
	// remote version store round-trip through it.
	data, err := MarshalSnapshot(Snapshot{View: DefaultView()})
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"components", "connections", "viewState"} {
		if _, ok := shape[key]; !ok {
			t.Errorf("serialized snapshot missing %q: %s", key, data)
		}
	}
	if !strings.Contains(string(shape["viewState"]), `"zoom"`) {
		t.Errorf("viewState missing zoom: %s", shape["viewState"])
	}
}

func TestUnmarshalSnapshotMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"NotJSON", "{nope"},
		{"WrongShape", `{"components": 7}`},
		{"BadPropertyType", `{"components":[{"id":"a","properties":{"p":[1,2]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalSnapshot([]byte(tt.data)); !errors.Is(err, ErrMalformedSnapshot) {
				t.Errorf("err = %v, want ErrMalformedSnapshot", err)
			}
		})
	}
}

func TestUnmarshalSnapshotClampsZoom(t *testing.T) {
	snap, err := UnmarshalSnapshot([]byte(`{"components":[],"connections":[],"viewState":{"zoom":99,"pan":{"x":0,"y":0}}}`))
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if snap.View.Zoom != geom.MaxZoom {
		t.Errorf("zoom = %v, want clamped to %v", snap.View.Zoom, geom.MaxZoom)
	}
}

func TestUnmarshalSnapshotDefaultsMissingView(t *testing.T) {
	snap, err := UnmarshalSnapshot([]byte(`{"components":[],"connections":[]}`))
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if snap.View != DefaultView() {
		t.Errorf("view = %+v, want default", snap.View)
	}
}

func TestRestoreDropsDanglingConnections(t *testing.T) {
	g := New()
	g.Restore(Snapshot{
		Components: []Component{{ID: "a"}, {ID: "b"}},
		Connections: []Connection{
			{ID: "ok", From: "a", To: "b"},
			{ID: "dangling", From: "a", To: "ghost"},
		},
	})

	conns := g.Connections()
	if len(conns) != 1 || conns[0].ID != "ok" {
		t.Errorf("connections after restore = %+v", conns)
	}
}
