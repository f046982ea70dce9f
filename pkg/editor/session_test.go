package editor

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nuno18084/Ampflux-sub000/pkg/access"
	"github.com/nuno18084/Ampflux-sub000/pkg/geom"
	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	base := []Option{WithClock(clock.now), WithLogger(quietLogger())}
	return NewSession("proj-1", append(base, opts...)...), clock
}

func resistor() schematic.Descriptor {
	return schematic.Descriptor{Kind: "resistor", Name: "Resistor",
		Defaults: map[string]any{"resistance": 100.0}}
}

func TestDropPlacesAtCenterAnchoredWorldPosition(t *testing.T) {
	s, _ := newTestSession(t)

	comp, err := s.Drop(resistor(), geom.Point{X: 200, Y: 150})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	// Screen (200,150) at zoom 1, pan (0,0) maps to world (200,150);
	// the 60px center anchor lands the top-left at (140,90).
	if comp.Pos != (geom.Point{X: 140, Y: 90}) {
		t.Errorf("pos = %+v, want {140 90}", comp.Pos)
	}
	if s.Selection() != comp.ID {
		t.Error("dropped component not selected")
	}
}

func TestQuickReleaseIsClickNotDrag(t *testing.T) {
	s, clock := newTestSession(t)
	comp, _ := s.Drop(resistor(), geom.Point{X: 200, Y: 150})
	s.PointerDownOnCanvas(geom.Point{}) // clear selection via canvas press
	s.PointerUp(geom.Point{})

	s.PointerDownOnComponent(comp.ID, geom.Point{X: 200, Y: 150})
	if s.State() != StatePendingDrag {
		t.Fatalf("state = %v, want pending-drag", s.State())
	}

	clock.advance(100 * time.Millisecond) // inside the 150ms window
	if err := s.PointerUp(geom.Point{X: 202, Y: 151}); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}

	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	if s.Selection() != comp.ID {
		t.Error("click did not select the component")
	}
	got, _ := s.Graph().Component(comp.ID)
	if got.Pos != comp.Pos {
		t.Errorf("click mutated position: %+v -> %+v", comp.Pos, got.Pos)
	}
}

func TestHoldPromotesToDrag(t *testing.T) {
	s, clock := newTestSession(t)
	comp, _ := s.Drop(resistor(), geom.Point{X: 200, Y: 150})

	s.PointerDownOnComponent(comp.ID, geom.Point{X: 200, Y: 150})
	clock.advance(200 * time.Millisecond)
	s.PointerMove(geom.Point{X: 201, Y: 150})

	if s.State() != StateDragging {
		t.Errorf("state = %v, want dragging after hold", s.State())
	}
}

func TestTravelPromotesToDrag(t *testing.T) {
	s, _ := newTestSession(t)
	comp, _ := s.Drop(resistor(), geom.Point{X: 200, Y: 150})

	s.PointerDownOnComponent(comp.ID, geom.Point{X: 200, Y: 150})
	s.PointerMove(geom.Point{X: 210, Y: 150}) // 10px > 5px threshold

	if s.State() != StateDragging {
		t.Errorf("state = %v, want dragging after travel", s.State())
	}
}

func TestDragFollowsPointerWithAnchor(t *testing.T) {
	s, _ := newTestSession(t)
	desc := resistor()
	comp, _ := s.Drop(desc, geom.Point{X: 160, Y: 160}) // top-left at (100,100)
	if comp.Pos != (geom.Point{X: 100, Y: 100}) {
		t.Fatalf("setup pos = %+v", comp.Pos)
	}

	// Grab the component 10 right, 20 below its top-left.
	s.PointerDownOnComponent(comp.ID, geom.Point{X: 110, Y: 120})
	s.PointerMove(geom.Point{X: 150, Y: 150}) // travel promotes

	got, _ := s.Graph().Component(comp.ID)
	// Pointer at world (150,150) minus anchor (10,20) -> top-left (140,130).
	if got.Pos != (geom.Point{X: 140, Y: 130}) {
		t.Errorf("dragged pos = %+v, want {140 130}", got.Pos)
	}

	if err := s.PointerUp(geom.Point{X: 150, Y: 150}); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state after drop = %v, want idle", s.State())
	}
}

func TestPanIsScreenSpaceRegardlessOfZoom(t *testing.T) {
	s, _ := newTestSession(t)
	s.Wheel(8) // push zoom well above 1 so a world-space pan would differ

	startPan := s.View().Pan
	s.PointerDownOnCanvas(geom.Point{X: 10, Y: 10})
	s.PointerMove(geom.Point{X: 30, Y: 25})

	delta := s.View().Pan.Sub(startPan)
	if delta != (geom.Point{X: 20, Y: 15}) {
		t.Errorf("pan delta = %+v, want the raw screen delta {20 15}", delta)
	}

	s.PointerUp(geom.Point{X: 30, Y: 25})
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestPointerDownOnCanvasClearsSelection(t *testing.T) {
	s, _ := newTestSession(t)
	s.Drop(resistor(), geom.Point{X: 200, Y: 150})
	if s.Selection() == "" {
		t.Fatal("setup: nothing selected")
	}

	s.PointerDownOnCanvas(geom.Point{X: 5, Y: 5})
	if s.Selection() != "" {
		t.Error("canvas press kept the selection")
	}
}

func TestWheelClampsAndIgnoresDuringDrag(t *testing.T) {
	s, _ := newTestSession(t)

	s.Wheel(100)
	if z := s.View().Zoom; z != geom.MaxZoom {
		t.Errorf("zoom = %v, want clamped to %v", z, geom.MaxZoom)
	}
	s.Wheel(-1000)
	if z := s.View().Zoom; z != geom.MinZoom {
		t.Errorf("zoom = %v, want clamped to %v", z, geom.MinZoom)
	}

	comp, _ := s.Drop(resistor(), geom.Point{X: 200, Y: 150})
	s.PointerDownOnComponent(comp.ID, geom.Point{X: 200, Y: 150})
	s.PointerMove(geom.Point{X: 220, Y: 150}) // promote to dragging

	before := s.View().Zoom
	s.Wheel(5)
	if s.View().Zoom != before {
		t.Error("wheel mutated zoom during an active drag")
	}
}

func TestConnectTwoComponents(t *testing.T) {
	s, _ := newTestSession(t)
	a, _ := s.Drop(resistor(), geom.Point{X: 100, Y: 100})
	b, _ := s.Drop(resistor(), geom.Point{X: 400, Y: 100})

	if err := s.ClickConnectionDot(a.ID); err != nil {
		t.Fatalf("first click: %v", err)
	}
	if s.State() != StateConnecting || s.ConnectSource() != a.ID {
		t.Fatalf("state = %v source = %q", s.State(), s.ConnectSource())
	}

	if err := s.ClickConnectionDot(b.ID); err != nil {
		t.Fatalf("second click: %v", err)
	}

	conns := s.Graph().Connections()
	if len(conns) != 1 {
		t.Fatalf("connections = %d, want 1", len(conns))
	}
	if conns[0].From != a.ID || conns[0].To != b.ID {
		t.Errorf("connection = %+v", conns[0])
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestReclickEqualsCancelNotSelfLoop(t *testing.T) {
	s, _ := newTestSession(t)
	a, _ := s.Drop(resistor(), geom.Point{X: 100, Y: 100})

	s.ClickConnectionDot(a.ID)
	if err := s.ClickConnectionDot(a.ID); err != nil {
		t.Fatalf("cancel click: %v", err)
	}

	if s.Graph().ConnectionCount() != 0 {
		t.Error("cancel gesture created a connection")
	}
	if s.State() != StateIdle || s.ConnectSource() != "" {
		t.Errorf("state = %v source = %q, want idle and empty", s.State(), s.ConnectSource())
	}
}

func TestDuplicateConnectionIgnored(t *testing.T) {
	s, _ := newTestSession(t)
	a, _ := s.Drop(resistor(), geom.Point{X: 100, Y: 100})
	b, _ := s.Drop(resistor(), geom.Point{X: 400, Y: 100})

	s.ClickConnectionDot(a.ID)
	s.ClickConnectionDot(b.ID)
	s.ClickConnectionDot(a.ID)
	if err := s.ClickConnectionDot(b.ID); err != nil {
		t.Fatalf("duplicate attempt: %v", err)
	}

	if n := s.Graph().ConnectionCount(); n != 1 {
		t.Errorf("connections = %d, want 1", n)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestCancelReturnsToIdleFromEveryState(t *testing.T) {
	setups := []struct {
		name  string
		enter func(s *Session, id string)
	}{
		{"PendingDrag", func(s *Session, id string) {
			s.PointerDownOnComponent(id, geom.Point{X: 200, Y: 150})
		}},
		{"Dragging", func(s *Session, id string) {
			s.PointerDownOnComponent(id, geom.Point{X: 200, Y: 150})
			s.PointerMove(geom.Point{X: 250, Y: 150})
		}},
		{"Panning", func(s *Session, id string) {
			s.PointerDownOnCanvas(geom.Point{})
		}},
		{"Connecting", func(s *Session, id string) {
			s.ClickConnectionDot(id)
		}},
	}

	for _, tt := range setups {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t)
			comp, _ := s.Drop(resistor(), geom.Point{X: 200, Y: 150})
			before, _ := s.Graph().Component(comp.ID)

			tt.enter(s, comp.ID)
			s.Cancel()

			if s.State() != StateIdle {
				t.Errorf("state = %v, want idle", s.State())
			}
			after, _ := s.Graph().Component(comp.ID)
			if after.Pos != before.Pos {
				t.Errorf("cancel mutated position: %+v -> %+v", before.Pos, after.Pos)
			}
		})
	}
}

func TestReadOnlySessionNeverMutates(t *testing.T) {
	// Build the diagram as an editor, then reopen it read-only.
	owner, _ := newTestSession(t)
	a, _ := owner.Drop(resistor(), geom.Point{X: 100, Y: 100})
	b, _ := owner.Drop(resistor(), geom.Point{X: 400, Y: 100})

	s := NewSession("proj-1",
		WithPermissions(access.Viewer()),
		WithLogger(quietLogger()))
	s.Graph().Restore(owner.Graph().TakeSnapshot(schematic.DefaultView()))
	components, connections := s.Graph().ComponentCount(), s.Graph().ConnectionCount()
	aPos, _ := s.Graph().Component(a.ID)

	t.Run("Drop", func(t *testing.T) {
		if _, err := s.Drop(resistor(), geom.Point{X: 1, Y: 1}); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})
	t.Run("Drag", func(t *testing.T) {
		s.PointerDownOnComponent(a.ID, geom.Point{X: 160, Y: 160})
		if err := s.PointerMove(geom.Point{X: 300, Y: 300}); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
		s.PointerUp(geom.Point{X: 300, Y: 300})
	})
	t.Run("Connect", func(t *testing.T) {
		s.ClickConnectionDot(a.ID)
		if err := s.ClickConnectionDot(b.ID); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})
	t.Run("Delete", func(t *testing.T) {
		if err := s.DeleteComponent(a.ID); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})
	t.Run("Property", func(t *testing.T) {
		if err := s.SetProperty(a.ID, "resistance", 999.0); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})

	if s.Graph().ComponentCount() != components || s.Graph().ConnectionCount() != connections {
		t.Errorf("counts changed: %d/%d -> %d/%d", components, connections,
			s.Graph().ComponentCount(), s.Graph().ConnectionCount())
	}
	if got, _ := s.Graph().Component(a.ID); got.Pos != aPos.Pos {
		t.Errorf("position changed: %+v -> %+v", aPos.Pos, got.Pos)
	}
	if got, _ := s.Graph().Component(a.ID); got.Props["resistance"] != 100.0 {
		t.Errorf("property changed: %v", got.Props["resistance"])
	}

	// The visual interaction still works: a click selects.
	s.PointerDownOnComponent(a.ID, geom.Point{X: 160, Y: 160})
	s.PointerUp(geom.Point{X: 160, Y: 160})
	if s.Selection() != a.ID {
		t.Error("read-only click did not select")
	}
}

func TestStaleIDsAreIgnored(t *testing.T) {
	s, _ := newTestSession(t)
	comp, _ := s.Drop(resistor(), geom.Point{X: 200, Y: 150})
	s.DeleteComponent(comp.ID)

	// A delayed pointer-down referencing the removed component.
	s.PointerDownOnComponent(comp.ID, geom.Point{X: 200, Y: 150})
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle for stale id", s.State())
	}

	if err := s.SetProperty(comp.ID, "resistance", 1.0); err != nil {
		t.Errorf("stale property edit: %v", err)
	}
	if err := s.DeleteComponent(comp.ID); err != nil {
		t.Errorf("stale delete: %v", err)
	}
	s.ClickConnectionDot(comp.ID)
	if s.State() != StateIdle {
		t.Errorf("state = %v after stale dot click, want idle", s.State())
	}
}

func TestDeleteSelectedCascades(t *testing.T) {
	s, _ := newTestSession(t)
	a, _ := s.Drop(resistor(), geom.Point{X: 100, Y: 100})
	b, _ := s.Drop(resistor(), geom.Point{X: 400, Y: 100})
	s.ClickConnectionDot(a.ID)
	s.ClickConnectionDot(b.ID)

	s.PointerDownOnComponent(a.ID, geom.Point{X: 160, Y: 160})
	s.PointerUp(geom.Point{X: 160, Y: 160}) // select a
	if err := s.DeleteSelected(); err != nil {
		t.Fatalf("DeleteSelected: %v", err)
	}

	if s.Graph().ComponentCount() != 1 || s.Graph().ConnectionCount() != 0 {
		t.Errorf("counts = %d/%d, want 1/0",
			s.Graph().ComponentCount(), s.Graph().ConnectionCount())
	}
	if s.Selection() != "" {
		t.Error("selection survived its component")
	}
}
