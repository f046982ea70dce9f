// Package editor owns the interaction engine of one open diagram: the
// pointer-driven state machine that turns events into graph mutations,
// the view transform, and the persistence adapter that mirrors every
// committed change locally and saves explicit versions remotely.
//
// One Session exists per open project editor. There is no ambient shared
// state: everything a transition needs lives on the Session, so multiple
// editors (and tests) never interfere.
//
// # Concurrency
//
// A Session is single-goroutine by design: all pointer, keyboard, and
// wheel events must be delivered from one event goroutine, matching how a
// UI event loop works. The only concurrency inside the package is the
// dispatch of remote save and simulate calls, which operate on a snapshot
// serialized before the goroutine starts and report back through a
// callback. Busy flags guarding those dispatches are mutex-protected
// because completions land on other goroutines.
package editor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nuno18084/Ampflux-sub000/pkg/access"
	"github.com/nuno18084/Ampflux-sub000/pkg/geom"
	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
	"github.com/nuno18084/Ampflux-sub000/pkg/sim"
	"github.com/nuno18084/Ampflux-sub000/pkg/store"
)

var (
	// ErrPermissionDenied is returned when a mutating transition is
	// attempted without edit rights. The visual state transition still
	// completes; the graph mutation is suppressed.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSaveInFlight is returned by [Session.Save] while a previous save
	// for the session is still outstanding. The second save is suppressed,
	// not queued.
	ErrSaveInFlight = errors.New("save already in flight")

	// ErrSimulateInFlight is the simulate counterpart of ErrSaveInFlight.
	ErrSimulateInFlight = errors.New("simulation already in flight")

	// ErrNoStore is returned by [Session.Save] when the session was built
	// without a version store.
	ErrNoStore = errors.New("no version store configured")

	// ErrNoSimulator is returned by [Session.Simulate] when the session
	// was built without a simulation runner.
	ErrNoSimulator = errors.New("no simulator configured")
)

// State is the interaction state of the pointer. States are mutually
// exclusive; selection is orthogonal and survives state changes.
type State int

const (
	// StateIdle: no gesture in progress.
	StateIdle State = iota
	// StatePendingDrag: pointer is down on a component but the gesture has
	// not yet been disambiguated between a click and a drag.
	StatePendingDrag
	// StateDragging: a component is following the pointer.
	StateDragging
	// StatePanning: the canvas is following the pointer 1:1 in screen space.
	StatePanning
	// StateConnecting: a connection source dot is armed, waiting for the
	// target dot.
	StateConnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingDrag:
		return "pending-drag"
	case StateDragging:
		return "dragging"
	case StatePanning:
		return "panning"
	case StateConnecting:
		return "connecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Drag disambiguation defaults: a pending drag promotes to a real drag
// once the pointer has been down this long or has traveled this far.
const (
	DefaultDragDelay  = 150 * time.Millisecond
	DefaultDragTravel = 5.0
)

// Session is one open diagram editor: graph, view transform, transient
// interaction state, and the persistence adapter.
type Session struct {
	projectID string
	graph     *schematic.Graph
	view      schematic.ViewState
	perms     access.Permissions
	mirror    *Mirror
	versions  store.VersionStore
	simulator sim.Runner
	logger    *log.Logger
	now       func() time.Time

	origin     geom.Point
	dragDelay  time.Duration
	dragTravel float64

	state           State
	selection       string
	dragID          string
	dragAnchor      geom.Point // world offset from pointer to component top-left
	dragStart       time.Time
	dragStartScreen geom.Point
	connectSource   string
	lastPointer     geom.Point
	panStartScreen  geom.Point
	panStartPan     geom.Point

	busyMu     sync.Mutex
	saving     bool
	simulating bool
}

// Option configures a Session.
type Option func(*Session)

// WithPermissions sets the externally supplied permission flags.
// The default is full (owner) permissions.
func WithPermissions(p access.Permissions) Option {
	return func(s *Session) { s.perms = p }
}

// WithMirror sets the local snapshot mirror.
func WithMirror(m *Mirror) Option {
	return func(s *Session) { s.mirror = m }
}

// WithStore sets the remote version store used by Save and Load.
func WithStore(vs store.VersionStore) Option {
	return func(s *Session) { s.versions = vs }
}

// WithSimulator sets the simulation runner used by Simulate.
func WithSimulator(r sim.Runner) Option {
	return func(s *Session) { s.simulator = r }
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock injects the time source used for drag disambiguation.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithDragThresholds overrides the drag disambiguation thresholds.
func WithDragThresholds(delay time.Duration, travel float64) Option {
	return func(s *Session) {
		s.dragDelay = delay
		s.dragTravel = travel
	}
}

// NewSession creates an editor session for a project with an empty graph
// and the default view. Call Load to restore persisted state.
func NewSession(projectID string, opts ...Option) *Session {
	s := &Session{
		projectID:  projectID,
		graph:      schematic.New(),
		view:       schematic.DefaultView(),
		perms:      access.Owner(),
		logger:     log.Default(),
		now:        time.Now,
		dragDelay:  DefaultDragDelay,
		dragTravel: DefaultDragTravel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mirror == nil {
		s.mirror = NewMirror(nil)
	}
	return s
}

// SetOrigin reports the canvas element's current screen-space top-left.
// The host must call this whenever the element moves or resizes, before
// dispatching pointer events, because coordinate mapping always uses the
// current origin.
func (s *Session) SetOrigin(origin geom.Point) { s.origin = origin }

// Accessors for the render surface. The graph pointer is the live model;
// renderers read it and must never mutate it.

// State returns the current interaction state.
func (s *Session) State() State { return s.state }

// Selection returns the selected component id, or "" if nothing is
// selected.
func (s *Session) Selection() string { return s.selection }

// ConnectSource returns the armed connection source id while connecting.
func (s *Session) ConnectSource() string { return s.connectSource }

// View returns the current view state.
func (s *Session) View() schematic.ViewState { return s.view }

// Transform returns the current view transform.
func (s *Session) Transform() geom.Transform { return s.view.Transform() }

// Graph returns the live graph model.
func (s *Session) Graph() *schematic.Graph { return s.graph }

// ProjectID returns the project this session edits.
func (s *Session) ProjectID() string { return s.projectID }

// Permissions returns the permission flags the session was built with.
func (s *Session) Permissions() access.Permissions { return s.perms }

// PointerDownOnComponent begins gesture disambiguation on a component: a
// quick release is a click (select), sustained hold or travel is a drag.
// The component's position is never mutated here. A stale id is ignored.
func (s *Session) PointerDownOnComponent(id string, screen geom.Point) {
	comp, ok := s.graph.Component(id)
	if !ok {
		return
	}
	s.resetTransient()
	s.state = StatePendingDrag
	s.dragID = id
	s.dragStart = s.now()
	s.dragStartScreen = screen
	s.lastPointer = screen
	world := geom.ScreenToWorld(screen, s.origin, s.Transform())
	s.dragAnchor = world.Sub(comp.Pos)
}

// PointerDownOnCanvas begins panning from empty canvas and clears the
// selection.
func (s *Session) PointerDownOnCanvas(screen geom.Point) {
	s.resetTransient()
	s.selection = ""
	s.state = StatePanning
	s.panStartScreen = screen
	s.panStartPan = s.view.Pan
	s.lastPointer = screen
}

// PointerMove advances the active gesture. While dragging it moves the
// dragged component to the pointer (minus the drag anchor) in world
// coordinates; while panning it applies the raw screen-space delta so the
// canvas tracks the cursor 1:1 regardless of zoom.
//
// Returns ErrPermissionDenied if a drag move was suppressed by the edit
// gate; the visual drag state is kept so the gesture still completes.
func (s *Session) PointerMove(screen geom.Point) error {
	s.lastPointer = screen

	switch s.state {
	case StatePendingDrag:
		if !s.dragPromoted(screen) {
			return nil
		}
		s.state = StateDragging
		return s.dragTo(screen)

	case StateDragging:
		return s.dragTo(screen)

	case StatePanning:
		delta := screen.Sub(s.panStartScreen)
		s.view.Pan = s.panStartPan.Add(delta)
		return nil
	}
	return nil
}

// PointerUp ends the active gesture. A pending drag released before
// promotion is a click: the component is selected and its position is
// untouched. A real drag commits its final position and flushes the local
// snapshot. The state machine always lands back in Idle.
func (s *Session) PointerUp(screen geom.Point) error {
	defer func() {
		state := s.state
		s.resetTransient()
		if state == StatePanning || state == StateDragging {
			s.flush()
		}
	}()

	switch s.state {
	case StatePendingDrag:
		if s.dragPromoted(screen) {
			// The hold outlived the disambiguation window: this was a
			// drag that never moved. Commit the (unchanged) position.
			s.state = StateDragging
			return s.dragTo(screen)
		}
		s.selection = s.dragID
		return nil

	case StateDragging:
		err := s.dragTo(screen)
		s.selection = s.dragID
		return err
	}
	return nil
}

// ClickConnectionDot advances the two-click connection gesture. The first
// click arms the source dot; a second click on a different dot creates
// the connection; re-clicking the armed dot cancels the gesture. The
// session is back in Idle after any second click.
//
// An invalid target (stale id, duplicate wire) is silently ignored per
// the model's semantics. ErrPermissionDenied is returned when the edit
// gate suppressed the connection.
func (s *Session) ClickConnectionDot(id string) error {
	switch s.state {
	case StateIdle:
		if _, ok := s.graph.Component(id); !ok {
			return nil
		}
		s.state = StateConnecting
		s.connectSource = id
		return nil

	case StateConnecting:
		source := s.connectSource
		s.resetTransient()
		if id == source {
			// Re-click on the armed dot is the explicit cancel gesture,
			// not a self-loop attempt.
			return nil
		}
		if !s.perms.CanEdit {
			return ErrPermissionDenied
		}
		if _, err := s.graph.AddConnection(source, id); err != nil {
			// Invalid connections are dropped without user-facing noise.
			s.logger.Debug("connection rejected", "from", source, "to", id, "err", err)
			return nil
		}
		s.flush()
		return nil
	}
	return nil
}

// Wheel adjusts the zoom by discrete notches through the clamp. Wheel
// events are ignored while a component drag is active, to avoid changing
// the mapping under the dragged component.
func (s *Session) Wheel(notches int) {
	if s.state == StateDragging {
		return
	}
	t := s.Transform().ZoomStep(notches)
	s.view.Zoom = t.Zoom
	s.flush()
}

// Cancel aborts the gesture in progress (Escape): transient ids are
// cleared, the graph is untouched, and the session returns to Idle.
func (s *Session) Cancel() {
	s.resetTransient()
}

// Drop places a new component with the drop point mapped to world
// coordinates minus the center anchor, so the component's top-left, not
// the cursor, anchors the placement. The new component becomes selected.
func (s *Session) Drop(desc schematic.Descriptor, screen geom.Point) (schematic.Component, error) {
	if !s.perms.CanEdit {
		return schematic.Component{}, ErrPermissionDenied
	}
	pos := geom.DropPosition(screen, s.origin, s.Transform())
	comp := s.graph.AddComponent(desc, pos)
	s.selection = comp.ID
	s.flush()
	return comp, nil
}

// DeleteComponent removes a component and every connection touching it.
// A stale id is a no-op.
func (s *Session) DeleteComponent(id string) error {
	if !s.perms.CanEdit {
		return ErrPermissionDenied
	}
	if !s.graph.RemoveComponent(id) {
		return nil
	}
	if s.selection == id {
		s.selection = ""
	}
	s.flush()
	return nil
}

// DeleteSelected removes the selected component, if any.
func (s *Session) DeleteSelected() error {
	if s.selection == "" {
		return nil
	}
	return s.DeleteComponent(s.selection)
}

// SetProperty merges one property into a component's schema-less map.
func (s *Session) SetProperty(id, key string, value any) error {
	if !s.perms.CanEdit {
		return ErrPermissionDenied
	}
	if !s.graph.UpdateProperty(id, key, value) {
		return nil
	}
	s.flush()
	return nil
}

// dragPromoted reports whether the pending drag crossed either
// disambiguation threshold: the hold timer or the travel distance. The
// check is evaluated lazily on the next pointer event, so an early
// pointer-up can never race a dangling timer.
func (s *Session) dragPromoted(screen geom.Point) bool {
	if s.now().Sub(s.dragStart) >= s.dragDelay {
		return true
	}
	d := screen.Sub(s.dragStartScreen)
	return math.Hypot(d.X, d.Y) >= s.dragTravel
}

// dragTo moves the dragged component under the pointer. The edit gate
// suppresses the mutation but keeps the visual drag alive.
func (s *Session) dragTo(screen geom.Point) error {
	if !s.perms.CanEdit {
		return ErrPermissionDenied
	}
	world := geom.ScreenToWorld(screen, s.origin, s.Transform())
	if s.graph.MoveComponent(s.dragID, world.Sub(s.dragAnchor)) {
		s.flush()
	}
	return nil
}

// flush mirrors the full snapshot locally. Always called after the
// mutation it reflects, never before.
func (s *Session) flush() {
	s.mirror.Write(context.Background(), s.projectID, s.graph.TakeSnapshot(s.view))
}

func (s *Session) resetTransient() {
	s.state = StateIdle
	s.dragID = ""
	s.dragAnchor = geom.Point{}
	s.connectSource = ""
}
