// Package geom converts between screen (pointer) coordinates and world
// (diagram) coordinates for an infinite pannable, zoomable canvas.
//
// Screen coordinates are pixel positions relative to the canvas element's
// viewport. World coordinates are positions in the unbounded diagram space,
// independent of the current view transform. The mapping is:
//
//	world = (screen - origin - pan) / zoom
//
// where origin is the canvas element's screen-space top-left. The origin is
// passed on every call rather than cached, because the hosting element may
// resize or scroll between events.
package geom

// Zoom bounds. Every zoom mutation passes through ClampZoom, so no code
// path can produce a factor outside this range.
const (
	MinZoom = 0.1
	MaxZoom = 3.0
)

// Wheel step factors per notch.
const (
	zoomInStep  = 1.1
	zoomOutStep = 0.9
)

// CenterOffset is half the rendered footprint of a component, in world
// units. Placement anchors a component's top-left corner, not the cursor
// point, so drops subtract this offset on both axes.
const CenterOffset = 60.0

// Point is a 2-D coordinate in either screen or world space.
// Which space a point lives in is determined by context, not by type.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the component-wise sum p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the component-wise difference p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p with both components multiplied by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Transform is the view transform of one canvas: a zoom factor in
// [MinZoom, MaxZoom] and a pan offset in screen pixels. The zero value is
// not usable - use Identity for the default view.
type Transform struct {
	Zoom float64 `json:"zoom"`
	Pan  Point   `json:"pan"`
}

// Identity returns the default view transform: zoom 1, no pan.
func Identity() Transform { return Transform{Zoom: 1} }

// ClampZoom clamps f to [MinZoom, MaxZoom].
func ClampZoom(f float64) float64 {
	if f < MinZoom {
		return MinZoom
	}
	if f > MaxZoom {
		return MaxZoom
	}
	return f
}

// ZoomStep returns a copy of t with the zoom adjusted by the given number
// of wheel notches: positive notches zoom in (x1.1 each), negative notches
// zoom out (x0.9 each). The result always passes through ClampZoom.
func (t Transform) ZoomStep(notches int) Transform {
	z := t.Zoom
	for i := 0; i < notches; i++ {
		z *= zoomInStep
	}
	for i := 0; i > notches; i-- {
		z *= zoomOutStep
	}
	t.Zoom = ClampZoom(z)
	return t
}

// ScreenToWorld maps a screen-space point to world coordinates given the
// canvas origin (the element's current screen-space top-left) and the view
// transform.
func ScreenToWorld(screen, origin Point, t Transform) Point {
	return screen.Sub(origin).Sub(t.Pan).Scale(1 / t.Zoom)
}

// WorldToScreen is the algebraic inverse of ScreenToWorld. It is used to
// position connection dots and wire endpoints when drawing.
func WorldToScreen(world, origin Point, t Transform) Point {
	return world.Scale(t.Zoom).Add(t.Pan).Add(origin)
}

// DropPosition maps a pointer drop point to the world position a new
// component should be stored at: the screen point mapped to world space,
// minus CenterOffset on both axes so the component's on-screen top-left,
// not the cursor, anchors the placement.
func DropPosition(screen, origin Point, t Transform) Point {
	w := ScreenToWorld(screen, origin, t)
	return Point{w.X - CenterOffset, w.Y - CenterOffset}
}
