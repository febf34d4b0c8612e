// Package widget keeps the geometry of the floating chat panel: where it sits
// and how big it is, driven by drag and resize gestures and kept inside the viewport.
package widget

const (
	MinWidth  = 260.0
	MinHeight = 300.0

	// MaxViewportFraction caps the widget size relative to the viewport.
	MaxViewportFraction = 0.8
)

// DefaultSize is the size the panel opens with.
var DefaultSize = Size{Width: 350, Height: 450}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geometry is the panel state. A zero Position is the sentinel for
// "anchored to the default corner"; layout places the panel, not this package.
type Geometry struct {
	Position Point `json:"position"`
	Size     Size  `json:"size"`
}

func (g Geometry) Anchored() bool { return g.Position == Point{} }

func clampAxis(v, viewport, size float64) float64 {
	return max(0, min(v, viewport-size))
}
