package widget

// GestureKind names the gesture currently in progress.
type GestureKind int

const (
	GestureNone GestureKind = iota
	GestureDrag
	GestureResize
)

func (k GestureKind) String() string {
	switch k {
	case GestureDrag:
		return "drag"
	case GestureResize:
		return "resize"
	default:
		return "idle"
	}
}

// DragState lives for one drag gesture.
type DragState struct {
	Dragging   bool  `json:"dragging"`
	GrabOffset Point `json:"grab_offset"`
}

type resizeState struct {
	active      bool
	startCursor Point
	startSize   Size
}

// Controller turns pointer positions into a clamped Geometry. It is owned by a
// single event loop and never locks; out-of-range input is clamped, not rejected.
type Controller struct {
	geom     Geometry
	viewport Size
	drag     DragState
	resize   resizeState
}

// NewController starts anchored at the default corner with the given size.
func NewController(viewport, size Size) *Controller {
	if size == (Size{}) {
		size = DefaultSize
	}
	return &Controller{
		geom:     Geometry{Size: size},
		viewport: viewport,
	}
}

func (c *Controller) Geometry() Geometry   { return c.geom }
func (c *Controller) Viewport() Size       { return c.viewport }
func (c *Controller) DragState() DragState { return c.drag }

func (c *Controller) Active() GestureKind {
	switch {
	case c.drag.Dragging:
		return GestureDrag
	case c.resize.active:
		return GestureResize
	default:
		return GestureNone
	}
}

// BeginDrag records the grab offset. It refuses to start while a resize is active.
func (c *Controller) BeginDrag(cursor, widgetOrigin Point) bool {
	if c.resize.active {
		return false
	}
	c.drag = DragState{Dragging: true, GrabOffset: cursor.Sub(widgetOrigin)}
	return true
}

// UpdateDrag moves the panel so the grab point follows the cursor, within the viewport.
func (c *Controller) UpdateDrag(cursor Point) bool {
	if !c.drag.Dragging {
		return false
	}
	candidate := cursor.Sub(c.drag.GrabOffset)
	c.geom.Position = Point{
		X: clampAxis(candidate.X, c.viewport.Width, c.geom.Size.Width),
		Y: clampAxis(candidate.Y, c.viewport.Height, c.geom.Size.Height),
	}
	return true
}

func (c *Controller) EndDrag() {
	c.drag = DragState{}
}

// BeginResize records the start cursor and size. It refuses to start while a drag is active.
func (c *Controller) BeginResize(cursor Point, currentSize Size) bool {
	if c.drag.Dragging {
		return false
	}
	c.resize = resizeState{active: true, startCursor: cursor, startSize: currentSize}
	return true
}

// UpdateResize grows or shrinks from the start size by the cursor delta.
// The minimum is applied first and the viewport cap last, so on a viewport
// smaller than MinWidth/0.8 × MinHeight/0.8 the cap wins. An explicit
// position is pulled back so the grown panel stays on screen.
func (c *Controller) UpdateResize(cursor Point) bool {
	if !c.resize.active {
		return false
	}
	delta := cursor.Sub(c.resize.startCursor)
	w := max(MinWidth, c.resize.startSize.Width+delta.X)
	h := max(MinHeight, c.resize.startSize.Height+delta.Y)
	c.geom.Size = Size{
		Width:  min(w, MaxViewportFraction*c.viewport.Width),
		Height: min(h, MaxViewportFraction*c.viewport.Height),
	}
	c.clampPosition()
	return true
}

func (c *Controller) EndResize() {
	c.resize = resizeState{}
}

// OnViewportResize re-clamps an explicit position to the new bounds.
// The anchored sentinel is left for layout to place.
func (c *Controller) OnViewportResize(viewport Size) {
	c.viewport = viewport
	c.clampPosition()
}

func (c *Controller) clampPosition() {
	if c.geom.Anchored() {
		return
	}
	c.geom.Position = Point{
		X: clampAxis(c.geom.Position.X, c.viewport.Width, c.geom.Size.Width),
		Y: clampAxis(c.geom.Position.Y, c.viewport.Height, c.geom.Size.Height),
	}
}
