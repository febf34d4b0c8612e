package widget

import (
	"errors"
	"fmt"
)

type EventType string

const (
	EventDown     EventType = "down"
	EventMove     EventType = "move"
	EventUp       EventType = "up"
	EventViewport EventType = "viewport"
)

// Target is the hit region a pointer-down landed on.
type Target string

const (
	TargetDragHandle   Target = "drag-handle"
	TargetResizeHandle Target = "resize-handle"
	TargetBody         Target = "body"
)

var (
	ErrMissingOrigin = errors.New("drag start on an anchored widget needs the rendered origin")
	ErrBadViewport   = errors.New("viewport must have positive width and height")
)

// Event is one document-level input. Origin is the rendered top-left of the
// panel at pointer-down; Width and Height are only read for viewport events.
type Event struct {
	Type   EventType `json:"type"`
	Target Target    `json:"target,omitempty"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Origin *Point    `json:"origin,omitempty"`
	Width  float64   `json:"width,omitempty"`
	Height float64   `json:"height,omitempty"`
}

// Dispatcher routes document-level events to the controller. Only the active
// gesture receives moves, and a pointer-up anywhere ends it.
type Dispatcher struct {
	ctrl       *Controller
	onComplete func(kind GestureKind, g Geometry)
}

func NewDispatcher(ctrl *Controller, onComplete func(kind GestureKind, g Geometry)) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, onComplete: onComplete}
}

func (d *Dispatcher) Controller() *Controller { return d.ctrl }

// Dispatch applies ev and reports whether the geometry or gesture state changed.
func (d *Dispatcher) Dispatch(ev Event) (bool, error) {
	c := d.ctrl
	cursor := Point{X: ev.X, Y: ev.Y}

	switch ev.Type {
	case EventViewport:
		if ev.Width <= 0 || ev.Height <= 0 {
			return false, ErrBadViewport
		}
		c.OnViewportResize(Size{Width: ev.Width, Height: ev.Height})
		return true, nil

	case EventDown:
		if c.Active() != GestureNone {
			return false, nil
		}
		switch ev.Target {
		case TargetDragHandle:
			origin := c.Geometry().Position
			if ev.Origin != nil {
				origin = *ev.Origin
			} else if c.Geometry().Anchored() {
				return false, ErrMissingOrigin
			}
			return c.BeginDrag(cursor, origin), nil
		case TargetResizeHandle:
			return c.BeginResize(cursor, c.Geometry().Size), nil
		default:
			return false, nil
		}

	case EventMove:
		switch c.Active() {
		case GestureDrag:
			return c.UpdateDrag(cursor), nil
		case GestureResize:
			return c.UpdateResize(cursor), nil
		default:
			return false, nil
		}

	case EventUp:
		kind := c.Active()
		switch kind {
		case GestureDrag:
			c.EndDrag()
		case GestureResize:
			c.EndResize()
		default:
			return false, nil
		}
		if d.onComplete != nil {
			d.onComplete(kind, c.Geometry())
		}
		return true, nil

	default:
		return false, fmt.Errorf("unknown event type %q", ev.Type)
	}
}
