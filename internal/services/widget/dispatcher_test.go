package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completion struct {
	kind GestureKind
	geom Geometry
}

func newTestDispatcher(vp Size) (*Dispatcher, *[]completion) {
	var done []completion
	d := NewDispatcher(NewController(vp, DefaultSize), func(k GestureKind, g Geometry) {
		done = append(done, completion{kind: k, geom: g})
	})
	return d, &done
}

func TestDispatcher_ReleaseOutsideWidgetEndsDrag(t *testing.T) {
	d, done := newTestDispatcher(Size{Width: 1200, Height: 800})
	origin := Point{X: 826, Y: 238}

	_, err := d.Dispatch(Event{Type: EventDown, Target: TargetDragHandle, X: 850, Y: 250, Origin: &origin})
	require.NoError(t, err)
	require.Equal(t, GestureDrag, d.Controller().Active())

	_, err = d.Dispatch(Event{Type: EventMove, X: 100, Y: 100})
	require.NoError(t, err)

	// released far outside the panel, on another document element
	changed, err := d.Dispatch(Event{Type: EventUp, Target: "", X: 1190, Y: 790})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, GestureNone, d.Controller().Active())
	require.Len(t, *done, 1)
	assert.Equal(t, GestureDrag, (*done)[0].kind)

	before := d.Controller().Geometry()
	changed, _ = d.Dispatch(Event{Type: EventMove, X: 600, Y: 600})
	assert.False(t, changed)
	assert.Equal(t, before, d.Controller().Geometry())
}

func TestDispatcher_ResizeViaHandle(t *testing.T) {
	d, done := newTestDispatcher(Size{Width: 1000, Height: 800})

	_, err := d.Dispatch(Event{Type: EventDown, Target: TargetResizeHandle, X: 400, Y: 400})
	require.NoError(t, err)
	_, _ = d.Dispatch(Event{Type: EventMove, X: 450, Y: 420})
	assert.Equal(t, Size{Width: 400, Height: 470}, d.Controller().Geometry().Size)

	_, _ = d.Dispatch(Event{Type: EventUp, X: 0, Y: 0})
	require.Len(t, *done, 1)
	assert.Equal(t, GestureResize, (*done)[0].kind)
	assert.Equal(t, Size{Width: 400, Height: 470}, (*done)[0].geom.Size)
}

func TestDispatcher_IgnoresSecondPressWhileActive(t *testing.T) {
	d, _ := newTestDispatcher(Size{Width: 1000, Height: 800})
	origin := Point{X: 100, Y: 100}
	_, _ = d.Dispatch(Event{Type: EventDown, Target: TargetDragHandle, X: 110, Y: 110, Origin: &origin})

	changed, err := d.Dispatch(Event{Type: EventDown, Target: TargetResizeHandle, X: 400, Y: 500})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, GestureDrag, d.Controller().Active())
}

func TestDispatcher_BodyAndIdleEvents(t *testing.T) {
	d, done := newTestDispatcher(Size{Width: 1000, Height: 800})

	changed, err := d.Dispatch(Event{Type: EventDown, Target: TargetBody, X: 10, Y: 10})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = d.Dispatch(Event{Type: EventUp, X: 10, Y: 10})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, *done)
}

func TestDispatcher_Errors(t *testing.T) {
	d, _ := newTestDispatcher(Size{Width: 1000, Height: 800})

	_, err := d.Dispatch(Event{Type: EventDown, Target: TargetDragHandle, X: 10, Y: 10})
	assert.ErrorIs(t, err, ErrMissingOrigin)
	assert.Equal(t, GestureNone, d.Controller().Active())

	_, err = d.Dispatch(Event{Type: EventViewport, Width: 0, Height: 500})
	assert.ErrorIs(t, err, ErrBadViewport)

	_, err = d.Dispatch(Event{Type: "wheel"})
	assert.Error(t, err)
}

func TestDispatcher_DragWithoutOriginOncePositioned(t *testing.T) {
	d, _ := newTestDispatcher(Size{Width: 1000, Height: 800})
	origin := Point{X: 300, Y: 200}
	_, _ = d.Dispatch(Event{Type: EventDown, Target: TargetDragHandle, X: 320, Y: 210, Origin: &origin})
	_, _ = d.Dispatch(Event{Type: EventMove, X: 320, Y: 210})
	_, _ = d.Dispatch(Event{Type: EventUp})
	require.Equal(t, origin, d.Controller().Geometry().Position)

	_, err := d.Dispatch(Event{Type: EventDown, Target: TargetDragHandle, X: 330, Y: 215})
	require.NoError(t, err)
	assert.Equal(t, Point{X: 30, Y: 15}, d.Controller().DragState().GrabOffset)
}

func TestDispatcher_ViewportEvent(t *testing.T) {
	d, _ := newTestDispatcher(Size{Width: 1400, Height: 900})
	origin := Point{X: 0, Y: 0}
	_, _ = d.Dispatch(Event{Type: EventDown, Target: TargetDragHandle, X: 0, Y: 0, Origin: &origin})
	_, _ = d.Dispatch(Event{Type: EventMove, X: 1000, Y: 400})
	_, _ = d.Dispatch(Event{Type: EventUp})

	_, err := d.Dispatch(Event{Type: EventViewport, Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, Point{X: 450, Y: 150}, d.Controller().Geometry().Position)
}
