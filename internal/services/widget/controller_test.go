package widget

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_DragFollowsGrabOffset(t *testing.T) {
	c := NewController(Size{Width: 1200, Height: 800}, DefaultSize)
	require.True(t, c.Geometry().Anchored())

	require.True(t, c.BeginDrag(Point{X: 900, Y: 300}, Point{X: 850, Y: 280}))
	assert.Equal(t, DragState{Dragging: true, GrabOffset: Point{X: 50, Y: 20}}, c.DragState())

	c.UpdateDrag(Point{X: 500, Y: 200})
	assert.Equal(t, Point{X: 450, Y: 180}, c.Geometry().Position)
	assert.False(t, c.Geometry().Anchored())

	c.EndDrag()
	assert.Equal(t, GestureNone, c.Active())
	assert.False(t, c.UpdateDrag(Point{X: 10, Y: 10}), "moves after release are ignored")
	assert.Equal(t, Point{X: 450, Y: 180}, c.Geometry().Position)
}

func TestController_DragClampsToViewport(t *testing.T) {
	vp := Size{Width: 1000, Height: 700}
	c := NewController(vp, Size{Width: 350, Height: 450})
	c.BeginDrag(Point{X: 10, Y: 10}, Point{X: 0, Y: 0})

	c.UpdateDrag(Point{X: -400, Y: -90})
	assert.Equal(t, Point{X: 0, Y: 0}, c.Geometry().Position)

	c.UpdateDrag(Point{X: 5000, Y: 5000})
	assert.Equal(t, Point{X: 650, Y: 250}, c.Geometry().Position)
}

func TestController_DragBoundsHoldForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		vp := Size{Width: 400 + rng.Float64()*1600, Height: 400 + rng.Float64()*1000}
		size := Size{Width: MinWidth + rng.Float64()*100, Height: MinHeight + rng.Float64()*80}
		c := NewController(vp, size)
		c.BeginDrag(Point{X: rng.Float64() * vp.Width, Y: rng.Float64() * vp.Height},
			Point{X: rng.Float64() * vp.Width, Y: rng.Float64() * vp.Height})

		for step := 0; step < 50; step++ {
			c.UpdateDrag(Point{X: rng.Float64()*4000 - 2000, Y: rng.Float64()*4000 - 2000})
			g := c.Geometry()
			require.GreaterOrEqual(t, g.Position.X, 0.0)
			require.GreaterOrEqual(t, g.Position.Y, 0.0)
			require.LessOrEqual(t, g.Position.X, vp.Width-g.Size.Width)
			require.LessOrEqual(t, g.Position.Y, vp.Height-g.Size.Height)
		}
	}
}

func TestController_ResizeMinAndMax(t *testing.T) {
	c := NewController(Size{Width: 1000, Height: 800}, Size{Width: 350, Height: 450})
	require.True(t, c.BeginResize(Point{X: 500, Y: 500}, c.Geometry().Size))

	c.UpdateResize(Point{X: 550, Y: 530})
	assert.Equal(t, Size{Width: 400, Height: 480}, c.Geometry().Size)

	c.UpdateResize(Point{X: 0, Y: 0})
	assert.Equal(t, Size{Width: MinWidth, Height: MinHeight}, c.Geometry().Size)

	c.UpdateResize(Point{X: 3000, Y: 3000})
	assert.Equal(t, Size{Width: 800, Height: 640}, c.Geometry().Size)

	c.EndResize()
	assert.Equal(t, GestureNone, c.Active())
}

func TestController_ResizeBoundsHoldForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 200; run++ {
		// Viewports large enough for the minimum to fit under the 80% cap.
		vp := Size{Width: 325 + rng.Float64()*1600, Height: 375 + rng.Float64()*1000}
		c := NewController(vp, DefaultSize)
		c.BeginResize(Point{X: rng.Float64() * vp.Width, Y: rng.Float64() * vp.Height}, c.Geometry().Size)

		for step := 0; step < 50; step++ {
			c.UpdateResize(Point{X: rng.Float64()*4000 - 2000, Y: rng.Float64()*4000 - 2000})
			s := c.Geometry().Size
			require.GreaterOrEqual(t, s.Width, MinWidth)
			require.GreaterOrEqual(t, s.Height, MinHeight)
			require.LessOrEqual(t, s.Width, MaxViewportFraction*vp.Width)
			require.LessOrEqual(t, s.Height, MaxViewportFraction*vp.Height)
		}
	}
}

func TestController_ResizeKeepsExplicitPositionOnScreen(t *testing.T) {
	c := NewController(Size{Width: 1400, Height: 900}, Size{Width: 350, Height: 450})
	c.BeginDrag(Point{}, Point{})
	c.UpdateDrag(Point{X: 1000, Y: 400})
	c.EndDrag()

	require.True(t, c.BeginResize(Point{X: 1350, Y: 850}, c.Geometry().Size))
	c.UpdateResize(Point{X: 1550, Y: 1050})
	assert.Equal(t, Geometry{Position: Point{X: 850, Y: 250}, Size: Size{Width: 550, Height: 650}}, c.Geometry())

	rng := rand.New(rand.NewSource(11))
	for step := 0; step < 200; step++ {
		c.UpdateResize(Point{X: rng.Float64() * 3000, Y: rng.Float64() * 3000})
		g := c.Geometry()
		require.LessOrEqual(t, g.Position.X+g.Size.Width, 1400.0)
		require.LessOrEqual(t, g.Position.Y+g.Size.Height, 900.0)
		require.GreaterOrEqual(t, g.Position.X, 0.0)
		require.GreaterOrEqual(t, g.Position.Y, 0.0)
	}
}

func TestController_ResizeLeavesAnchoredSentinel(t *testing.T) {
	c := NewController(Size{Width: 1000, Height: 800}, DefaultSize)
	c.BeginResize(Point{X: 500, Y: 500}, c.Geometry().Size)
	c.UpdateResize(Point{X: 900, Y: 900})
	assert.True(t, c.Geometry().Anchored())
}

func TestController_TinyViewportCapWins(t *testing.T) {
	c := NewController(Size{Width: 300, Height: 300}, DefaultSize)
	c.BeginResize(Point{}, c.Geometry().Size)
	c.UpdateResize(Point{X: -100, Y: -100})
	assert.Equal(t, Size{Width: 240, Height: 240}, c.Geometry().Size)
}

func TestController_GesturesAreExclusive(t *testing.T) {
	c := NewController(Size{Width: 1000, Height: 800}, DefaultSize)
	require.True(t, c.BeginDrag(Point{X: 10, Y: 10}, Point{X: 5, Y: 5}))
	assert.False(t, c.BeginResize(Point{X: 10, Y: 10}, c.Geometry().Size))
	assert.False(t, c.UpdateResize(Point{X: 900, Y: 900}))
	c.EndDrag()

	require.True(t, c.BeginResize(Point{X: 10, Y: 10}, c.Geometry().Size))
	assert.False(t, c.BeginDrag(Point{X: 10, Y: 10}, Point{}))
	assert.Equal(t, GestureResize, c.Active())
}

func TestController_ViewportResize(t *testing.T) {
	t.Run("re-clamps explicit position", func(t *testing.T) {
		c := NewController(Size{Width: 1400, Height: 900}, Size{Width: 350, Height: 450})
		c.BeginDrag(Point{X: 0, Y: 0}, Point{X: 0, Y: 0})
		c.UpdateDrag(Point{X: 1000, Y: 400})
		c.EndDrag()
		require.Equal(t, Point{X: 1000, Y: 400}, c.Geometry().Position)

		c.OnViewportResize(Size{Width: 900, Height: 600})
		assert.Equal(t, Point{X: 550, Y: 150}, c.Geometry().Position)
		assert.Equal(t, Size{Width: 900, Height: 600}, c.Viewport())
	})

	t.Run("leaves the anchored sentinel alone", func(t *testing.T) {
		c := NewController(Size{Width: 1400, Height: 900}, DefaultSize)
		c.OnViewportResize(Size{Width: 200, Height: 200})
		assert.True(t, c.Geometry().Anchored())
		assert.Equal(t, Point{}, c.Geometry().Position)
	})
}
