package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
)

func TestScreenWorldRoundTrip(t *testing.T) {
	r := NewRenderSystem(nil, nil)
	r.Center = common.V3(3, 0, -2)

	x, y := r.WorldToScreen(common.V3(3, 0, -2), 800, 600)
	assert.Equal(t, 400.0, x)
	assert.Equal(t, 300.0, y)

	p := common.V3(5.5, 0, 1.25)
	x, y = r.WorldToScreen(p, 800, 600)
	assert.True(t, r.ScreenToWorld(x, y, 800, 600).ApproxEqual(p, 1e-9))
}

func TestZoomIsClamped(t *testing.T) {
	r := NewRenderSystem(nil, nil)
	r.ZoomBy(1000)
	assert.Equal(t, maxZoom, r.Zoom)
	r.ZoomBy(0)
	assert.Equal(t, minZoom, r.Zoom)
}

func TestPickFindsClosestAgent(t *testing.T) {
	ctx, grid := newFloor(t)
	a := newWalker(t, ctx, "a", common.V3(0, 1, 0))
	b := newWalker(t, ctx, "b", common.V3(0.8, 1, 0))

	r := NewRenderSystem(ctx, grid)
	x, y := r.WorldToScreen(common.V3(0.7, 0, 0), 800, 600)
	e, ok := r.Pick(ctx.World, x, y, 800, 600)
	require.True(t, ok)
	assert.Equal(t, b.Entity(), e)

	x, y = r.WorldToScreen(common.V3(-0.2, 0, 0.1), 800, 600)
	e, ok = r.Pick(ctx.World, x, y, 800, 600)
	require.True(t, ok)
	assert.Equal(t, a.Entity(), e)

	x, y = r.WorldToScreen(common.V3(5, 0, 0), 800, 600)
	e, ok = r.Pick(ctx.World, x, y, 800, 600)
	assert.False(t, ok)
	assert.Equal(t, ecs.Entity(0), e)
}
