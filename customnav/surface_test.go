package customnav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

func TestSurfaceChangesScheduleRebake(t *testing.T) {
	nav := newFakeNav()
	ctx := NewContext(nil, nav)
	ctx.SetHiddenTranslation(common.V3(50, 0, 0))

	tr := component.Transform{Position: common.V3(1, 2, 3), Scale: common.V3(2, 1, -1)}
	s, err := NewSurface(ctx, "floor", tr, component.Surface{SizeX: 4, SizeZ: 6, Area: 3})
	require.NoError(t, err)
	require.True(t, ctx.BakeDirty())

	require.NoError(t, ctx.Rebake())
	assert.False(t, ctx.BakeDirty())
	require.Len(t, nav.baked, 1)
	assert.Equal(t, []navmesh.SurfaceDesc{{Center: common.V3(51, 2, 3), SizeX: 8, SizeZ: 6, Area: 3}}, nav.baked[0])

	s.SetSize(1, 1)
	assert.True(t, ctx.BakeDirty())
	require.NoError(t, ctx.Rebake())
	assert.Equal(t, 2.0, nav.baked[1][0].SizeX)

	s.SetPosition(common.V3(0, 0, 0))
	require.NoError(t, ctx.Rebake())
	assert.Equal(t, common.V3(50, 0, 0), nav.baked[2][0].Center)

	s.Disable()
	assert.True(t, ctx.BakeDirty())
	require.NoError(t, ctx.Rebake())
	assert.Empty(t, nav.baked[3])

	s.Enable()
	require.NoError(t, ctx.Rebake())
	assert.Len(t, nav.baked[4], 1)
}

func TestSurfaceBakesGrid(t *testing.T) {
	g := navmesh.NewGrid(navmesh.DefaultConfig())
	ctx := NewContext(nil, g)
	_, err := NewSurface(ctx, "floor", *component.NewTransform(common.Vec3{}), component.Surface{SizeX: 6, SizeZ: 6})
	require.NoError(t, err)
	require.NoError(t, ctx.Rebake())

	a := newTestAgent(t, ctx, "walker", common.V3(-2, 1, 0), component.DefaultAgent())
	require.True(t, a.SetDestination(common.V3(2, 0, 0)))
	assert.Equal(t, navmesh.PathComplete, a.PathStatus())
}

func TestHiddenTranslationRebakesBeforeReturning(t *testing.T) {
	g := navmesh.NewGrid(navmesh.DefaultConfig())
	ctx := NewContext(nil, g)
	_, err := NewSurface(ctx, "floor", *component.NewTransform(common.Vec3{}), component.Surface{SizeX: 20, SizeZ: 6})
	require.NoError(t, err)
	require.NoError(t, ctx.Rebake())

	a := newTestAgent(t, ctx, "walker", common.V3(-6, 1, 0), component.DefaultAgent())
	require.True(t, a.SetDestination(common.V3(6, 0, 0)))
	before := g.Version()

	ctx.SetHiddenTranslation(common.V3(100, 0, 0))
	assert.False(t, ctx.BakeDirty())
	assert.Greater(t, g.Version(), before)
	min, max := g.Bounds()
	assert.InDelta(t, 90, min.X, 0.5)
	assert.InDelta(t, 110, max.X, 0.5)

	require.True(t, a.SetDestination(common.V3(6, 0, 0)))
	assert.Equal(t, navmesh.PathComplete, a.PathStatus())
}

func TestRebakeWithoutSurfaces(t *testing.T) {
	ctx := NewContext(nil, navmesh.NewGrid(navmesh.DefaultConfig()))
	assert.ErrorIs(t, ctx.Rebake(), navmesh.ErrNoSurfaces)
}
