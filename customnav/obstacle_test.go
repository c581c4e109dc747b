package customnav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

func onlyObstacle(t *testing.T, nav *fakeNav) navmesh.ObstacleDesc {
	t.Helper()
	require.Len(t, nav.obstacles, 1)
	for _, d := range nav.obstacles {
		return d
	}
	return navmesh.ObstacleDesc{}
}

func TestObstaclePlacementInHiddenLayer(t *testing.T) {
	nav := newFakeNav()
	ctx := NewContext(nil, nav)
	ctx.SetHiddenTranslation(common.V3(0, 0, 10))

	cfg := component.DefaultObstacle()
	cfg.Center = common.V3(0, 0.5, 0)
	cfg.Carving = true
	tr := component.Transform{Position: common.V3(2, 0, 3), Rotation: 45, Scale: common.V3(2, 1, 1)}
	o, err := NewObstacle(ctx, "crate", tr, cfg)
	require.NoError(t, err)

	d := onlyObstacle(t, nav)
	assert.Equal(t, common.V3(2, 0.5, 13), d.Position)
	assert.Equal(t, 45.0, d.Rotation)
	assert.Equal(t, common.V3(2, 1, 1), d.Size)
	assert.True(t, d.Carve)

	o.SetCenter(common.V3(0, 1, 0))
	assert.Equal(t, common.V3(2, 1, 13), onlyObstacle(t, nav).Position)

	o.SetRadius(1)
	assert.Equal(t, common.V3(4, 1, 2), onlyObstacle(t, nav).Size)

	ctx.SetHiddenTranslation(common.Vec3{})
	assert.Equal(t, common.V3(2, 1, 3), onlyObstacle(t, nav).Position)

	h, ok := o.Hidden()
	require.True(t, ok)
	col, ok := ecs.Get(ctx.World, h, component.ColliderComponent)
	require.True(t, ok)
	assert.Equal(t, component.ShapeBox, col.Mesh)

	o.SetShape(component.ShapeCapsule)
	assert.Equal(t, component.ShapeCapsule, col.Mesh)
	assert.Equal(t, component.ShapeCapsule, onlyObstacle(t, nav).Shape)
}

func TestDisabledObstacleIsUnused(t *testing.T) {
	nav := newFakeNav()
	ctx := NewContext(nil, nav)
	o, err := NewObstacle(ctx, "gate", *component.NewTransform(common.V3(1, 0, 1)), component.DefaultObstacle())
	require.NoError(t, err)
	h, ok := o.Hidden()
	require.True(t, ok)

	o.Disable()
	assert.False(t, o.Enabled())
	assert.Empty(t, nav.obstacles)
	assert.True(t, ecs.Has(ctx.World, h, component.UnusedComponent))
	assert.True(t, ctx.World.IsAlive(h), "hidden obstacle is kept while disabled")

	o.SetPosition(common.V3(5, 0, 5))
	o.Enable()

	h2, ok := o.Hidden()
	require.True(t, ok)
	assert.Equal(t, h, h2)
	assert.False(t, ecs.Has(ctx.World, h, component.UnusedComponent))
	assert.Equal(t, common.V3(5, 0, 5), onlyObstacle(t, nav).Position)

	o.Destroy()
	assert.Empty(t, nav.obstacles)
	assert.False(t, ctx.World.IsAlive(h))
	assert.False(t, ctx.World.IsAlive(o.Entity()))
}

func TestObstacleSizeIsClamped(t *testing.T) {
	ctx := NewContext(nil, newFakeNav())
	o, err := NewObstacle(ctx, "flat", *component.NewTransform(common.Vec3{}), component.DefaultObstacle())
	require.NoError(t, err)

	o.SetSize(common.V3(-1, 0, 2))
	o.SetCarvingMoveThreshold(-3)

	cfg := o.Config()
	assert.Equal(t, common.V3(minAgentExtent, minAgentExtent, 2), cfg.Size)
	assert.Zero(t, cfg.CarvingMoveThreshold)
}

func TestCarvingObstacleBlocksGridPath(t *testing.T) {
	ctx, g := gridContext(t, navmesh.SurfaceDesc{SizeX: 10, SizeZ: 4})
	cfg := component.DefaultObstacle()
	cfg.Carving = true
	cfg.CarveOnlyStationary = false
	cfg.Size = common.V3(1, 2, 4)
	_, err := NewObstacle(ctx, "wall", *component.NewTransform(common.V3(0, 1, 0)), cfg)
	require.NoError(t, err)

	require.True(t, g.UpdateCarving(0.1))
	path, ok := g.CalculatePath(common.V3(-4, 0, 0), common.V3(4, 0, 0), navmesh.DefaultFilter())
	require.True(t, ok)
	assert.Equal(t, navmesh.PathPartial, path.Status)
}

func TestObstacleOfRejectsAgents(t *testing.T) {
	ctx := NewContext(nil, newFakeNav())
	a := newTestAgent(t, ctx, "agent", common.Vec3{}, component.DefaultAgent())
	_, err := ObstacleOf(ctx, a.Entity())
	assert.ErrorIs(t, err, ErrNotObstacle)
}
