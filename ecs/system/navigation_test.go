package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

const testDt = 1.0 / 30.0

// newFloor builds a context over a baked 20x6 floor centred on the origin.
func newFloor(t *testing.T) (*customnav.Context, *navmesh.Grid) {
	t.Helper()
	grid := navmesh.NewGrid(navmesh.DefaultConfig())
	ctx := customnav.NewContext(nil, grid)
	_, err := customnav.NewSurface(ctx, "floor", *component.NewTransform(common.Vec3{}), component.Surface{SizeX: 20, SizeZ: 6})
	require.NoError(t, err)
	require.NoError(t, ctx.Rebake())
	return ctx, grid
}

func newWalker(t *testing.T, ctx *customnav.Context, name string, pos common.Vec3) customnav.Agent {
	t.Helper()
	a, err := customnav.NewAgent(ctx, name, *component.NewTransform(pos), component.DefaultAgent())
	require.NoError(t, err)
	return a
}

func navigationScheduler(ctx *customnav.Context, extra ...ecs.System) *ecs.Scheduler {
	s := ecs.NewScheduler(
		NewTransformWatchSystem(ctx),
		NewCarvingSystem(ctx),
		NewSteeringSystem(ctx),
		NewBlockPolicySystem(ctx),
		NewVelocityReadbackSystem(ctx),
	)
	for _, sys := range extra {
		s.Add(sys)
	}
	return s
}

func run(s *ecs.Scheduler, w *ecs.World, seconds float64) {
	for elapsed := 0.0; elapsed < seconds; elapsed += testDt {
		s.Step(w, testDt)
	}
}

func TestAgentWalksToDestination(t *testing.T) {
	ctx, _ := newFloor(t)
	a := newWalker(t, ctx, "walker", common.V3(-6, 1, 0))
	a.SetTimeToBlock(100)
	require.True(t, a.SetDestination(common.V3(6, 0, 0)))

	sched := navigationScheduler(ctx)
	run(sched, ctx.World, 1)
	assert.Greater(t, a.Velocity().Len(), 1.0, "walker is under way")
	assert.Greater(t, a.Transform().Position.X, -6.0)

	run(sched, ctx.World, 7)
	assert.InDelta(t, 6, a.Transform().Position.X, 0.5)
	assert.InDelta(t, 0, a.Transform().Position.Z, 0.5)
	assert.Less(t, a.RemainingDistance(), 0.5)
}

func TestSeparationPushesOverlappingAgentsApart(t *testing.T) {
	ctx, _ := newFloor(t)
	a := newWalker(t, ctx, "a", common.V3(-0.15, 1, 0))
	b := newWalker(t, ctx, "b", common.V3(0.15, 1, 0))

	sched := ecs.NewScheduler(NewSteeringSystem(ctx), NewVelocityReadbackSystem(ctx))
	run(sched, ctx.World, 0.5)

	d := a.Transform().Position.FlatDist(b.Transform().Position)
	assert.Greater(t, d, 0.6)
	assert.Less(t, a.Transform().Position.X, -0.15)
	assert.Greater(t, b.Transform().Position.X, 0.15)
}

func TestAvoidanceNoneIgnoresNeighbours(t *testing.T) {
	ctx, _ := newFloor(t)
	a := newWalker(t, ctx, "a", common.V3(-0.15, 1, 0))
	a.SetObstacleAvoidance(component.AvoidanceNone)
	newWalker(t, ctx, "b", common.V3(0.15, 1, 0))

	sched := ecs.NewScheduler(NewSteeringSystem(ctx))
	run(sched, ctx.World, 0.2)
	assert.Zero(t, a.Velocity().Len())
}

func TestDisabledAgentIsNotMoved(t *testing.T) {
	ctx, _ := newFloor(t)
	a := newWalker(t, ctx, "walker", common.V3(-6, 1, 0))
	require.True(t, a.SetDestination(common.V3(6, 0, 0)))
	a.Disable()

	run(navigationScheduler(ctx), ctx.World, 1)
	assert.Equal(t, -6.0, a.Transform().Position.X)
}

func TestBlockPolicySystemReportsTransitions(t *testing.T) {
	ctx, _ := newFloor(t)
	a := newWalker(t, ctx, "idler", common.V3(0, 1, 0))
	a.SetTimeToBlock(0.2)

	var seen []ecs.Event
	record := ecs.SystemFunc(func(w *ecs.World) {
		seen = append(seen, w.Events().Drain()...)
	})
	run(navigationScheduler(ctx, record), ctx.World, 0.5)

	assert.Equal(t, customnav.ModeBlocking, a.Mode())
	require.NotEmpty(t, seen)
	var blocked bool
	for _, ev := range seen {
		if ev.Type == customnav.TransitionBlock.String() {
			blocked = true
			assert.Equal(t, a.Entity(), ev.Entity, "events name the visible agent")
		}
	}
	assert.True(t, blocked)
}

func TestCarvingSystemAnnouncesMeshChanges(t *testing.T) {
	ctx, grid := newFloor(t)
	cfg := component.DefaultObstacle()
	cfg.Carving = true
	_, err := customnav.NewObstacle(ctx, "crate", *component.NewTransform(common.V3(0, 0.5, 0)), cfg)
	require.NoError(t, err)
	before := grid.Version()

	var changes int
	record := ecs.SystemFunc(func(w *ecs.World) {
		for _, ev := range w.Events().Drain() {
			if ev.Type == "navmesh_changed" {
				changes++
			}
		}
	})
	run(ecs.NewScheduler(NewCarvingSystem(ctx), record), ctx.World, 2)

	assert.Greater(t, grid.Version(), before)
	assert.Positive(t, changes)
}

func TestCarvingSystemRebakesDirtySurfaces(t *testing.T) {
	ctx, grid := newFloor(t)
	s, err := customnav.NewSurface(ctx, "annex", *component.NewTransform(common.V3(15, 0, 0)), component.Surface{SizeX: 6, SizeZ: 6})
	require.NoError(t, err)
	require.True(t, ctx.BakeDirty())
	before := grid.Version()

	ecs.NewScheduler(NewCarvingSystem(ctx)).Step(ctx.World, testDt)
	assert.False(t, ctx.BakeDirty())
	assert.Greater(t, grid.Version(), before)
	_, max := grid.Bounds()
	assert.GreaterOrEqual(t, max.X, 17.5)
	assert.True(t, s.Enabled())
}
