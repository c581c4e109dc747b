package customnav

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

// fakeNav treats the whole space as walkable. Paths head straight at the
// target but stop after reach units.
type fakeNav struct {
	reach     float64
	version   uint32
	next      navmesh.ObstacleHandle
	obstacles map[navmesh.ObstacleHandle]navmesh.ObstacleDesc
	baked     [][]navmesh.SurfaceDesc
	noPath    bool
}

func newFakeNav() *fakeNav {
	return &fakeNav{reach: 1e9, obstacles: make(map[navmesh.ObstacleHandle]navmesh.ObstacleDesc)}
}

func (f *fakeNav) SamplePosition(p common.Vec3, _ float64, _ navmesh.QueryFilter) (navmesh.Hit, bool) {
	return navmesh.Hit{Position: p}, true
}

func (f *fakeNav) CalculatePath(from, to common.Vec3, _ navmesh.QueryFilter) (*navmesh.Path, bool) {
	if f.noPath {
		return nil, false
	}
	dir := to.Sub(from)
	if dir.Len() <= f.reach {
		return &navmesh.Path{Corners: []common.Vec3{from, to}, Status: navmesh.PathComplete}, true
	}
	end := from.Add(dir.Normalize().Scale(f.reach))
	return &navmesh.Path{Corners: []common.Vec3{from, end}, Status: navmesh.PathPartial}, true
}

func (f *fakeNav) Raycast(_, to common.Vec3, _ navmesh.QueryFilter) (navmesh.Hit, bool) {
	return navmesh.Hit{Position: to}, false
}

func (f *fakeNav) AddObstacle(desc navmesh.ObstacleDesc) navmesh.ObstacleHandle {
	f.next++
	f.obstacles[f.next] = desc
	return f.next
}

func (f *fakeNav) UpdateObstacle(h navmesh.ObstacleHandle, desc navmesh.ObstacleDesc) bool {
	if _, ok := f.obstacles[h]; !ok {
		return false
	}
	f.obstacles[h] = desc
	return true
}

func (f *fakeNav) RemoveObstacle(h navmesh.ObstacleHandle) bool {
	if _, ok := f.obstacles[h]; !ok {
		return false
	}
	delete(f.obstacles, h)
	return true
}

func (f *fakeNav) UpdateCarving(float64) bool { return false }

func (f *fakeNav) AgentTypeSettings(id int) (navmesh.AgentTypeSettings, bool) {
	return navmesh.AgentTypeSettings{ID: id, Radius: 0.5, Height: 2}, id == 0
}

func (f *fakeNav) Bake(surfaces []navmesh.SurfaceDesc) error {
	f.baked = append(f.baked, surfaces)
	f.version++
	return nil
}

func (f *fakeNav) Version() uint32 { return f.version }

func newTestAgent(t *testing.T, ctx *Context, name string, pos common.Vec3, cfg component.Agent) Agent {
	t.Helper()
	a, err := NewAgent(ctx, name, *component.NewTransform(pos), cfg)
	require.NoError(t, err)
	return a
}

func hiddenOf(t *testing.T, a Agent) (ecs.Entity, *HiddenAgent) {
	t.Helper()
	h, ha := a.hidden()
	require.NotNil(t, ha, "agent %q has no hidden counterpart", a.Name())
	return h, ha
}

func hiddenTransform(t *testing.T, ctx *Context, h ecs.Entity) *component.Transform {
	t.Helper()
	ht, ok := ecs.Get(ctx.World, h, component.TransformComponent)
	require.True(t, ok)
	return ht
}

// stepPolicy runs n block policy ticks of dt and returns the last
// transition that was not TransitionNone.
func stepPolicy(ctx *Context, h ecs.Entity, n int, dt float64) Transition {
	last := TransitionNone
	for i := 0; i < n; i++ {
		if tr := StepBlockPolicy(ctx, h, dt); tr != TransitionNone {
			last = tr
		}
	}
	return last
}
