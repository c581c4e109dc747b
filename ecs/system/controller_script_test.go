package system

import (
	"fmt"
	"testing"

	"github.com/d5/tengo/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

const goToTarget = `
start := func(agent, state) {
	state.started = true
	agent.set_destination(agent.param("target", [0, 0, 0]))
}

update := func(agent, state) {
	state.last_mode = agent.mode()
}
`

func memoryScripts(files map[string]string) ScriptLoader {
	return func(name string) ([]byte, error) {
		src, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("no script %q", name)
		}
		return []byte(src), nil
	}
}

func TestControllerRunsStartOnceThenUpdate(t *testing.T) {
	ctx, _ := newFloor(t)
	a := newWalker(t, ctx, "walker", common.V3(-6, 1, 0))
	require.NoError(t, ecs.Add(ctx.World, a.Entity(), component.ControllerComponent, &component.Controller{
		Script: "go.tengo",
		Params: map[string]any{"target": []any{4, 0, 0}},
	}))

	sys := NewControllerScriptSystem(ctx, memoryScripts(map[string]string{"go.tengo": goToTarget}))
	sys.Update(ctx.World)

	d, ok := a.Destination()
	require.True(t, ok)
	assert.InDelta(t, 4, d.X, 0.3)

	rt := sys.runtimes[a.Entity()]
	require.NotNil(t, rt)
	assert.True(t, rt.started)
	assert.False(t, rt.failed)
	assert.Equal(t, tengo.TrueValue, rt.state.Value["started"])
	assert.Equal(t, "following", objectAsString(rt.state.Value["last_mode"]))

	a.ResetPath()
	sys.Update(ctx.World)
	_, ok = a.Destination()
	assert.False(t, ok, "start does not run again")
}

func TestControllerFailureStopsScriptUntilInvalidated(t *testing.T) {
	ctx, _ := newFloor(t)
	a := newWalker(t, ctx, "walker", common.V3(0, 1, 0))
	require.NoError(t, ecs.Add(ctx.World, a.Entity(), component.ControllerComponent, &component.Controller{Script: "bad.tengo"}))

	files := map[string]string{"bad.tengo": `
start := func(agent, state) {}
update := func(agent, state) { agent.set_destination("nowhere") }
`}
	sys := NewControllerScriptSystem(ctx, memoryScripts(files))
	sys.Update(ctx.World)
	require.NotNil(t, sys.runtimes[a.Entity()])
	assert.True(t, sys.runtimes[a.Entity()].failed)

	files["bad.tengo"] = `
start := func(agent, state) { agent.set_destination(2, 0, 0) }
update := func(agent, state) {}
`
	sys.Update(ctx.World)
	_, ok := a.Destination()
	assert.False(t, ok, "failed scripts stay off until reloaded")

	sys.Invalidate()
	sys.Update(ctx.World)
	_, ok = a.Destination()
	assert.True(t, ok)
	assert.False(t, sys.runtimes[a.Entity()].failed)
}

func TestControllerSkipsMissingAndDisabled(t *testing.T) {
	ctx, _ := newFloor(t)
	missing := newWalker(t, ctx, "missing", common.V3(-2, 1, 0))
	require.NoError(t, ecs.Add(ctx.World, missing.Entity(), component.ControllerComponent, &component.Controller{Script: "gone.tengo"}))
	off := newWalker(t, ctx, "off", common.V3(2, 1, 0))
	require.NoError(t, ecs.Add(ctx.World, off.Entity(), component.ControllerComponent, &component.Controller{
		Script: "go.tengo",
		Params: map[string]any{"target": []any{5, 0, 0}},
	}))
	off.Disable()

	sys := NewControllerScriptSystem(ctx, memoryScripts(map[string]string{"go.tengo": goToTarget}))
	sys.Update(ctx.World)

	assert.Empty(t, sys.runtimes)
	_, ok := off.Destination()
	assert.False(t, ok)
}

func TestControllerDropsRuntimeWhenComponentRemoved(t *testing.T) {
	ctx, _ := newFloor(t)
	a := newWalker(t, ctx, "walker", common.V3(0, 1, 0))
	require.NoError(t, ecs.Add(ctx.World, a.Entity(), component.ControllerComponent, &component.Controller{Script: "go.tengo"}))

	sys := NewControllerScriptSystem(ctx, memoryScripts(map[string]string{"go.tengo": goToTarget}))
	sys.Update(ctx.World)
	require.Len(t, sys.runtimes, 1)

	ecs.Remove(ctx.World, a.Entity(), component.ControllerComponent)
	sys.Update(ctx.World)
	assert.Empty(t, sys.runtimes)
}

func TestVecArgs(t *testing.T) {
	v, err := vecArgs("f", []tengo.Object{&tengo.Int{Value: 1}, &tengo.Float{Value: 2.5}, &tengo.Int{Value: -3}})
	require.NoError(t, err)
	assert.Equal(t, common.V3(1, 2.5, -3), v)

	v, err = vecArgs("f", []tengo.Object{&tengo.Array{Value: []tengo.Object{&tengo.Int{Value: 4}, &tengo.Int{Value: 0}, &tengo.Int{Value: 1}}}})
	require.NoError(t, err)
	assert.Equal(t, common.V3(4, 0, 1), v)

	_, err = vecArgs("f", []tengo.Object{&tengo.Int{Value: 1}})
	assert.Error(t, err)
	_, err = vecArgs("f", []tengo.Object{&tengo.String{Value: "x"}, &tengo.Int{Value: 0}, &tengo.Int{Value: 0}})
	assert.Error(t, err)
}

func TestNormalizeParam(t *testing.T) {
	got := normalizeParam(map[string]any{"a": []any{1, 2.5}, "b": 3})
	assert.Equal(t, map[string]any{"a": []any{int64(1), 2.5}, "b": int64(3)}, got)
}
