package scene

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/prefabs"
)

const hallYAML = `
name: hall
hidden_translation: {x: 0, y: 0, z: 500}
surfaces:
  - name: floor
    transform: {position: {x: 0, y: 0, z: 0}}
    surface: {size_x: 20, size_z: 6}
obstacles:
  - name: pillar
    transform: {position: {x: 0, y: 0.5, z: 2.5}}
    obstacle: {size: {x: 1, y: 1, z: 1}, carving: true}
agents:
  - name: runner
    transform: {position: {x: -6, y: 1, z: 0}}
    controller:
      script: move_to_target.tengo
      params: {target: [6, 0, 0]}
    tint: "#ff0000"
  - name: sleeper
    transform: {position: {x: 6, y: 1, z: -2}}
    agent:
      block: {time_to_block: 0.2}
`

func newHall(t *testing.T, opts Options) *Scene {
	t.Helper()
	spec, err := prefabs.ParseSceneSpec([]byte(hallYAML))
	require.NoError(t, err)
	s, err := New(spec, opts)
	require.NoError(t, err)
	return s
}

func tickFor(s *Scene, seconds, dt float64) {
	for elapsed := 0.0; elapsed < seconds; elapsed += dt {
		s.Tick(dt)
	}
}

func TestLoadEmbeddedScenes(t *testing.T) {
	for _, name := range prefabs.Scenes() {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name, Options{})
			require.NoError(t, err)
			assert.Equal(t, name, s.Source())
			assert.NotEmpty(t, s.AgentNames())
			assert.Equal(t, len(s.AgentNames()), s.Ctx.Registry.Len())
			assert.False(t, s.Ctx.BakeDirty())

			tickFor(s, 0.5, 0.05)
		})
	}
}

func TestNewBuildsShadows(t *testing.T) {
	s := newHall(t, Options{})
	assert.Equal(t, []string{"runner", "sleeper"}, s.AgentNames())
	assert.Equal(t, []string{"pillar"}, s.ObstacleNames())
	assert.Equal(t, []string{"floor"}, s.SurfaceNames())
	assert.Equal(t, common.V3(0, 0, 500), s.Ctx.HiddenTranslation())

	a, ok := s.Agent("runner")
	require.True(t, ok)
	h, ok := a.Hidden()
	require.True(t, ok)
	ht, ok := ecs.Get(s.Ctx.World, h, component.TransformComponent)
	require.True(t, ok)
	assert.InDelta(t, 500, ht.Position.Z, 1e-9)

	tint, ok := ecs.Get(s.Ctx.World, a.Entity(), component.TintComponent)
	require.True(t, ok)
	assert.Equal(t, uint8(0xff), tint.Color.R)

	min, max := s.Grid.Bounds()
	assert.InDelta(t, 20, max.X-min.X, 0.5)
}

func TestControllerDrivesAgentAcrossHall(t *testing.T) {
	s := newHall(t, Options{})
	a, _ := s.Agent("runner")

	tickFor(s, 0.1, 0.05)
	dest, ok := a.Destination()
	require.True(t, ok, "controller sets a destination on start")
	assert.InDelta(t, 6, dest.X, 0.3)

	start := a.Transform().Position
	tickFor(s, 3, 0.05)
	moved := a.Transform().Position.Sub(start)
	assert.Greater(t, moved.X, 3.0, "runner walks towards +x")
}

func TestIdleAgentBlocksAndReportsEvent(t *testing.T) {
	var events []ecs.Event
	s := newHall(t, Options{OnEvent: func(ev ecs.Event) { events = append(events, ev) }})
	sleeper, _ := s.Agent("sleeper")

	tickFor(s, 0.5, 0.05)
	assert.Equal(t, customnav.ModeBlocking, sleeper.Mode())
	assert.Equal(t, customnav.RoleObstacle, sleeper.Role())

	found := false
	for _, ev := range events {
		if ev.Type == customnav.TransitionBlock.String() && ev.Entity == sleeper.Entity() {
			found = true
		}
	}
	assert.True(t, found, "block event for sleeper")
	assert.NotEmpty(t, s.RecentEvents())
}

func TestApplyReconcilesByName(t *testing.T) {
	s := newHall(t, Options{})
	runner, _ := s.Agent("runner")
	runnerEntity := runner.Entity()
	pillar, _ := s.Obstacle("pillar")

	spec, err := prefabs.ParseSceneSpec([]byte(`
surfaces:
  - name: floor
    transform: {position: {x: 0, y: 0, z: 0}}
    surface: {size_x: 30, size_z: 6}
agents:
  - name: runner
    transform: {position: {x: 0, y: 1, z: 0}}
    agent: {speed: 9}
  - name: newcomer
    transform: {position: {x: 2, y: 1, z: 0}}
`))
	require.NoError(t, err)
	require.NoError(t, s.Apply(spec))

	assert.Equal(t, []string{"newcomer", "runner"}, s.AgentNames())
	assert.Empty(t, s.ObstacleNames())
	assert.False(t, s.Ctx.World.IsAlive(pillar.Entity()))

	runner, _ = s.Agent("runner")
	assert.Equal(t, runnerEntity, runner.Entity(), "existing agents are reconfigured in place")
	assert.Equal(t, 9.0, runner.Config().Speed)
	assert.Equal(t, -6.0, runner.Transform().Position.X, "reload keeps the agent where it is")
	assert.False(t, ecs.Has(s.Ctx.World, runner.Entity(), component.ControllerComponent))
	assert.False(t, ecs.Has(s.Ctx.World, runner.Entity(), component.TintComponent))

	floor, _ := s.Surface("floor")
	assert.Equal(t, 30.0, floor.Config().SizeX)
	min, max := s.Grid.Bounds()
	assert.InDelta(t, 30, max.X-min.X, 0.5)
	assert.Equal(t, 2, s.Ctx.Registry.Len())
}

func TestDisabledActorsInSpec(t *testing.T) {
	spec, err := prefabs.ParseSceneSpec([]byte(`
surfaces:
  - name: floor
    surface: {size_x: 4, size_z: 4}
agents:
  - name: off
    disabled: true
    transform: {position: {x: 0, y: 1, z: 0}}
`))
	require.NoError(t, err)
	s, err := New(spec, Options{})
	require.NoError(t, err)

	a, ok := s.Agent("off")
	require.True(t, ok)
	assert.False(t, a.Enabled())
	_, ok = a.Hidden()
	assert.False(t, ok)
	assert.Zero(t, s.Ctx.Registry.Len())
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, name := range []string{"snap.yaml", "snap.yaml.zst"} {
		t.Run(name, func(t *testing.T) {
			s := newHall(t, Options{})
			tickFor(s, 0.5, 0.05)

			sleeper, _ := s.Agent("sleeper")
			require.Equal(t, customnav.ModeBlocking, sleeper.Mode())
			runner, _ := s.Agent("runner")
			runnerDest, ok := runner.Destination()
			require.True(t, ok)

			before, err := s.Capture()
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, s.Save(path))

			loaded, err := LoadSnapshot(path, Options{})
			require.NoError(t, err)

			assert.Equal(t, s.AgentNames(), loaded.AgentNames())
			assert.InDelta(t, s.Ctx.World.Time(), loaded.Ctx.World.Time(), 1e-9)
			assert.Equal(t, s.Ctx.Registry.Len(), loaded.Ctx.Registry.Len())

			after, err := loaded.Capture()
			require.NoError(t, err)
			assert.Equal(t, before.Actors, after.Actors, "actor ids survive")
			assert.Equal(t, before.Agents, after.Agents, "hidden agent state survives")

			ls, _ := loaded.Agent("sleeper")
			assert.Equal(t, customnav.ModeBlocking, ls.Mode())
			assert.Equal(t, customnav.RoleObstacle, ls.Role())

			lr, _ := loaded.Agent("runner")
			assert.Equal(t, runner.Transform().Position, lr.Transform().Position)
			d, ok := lr.Destination()
			require.True(t, ok)
			assert.True(t, d.ApproxEqual(runnerDest, 1e-9))
		})
	}
}

func TestSnapshotVersionIsChecked(t *testing.T) {
	s := newHall(t, Options{})
	snap, err := s.Capture()
	require.NoError(t, err)
	snap.Version = 99
	_, err = Restore(snap, Options{})
	assert.Error(t, err)
}

func TestFailedWriteKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hall.yaml")
	require.NoError(t, writeFileAtomic(path, func(out io.Writer) error {
		_, err := io.WriteString(out, "version: 1\n")
		return err
	}))

	errDisk := errors.New("disk full")
	err := writeFileAtomic(path, func(out io.Writer) error {
		_, _ = io.WriteString(out, "vers")
		return errDisk
	})
	require.ErrorIs(t, err, errDisk)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file left behind")
	assert.Equal(t, "hall.yaml", entries[0].Name())
}

func TestEncodeDecodeSnapshot(t *testing.T) {
	s := newHall(t, Options{})
	snap, err := s.Capture()
	require.NoError(t, err)

	var plain, packed bytes.Buffer
	require.NoError(t, EncodeSnapshot(&plain, snap, false))
	require.NoError(t, EncodeSnapshot(&packed, snap, true))
	assert.Contains(t, plain.String(), "agent_states:")

	a, err := DecodeSnapshot(&plain, false)
	require.NoError(t, err)
	b, err := DecodeSnapshot(&packed, true)
	require.NoError(t, err)
	assert.Equal(t, a.Actors, b.Actors)
	assert.Equal(t, a.Agents, b.Agents)
	assert.Len(t, a.Scene.Agents, 2)
}

func TestAgentYAML(t *testing.T) {
	s := newHall(t, Options{})
	out, err := s.AgentYAML("runner")
	require.NoError(t, err)
	assert.Contains(t, string(out), "name: runner")
	assert.Contains(t, string(out), "move_to_target.tengo")

	spec, err := prefabs.ParseSceneSpec(append([]byte("agents:\n"), indent(out)...))
	require.NoError(t, err)
	cfg, err := spec.Agents[0].Config()
	require.NoError(t, err)
	a, _ := s.Agent("runner")
	assert.Equal(t, a.Config(), cfg)

	_, err = s.AgentYAML("nobody")
	assert.Error(t, err)
}

func indent(b []byte) []byte {
	var out bytes.Buffer
	for _, line := range bytes.Split(bytes.TrimRight(b, "\n"), []byte("\n")) {
		out.WriteString("  ")
		out.Write(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

func TestHandleFileChange(t *testing.T) {
	s, err := Load("courtyard.yaml", Options{})
	require.NoError(t, err)

	changed, err := s.HandleFileChange("prefabs/scripts/patrol.tengo")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.HandleFileChange("prefabs/corridor.yaml")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.HandleFileChange("prefabs/courtyard.yaml")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"alice", "bob", "idler"}, s.AgentNames())
}
