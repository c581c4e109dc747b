package prefabs

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

func TestEmbeddedScenesLoad(t *testing.T) {
	names := Scenes()
	require.Contains(t, names, "courtyard.yaml")
	require.Contains(t, names, "corridor.yaml")

	for _, name := range names {
		spec, err := LoadSceneSpec(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, spec.Surfaces, name)
		for _, a := range spec.Agents {
			if a.Controller == nil {
				continue
			}
			_, err := LoadScript(a.Controller.Script)
			assert.NoError(t, err, "%s: %s", name, a.Controller.Script)
		}
	}
}

func TestAgentSpecKeepsDefaults(t *testing.T) {
	spec, err := ParseSceneSpec([]byte(`
name: t
agents:
  - name: a
    agent:
      speed: 7
      obstacle_avoidance: low
      block:
        time_to_block: 0.25
`))
	require.NoError(t, err)
	cfg, err := spec.Agents[0].Config()
	require.NoError(t, err)

	want := component.DefaultAgent()
	want.Speed = 7
	want.ObstacleAvoidance = component.AvoidanceLow
	want.Block.TimeToBlock = 0.25
	assert.Equal(t, want, cfg)
}

func TestAgentSpecWithoutAgentBlock(t *testing.T) {
	var a AgentSpec
	cfg, err := a.Config()
	require.NoError(t, err)
	assert.Equal(t, component.DefaultAgent(), cfg)
}

func TestObstacleSpecShape(t *testing.T) {
	spec, err := ParseSceneSpec([]byte(`
obstacles:
  - name: pillar
    obstacle: {shape: capsule, size: {x: 2, y: 3, z: 2}}
`))
	require.NoError(t, err)
	cfg, err := spec.Obstacles[0].Config()
	require.NoError(t, err)
	assert.Equal(t, component.ShapeCapsule, cfg.Shape)
	assert.Equal(t, common.V3(2, 3, 2), cfg.Size)
	assert.True(t, cfg.CarveOnlyStationary)

	_, err = ParseSceneSpec([]byte(`
obstacles:
  - name: blob
    obstacle: {shape: blob}
`))
	assert.Error(t, err)
}

func TestSceneSpecValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "agents: [{transform: {}}]"},
		{"duplicate across kinds", "surfaces: [{name: a}]\nobstacles: [{name: a}]"},
		{"bad agent field", "agents: [{name: a, agent: {speed: fast}}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSceneSpec([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestTransformSpecDefaultsScale(t *testing.T) {
	tr := TransformSpec{Position: common.V3(1, 2, 3), Rotation: 90}.Transform()
	assert.Equal(t, common.One3, tr.Scale)
	assert.Equal(t, 90.0, tr.Rotation)

	s := common.V3(2, 2, 2)
	assert.Equal(t, s, TransformSpec{Scale: &s}.Transform().Scale)
}

func TestNavSpecConfig(t *testing.T) {
	cfg := NavSpec{}.Config()
	assert.Equal(t, 0.25, cfg.CellSize)
	require.Len(t, cfg.AgentTypes, 1)

	cfg = NavSpec{CellSize: 0.5}.Config()
	assert.Equal(t, 0.5, cfg.CellSize)
}

func TestYAMLColorRoundTrip(t *testing.T) {
	var c YAMLColor
	require.NoError(t, yaml.Unmarshal([]byte(`"#102030"`), &c))
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, c.NRGBA(color.NRGBA{}))

	out, err := yaml.Marshal(c)
	require.NoError(t, err)
	var back YAMLColor
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, c.NRGBA(color.NRGBA{}), back.NRGBA(color.NRGBA{}))

	var none *YAMLColor
	assert.Equal(t, color.NRGBA{A: 1}, none.NRGBA(color.NRGBA{A: 1}))
	assert.Error(t, yaml.Unmarshal([]byte(`"#12"`), &c))
}

func TestEncodeComponentSpec(t *testing.T) {
	cfg := component.DefaultObstacle()
	cfg.Shape = component.ShapeCylinder
	node, err := EncodeComponentSpec(cfg)
	require.NoError(t, err)

	back, err := DecodeComponentSpec(node, component.Obstacle{})
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestScriptPaths(t *testing.T) {
	assert.Equal(t, "scripts/patrol.tengo", cleanScriptPath("prefabs/scripts/patrol.tengo"))
	assert.Equal(t, "scripts/patrol.tengo", cleanScriptPath("patrol.tengo"))
	assert.Equal(t, "courtyard.yaml", cleanPrefabPath("prefabs/courtyard.yaml"))
	assert.True(t, IsScriptFile("a/B.TENGO"))
	assert.False(t, IsScriptFile("a/b.lua"))
}
