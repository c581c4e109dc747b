package prefabs

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

// SceneSpec describes a navigation scene: the hidden layer settings, the bake
// parameters and every visible actor.
type SceneSpec struct {
	Name              string         `yaml:"name"`
	HiddenTranslation common.Vec3    `yaml:"hidden_translation"`
	RenderHidden      *bool          `yaml:"render_hidden"`
	Nav               NavSpec        `yaml:"nav"`
	Surfaces          []SurfaceSpec  `yaml:"surfaces"`
	Obstacles         []ObstacleSpec `yaml:"obstacles"`
	Agents            []AgentSpec    `yaml:"agents"`
}

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

func LoadSceneSpec(filename string) (*SceneSpec, error) {
	spec, err := LoadSpec[SceneSpec](filename)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: %s: %w", filename, err)
	}
	return &spec, nil
}

// ParseSceneSpec decodes a scene that did not come from the prefab
// directory, such as one pasted into the viewer.
func ParseSceneSpec(data []byte) (*SceneSpec, error) {
	var spec SceneSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal scene: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: %w", err)
	}
	return &spec, nil
}

// Validate checks that actor names are present and unique and that every
// embedded component decodes.
func (s *SceneSpec) Validate() error {
	seen := make(map[string]struct{})
	check := func(kind, name string) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate actor name %q", name)
		}
		seen[name] = struct{}{}
		return nil
	}
	for _, sf := range s.Surfaces {
		if err := check("surface", sf.Name); err != nil {
			return err
		}
	}
	for _, o := range s.Obstacles {
		if err := check("obstacle", o.Name); err != nil {
			return err
		}
		if _, err := o.Config(); err != nil {
			return fmt.Errorf("obstacle %s: %w", o.Name, err)
		}
	}
	for _, a := range s.Agents {
		if err := check("agent", a.Name); err != nil {
			return err
		}
		if _, err := a.Config(); err != nil {
			return fmt.Errorf("agent %s: %w", a.Name, err)
		}
	}
	return nil
}

// ShowHidden reports whether hidden actors are drawn. Scenes draw them
// unless told otherwise.
func (s *SceneSpec) ShowHidden() bool {
	return s.RenderHidden == nil || *s.RenderHidden
}

type NavSpec struct {
	CellSize   float64                     `yaml:"cell_size"`
	AgentTypes []navmesh.AgentTypeSettings `yaml:"agent_types"`
}

func (n NavSpec) Config() navmesh.Config {
	cfg := navmesh.DefaultConfig()
	if n.CellSize > 0 {
		cfg.CellSize = n.CellSize
	}
	if len(n.AgentTypes) > 0 {
		cfg.AgentTypes = n.AgentTypes
	}
	return cfg
}

type TransformSpec struct {
	Position common.Vec3  `yaml:"position"`
	Rotation float64      `yaml:"rotation"`
	Scale    *common.Vec3 `yaml:"scale"`
}

func (t TransformSpec) Transform() component.Transform {
	tr := component.NewTransform(t.Position)
	tr.Rotation = t.Rotation
	if t.Scale != nil {
		tr.Scale = *t.Scale
	}
	return *tr
}

type SurfaceSpec struct {
	Name      string            `yaml:"name"`
	Disabled  bool              `yaml:"disabled"`
	Transform TransformSpec     `yaml:"transform"`
	Surface   component.Surface `yaml:"surface"`
}

type ObstacleSpec struct {
	Name      string        `yaml:"name"`
	Disabled  bool          `yaml:"disabled"`
	Transform TransformSpec `yaml:"transform"`
	Obstacle  yaml.Node     `yaml:"obstacle,omitempty"`
	Tint      *YAMLColor    `yaml:"tint,omitempty"`
}

// Config decodes the obstacle block over DefaultObstacle so omitted fields
// keep their defaults.
func (o ObstacleSpec) Config() (component.Obstacle, error) {
	return DecodeComponentSpec(o.Obstacle, component.DefaultObstacle())
}

type AgentSpec struct {
	Name       string                `yaml:"name"`
	Disabled   bool                  `yaml:"disabled"`
	Transform  TransformSpec         `yaml:"transform"`
	Agent      yaml.Node             `yaml:"agent,omitempty"`
	Controller *component.Controller `yaml:"controller,omitempty"`
	Tint       *YAMLColor            `yaml:"tint,omitempty"`
}

// Config decodes the agent block over DefaultAgent.
func (a AgentSpec) Config() (component.Agent, error) {
	return DecodeComponentSpec(a.Agent, component.DefaultAgent())
}

type YAMLColor struct {
	color.Color
}

func (c *YAMLColor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string")
	}

	s := strings.TrimPrefix(value.Value, "#")

	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("invalid color format: %s", value.Value)
	}

	parse := func(start int) (uint8, error) {
		v, err := strconv.ParseUint(s[start:start+2], 16, 8)
		return uint8(v), err
	}

	r, err := parse(0)
	if err != nil {
		return err
	}
	g, err := parse(2)
	if err != nil {
		return err
	}
	b, err := parse(4)
	if err != nil {
		return err
	}

	a := uint8(255)
	if len(s) == 8 {
		a, err = parse(6)
		if err != nil {
			return err
		}
	}

	c.Color = color.NRGBA{R: r, G: g, B: b, A: a}
	return nil
}

func (c YAMLColor) MarshalYAML() (any, error) {
	if c.Color == nil {
		return nil, nil
	}
	n := color.NRGBAModel.Convert(c.Color).(color.NRGBA)
	if n.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B), nil
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A), nil
}

// NRGBA returns the color, or fallback when none was set.
func (c *YAMLColor) NRGBA(fallback color.NRGBA) color.NRGBA {
	if c == nil || c.Color == nil {
		return fallback
	}
	return color.NRGBAModel.Convert(c.Color).(color.NRGBA)
}
