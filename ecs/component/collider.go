package component

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jadvrodrigues/customnavmesh/common"
)

// ShapeKind is the primitive used for an obstacle footprint or a hidden
// agent's collider.
type ShapeKind uint8

const (
	ShapeBox ShapeKind = iota
	ShapeCapsule
	ShapeCylinder
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeCapsule:
		return "capsule"
	default:
		return "cylinder"
	}
}

func ParseShapeKind(s string) ShapeKind {
	switch s {
	case "capsule":
		return ShapeCapsule
	case "cylinder":
		return ShapeCylinder
	default:
		return ShapeBox
	}
}

func (k ShapeKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

func (k *ShapeKind) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("shape must be a string")
	}
	switch value.Value {
	case "box", "capsule", "cylinder":
		*k = ParseShapeKind(value.Value)
		return nil
	}
	return fmt.Errorf("unknown shape %q", value.Value)
}

// Collider is the regenerated collision geometry of a hidden actor. Size is
// local; the hidden transform's scale applies on top. Mesh and MeshScale
// describe the primitive drawn by the viewer.
type Collider struct {
	Shape  ShapeKind
	Radius float64
	Height float64
	Size   common.Vec3

	Mesh      ShapeKind
	MeshScale common.Vec3
}

var ColliderComponent = NewComponent[Collider]("collider")
