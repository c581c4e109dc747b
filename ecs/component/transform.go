package component

import "github.com/jadvrodrigues/customnavmesh/common"

// Transform is the world placement of an entity. Rotation is a yaw angle in
// degrees around the up axis.
type Transform struct {
	Position common.Vec3 `yaml:"position"`
	Rotation float64     `yaml:"rotation"`
	Scale    common.Vec3 `yaml:"scale"`
}

func NewTransform(pos common.Vec3) *Transform {
	return &Transform{Position: pos, Scale: common.One3}
}

var TransformComponent = NewComponent[Transform]("transform")
