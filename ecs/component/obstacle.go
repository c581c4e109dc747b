package component

import "github.com/jadvrodrigues/customnavmesh/common"

// Obstacle is the configuration of a visible navmesh obstacle. Center and
// Size are local to the obstacle transform.
type Obstacle struct {
	Shape  ShapeKind   `yaml:"shape"`
	Center common.Vec3 `yaml:"center"`
	Size   common.Vec3 `yaml:"size"`

	Carving                 bool    `yaml:"carving"`
	CarvingMoveThreshold    float64 `yaml:"carving_move_threshold"`
	CarvingTimeToStationary float64 `yaml:"carving_time_to_stationary"`
	CarveOnlyStationary     bool    `yaml:"carve_only_stationary"`

	Velocity common.Vec3 `yaml:"velocity"`
}

func DefaultObstacle() Obstacle {
	return Obstacle{
		Shape:                   ShapeBox,
		Size:                    common.One3,
		CarvingMoveThreshold:    0.1,
		CarvingTimeToStationary: 0.5,
		CarveOnlyStationary:     true,
	}
}

// Radius is half the horizontal size.
func (o Obstacle) Radius() float64 {
	return o.Size.X / 2
}

// Height is the vertical size.
func (o Obstacle) Height() float64 {
	return o.Size.Y
}

var ObstacleComponent = NewComponent[Obstacle]("obstacle")
