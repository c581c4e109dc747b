// Package navmesh provides the navigation service the hidden layer queries:
// position sampling, path computation, raycasts and obstacle carving.
package navmesh

import (
	"errors"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

var ErrNoSurfaces = errors.New("navmesh: no surfaces to bake")

// Service is the navigation backend used by hidden agents and obstacles.
type Service interface {
	SamplePosition(p common.Vec3, maxDistance float64, filter QueryFilter) (Hit, bool)
	CalculatePath(from, to common.Vec3, filter QueryFilter) (*Path, bool)
	Raycast(from, to common.Vec3, filter QueryFilter) (Hit, bool)

	AddObstacle(desc ObstacleDesc) ObstacleHandle
	UpdateObstacle(h ObstacleHandle, desc ObstacleDesc) bool
	RemoveObstacle(h ObstacleHandle) bool
	UpdateCarving(dt float64) bool

	AgentTypeSettings(id int) (AgentTypeSettings, bool)
	Bake(surfaces []SurfaceDesc) error
	Version() uint32
}

// QueryFilter restricts queries to an agent type and a set of areas.
type QueryFilter struct {
	AgentTypeID int
	AreaMask    uint32
}

func DefaultFilter() QueryFilter {
	return QueryFilter{AreaMask: component.AllAreas}
}

func (f QueryFilter) allows(area int) bool {
	if area < 0 || area > 31 {
		return false
	}
	return f.AreaMask&(1<<uint(area)) != 0
}

// Hit is the result of a sample or raycast.
type Hit struct {
	Position common.Vec3
	Distance float64
	Area     int
}

type PathStatus uint8

const (
	PathComplete PathStatus = iota
	PathPartial
	PathInvalid
)

func (s PathStatus) String() string {
	switch s {
	case PathComplete:
		return "complete"
	case PathPartial:
		return "partial"
	default:
		return "invalid"
	}
}

// Path is a polyline of corners starting at the query origin. A partial path
// ends at the reachable point closest to the requested target.
type Path struct {
	Corners []common.Vec3
	Status  PathStatus
}

func (p *Path) Length() float64 {
	if p == nil {
		return 0
	}
	total := 0.0
	for i := 1; i < len(p.Corners); i++ {
		total += p.Corners[i-1].Dist(p.Corners[i])
	}
	return total
}

func (p *Path) LastCorner() (common.Vec3, bool) {
	if p == nil || len(p.Corners) == 0 {
		return common.Vec3{}, false
	}
	return p.Corners[len(p.Corners)-1], true
}

// ObstacleHandle identifies an obstacle registered with a Service. Zero is
// never a valid handle.
type ObstacleHandle uint32

// ObstacleDesc describes an obstacle footprint in hidden world space. Size is
// the full box extent; capsules use Size.X as diameter and Size.Y as height.
type ObstacleDesc struct {
	Shape    component.ShapeKind
	Position common.Vec3
	Rotation float64
	Size     common.Vec3

	Carve               bool
	MoveThreshold       float64
	TimeToStationary    float64
	CarveOnlyStationary bool
}

// SurfaceDesc is an axis aligned walkable rectangle.
type SurfaceDesc struct {
	Center common.Vec3
	SizeX  float64
	SizeZ  float64
	Area   int
}

// AgentTypeSettings are the bake parameters of one agent type.
type AgentTypeSettings struct {
	ID         int     `yaml:"id"`
	Name       string  `yaml:"name"`
	Radius     float64 `yaml:"radius"`
	Height     float64 `yaml:"height"`
	StepHeight float64 `yaml:"step_height"`
}
