package customnav

import (
	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

// Events are the change notifications of one visible actor. Observers run
// synchronously in connection order.
type Events struct {
	// OnChange fires after any configuration setter.
	OnChange ecs.Signal
	// OnMeshChange fires when the collision geometry must be regenerated.
	OnMeshChange ecs.Signal
	// OnAgentPositionChange fires when height or base offset moves the
	// hidden agent's center.
	OnAgentPositionChange ecs.Signal
	// OnCenterChange fires when an obstacle's center moves.
	OnCenterChange ecs.Signal

	OnParentChange   ecs.Signal
	OnPositionChange ecs.Signal
	OnRotationChange ecs.Signal
	OnScaleChange    ecs.Signal
}

// Parent links an entity to its scene parent.
type Parent struct {
	Entity ecs.Entity
}

// TransformWatch is the last transform observed for a visible actor.
type TransformWatch struct {
	Position common.Vec3
	Rotation float64
	Scale    common.Vec3
	Parent   ecs.Entity
}

// Role is the navigation role of a hidden agent.
type Role uint8

const (
	RoleFollowing Role = iota
	RoleObstacle
)

func (r Role) String() string {
	if r == RoleObstacle {
		return "obstacle"
	}
	return "following"
}

// HiddenAgent is the runtime state of a shadow agent.
type HiddenAgent struct {
	Visible ecs.Entity

	// Params mirrors the visible agent's configuration. BaseOffset is kept
	// at half the height so the collider stays centered.
	Params component.Agent

	Role   Role
	Policy BlockPolicyState

	LastPosition common.Vec3

	Destination    common.Vec3
	HasDestination bool

	Path        *navmesh.Path
	Corner      int
	PathVersion uint32

	Velocity common.Vec3
	Obstacle navmesh.ObstacleHandle

	subs []binding
}

// HiddenObstacle is the runtime state of a shadow obstacle.
type HiddenObstacle struct {
	Visible ecs.Entity
	Handle  navmesh.ObstacleHandle
	Active  bool

	subs []binding
}

// HiddenSurface is the runtime state of a shadow surface.
type HiddenSurface struct {
	Visible ecs.Entity
	Desc    navmesh.SurfaceDesc
	Active  bool

	subs []binding
}

// Link stores the hidden counterpart of a visible obstacle or surface.
// Agents resolve theirs through the Registry.
type Link struct {
	Hidden ecs.Entity
}

type binding struct {
	signal *ecs.Signal
	id     ecs.Subscription
}

var (
	EventsComponent         = component.NewComponent[Events]("events")
	ParentComponent         = component.NewComponent[Parent]("parent")
	TransformWatchComponent = component.NewComponent[TransformWatch]("transform_watch")
	HiddenAgentComponent    = component.NewComponent[HiddenAgent]("hidden_agent")
	HiddenObstacleComponent = component.NewComponent[HiddenObstacle]("hidden_obstacle")
	HiddenSurfaceComponent  = component.NewComponent[HiddenSurface]("hidden_surface")
	LinkComponent           = component.NewComponent[Link]("link")
)

func connect(subs *[]binding, s *ecs.Signal, fn func()) {
	*subs = append(*subs, binding{signal: s, id: s.Connect(fn)})
}

func disconnectAll(subs *[]binding) {
	for _, b := range *subs {
		b.signal.Disconnect(b.id)
	}
	*subs = nil
}
