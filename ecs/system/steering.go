package system

import (
	"math"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

const (
	// cornerReach is how close a shadow must get to a path corner before it
	// heads for the next one.
	cornerReach = 0.05
	// separationRange scales the combined radii inside which agents push
	// each other apart.
	separationRange = 1.5
)

// SteeringSystem turns each following shadow's path into a velocity. It
// repaths when the mesh changed, brakes towards the destination and keeps
// agents apart according to their avoidance priority.
type SteeringSystem struct {
	ctx *customnav.Context
}

func NewSteeringSystem(ctx *customnav.Context) *SteeringSystem {
	return &SteeringSystem{ctx: ctx}
}

type steeringAgent struct {
	e   ecs.Entity
	ha  *customnav.HiddenAgent
	pos common.Vec3
}

func (s *SteeringSystem) Update(w *ecs.World) {
	if s == nil || s.ctx == nil || s.ctx.Nav == nil || w == nil {
		return
	}
	dt := w.DeltaTime()
	if dt <= 0 {
		return
	}

	agents := make([]steeringAgent, 0, 16)
	ecs.ForEach(w, customnav.HiddenAgentComponent, func(e ecs.Entity, ha *customnav.HiddenAgent) {
		pos, _ := customnav.SurfacePosition(s.ctx, e)
		agents = append(agents, steeringAgent{e: e, ha: ha, pos: pos})
	})

	for i := range agents {
		a := &agents[i]
		if a.ha.Role != customnav.RoleFollowing {
			a.ha.Velocity = common.Vec3{}
			continue
		}
		desired := s.desiredVelocity(a)
		if a.ha.Params.ObstacleAvoidance != component.AvoidanceNone {
			desired = desired.Add(separation(a, agents))
		}
		desired = desired.Flat().ClampLen(a.ha.Params.Speed)

		change := desired.Sub(a.ha.Velocity).ClampLen(a.ha.Params.Acceleration * dt)
		a.ha.Velocity = a.ha.Velocity.Add(change)
	}
}

// desiredVelocity is the velocity a shadow wants along its path before
// separation is applied.
func (s *SteeringSystem) desiredVelocity(a *steeringAgent) common.Vec3 {
	ha := a.ha
	if !ha.HasDestination {
		return common.Vec3{}
	}
	if ha.Path == nil || (ha.Params.AutoRepath && ha.PathVersion != s.ctx.Nav.Version()) {
		customnav.Repath(s.ctx, a.e)
		// Repathing moves the first corner to the current position.
		a.pos, _ = customnav.SurfacePosition(s.ctx, a.e)
	}
	if ha.Path == nil {
		return common.Vec3{}
	}

	corners := ha.Path.Corners
	for ha.Corner < len(corners)-1 && a.pos.FlatDist(corners[ha.Corner]) <= cornerReach {
		ha.Corner++
	}
	if ha.Corner >= len(corners) {
		return common.Vec3{}
	}

	remaining := customnav.RemainingDistance(s.ctx, a.e)
	stop := ha.Params.StoppingDistance
	if ha.Corner == len(corners)-1 && remaining <= math.Max(stop, cornerReach) {
		return common.Vec3{}
	}

	speed := ha.Params.Speed
	if ha.Params.AutoBraking && ha.Params.Acceleration > 0 {
		// Fastest speed that still stops at the stopping distance.
		braking := math.Sqrt(2 * ha.Params.Acceleration * math.Max(remaining-stop, 0))
		speed = math.Min(speed, braking)
	}
	dir := corners[ha.Corner].Sub(a.pos).Flat().Normalize()
	return dir.Scale(speed)
}

// separation pushes a shadow away from the agents it overlaps. Agents
// yield more to neighbours with a lower or equal priority value.
func separation(a *steeringAgent, agents []steeringAgent) common.Vec3 {
	var push common.Vec3
	for i := range agents {
		o := &agents[i]
		if o.e == a.e {
			continue
		}
		reach := (a.ha.Params.Radius + o.ha.Params.Radius) * separationRange
		if math.Abs(o.pos.Y-a.pos.Y) > math.Max(a.ha.Params.Height, o.ha.Params.Height) {
			continue
		}
		d := a.pos.FlatDist(o.pos)
		if d >= reach || d <= common.Epsilon {
			continue
		}
		weight := 0.25
		if o.ha.Params.AvoidancePriority <= a.ha.Params.AvoidancePriority {
			weight = 1
		}
		away := a.pos.Sub(o.pos).Flat().Normalize()
		push = push.Add(away.Scale(weight * (reach - d) / reach * a.ha.Params.Speed))
	}
	return push
}
