package customnav

import (
	"math"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

const (
	// Sampling radii used when a blocking agent looks for a way out, as
	// multiples of its radius added to the agent type's bake radius.
	posSamplingModifier  = 2.0
	destSamplingModifier = 6.0

	hiddenPrefix = "(Hidden) "
)

func tryCreatingHiddenAgent(ctx *Context, v ecs.Entity) {
	if _, ok := ctx.Registry.TryResolveShadow(v); ok {
		return
	}
	h := newHidden(ctx, v)
	_ = ecs.Add(ctx.World, h, HiddenAgentComponent, &HiddenAgent{Visible: v})

	ctx.Registry.Register(v, h)
	linkHiddenAgent(ctx, h)
	ctx.debugf("created hidden agent %v for %v", h, v)
}

// linkHiddenAgent brings a freshly created or restored shadow in line with
// its visible agent and subscribes it to every change event.
func linkHiddenAgent(ctx *Context, h ecs.Entity) {
	ha, ok := ecs.Get(ctx.World, h, HiddenAgentComponent)
	if !ok {
		return
	}
	updateAgent(ctx, h)
	updateMesh(ctx, h)
	updateVisibility(ctx, h)
	updateParent(ctx, h)
	updatePosition(ctx, h)
	updateRotation(ctx, h)
	updateScale(ctx, h)

	if t, ok := ecs.Get(ctx.World, h, component.TransformComponent); ok {
		ha.LastPosition = t.Position
	}
	subscribeHiddenAgent(ctx, h, ha)
}

func tryDestroyingHiddenAgent(ctx *Context, v ecs.Entity) {
	h, ok := ctx.Registry.TryResolveShadow(v)
	if !ok {
		return
	}
	if ha, ok := ecs.Get(ctx.World, h, HiddenAgentComponent); ok {
		disconnectAll(&ha.subs)
		if ha.Obstacle != 0 && ctx.Nav != nil {
			ctx.Nav.RemoveObstacle(ha.Obstacle)
		}
	}
	ctx.Registry.Unregister(v, h)
	ctx.World.DestroyEntity(h)
	ctx.debugf("destroyed hidden agent %v of %v", h, v)
}

func subscribeHiddenAgent(ctx *Context, h ecs.Entity, ha *HiddenAgent) {
	if len(ha.subs) > 0 {
		return
	}
	if ev, ok := ecs.Get(ctx.World, ha.Visible, EventsComponent); ok {
		connect(&ha.subs, &ev.OnChange, func() { updateAgent(ctx, h) })
		connect(&ha.subs, &ev.OnMeshChange, func() { updateMesh(ctx, h) })
		connect(&ha.subs, &ev.OnAgentPositionChange, func() { updatePosition(ctx, h) })
		connect(&ha.subs, &ev.OnParentChange, func() { updateParent(ctx, h) })
		connect(&ha.subs, &ev.OnPositionChange, func() { updatePosition(ctx, h) })
		connect(&ha.subs, &ev.OnRotationChange, func() { updateRotation(ctx, h) })
		connect(&ha.subs, &ev.OnScaleChange, func() { updateScale(ctx, h) })
	}
	connect(&ha.subs, &ctx.OnRenderHiddenUpdate, func() { updateVisibility(ctx, h) })
	connect(&ha.subs, &ctx.OnHiddenTranslationUpdate, func() { translateHiddenAgent(ctx, h) })
}

// pair returns the shadow state together with its visible agent's data.
func pair(ctx *Context, h ecs.Entity) (*HiddenAgent, *component.Transform, *component.Agent, *component.Transform, bool) {
	w := ctx.World
	ha, ok := ecs.Get(w, h, HiddenAgentComponent)
	if !ok {
		return nil, nil, nil, nil, false
	}
	ht, ok := ecs.Get(w, h, component.TransformComponent)
	if !ok {
		return nil, nil, nil, nil, false
	}
	cfg, ok := ecs.Get(w, ha.Visible, component.AgentComponent)
	if !ok {
		return nil, nil, nil, nil, false
	}
	vt, ok := ecs.Get(w, ha.Visible, component.TransformComponent)
	if !ok {
		return nil, nil, nil, nil, false
	}
	return ha, ht, cfg, vt, true
}

func updateAgent(ctx *Context, h ecs.Entity) {
	ha, _, cfg, _, ok := pair(ctx, h)
	if !ok {
		return
	}
	ha.Params = *cfg
	ha.Params.BaseOffset = cfg.Height / 2
	syncObstacle(ctx, h)
}

func updateMesh(ctx *Context, h ecs.Entity) {
	ha, _, cfg, vt, ok := pair(ctx, h)
	if !ok {
		return
	}
	col, ok := ecs.Get(ctx.World, h, component.ColliderComponent)
	if !ok {
		return
	}
	*col = colliderFor(cfg.Radius, cfg.Height, vt.Scale, ha.Role)
	syncObstacle(ctx, h)
}

// colliderFor picks the collision primitive for an agent. The footprint is
// a box when the scaled half height is below the scaled radius and a
// capsule otherwise.
func colliderFor(radius, height float64, scale common.Vec3, role Role) component.Collider {
	realHeight := height * math.Abs(scale.Y)
	realRadius := radius * math.Max(math.Abs(scale.X), math.Abs(scale.Z))

	col := component.Collider{
		Shape:  component.ShapeCapsule,
		Radius: radius,
		Height: height,
		Size:   common.V3(radius*2, height, radius*2),
	}
	if realHeight/2 < realRadius {
		col.Shape = component.ShapeBox
	}

	switch {
	case role == RoleFollowing:
		col.Mesh = component.ShapeCylinder
		col.MeshScale = common.V3(radius*2, height/2, radius*2)
	case col.Shape == component.ShapeBox:
		col.Mesh = component.ShapeBox
		col.MeshScale = common.V3(radius*2, height, radius*2)
	default:
		col.Mesh = component.ShapeCapsule
		col.MeshScale = common.V3(radius*2, height/2, radius*2)
	}
	return col
}

func updateVisibility(ctx *Context, h ecs.Entity) {
	if vis, ok := ecs.Get(ctx.World, h, component.VisibilityComponent); ok {
		vis.Visible = ctx.RenderHidden()
	}
}

func updateParent(ctx *Context, h ecs.Entity) {
	ha, ok := ecs.Get(ctx.World, h, HiddenAgentComponent)
	if !ok {
		return
	}
	parent := ParentOf(ctx.World, ha.Visible)
	if !parent.Valid() {
		ecs.Remove(ctx.World, h, ParentComponent)
		return
	}
	_ = ecs.Add(ctx.World, h, ParentComponent, &Parent{Entity: parent})
}

// hiddenAgentPosition places the shadow's center at half its height above
// the point where the visible agent touches the ground.
func hiddenAgentPosition(visible common.Vec3, translation common.Vec3, cfg *component.Agent, scale common.Vec3) common.Vec3 {
	p := visible.Add(translation)
	p.Y += (cfg.Height/2*common.Sign(scale.Y) - cfg.BaseOffset) * scale.Y
	return p
}

func updatePosition(ctx *Context, h ecs.Entity) {
	_, ht, cfg, vt, ok := pair(ctx, h)
	if !ok {
		return
	}
	ht.Position = hiddenAgentPosition(vt.Position, ctx.HiddenTranslation(), cfg, vt.Scale)
	syncObstacle(ctx, h)
}

func updateRotation(ctx *Context, h ecs.Entity) {
	_, ht, _, vt, ok := pair(ctx, h)
	if !ok {
		return
	}
	ht.Rotation = vt.Rotation
	syncObstacle(ctx, h)
}

func updateScale(ctx *Context, h ecs.Entity) {
	_, ht, _, vt, ok := pair(ctx, h)
	if !ok {
		return
	}
	updatePosition(ctx, h)

	radiusScale := math.Max(math.Abs(vt.Scale.X), math.Abs(vt.Scale.Z))
	scale := common.V3(radiusScale, vt.Scale.Y, radiusScale)
	if ht.Scale != scale {
		ht.Scale = scale
		updateMesh(ctx, h)
	}
}

// translateHiddenAgent moves the shadow with the hidden layer. Path,
// destination and last position move along so the shift does not read as
// movement.
func translateHiddenAgent(ctx *Context, h ecs.Entity) {
	ha, ht, _, _, ok := pair(ctx, h)
	if !ok {
		return
	}
	before := ht.Position
	updatePosition(ctx, h)
	delta := ht.Position.Sub(before)

	ha.LastPosition = ha.LastPosition.Add(delta)
	if ha.HasDestination {
		ha.Destination = ha.Destination.Add(delta)
	}
	if ha.Path != nil {
		corners := make([]common.Vec3, len(ha.Path.Corners))
		for i, c := range ha.Path.Corners {
			corners[i] = c.Add(delta)
		}
		ha.Path = &navmesh.Path{Corners: corners, Status: ha.Path.Status}
	}
}

// obstacleDesc describes the shadow's footprint while it carves.
func obstacleDesc(ha *HiddenAgent, ht *component.Transform, col *component.Collider) navmesh.ObstacleDesc {
	return navmesh.ObstacleDesc{
		Shape:               col.Shape,
		Position:            ht.Position,
		Rotation:            ht.Rotation,
		Size:                col.Size.Mul(ht.Scale.Abs()),
		Carve:               true,
		MoveThreshold:       ha.Params.CarvingMoveThreshold,
		TimeToStationary:    ha.Params.CarvingTimeToStationary,
		CarveOnlyStationary: ha.Params.CarveOnlyStationary,
	}
}

func syncObstacle(ctx *Context, h ecs.Entity) {
	ha, ok := ecs.Get(ctx.World, h, HiddenAgentComponent)
	if !ok || ha.Obstacle == 0 || ctx.Nav == nil {
		return
	}
	ht, ok := ecs.Get(ctx.World, h, component.TransformComponent)
	if !ok {
		return
	}
	col, ok := ecs.Get(ctx.World, h, component.ColliderComponent)
	if !ok {
		return
	}
	ctx.Nav.UpdateObstacle(ha.Obstacle, obstacleDesc(ha, ht, col))
}

// SetRole switches a shadow between path following and a carving obstacle.
func SetRole(ctx *Context, h ecs.Entity, role Role) {
	w := ctx.World
	ha, ok := ecs.Get(w, h, HiddenAgentComponent)
	if !ok {
		return
	}
	ha.Role = role
	switch role {
	case RoleObstacle:
		ha.Velocity = common.Vec3{}
		ha.Path = nil
		ha.Corner = 0
		if ha.Obstacle == 0 && ctx.Nav != nil {
			ht, okT := ecs.Get(w, h, component.TransformComponent)
			col, okC := ecs.Get(w, h, component.ColliderComponent)
			if okT && okC {
				ha.Obstacle = ctx.Nav.AddObstacle(obstacleDesc(ha, ht, col))
			}
		}
	default:
		if ha.Obstacle != 0 && ctx.Nav != nil {
			ctx.Nav.RemoveObstacle(ha.Obstacle)
		}
		ha.Obstacle = 0
	}
	updateMesh(ctx, h)
}

func switchToAgent(ctx *Context, h ecs.Entity, ha *HiddenAgent) {
	SetRole(ctx, h, RoleFollowing)
	ha.Policy.Reset(ModeFollowing)
}

func switchToObstacle(ctx *Context, h ecs.Entity, ha *HiddenAgent) {
	SetRole(ctx, h, RoleObstacle)
	ha.Policy.Reset(ModeBlocking)
}

// surfacePosition is the point below the shadow's center where it touches
// the hidden mesh.
func surfacePosition(ctx *Context, h ecs.Entity, ha *HiddenAgent) common.Vec3 {
	ht, ok := ecs.Get(ctx.World, h, component.TransformComponent)
	if !ok {
		return common.Vec3{}
	}
	p := ht.Position
	p.Y -= ha.Params.Height / 2 * ht.Scale.Y
	return p
}

// SurfacePosition is the exported form of surfacePosition for systems.
func SurfacePosition(ctx *Context, h ecs.Entity) (common.Vec3, bool) {
	ha, ok := ecs.Get(ctx.World, h, HiddenAgentComponent)
	if !ok {
		return common.Vec3{}, false
	}
	return surfacePosition(ctx, h, ha), true
}

func setDestination(ctx *Context, h ecs.Entity, ha *HiddenAgent, target common.Vec3) bool {
	switchToAgent(ctx, h, ha)
	ha.Destination = target
	ha.HasDestination = true
	return repath(ctx, h, ha)
}

// repath computes a new path to the stored destination from the shadow's
// current surface position.
func repath(ctx *Context, h ecs.Entity, ha *HiddenAgent) bool {
	if ctx.Nav == nil || !ha.HasDestination {
		return false
	}
	ha.PathVersion = ctx.Nav.Version()
	path, ok := ctx.Nav.CalculatePath(surfacePosition(ctx, h, ha), ha.Destination, ctx.filter(ha))
	if !ok {
		ha.Path = nil
		ha.Corner = 0
		return false
	}
	ha.Path = path
	ha.Corner = 1
	return true
}

// Repath recomputes the shadow's path when it follows a destination.
func Repath(ctx *Context, h ecs.Entity) bool {
	ha, ok := ecs.Get(ctx.World, h, HiddenAgentComponent)
	if !ok || ha.Role != RoleFollowing {
		return false
	}
	return repath(ctx, h, ha)
}

// RemainingDistance is the path length left from the shadow's surface
// position, or zero without a path.
func RemainingDistance(ctx *Context, h ecs.Entity) float64 {
	ha, ok := ecs.Get(ctx.World, h, HiddenAgentComponent)
	if !ok {
		return 0
	}
	return remainingDistance(surfacePosition(ctx, h, ha), ha)
}

func remainingDistance(from common.Vec3, ha *HiddenAgent) float64 {
	if ha.Path == nil || ha.Corner >= len(ha.Path.Corners) {
		return 0
	}
	total := from.FlatDist(ha.Path.Corners[ha.Corner])
	for i := ha.Corner + 1; i < len(ha.Path.Corners); i++ {
		total += ha.Path.Corners[i-1].Dist(ha.Path.Corners[i])
	}
	return total
}

// tryUnblock looks for a path from around the blocking shadow to its
// destination that ends closer to the destination by at least the
// configured distance reduction.
func tryUnblock(ctx *Context, h ecs.Entity, ha *HiddenAgent) (*navmesh.Path, bool) {
	if !ha.HasDestination || ctx.Nav == nil {
		return nil, false
	}
	filter := ctx.filter(ha)
	surfaceRadius := ctx.surfaceAgentRadius(ha.Params.AgentTypeID)
	agentSurfacePos := surfacePosition(ctx, h, ha)

	hit, ok := ctx.Nav.SamplePosition(agentSurfacePos, surfaceRadius+ha.Params.Radius*posSamplingModifier, filter)
	if !ok {
		return nil, false
	}
	destHit, ok := ctx.Nav.SamplePosition(ha.Destination, surfaceRadius+ha.Params.Radius*destSamplingModifier, filter)
	if !ok {
		return nil, false
	}
	path, ok := ctx.Nav.CalculatePath(hit.Position, destHit.Position, filter)
	if !ok {
		return nil, false
	}
	last, ok := path.LastCorner()
	if !ok {
		return nil, false
	}
	reduction := agentSurfacePos.Dist(ha.Destination) - last.Dist(ha.Destination)
	if reduction < ha.Params.Block.DistanceReductionThreshold-common.Epsilon {
		return nil, false
	}
	return path, true
}

// StepBlockPolicy measures the shadow's displacement speed since the last
// tick, advances its block policy and applies the resulting transition.
func StepBlockPolicy(ctx *Context, h ecs.Entity, dt float64) Transition {
	ha, ht, _, _, ok := pair(ctx, h)
	if !ok || dt <= minPolicyStep {
		return TransitionNone
	}
	speed := ht.Position.Dist(ha.LastPosition) / dt
	ha.LastPosition = ht.Position

	var resumed *navmesh.Path
	tr := ha.Policy.Step(ha.Params.Block, dt, speed, func() bool {
		p, ok := tryUnblock(ctx, h, ha)
		resumed = p
		return ok
	})

	switch tr {
	case TransitionBlock:
		switchToObstacle(ctx, h, ha)
	case TransitionUnblockSpeed:
		switchToAgent(ctx, h, ha)
		if ha.HasDestination {
			repath(ctx, h, ha)
		}
	case TransitionUnblockRefresh:
		switchToAgent(ctx, h, ha)
		ha.Path = resumed
		ha.Corner = 0
		ha.PathVersion = ctx.Nav.Version()
	}
	if tr != TransitionNone {
		ctx.debugf("%v %s at speed %.3f", ha.Visible, tr, speed)
	}
	return tr
}
