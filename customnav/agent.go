package customnav

import (
	"math"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

const (
	minAgentExtent       = 1e-3
	maxAvoidancePriority = 99
)

// Agent is a handle to a visible navigation agent. The zero value is not
// usable; obtain one from NewAgent or AgentOf.
type Agent struct {
	ctx *Context
	e   ecs.Entity
}

// NewAgent creates a visible agent and, unless it starts disabled, its
// hidden counterpart.
func NewAgent(ctx *Context, name string, t component.Transform, cfg component.Agent) (Agent, error) {
	e, err := newVisible(ctx, name, t)
	if err != nil {
		return Agent{}, err
	}
	cfg = sanitizeAgent(cfg)
	if err := ecs.Add(ctx.World, e, component.AgentComponent, &cfg); err != nil {
		return Agent{}, err
	}
	a := Agent{ctx: ctx, e: e}
	a.Enable()
	return a, nil
}

// AgentOf wraps an existing visible agent entity.
func AgentOf(ctx *Context, e ecs.Entity) (Agent, error) {
	if !ecs.Has(ctx.World, e, component.AgentComponent) {
		return Agent{}, ErrNotAgent
	}
	return Agent{ctx: ctx, e: e}, nil
}

func (a Agent) Entity() ecs.Entity {
	return a.e
}

func (a Agent) Valid() bool {
	return a.ctx != nil && ecs.Has(a.ctx.World, a.e, component.AgentComponent)
}

func (a Agent) Name() string {
	if n, ok := ecs.Get(a.ctx.World, a.e, component.NameComponent); ok {
		return n.Value
	}
	return ""
}

// Config returns a copy of the agent's configuration.
func (a Agent) Config() component.Agent {
	if cfg := a.config(); cfg != nil {
		return *cfg
	}
	return component.Agent{}
}

func (a Agent) config() *component.Agent {
	cfg, _ := ecs.Get(a.ctx.World, a.e, component.AgentComponent)
	return cfg
}

func (a Agent) Events() *Events {
	ev, _ := ecs.Get(a.ctx.World, a.e, EventsComponent)
	return ev
}

func (a Agent) Transform() component.Transform {
	if t, ok := ecs.Get(a.ctx.World, a.e, component.TransformComponent); ok {
		return *t
	}
	return component.Transform{}
}

// Hidden resolves the agent's shadow entity.
func (a Agent) Hidden() (ecs.Entity, bool) {
	return a.ctx.Registry.TryResolveShadow(a.e)
}

func (a Agent) hidden() (ecs.Entity, *HiddenAgent) {
	h, ok := a.Hidden()
	if !ok {
		return 0, nil
	}
	ha, ok := ecs.Get(a.ctx.World, h, HiddenAgentComponent)
	if !ok {
		return 0, nil
	}
	return h, ha
}

func (a Agent) Enabled() bool {
	return a.Valid() && !ecs.Has(a.ctx.World, a.e, component.DisabledComponent)
}

// Enable creates the hidden agent if it does not exist yet.
func (a Agent) Enable() {
	if !a.Valid() {
		return
	}
	ecs.Remove(a.ctx.World, a.e, component.DisabledComponent)
	tryCreatingHiddenAgent(a.ctx, a.e)
}

// Disable destroys the hidden agent. The visible agent keeps its
// configuration and can be enabled again.
func (a Agent) Disable() {
	if !a.Valid() {
		return
	}
	_ = ecs.Add(a.ctx.World, a.e, component.DisabledComponent, &component.Disabled{})
	tryDestroyingHiddenAgent(a.ctx, a.e)
}

// Destroy removes the visible agent and its shadow.
func (a Agent) Destroy() {
	if !a.Valid() {
		return
	}
	tryDestroyingHiddenAgent(a.ctx, a.e)
	a.ctx.World.DestroyEntity(a.e)
}

// Mode is the block policy mode of the shadow. Agents without a shadow
// report ModeFollowing.
func (a Agent) Mode() Mode {
	if _, ha := a.hidden(); ha != nil {
		return ha.Policy.Mode
	}
	return ModeFollowing
}

func (a Agent) Role() Role {
	if _, ha := a.hidden(); ha != nil {
		return ha.Role
	}
	return RoleFollowing
}

// Velocity is the shadow's velocity clamped to the agent speed. It is zero
// while blocking or when the agent has no shadow.
func (a Agent) Velocity() common.Vec3 {
	_, ha := a.hidden()
	if ha == nil || ha.Role != RoleFollowing {
		return common.Vec3{}
	}
	return ha.Velocity.ClampLen(ha.Params.Speed)
}

// SetDestination requests a path to target, given in visible space.
func (a Agent) SetDestination(target common.Vec3) bool {
	h, ha := a.hidden()
	if ha == nil {
		return false
	}
	return setDestination(a.ctx, h, ha, target.Add(a.ctx.HiddenTranslation()))
}

// Destination returns the requested destination in visible space.
func (a Agent) Destination() (common.Vec3, bool) {
	_, ha := a.hidden()
	if ha == nil || !ha.HasDestination {
		return common.Vec3{}, false
	}
	return ha.Destination.Sub(a.ctx.HiddenTranslation()), true
}

// ResetPath clears the path and the destination.
func (a Agent) ResetPath() {
	if _, ha := a.hidden(); ha != nil {
		ha.HasDestination = false
		ha.Path = nil
		ha.Corner = 0
		ha.Velocity = common.Vec3{}
	}
}

func (a Agent) HasPath() bool {
	_, ha := a.hidden()
	return ha != nil && ha.Path != nil && ha.Corner < len(ha.Path.Corners)
}

func (a Agent) PathStatus() navmesh.PathStatus {
	_, ha := a.hidden()
	if ha == nil || ha.Path == nil {
		return navmesh.PathInvalid
	}
	return ha.Path.Status
}

// RemainingDistance is the length of the rest of the current path, or
// +Inf when there is none.
func (a Agent) RemainingDistance() float64 {
	h, ha := a.hidden()
	if ha == nil || ha.Path == nil {
		return math.Inf(1)
	}
	return remainingDistance(surfacePosition(a.ctx, h, ha), ha)
}

// Warp moves the agent to the closest mesh point around p without counting
// the jump as movement.
func (a Agent) Warp(p common.Vec3) bool {
	h, ha := a.hidden()
	if ha == nil {
		return false
	}
	cfg := a.Config()
	t := a.ctx.HiddenTranslation()
	reach := a.ctx.surfaceAgentRadius(cfg.AgentTypeID) + cfg.Radius*2 + cfg.Height
	hit, ok := a.ctx.Nav.SamplePosition(p.Add(t), reach, a.ctx.filter(ha))
	if !ok {
		return false
	}
	a.placeOnMesh(hit.Position)
	if ht, ok := ecs.Get(a.ctx.World, h, component.TransformComponent); ok {
		ha.LastPosition = ht.Position
	}
	if ha.HasDestination && ha.Role == RoleFollowing {
		repath(a.ctx, h, ha)
	}
	return true
}

// Move applies a relative movement, constrained to the mesh.
func (a Agent) Move(offset common.Vec3) {
	h, ha := a.hidden()
	if ha == nil {
		return
	}
	from := surfacePosition(a.ctx, h, ha)
	to := from.Add(offset.Flat())
	hit, blocked := a.ctx.Nav.Raycast(from, to, a.ctx.filter(ha))
	switch {
	case !blocked:
		to.Y = hit.Position.Y
	case hit.Distance > 0:
		to = hit.Position
	default:
		// Starting inside a carve, usually the agent's own while blocking.
		to.Y = from.Y
	}
	a.placeOnMesh(to)
}

// placeOnMesh puts the visible agent so that its shadow stands on the
// hidden mesh point p.
func (a Agent) placeOnMesh(p common.Vec3) {
	t, ok := ecs.Get(a.ctx.World, a.e, component.TransformComponent)
	if !ok {
		return
	}
	cfg := a.Config()
	pos := p.Sub(a.ctx.HiddenTranslation())
	pos.Y += cfg.BaseOffset * t.Scale.Y
	t.Position = pos
	SyncTransform(a.ctx, a.e)
}

func (a Agent) SetPosition(p common.Vec3) {
	if t, ok := ecs.Get(a.ctx.World, a.e, component.TransformComponent); ok {
		t.Position = p
		SyncTransform(a.ctx, a.e)
	}
}

func (a Agent) SetRotation(deg float64) {
	if t, ok := ecs.Get(a.ctx.World, a.e, component.TransformComponent); ok {
		t.Rotation = deg
		SyncTransform(a.ctx, a.e)
	}
}

func (a Agent) SetScale(s common.Vec3) {
	if t, ok := ecs.Get(a.ctx.World, a.e, component.TransformComponent); ok {
		t.Scale = s
		SyncTransform(a.ctx, a.e)
	}
}

// Configure replaces the whole configuration.
func (a Agent) Configure(cfg component.Agent) {
	a.set(true, true, func(c *component.Agent) { *c = sanitizeAgent(cfg) })
}

// set applies fn and emits OnChange, then OnMeshChange and
// OnAgentPositionChange when requested.
func (a Agent) set(mesh, position bool, fn func(*component.Agent)) {
	cfg := a.config()
	if cfg == nil {
		return
	}
	fn(cfg)
	ev := a.Events()
	if ev == nil {
		return
	}
	ev.OnChange.Emit()
	if mesh {
		ev.OnMeshChange.Emit()
	}
	if position {
		ev.OnAgentPositionChange.Emit()
	}
}

func (a Agent) SetAgentTypeID(id int) {
	a.set(false, false, func(c *component.Agent) { c.AgentTypeID = id })
}

func (a Agent) SetRadius(r float64) {
	a.set(true, false, func(c *component.Agent) { c.Radius = math.Max(r, minAgentExtent) })
}

func (a Agent) SetHeight(h float64) {
	a.set(true, true, func(c *component.Agent) { c.Height = math.Max(h, minAgentExtent) })
}

func (a Agent) SetBaseOffset(o float64) {
	a.set(false, true, func(c *component.Agent) { c.BaseOffset = o })
}

func (a Agent) SetAreaMask(mask uint32) {
	a.set(false, false, func(c *component.Agent) { c.AreaMask = mask })
}

func (a Agent) SetSpeed(v float64) {
	a.set(false, false, func(c *component.Agent) { c.Speed = common.NonNegative(v) })
}

func (a Agent) SetAcceleration(v float64) {
	a.set(false, false, func(c *component.Agent) { c.Acceleration = common.NonNegative(v) })
}

func (a Agent) SetAngularSpeed(v float64) {
	a.set(false, false, func(c *component.Agent) { c.AngularSpeed = common.NonNegative(v) })
}

func (a Agent) SetStoppingDistance(v float64) {
	a.set(false, false, func(c *component.Agent) { c.StoppingDistance = common.NonNegative(v) })
}

func (a Agent) SetAutoTraverseOffMeshLink(v bool) {
	a.set(false, false, func(c *component.Agent) { c.AutoTraverseOffMeshLink = v })
}

func (a Agent) SetAutoBraking(v bool) {
	a.set(false, false, func(c *component.Agent) { c.AutoBraking = v })
}

func (a Agent) SetAutoRepath(v bool) {
	a.set(false, false, func(c *component.Agent) { c.AutoRepath = v })
}

func (a Agent) SetUpdateRotation(v bool) {
	a.set(false, false, func(c *component.Agent) { c.UpdateRotation = v })
}

func (a Agent) SetObstacleAvoidance(q component.AvoidanceQuality) {
	a.set(false, false, func(c *component.Agent) { c.ObstacleAvoidance = q })
}

func (a Agent) SetAvoidancePriority(p int) {
	a.set(false, false, func(c *component.Agent) { c.AvoidancePriority = clampPriority(p) })
}

func (a Agent) SetCarvingMoveThreshold(v float64) {
	a.set(false, false, func(c *component.Agent) { c.CarvingMoveThreshold = common.NonNegative(v) })
}

func (a Agent) SetCarvingTimeToStationary(v float64) {
	a.set(false, false, func(c *component.Agent) { c.CarvingTimeToStationary = common.NonNegative(v) })
}

func (a Agent) SetCarveOnlyStationary(v bool) {
	a.set(false, false, func(c *component.Agent) { c.CarveOnlyStationary = v })
}

func (a Agent) SetBlockSettings(b component.BlockSettings) {
	a.set(false, false, func(c *component.Agent) { c.Block = ClampBlockSettings(b) })
}

func (a Agent) SetTimeToBlock(v float64) {
	a.set(false, false, func(c *component.Agent) { c.Block.TimeToBlock = common.NonNegative(v) })
}

func (a Agent) SetBlockSpeedThreshold(v float64) {
	a.set(false, false, func(c *component.Agent) { c.Block.BlockSpeedThreshold = common.NonNegative(v) })
}

func (a Agent) SetUnblockAfterDuration(v bool) {
	a.set(false, false, func(c *component.Agent) { c.Block.UnblockAfterDuration = v })
}

func (a Agent) SetTimeToUnblock(v float64) {
	a.set(false, false, func(c *component.Agent) { c.Block.TimeToUnblock = common.NonNegative(v) })
}

func (a Agent) SetDistanceReductionThreshold(v float64) {
	a.set(false, false, func(c *component.Agent) { c.Block.DistanceReductionThreshold = common.NonNegative(v) })
}

func (a Agent) SetUnblockAtSpeed(v bool) {
	a.set(false, false, func(c *component.Agent) { c.Block.UnblockAtSpeed = v })
}

func (a Agent) SetUnblockSpeedThreshold(v float64) {
	a.set(false, false, func(c *component.Agent) { c.Block.UnblockSpeedThreshold = common.NonNegative(v) })
}

func clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > maxAvoidancePriority {
		return maxAvoidancePriority
	}
	return p
}

func sanitizeAgent(c component.Agent) component.Agent {
	c.Radius = math.Max(c.Radius, minAgentExtent)
	c.Height = math.Max(c.Height, minAgentExtent)
	c.Speed = common.NonNegative(c.Speed)
	c.Acceleration = common.NonNegative(c.Acceleration)
	c.AngularSpeed = common.NonNegative(c.AngularSpeed)
	c.StoppingDistance = common.NonNegative(c.StoppingDistance)
	c.AvoidancePriority = clampPriority(c.AvoidancePriority)
	c.CarvingMoveThreshold = common.NonNegative(c.CarvingMoveThreshold)
	c.CarvingTimeToStationary = common.NonNegative(c.CarvingTimeToStationary)
	c.Block = ClampBlockSettings(c.Block)
	return c
}
