package customnav

import (
	"errors"
	"math"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

var ErrNotObstacle = errors.New("customnav: entity is not a navigation obstacle")

// Obstacle is a handle to a visible navmesh obstacle.
type Obstacle struct {
	ctx *Context
	e   ecs.Entity
}

func NewObstacle(ctx *Context, name string, t component.Transform, cfg component.Obstacle) (Obstacle, error) {
	e, err := newVisible(ctx, name, t)
	if err != nil {
		return Obstacle{}, err
	}
	cfg = sanitizeObstacle(cfg)
	if err := ecs.Add(ctx.World, e, component.ObstacleComponent, &cfg); err != nil {
		return Obstacle{}, err
	}
	o := Obstacle{ctx: ctx, e: e}
	o.Enable()
	return o, nil
}

func ObstacleOf(ctx *Context, e ecs.Entity) (Obstacle, error) {
	if !ecs.Has(ctx.World, e, component.ObstacleComponent) {
		return Obstacle{}, ErrNotObstacle
	}
	return Obstacle{ctx: ctx, e: e}, nil
}

func (o Obstacle) Entity() ecs.Entity {
	return o.e
}

func (o Obstacle) Valid() bool {
	return o.ctx != nil && ecs.Has(o.ctx.World, o.e, component.ObstacleComponent)
}

func (o Obstacle) Config() component.Obstacle {
	if cfg, ok := ecs.Get(o.ctx.World, o.e, component.ObstacleComponent); ok {
		return *cfg
	}
	return component.Obstacle{}
}

func (o Obstacle) Hidden() (ecs.Entity, bool) {
	return linkedHidden(o.ctx.World, o.e)
}

func (o Obstacle) Enabled() bool {
	return o.Valid() && !ecs.Has(o.ctx.World, o.e, component.DisabledComponent)
}

// Enable creates the hidden obstacle, or reactivates the unused one left by
// a previous Disable.
func (o Obstacle) Enable() {
	if !o.Valid() {
		return
	}
	w := o.ctx.World
	ecs.Remove(w, o.e, component.DisabledComponent)

	h, ok := o.Hidden()
	if !ok {
		h = newHidden(o.ctx, o.e)
		_ = ecs.Add(w, h, HiddenObstacleComponent, &HiddenObstacle{Visible: o.e})
		_ = ecs.Add(w, h, ParentComponent, &Parent{Entity: o.e})
		_ = ecs.Add(w, o.e, LinkComponent, &Link{Hidden: h})
	}
	ho, ok := ecs.Get(w, h, HiddenObstacleComponent)
	if !ok || ho.Active {
		return
	}
	ecs.Remove(w, h, component.UnusedComponent)
	ho.Active = true

	updateObstacleMesh(o.ctx, h)
	updateVisibility(o.ctx, h)
	updateObstaclePosition(o.ctx, h)
	if o.ctx.Nav != nil {
		ho.Handle = o.ctx.Nav.AddObstacle(hiddenObstacleDesc(o.ctx, h))
	}
	subscribeHiddenObstacle(o.ctx, h, ho)
}

// Disable marks the hidden obstacle unused and removes it from the mesh.
func (o Obstacle) Disable() {
	if !o.Valid() {
		return
	}
	w := o.ctx.World
	_ = ecs.Add(w, o.e, component.DisabledComponent, &component.Disabled{})
	h, ok := o.Hidden()
	if !ok {
		return
	}
	ho, ok := ecs.Get(w, h, HiddenObstacleComponent)
	if !ok || !ho.Active {
		return
	}
	disconnectAll(&ho.subs)
	if ho.Handle != 0 && o.ctx.Nav != nil {
		o.ctx.Nav.RemoveObstacle(ho.Handle)
	}
	ho.Handle = 0
	ho.Active = false
	_ = ecs.Add(w, h, component.UnusedComponent, &component.Unused{})
}

func (o Obstacle) Destroy() {
	if !o.Valid() {
		return
	}
	o.Disable()
	if h, ok := o.Hidden(); ok {
		o.ctx.World.DestroyEntity(h)
	}
	o.ctx.World.DestroyEntity(o.e)
}

func (o Obstacle) set(mesh, center bool, fn func(*component.Obstacle)) {
	cfg, ok := ecs.Get(o.ctx.World, o.e, component.ObstacleComponent)
	if !ok {
		return
	}
	fn(cfg)
	*cfg = sanitizeObstacle(*cfg)
	emit(o.ctx, o.e, func(ev *Events) *ecs.Signal { return &ev.OnChange })
	if mesh {
		emit(o.ctx, o.e, func(ev *Events) *ecs.Signal { return &ev.OnMeshChange })
	}
	if center {
		emit(o.ctx, o.e, func(ev *Events) *ecs.Signal { return &ev.OnCenterChange })
	}
}

// Configure replaces the whole configuration.
func (o Obstacle) Configure(cfg component.Obstacle) {
	o.set(true, true, func(c *component.Obstacle) { *c = cfg })
}

func (o Obstacle) Transform() component.Transform {
	if t, ok := ecs.Get(o.ctx.World, o.e, component.TransformComponent); ok {
		return *t
	}
	return component.Transform{}
}

func (o Obstacle) SetShape(s component.ShapeKind) {
	o.set(true, false, func(c *component.Obstacle) { c.Shape = s })
}

func (o Obstacle) SetCenter(v common.Vec3) {
	o.set(false, true, func(c *component.Obstacle) { c.Center = v })
}

func (o Obstacle) SetSize(v common.Vec3) {
	o.set(true, false, func(c *component.Obstacle) { c.Size = v })
}

// SetRadius sets the horizontal half extent used by capsules.
func (o Obstacle) SetRadius(r float64) {
	o.set(true, false, func(c *component.Obstacle) {
		c.Size.X = r * 2
		c.Size.Z = r * 2
	})
}

func (o Obstacle) SetHeight(h float64) {
	o.set(true, false, func(c *component.Obstacle) { c.Size.Y = h })
}

func (o Obstacle) SetCarving(v bool) {
	o.set(false, false, func(c *component.Obstacle) { c.Carving = v })
}

func (o Obstacle) SetCarvingMoveThreshold(v float64) {
	o.set(false, false, func(c *component.Obstacle) { c.CarvingMoveThreshold = v })
}

func (o Obstacle) SetCarvingTimeToStationary(v float64) {
	o.set(false, false, func(c *component.Obstacle) { c.CarvingTimeToStationary = v })
}

func (o Obstacle) SetCarveOnlyStationary(v bool) {
	o.set(false, false, func(c *component.Obstacle) { c.CarveOnlyStationary = v })
}

func (o Obstacle) SetVelocity(v common.Vec3) {
	o.set(false, false, func(c *component.Obstacle) { c.Velocity = v })
}

func (o Obstacle) SetPosition(p common.Vec3) {
	if t, ok := ecs.Get(o.ctx.World, o.e, component.TransformComponent); ok {
		t.Position = p
		SyncTransform(o.ctx, o.e)
	}
}

func (o Obstacle) SetRotation(deg float64) {
	if t, ok := ecs.Get(o.ctx.World, o.e, component.TransformComponent); ok {
		t.Rotation = deg
		SyncTransform(o.ctx, o.e)
	}
}

func (o Obstacle) SetScale(s common.Vec3) {
	if t, ok := ecs.Get(o.ctx.World, o.e, component.TransformComponent); ok {
		t.Scale = s
		SyncTransform(o.ctx, o.e)
	}
}

func sanitizeObstacle(c component.Obstacle) component.Obstacle {
	c.Size = common.V3(
		math.Max(c.Size.X, minAgentExtent),
		math.Max(c.Size.Y, minAgentExtent),
		math.Max(c.Size.Z, minAgentExtent),
	)
	c.CarvingMoveThreshold = common.NonNegative(c.CarvingMoveThreshold)
	c.CarvingTimeToStationary = common.NonNegative(c.CarvingTimeToStationary)
	return c
}

func subscribeHiddenObstacle(ctx *Context, h ecs.Entity, ho *HiddenObstacle) {
	if len(ho.subs) > 0 {
		return
	}
	if ev, ok := ecs.Get(ctx.World, ho.Visible, EventsComponent); ok {
		connect(&ho.subs, &ev.OnChange, func() { syncHiddenObstacle(ctx, h) })
		connect(&ho.subs, &ev.OnMeshChange, func() { updateObstacleMesh(ctx, h) })
		connect(&ho.subs, &ev.OnCenterChange, func() { updateObstaclePosition(ctx, h) })
		connect(&ho.subs, &ev.OnPositionChange, func() { updateObstaclePosition(ctx, h) })
		connect(&ho.subs, &ev.OnRotationChange, func() { updateObstaclePosition(ctx, h) })
		connect(&ho.subs, &ev.OnScaleChange, func() {
			updateObstaclePosition(ctx, h)
			updateObstacleMesh(ctx, h)
		})
	}
	connect(&ho.subs, &ctx.OnRenderHiddenUpdate, func() { updateVisibility(ctx, h) })
	connect(&ho.subs, &ctx.OnHiddenTranslationUpdate, func() { updateObstaclePosition(ctx, h) })
}

func obstaclePair(ctx *Context, h ecs.Entity) (*HiddenObstacle, *component.Transform, *component.Obstacle, *component.Transform, bool) {
	w := ctx.World
	ho, ok := ecs.Get(w, h, HiddenObstacleComponent)
	if !ok {
		return nil, nil, nil, nil, false
	}
	ht, ok := ecs.Get(w, h, component.TransformComponent)
	if !ok {
		return nil, nil, nil, nil, false
	}
	cfg, ok := ecs.Get(w, ho.Visible, component.ObstacleComponent)
	if !ok {
		return nil, nil, nil, nil, false
	}
	vt, ok := ecs.Get(w, ho.Visible, component.TransformComponent)
	if !ok {
		return nil, nil, nil, nil, false
	}
	return ho, ht, cfg, vt, true
}

// updateObstaclePosition places the hidden obstacle at the visible
// obstacle's scaled center, moved into the hidden layer.
func updateObstaclePosition(ctx *Context, h ecs.Entity) {
	_, ht, cfg, vt, ok := obstaclePair(ctx, h)
	if !ok {
		return
	}
	ht.Position = vt.Position.Add(cfg.Center.Mul(vt.Scale)).Add(ctx.HiddenTranslation())
	ht.Rotation = vt.Rotation
	ht.Scale = vt.Scale
	syncHiddenObstacle(ctx, h)
}

func updateObstacleMesh(ctx *Context, h ecs.Entity) {
	_, _, cfg, _, ok := obstaclePair(ctx, h)
	if !ok {
		return
	}
	col, ok := ecs.Get(ctx.World, h, component.ColliderComponent)
	if !ok {
		return
	}
	*col = component.Collider{
		Shape:     cfg.Shape,
		Radius:    cfg.Radius(),
		Height:    cfg.Height(),
		Size:      cfg.Size,
		Mesh:      cfg.Shape,
		MeshScale: cfg.Size,
	}
	syncHiddenObstacle(ctx, h)
}

func hiddenObstacleDesc(ctx *Context, h ecs.Entity) navmesh.ObstacleDesc {
	_, ht, cfg, _, ok := obstaclePair(ctx, h)
	if !ok {
		return navmesh.ObstacleDesc{}
	}
	return navmesh.ObstacleDesc{
		Shape:               cfg.Shape,
		Position:            ht.Position,
		Rotation:            ht.Rotation,
		Size:                cfg.Size.Mul(ht.Scale.Abs()),
		Carve:               cfg.Carving,
		MoveThreshold:       cfg.CarvingMoveThreshold,
		TimeToStationary:    cfg.CarvingTimeToStationary,
		CarveOnlyStationary: cfg.CarveOnlyStationary,
	}
}

func syncHiddenObstacle(ctx *Context, h ecs.Entity) {
	ho, ok := ecs.Get(ctx.World, h, HiddenObstacleComponent)
	if !ok || !ho.Active || ho.Handle == 0 || ctx.Nav == nil {
		return
	}
	ctx.Nav.UpdateObstacle(ho.Handle, hiddenObstacleDesc(ctx, h))
}
