package customnav

import (
	"errors"
	"math"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

// surfaceThickness is the render height of a surface slab.
const surfaceThickness = 0.05

var ErrNotSurface = errors.New("customnav: entity is not a navigation surface")

// Surface is a handle to a visible walkable surface. Any change to an
// active surface schedules a rebake of the hidden navmesh.
type Surface struct {
	ctx *Context
	e   ecs.Entity
}

func NewSurface(ctx *Context, name string, t component.Transform, cfg component.Surface) (Surface, error) {
	e, err := newVisible(ctx, name, t)
	if err != nil {
		return Surface{}, err
	}
	if err := ecs.Add(ctx.World, e, component.SurfaceComponent, &cfg); err != nil {
		return Surface{}, err
	}
	s := Surface{ctx: ctx, e: e}
	s.Enable()
	return s, nil
}

func SurfaceOf(ctx *Context, e ecs.Entity) (Surface, error) {
	if !ecs.Has(ctx.World, e, component.SurfaceComponent) {
		return Surface{}, ErrNotSurface
	}
	return Surface{ctx: ctx, e: e}, nil
}

func (s Surface) Entity() ecs.Entity {
	return s.e
}

func (s Surface) Valid() bool {
	return s.ctx != nil && ecs.Has(s.ctx.World, s.e, component.SurfaceComponent)
}

func (s Surface) Config() component.Surface {
	if cfg, ok := ecs.Get(s.ctx.World, s.e, component.SurfaceComponent); ok {
		return *cfg
	}
	return component.Surface{}
}

func (s Surface) Hidden() (ecs.Entity, bool) {
	return linkedHidden(s.ctx.World, s.e)
}

func (s Surface) Enabled() bool {
	return s.Valid() && !ecs.Has(s.ctx.World, s.e, component.DisabledComponent)
}

func (s Surface) Enable() {
	if !s.Valid() {
		return
	}
	w := s.ctx.World
	ecs.Remove(w, s.e, component.DisabledComponent)

	h, ok := s.Hidden()
	if !ok {
		h = newHidden(s.ctx, s.e)
		_ = ecs.Add(w, h, HiddenSurfaceComponent, &HiddenSurface{Visible: s.e})
		_ = ecs.Add(w, h, ParentComponent, &Parent{Entity: s.e})
		_ = ecs.Add(w, s.e, LinkComponent, &Link{Hidden: h})
	}
	hs, ok := ecs.Get(w, h, HiddenSurfaceComponent)
	if !ok || hs.Active {
		return
	}
	ecs.Remove(w, h, component.UnusedComponent)
	hs.Active = true
	updateVisibility(s.ctx, h)
	updateHiddenSurface(s.ctx, h)

	if ev, ok := ecs.Get(w, s.e, EventsComponent); ok {
		connect(&hs.subs, &ev.OnChange, func() { updateHiddenSurface(s.ctx, h) })
		connect(&hs.subs, &ev.OnPositionChange, func() { updateHiddenSurface(s.ctx, h) })
		connect(&hs.subs, &ev.OnScaleChange, func() { updateHiddenSurface(s.ctx, h) })
		connect(&hs.subs, &ev.OnRotationChange, func() { updateHiddenSurface(s.ctx, h) })
	}
	connect(&hs.subs, &s.ctx.OnRenderHiddenUpdate, func() { updateVisibility(s.ctx, h) })
	connect(&hs.subs, &s.ctx.OnHiddenTranslationUpdate, func() { updateHiddenSurface(s.ctx, h) })
}

func (s Surface) Disable() {
	if !s.Valid() {
		return
	}
	w := s.ctx.World
	_ = ecs.Add(w, s.e, component.DisabledComponent, &component.Disabled{})
	h, ok := s.Hidden()
	if !ok {
		return
	}
	hs, ok := ecs.Get(w, h, HiddenSurfaceComponent)
	if !ok || !hs.Active {
		return
	}
	disconnectAll(&hs.subs)
	hs.Active = false
	_ = ecs.Add(w, h, component.UnusedComponent, &component.Unused{})
	s.ctx.MarkBakeDirty()
}

func (s Surface) Destroy() {
	if !s.Valid() {
		return
	}
	s.Disable()
	if h, ok := s.Hidden(); ok {
		s.ctx.World.DestroyEntity(h)
	}
	s.ctx.World.DestroyEntity(s.e)
}

// SetSize changes the walkable rectangle.
func (s Surface) SetSize(x, z float64) {
	s.set(func(c *component.Surface) {
		c.SizeX = math.Max(x, 0)
		c.SizeZ = math.Max(z, 0)
	})
}

func (s Surface) Configure(cfg component.Surface) {
	s.set(func(c *component.Surface) {
		*c = cfg
		c.SizeX = math.Max(c.SizeX, 0)
		c.SizeZ = math.Max(c.SizeZ, 0)
	})
}

func (s Surface) SetArea(area int) {
	s.set(func(c *component.Surface) { c.Area = area })
}

func (s Surface) Transform() component.Transform {
	if t, ok := ecs.Get(s.ctx.World, s.e, component.TransformComponent); ok {
		return *t
	}
	return component.Transform{}
}

func (s Surface) SetPosition(p common.Vec3) {
	if t, ok := ecs.Get(s.ctx.World, s.e, component.TransformComponent); ok {
		t.Position = p
		SyncTransform(s.ctx, s.e)
	}
}

// SetRotation only turns the rendered slab; baked surfaces stay axis aligned.
func (s Surface) SetRotation(deg float64) {
	if t, ok := ecs.Get(s.ctx.World, s.e, component.TransformComponent); ok {
		t.Rotation = deg
		SyncTransform(s.ctx, s.e)
	}
}

func (s Surface) SetScale(sc common.Vec3) {
	if t, ok := ecs.Get(s.ctx.World, s.e, component.TransformComponent); ok {
		t.Scale = sc
		SyncTransform(s.ctx, s.e)
	}
}

func (s Surface) set(fn func(*component.Surface)) {
	cfg, ok := ecs.Get(s.ctx.World, s.e, component.SurfaceComponent)
	if !ok {
		return
	}
	fn(cfg)
	emit(s.ctx, s.e, func(ev *Events) *ecs.Signal { return &ev.OnChange })
}

func updateHiddenSurface(ctx *Context, h ecs.Entity) {
	w := ctx.World
	hs, ok := ecs.Get(w, h, HiddenSurfaceComponent)
	if !ok {
		return
	}
	ht, ok := ecs.Get(w, h, component.TransformComponent)
	if !ok {
		return
	}
	cfg, ok := ecs.Get(w, hs.Visible, component.SurfaceComponent)
	if !ok {
		return
	}
	vt, ok := ecs.Get(w, hs.Visible, component.TransformComponent)
	if !ok {
		return
	}
	ht.Position = vt.Position.Add(ctx.HiddenTranslation())
	ht.Rotation = vt.Rotation
	ht.Scale = vt.Scale

	hs.Desc = navmesh.SurfaceDesc{
		Center: ht.Position,
		SizeX:  cfg.SizeX * math.Abs(vt.Scale.X),
		SizeZ:  cfg.SizeZ * math.Abs(vt.Scale.Z),
		Area:   cfg.Area,
	}
	if col, ok := ecs.Get(w, h, component.ColliderComponent); ok {
		size := common.V3(hs.Desc.SizeX, surfaceThickness, hs.Desc.SizeZ)
		*col = component.Collider{
			Shape:     component.ShapeBox,
			Size:      size,
			Mesh:      component.ShapeBox,
			MeshScale: size,
		}
	}
	ctx.MarkBakeDirty()
}
