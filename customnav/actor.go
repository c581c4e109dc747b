package customnav

import (
	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

// newVisible creates the entity shared by every visible actor kind: name,
// identity, transform, change events and the transform watch.
func newVisible(ctx *Context, name string, t component.Transform) (ecs.Entity, error) {
	w := ctx.World
	e := w.CreateEntity()
	if t.Scale == (common.Vec3{}) {
		t.Scale = common.One3
	}
	if err := ecs.Add(w, e, component.NameComponent, &component.Name{Value: name}); err != nil {
		return 0, err
	}
	if err := ecs.Add(w, e, component.IdentityComponent, component.NewIdentity()); err != nil {
		return 0, err
	}
	if err := ecs.Add(w, e, component.TransformComponent, &t); err != nil {
		return 0, err
	}
	if err := ecs.Add(w, e, EventsComponent, &Events{}); err != nil {
		return 0, err
	}
	watch := &TransformWatch{Position: t.Position, Rotation: t.Rotation, Scale: t.Scale}
	if err := ecs.Add(w, e, TransformWatchComponent, watch); err != nil {
		return 0, err
	}
	return e, nil
}

// newHidden creates the entity shared by every shadow kind.
func newHidden(ctx *Context, visible ecs.Entity) ecs.Entity {
	w := ctx.World
	h := w.CreateEntity()
	name := ""
	if n, ok := ecs.Get(w, visible, component.NameComponent); ok {
		name = n.Value
	}
	_ = ecs.Add(w, h, component.NameComponent, &component.Name{Value: hiddenPrefix + name})
	_ = ecs.Add(w, h, component.IdentityComponent, component.NewIdentity())
	_ = ecs.Add(w, h, component.TransformComponent, component.NewTransform(common.Vec3{}))
	_ = ecs.Add(w, h, component.ColliderComponent, &component.Collider{})
	_ = ecs.Add(w, h, component.VisibilityComponent, &component.Visibility{Visible: ctx.RenderHidden()})
	return h
}

// linkedHidden returns the live hidden counterpart of a visible obstacle or
// surface.
func linkedHidden(w *ecs.World, v ecs.Entity) (ecs.Entity, bool) {
	l, ok := ecs.Get(w, v, LinkComponent)
	if !ok || !w.IsAlive(l.Hidden) {
		return 0, false
	}
	return l.Hidden, true
}

func emit(ctx *Context, e ecs.Entity, pick func(*Events) *ecs.Signal) {
	if ev, ok := ecs.Get(ctx.World, e, EventsComponent); ok {
		pick(ev).Emit()
	}
}
