package customnav

import (
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

// SyncTransform compares the entity's transform and parent with the last
// observed values and emits the matching change events. It reports whether
// anything changed.
func SyncTransform(ctx *Context, e ecs.Entity) bool {
	w := ctx.World
	t, ok := ecs.Get(w, e, component.TransformComponent)
	if !ok {
		return false
	}
	watch, ok := ecs.Get(w, e, TransformWatchComponent)
	if !ok {
		return false
	}
	ev, _ := ecs.Get(w, e, EventsComponent)
	parent := ParentOf(w, e)

	changed := false
	if watch.Position != t.Position {
		watch.Position = t.Position
		changed = true
		if ev != nil {
			ev.OnPositionChange.Emit()
		}
	}
	if watch.Parent != parent {
		watch.Parent = parent
		changed = true
		if ev != nil {
			ev.OnParentChange.Emit()
		}
	}
	if watch.Rotation != t.Rotation {
		watch.Rotation = t.Rotation
		changed = true
		if ev != nil {
			ev.OnRotationChange.Emit()
		}
	}
	if watch.Scale != t.Scale {
		watch.Scale = t.Scale
		changed = true
		if ev != nil {
			ev.OnScaleChange.Emit()
		}
	}
	return changed
}

// ParentOf returns the scene parent of e, or zero when it has none.
func ParentOf(w *ecs.World, e ecs.Entity) ecs.Entity {
	if p, ok := ecs.Get(w, e, ParentComponent); ok && w.IsAlive(p.Entity) {
		return p.Entity
	}
	return 0
}

// SetParent reparents e. A zero parent detaches it.
func SetParent(ctx *Context, e, parent ecs.Entity) {
	w := ctx.World
	if !w.IsAlive(e) {
		return
	}
	if !parent.Valid() {
		ecs.Remove(w, e, ParentComponent)
	} else if err := ecs.Add(w, e, ParentComponent, &Parent{Entity: parent}); err != nil {
		return
	}
	SyncTransform(ctx, e)
}
