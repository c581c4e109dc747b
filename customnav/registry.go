package customnav

import (
	"sort"

	"github.com/jadvrodrigues/customnavmesh/ecs"
)

// Pair is one visible/hidden link.
type Pair struct {
	Visible ecs.Entity
	Hidden  ecs.Entity
}

// Registry is a bidirectional map between visible actors and their shadows.
// Lookups never return an entity that is no longer alive.
type Registry struct {
	world     *ecs.World
	toHidden  map[ecs.Entity]ecs.Entity
	toVisible map[ecs.Entity]ecs.Entity
}

func NewRegistry(w *ecs.World) *Registry {
	return &Registry{
		world:     w,
		toHidden:  make(map[ecs.Entity]ecs.Entity),
		toVisible: make(map[ecs.Entity]ecs.Entity),
	}
}

// Register links v and s. Stale links held by either side are dropped so
// the map stays one to one; registering an existing pair is a no-op.
func (r *Registry) Register(v, s ecs.Entity) {
	if !v.Valid() || !s.Valid() {
		return
	}
	if cur, ok := r.toHidden[v]; ok && cur == s {
		return
	}
	if old, ok := r.toHidden[v]; ok {
		delete(r.toVisible, old)
	}
	if old, ok := r.toVisible[s]; ok {
		delete(r.toHidden, old)
	}
	r.toHidden[v] = s
	r.toVisible[s] = v
}

// Unregister removes the pair. Entries that do not match exactly are left
// untouched.
func (r *Registry) Unregister(v, s ecs.Entity) {
	if cur, ok := r.toHidden[v]; ok && cur == s {
		delete(r.toHidden, v)
	}
	if cur, ok := r.toVisible[s]; ok && cur == v {
		delete(r.toVisible, s)
	}
}

func (r *Registry) TryResolveShadow(v ecs.Entity) (ecs.Entity, bool) {
	s, ok := r.toHidden[v]
	if !ok || !r.world.IsAlive(v) || !r.world.IsAlive(s) {
		return 0, false
	}
	return s, true
}

func (r *Registry) TryResolveVisible(s ecs.Entity) (ecs.Entity, bool) {
	v, ok := r.toVisible[s]
	if !ok || !r.world.IsAlive(v) || !r.world.IsAlive(s) {
		return 0, false
	}
	return v, true
}

// Rebuild replaces the registry contents. Pairs with a dead side are
// dropped and the number kept is returned.
func (r *Registry) Rebuild(pairs []Pair) int {
	r.toHidden = make(map[ecs.Entity]ecs.Entity, len(pairs))
	r.toVisible = make(map[ecs.Entity]ecs.Entity, len(pairs))
	for _, p := range pairs {
		if r.world.IsAlive(p.Visible) && r.world.IsAlive(p.Hidden) {
			r.Register(p.Visible, p.Hidden)
		}
	}
	return len(r.toHidden)
}

// Len reports the number of live pairs.
func (r *Registry) Len() int {
	r.prune()
	return len(r.toHidden)
}

// Pairs returns the live pairs ordered by visible entity.
func (r *Registry) Pairs() []Pair {
	r.prune()
	out := make([]Pair, 0, len(r.toHidden))
	for v, s := range r.toHidden {
		out = append(out, Pair{Visible: v, Hidden: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Visible < out[j].Visible })
	return out
}

// prune drops links whose visible or hidden side was destroyed.
func (r *Registry) prune() {
	for v, s := range r.toHidden {
		if !r.world.IsAlive(v) || !r.world.IsAlive(s) {
			delete(r.toHidden, v)
			delete(r.toVisible, s)
		}
	}
}
