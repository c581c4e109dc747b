package customnav

import (
	"github.com/google/uuid"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

// AgentState is the part of a hidden agent that survives a snapshot.
type AgentState struct {
	HiddenID       uuid.UUID
	Role           Role
	Policy         BlockPolicyState
	Destination    common.Vec3
	HasDestination bool
}

// CaptureAgentState returns the persisted state of the agent's shadow.
// Destinations are stored in visible space.
func CaptureAgentState(a Agent) (AgentState, bool) {
	h, ha := a.hidden()
	if ha == nil {
		return AgentState{}, false
	}
	st := AgentState{
		Role:           ha.Role,
		Policy:         ha.Policy,
		HasDestination: ha.HasDestination,
	}
	if ha.HasDestination {
		st.Destination = ha.Destination.Sub(a.ctx.HiddenTranslation())
	}
	if id, ok := ecs.Get(a.ctx.World, h, component.IdentityComponent); ok {
		st.HiddenID = id.ID
	}
	return st, true
}

// RestoreAgentState applies a captured state to the agent's shadow. A
// blocking shadow is re-added to the carver; a following one repaths.
func RestoreAgentState(a Agent, st AgentState) bool {
	h, ha := a.hidden()
	if ha == nil {
		return false
	}
	if st.HiddenID != uuid.Nil {
		SetIdentity(a.ctx.World, h, st.HiddenID)
	}
	ha.HasDestination = st.HasDestination
	if st.HasDestination {
		ha.Destination = st.Destination.Add(a.ctx.HiddenTranslation())
	}
	SetRole(a.ctx, h, st.Role)
	ha.Policy = st.Policy
	if st.Role == RoleFollowing && ha.HasDestination {
		repath(a.ctx, h, ha)
	}
	return true
}

// SetIdentity overrides the stable id of an entity, used when loading a
// snapshot.
func SetIdentity(w *ecs.World, e ecs.Entity, id uuid.UUID) {
	if ident, ok := ecs.Get(w, e, component.IdentityComponent); ok {
		ident.ID = id
		return
	}
	_ = ecs.Add(w, e, component.IdentityComponent, &component.Identity{ID: id})
}

// FindByIdentity returns the live entity carrying id.
func FindByIdentity(w *ecs.World, id uuid.UUID) (ecs.Entity, bool) {
	var found ecs.Entity
	ecs.ForEach(w, component.IdentityComponent, func(e ecs.Entity, ident *component.Identity) {
		if !found.Valid() && ident.ID == id {
			found = e
		}
	})
	return found, found.Valid()
}

// RebuildRegistry relinks every hidden agent in the world with its visible
// agent. It returns the number of pairs kept.
func (c *Context) RebuildRegistry() int {
	var pairs []Pair
	ecs.ForEach(c.World, HiddenAgentComponent, func(h ecs.Entity, ha *HiddenAgent) {
		pairs = append(pairs, Pair{Visible: ha.Visible, Hidden: h})
	})
	n := c.Registry.Rebuild(pairs)
	c.debugf("registry rebuilt with %d pairs", n)
	return n
}
