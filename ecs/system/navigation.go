package system

import (
	"log"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

// TransformWatchSystem emits change events for visible actors whose
// transform was written directly since the last tick.
type TransformWatchSystem struct {
	ctx *customnav.Context
}

func NewTransformWatchSystem(ctx *customnav.Context) *TransformWatchSystem {
	return &TransformWatchSystem{ctx: ctx}
}

func (s *TransformWatchSystem) Update(w *ecs.World) {
	if s == nil || s.ctx == nil || w == nil {
		return
	}
	for _, e := range ecs.Query(w, customnav.TransformWatchComponent) {
		customnav.SyncTransform(s.ctx, e)
	}
}

// CarvingSystem rebakes the hidden mesh when surfaces changed and advances
// obstacle carving.
type CarvingSystem struct {
	ctx       *customnav.Context
	lastError error
}

func NewCarvingSystem(ctx *customnav.Context) *CarvingSystem {
	return &CarvingSystem{ctx: ctx}
}

func (s *CarvingSystem) Update(w *ecs.World) {
	if s == nil || s.ctx == nil || s.ctx.Nav == nil || w == nil {
		return
	}
	if s.ctx.BakeDirty() {
		err := s.ctx.Rebake()
		// Repeated identical failures are reported once.
		if err != nil && (s.lastError == nil || err.Error() != s.lastError.Error()) {
			log.Printf("carving: rebake: %v", err)
		}
		s.lastError = err
	}
	if s.ctx.Nav.UpdateCarving(w.DeltaTime()) {
		w.Events().Push(ecs.Event{Type: "navmesh_changed", Data: s.ctx.Nav.Version()})
	}
}

// BlockPolicySystem advances the block policy of every shadow agent.
type BlockPolicySystem struct {
	ctx *customnav.Context
}

func NewBlockPolicySystem(ctx *customnav.Context) *BlockPolicySystem {
	return &BlockPolicySystem{ctx: ctx}
}

func (s *BlockPolicySystem) Update(w *ecs.World) {
	if s == nil || s.ctx == nil || w == nil {
		return
	}
	dt := w.DeltaTime()
	for _, h := range ecs.Query(w, customnav.HiddenAgentComponent) {
		tr := customnav.StepBlockPolicy(s.ctx, h, dt)
		if tr == customnav.TransitionNone {
			continue
		}
		if v, ok := s.ctx.Registry.TryResolveVisible(h); ok {
			w.Events().Push(ecs.Event{Type: tr.String(), Entity: v})
		}
	}
}

// VelocityReadbackSystem moves each enabled visible agent by its shadow's
// velocity and turns it towards the direction of travel.
type VelocityReadbackSystem struct {
	ctx *customnav.Context
}

func NewVelocityReadbackSystem(ctx *customnav.Context) *VelocityReadbackSystem {
	return &VelocityReadbackSystem{ctx: ctx}
}

func (s *VelocityReadbackSystem) Update(w *ecs.World) {
	if s == nil || s.ctx == nil || w == nil {
		return
	}
	dt := w.DeltaTime()
	if dt <= 0 {
		return
	}
	for _, e := range ecs.Query(w, component.AgentComponent) {
		if ecs.Has(w, e, component.DisabledComponent) {
			continue
		}
		a, err := customnav.AgentOf(s.ctx, e)
		if err != nil {
			continue
		}
		v := a.Velocity()
		if v.Len() <= common.Epsilon {
			continue
		}
		a.Move(v.Scale(dt))

		cfg := a.Config()
		if cfg.UpdateRotation {
			rot := a.Transform().Rotation
			a.SetRotation(common.MoveTowardsAngle(rot, common.YawTo(v), cfg.AngularSpeed*dt))
		}
	}
}
