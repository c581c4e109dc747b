// Package customnav shadows visible navigation actors with a hidden layer
// offset by one global translation. Navigation queries run against the
// hidden layer; visible agents only read back velocity.
package customnav

import (
	"errors"
	"log"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

var ErrNotAgent = errors.New("customnav: entity is not a navigation agent")

// Context holds the process-wide state shared by every actor pair.
type Context struct {
	World    *ecs.World
	Nav      navmesh.Service
	Registry *Registry
	Debug    bool

	translation  common.Vec3
	renderHidden bool
	bakeDirty    bool

	OnHiddenTranslationUpdate ecs.Signal
	OnRenderHiddenUpdate      ecs.Signal
}

func NewContext(w *ecs.World, nav navmesh.Service) *Context {
	if w == nil {
		w = ecs.NewWorld()
	}
	return &Context{
		World:        w,
		Nav:          nav,
		Registry:     NewRegistry(w),
		renderHidden: true,
	}
}

func (c *Context) HiddenTranslation() common.Vec3 {
	return c.translation
}

// SetHiddenTranslation moves the whole hidden layer. Every shadow is
// repositioned and the navmesh rebaked before this returns, so queries made
// right after see the moved surfaces.
func (c *Context) SetHiddenTranslation(t common.Vec3) {
	if c.translation == t {
		return
	}
	c.translation = t
	c.OnHiddenTranslationUpdate.Emit()
	if c.bakeDirty {
		if err := c.Rebake(); err != nil && !errors.Is(err, navmesh.ErrNoSurfaces) {
			log.Printf("customnav: rebake after translation: %v", err)
		}
	}
}

func (c *Context) RenderHidden() bool {
	return c.renderHidden
}

func (c *Context) SetRenderHidden(v bool) {
	if c.renderHidden == v {
		return
	}
	c.renderHidden = v
	c.OnRenderHiddenUpdate.Emit()
}

// MarkBakeDirty requests a navmesh rebake from the hidden surfaces.
func (c *Context) MarkBakeDirty() {
	c.bakeDirty = true
}

func (c *Context) BakeDirty() bool {
	return c.bakeDirty
}

// Rebake bakes the navigation service from every active hidden surface.
func (c *Context) Rebake() error {
	c.bakeDirty = false
	if c.Nav == nil {
		return nil
	}
	var surfaces []navmesh.SurfaceDesc
	ecs.ForEach(c.World, HiddenSurfaceComponent, func(_ ecs.Entity, hs *HiddenSurface) {
		if hs.Active {
			surfaces = append(surfaces, hs.Desc)
		}
	})
	return c.Nav.Bake(surfaces)
}

func (c *Context) debugf(format string, args ...any) {
	if c.Debug {
		log.Printf("customnav: "+format, args...)
	}
}

func (c *Context) filter(p *HiddenAgent) navmesh.QueryFilter {
	return navmesh.QueryFilter{AgentTypeID: p.Params.AgentTypeID, AreaMask: p.Params.AreaMask}
}

// surfaceAgentRadius is the bake radius of the agent type, used to widen
// sampling around the agent's own carve.
func (c *Context) surfaceAgentRadius(agentType int) float64 {
	if c.Nav == nil {
		return 0
	}
	if s, ok := c.Nav.AgentTypeSettings(agentType); ok {
		return s.Radius
	}
	return 0
}
