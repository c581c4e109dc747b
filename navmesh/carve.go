package navmesh

import (
	"math"
	"sort"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jakecoffman/cp"
)

// carver tracks obstacle footprints in a chipmunk space. Each obstacle is a
// kinematic body with one shape; the XZ plane maps to the space's XY plane.
type carver struct {
	space     *cp.Space
	obstacles map[ObstacleHandle]*carveObstacle
	next      ObstacleHandle
	dirty     bool
}

type carveObstacle struct {
	desc  ObstacleDesc
	body  *cp.Body
	shape *cp.Shape

	carving      bool
	stationary   float64
	carvedAt     common.Vec3
	lastPosition common.Vec3
}

func newCarver() *carver {
	return &carver{
		space:     cp.NewSpace(),
		obstacles: make(map[ObstacleHandle]*carveObstacle),
	}
}

func toSpace(v common.Vec3) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Z}
}

func footprint(body *cp.Body, desc ObstacleDesc) *cp.Shape {
	switch desc.Shape {
	case component.ShapeCapsule, component.ShapeCylinder:
		return cp.NewCircle(body, math.Max(desc.Size.X, desc.Size.Z)/2, cp.Vector{})
	default:
		return cp.NewBox(body, desc.Size.X, desc.Size.Z, 0)
	}
}

func (c *carver) place(o *carveObstacle) {
	o.body.SetPosition(toSpace(o.desc.Position))
	o.body.SetAngle(-o.desc.Rotation * math.Pi / 180)
	o.shape.CacheBB()
}

func (c *carver) add(desc ObstacleDesc) ObstacleHandle {
	c.next++
	body := c.space.AddBody(cp.NewKinematicBody())
	o := &carveObstacle{desc: desc, body: body, carvedAt: desc.Position, lastPosition: desc.Position}
	o.shape = c.space.AddShape(footprint(body, desc))
	c.place(o)
	c.obstacles[c.next] = o
	return c.next
}

func (c *carver) update(h ObstacleHandle, desc ObstacleDesc) bool {
	o, ok := c.obstacles[h]
	if !ok {
		return false
	}
	prev := o.desc
	o.desc = desc

	if prev.Shape != desc.Shape || !prev.Size.ApproxEqual(desc.Size, common.Epsilon) {
		c.space.RemoveShape(o.shape)
		o.shape = c.space.AddShape(footprint(o.body, desc))
		if o.carving {
			c.dirty = true
		}
	}
	if prev.Carve != desc.Carve && o.carving {
		o.carving = false
		c.dirty = true
	}
	c.place(o)

	if desc.Position.Dist(o.lastPosition) > common.Epsilon || prev.Rotation != desc.Rotation {
		o.stationary = 0
	}
	o.lastPosition = desc.Position
	if o.carving && desc.CarveOnlyStationary && desc.Position.Dist(o.carvedAt) > desc.MoveThreshold {
		o.carving = false
		c.dirty = true
	}
	// Moves below the threshold keep the old carve; a turn reshapes it.
	if o.carving && prev.Rotation != desc.Rotation {
		c.dirty = true
	}
	return true
}

func (c *carver) remove(h ObstacleHandle) bool {
	o, ok := c.obstacles[h]
	if !ok {
		return false
	}
	c.space.RemoveShape(o.shape)
	c.space.RemoveBody(o.body)
	delete(c.obstacles, h)
	if o.carving {
		c.dirty = true
	}
	return true
}

// step advances stationary timers and decides which obstacles carve.
func (c *carver) step(dt float64) {
	for _, o := range c.obstacles {
		if !o.desc.Carve {
			continue
		}
		o.stationary += dt
		switch {
		case !o.carving && (!o.desc.CarveOnlyStationary || o.stationary >= o.desc.TimeToStationary-common.Epsilon):
			o.carving = true
			o.carvedAt = o.desc.Position
			c.dirty = true
		case o.carving && !o.desc.CarveOnlyStationary && o.desc.Position.Dist(o.carvedAt) > o.desc.MoveThreshold:
			o.carvedAt = o.desc.Position
			c.dirty = true
		}
	}
}

func (c *carver) handles() []ObstacleHandle {
	out := make([]ObstacleHandle, 0, len(c.obstacles))
	for h := range c.obstacles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Grid) AddObstacle(desc ObstacleDesc) ObstacleHandle {
	return g.carver.add(desc)
}

func (g *Grid) UpdateObstacle(h ObstacleHandle, desc ObstacleDesc) bool {
	return g.carver.update(h, desc)
}

func (g *Grid) RemoveObstacle(h ObstacleHandle) bool {
	return g.carver.remove(h)
}

// IsCarving reports whether the obstacle currently cuts the mesh.
func (g *Grid) IsCarving(h ObstacleHandle) bool {
	o, ok := g.carver.obstacles[h]
	return ok && o.carving
}

// UpdateCarving advances carving timers and rebuilds the carved cells when
// any obstacle started, stopped or moved while carving. It reports whether
// the mesh changed.
func (g *Grid) UpdateCarving(dt float64) bool {
	g.carver.step(dt)
	if !g.carver.dirty {
		return false
	}
	g.rebuildCarved()
	g.version++
	return true
}

// rebuildCarved marks every cell whose center lies within the default agent
// radius of a carving footprint.
func (g *Grid) rebuildCarved() {
	g.carver.dirty = false
	if g.w == 0 {
		g.carved = nil
		return
	}
	if len(g.carved) != g.w*g.h {
		g.carved = make([]bool, g.w*g.h)
	} else {
		for i := range g.carved {
			g.carved[i] = false
		}
	}

	margin := 0.0
	climb := 0.0
	if s, ok := g.AgentTypeSettings(0); ok {
		margin = s.Radius
		climb = s.Height
	}

	for _, h := range g.carver.handles() {
		o := g.carver.obstacles[h]
		if !o.carving {
			continue
		}
		bottom := o.desc.Position.Y - o.desc.Size.Y/2 - climb
		top := o.desc.Position.Y + o.desc.Size.Y/2

		bb := o.shape.BB()
		minC := g.cellAt(common.Vec3{X: bb.L - margin, Z: bb.B - margin})
		maxC := g.cellAt(common.Vec3{X: bb.R + margin, Z: bb.T + margin})
		for z := minC.z; z <= maxC.z; z++ {
			for x := minC.x; x <= maxC.x; x++ {
				c := cell{x, z}
				if !g.inBounds(c) {
					continue
				}
				i := g.index(c)
				if g.areas[i] == noArea || g.heights[i] < bottom || g.heights[i] > top {
					continue
				}
				if o.shape.PointQuery(toSpace(g.cellCenter(c))).Distance <= margin {
					g.carved[i] = true
				}
			}
		}
	}
}
