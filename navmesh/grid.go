package navmesh

import (
	"fmt"
	"log"
	"math"

	"github.com/jadvrodrigues/customnavmesh/common"
)

const (
	defaultCellSize = 0.25
	noArea          = -1
)

// Config holds the bake parameters of a Grid.
type Config struct {
	CellSize   float64             `yaml:"cell_size"`
	AgentTypes []AgentTypeSettings `yaml:"agent_types"`
}

func DefaultConfig() Config {
	return Config{
		CellSize: defaultCellSize,
		AgentTypes: []AgentTypeSettings{
			{ID: 0, Name: "Humanoid", Radius: 0.5, Height: 2.0, StepHeight: 0.4},
		},
	}
}

type cell struct {
	x int
	z int
}

// Grid is a Service backed by a uniform XZ grid. Each baked cell stores the
// height and area of the surface covering its center.
type Grid struct {
	cfg Config

	originX float64
	originZ float64
	w       int
	h       int
	heights []float64
	areas   []int
	carved  []bool

	carver  *carver
	version uint32
}

func NewGrid(cfg Config) *Grid {
	if cfg.CellSize <= 0 {
		cfg.CellSize = defaultCellSize
	}
	if len(cfg.AgentTypes) == 0 {
		cfg.AgentTypes = DefaultConfig().AgentTypes
	}
	return &Grid{cfg: cfg, carver: newCarver()}
}

func (g *Grid) CellSize() float64 {
	return g.cfg.CellSize
}

func (g *Grid) Version() uint32 {
	return g.version
}

func (g *Grid) AgentTypeSettings(id int) (AgentTypeSettings, bool) {
	for _, s := range g.cfg.AgentTypes {
		if s.ID == id {
			return s, true
		}
	}
	return AgentTypeSettings{}, false
}

// Bake rebuilds the walkable cells from the given surfaces. Where surfaces
// overlap the highest one wins.
func (g *Grid) Bake(surfaces []SurfaceDesc) error {
	if len(surfaces) == 0 {
		g.w, g.h = 0, 0
		g.heights, g.areas, g.carved = nil, nil, nil
		g.version++
		return ErrNoSurfaces
	}

	minX, minZ := math.Inf(1), math.Inf(1)
	maxX, maxZ := math.Inf(-1), math.Inf(-1)
	for _, s := range surfaces {
		if s.SizeX <= 0 || s.SizeZ <= 0 {
			return fmt.Errorf("navmesh: bake: surface at %v has size %.3fx%.3f", s.Center, s.SizeX, s.SizeZ)
		}
		minX = math.Min(minX, s.Center.X-s.SizeX/2)
		maxX = math.Max(maxX, s.Center.X+s.SizeX/2)
		minZ = math.Min(minZ, s.Center.Z-s.SizeZ/2)
		maxZ = math.Max(maxZ, s.Center.Z+s.SizeZ/2)
	}

	cs := g.cfg.CellSize
	g.originX, g.originZ = minX, minZ
	g.w = int(math.Ceil((maxX-minX)/cs - common.Epsilon))
	g.h = int(math.Ceil((maxZ-minZ)/cs - common.Epsilon))
	if g.w <= 0 {
		g.w = 1
	}
	if g.h <= 0 {
		g.h = 1
	}
	g.heights = make([]float64, g.w*g.h)
	g.areas = make([]int, g.w*g.h)
	for i := range g.areas {
		g.areas[i] = noArea
	}

	for _, s := range surfaces {
		x0, z0 := s.Center.X-s.SizeX/2, s.Center.Z-s.SizeZ/2
		x1, z1 := x0+s.SizeX, z0+s.SizeZ
		for z := 0; z < g.h; z++ {
			for x := 0; x < g.w; x++ {
				c := g.cellCenter(cell{x, z})
				if c.X < x0 || c.X > x1 || c.Z < z0 || c.Z > z1 {
					continue
				}
				i := z*g.w + x
				if g.areas[i] == noArea || s.Center.Y > g.heights[i] {
					g.heights[i] = s.Center.Y
					g.areas[i] = s.Area
				}
			}
		}
	}

	g.rebuildCarved()
	g.version++
	log.Printf("navmesh: baked %d surfaces into %dx%d cells (version %d)", len(surfaces), g.w, g.h, g.version)
	return nil
}

func (g *Grid) inBounds(c cell) bool {
	return c.x >= 0 && c.z >= 0 && c.x < g.w && c.z < g.h
}

func (g *Grid) index(c cell) int {
	return c.z*g.w + c.x
}

func (g *Grid) cellAt(p common.Vec3) cell {
	return cell{
		x: int(math.Floor((p.X - g.originX) / g.cfg.CellSize)),
		z: int(math.Floor((p.Z - g.originZ) / g.cfg.CellSize)),
	}
}

func (g *Grid) cellCenter(c cell) common.Vec3 {
	half := g.cfg.CellSize * 0.5
	y := 0.0
	if g.inBounds(c) && g.heights != nil {
		y = g.heights[g.index(c)]
	}
	return common.Vec3{
		X: g.originX + float64(c.x)*g.cfg.CellSize + half,
		Y: y,
		Z: g.originZ + float64(c.z)*g.cfg.CellSize + half,
	}
}

func (g *Grid) walkable(c cell, filter QueryFilter) bool {
	if !g.inBounds(c) {
		return false
	}
	i := g.index(c)
	return g.areas[i] != noArea && !g.carved[i] && filter.allows(g.areas[i])
}

// closestInCell clamps p into the cell footprint at the cell height.
func (g *Grid) closestInCell(c cell, p common.Vec3) common.Vec3 {
	center := g.cellCenter(c)
	half := g.cfg.CellSize * 0.5
	return common.Vec3{
		X: common.Clamp(p.X, center.X-half, center.X+half),
		Y: center.Y,
		Z: common.Clamp(p.Z, center.Z-half, center.Z+half),
	}
}

// SamplePosition finds the closest walkable point within maxDistance of p.
func (g *Grid) SamplePosition(p common.Vec3, maxDistance float64, filter QueryFilter) (Hit, bool) {
	if g.w == 0 || maxDistance < 0 {
		return Hit{}, false
	}
	reach := int(math.Ceil(maxDistance/g.cfg.CellSize)) + 1
	origin := g.cellAt(p)

	best := Hit{Distance: math.Inf(1)}
	found := false
	for z := origin.z - reach; z <= origin.z+reach; z++ {
		for x := origin.x - reach; x <= origin.x+reach; x++ {
			c := cell{x, z}
			if !g.walkable(c, filter) {
				continue
			}
			q := g.closestInCell(c, p)
			d := q.Dist(p)
			if d <= maxDistance && d < best.Distance {
				best = Hit{Position: q, Distance: d, Area: g.areas[g.index(c)]}
				found = true
			}
		}
	}
	return best, found
}

// nearestWalkable finds a walkable cell close to p for path endpoints.
func (g *Grid) nearestWalkable(p common.Vec3, filter QueryFilter) (cell, common.Vec3, bool) {
	c := g.cellAt(p)
	if g.walkable(c, filter) {
		return c, g.closestInCell(c, p), true
	}
	hit, ok := g.SamplePosition(p, g.cfg.CellSize*2, filter)
	if !ok {
		return cell{}, common.Vec3{}, false
	}
	return g.cellAt(hit.Position), hit.Position, true
}

// CalculatePath computes a corner path from one walkable point to another.
// When the target cannot be reached the path ends at the reachable cell
// closest to it and is marked PathPartial.
func (g *Grid) CalculatePath(from, to common.Vec3, filter QueryFilter) (*Path, bool) {
	if g.w == 0 {
		return nil, false
	}
	start, startPos, ok := g.nearestWalkable(from, filter)
	if !ok {
		return nil, false
	}

	goal := g.cellAt(to)
	goalPos := to
	onMesh := g.walkable(goal, filter)
	if onMesh {
		goalPos.Y = g.heights[g.index(goal)]
	} else if c, p, ok := g.nearestWalkable(to, filter); ok {
		goal, goalPos = c, p
	}

	cells, reached := g.astar(start, goal, filter)
	if len(cells) == 0 {
		return nil, false
	}

	end := goalPos
	status := PathComplete
	if !reached || !onMesh {
		status = PathPartial
	}
	if !reached {
		end = g.closestInCell(cells[len(cells)-1], to)
	}

	return &Path{Corners: g.simplify(startPos, cells, end, filter), Status: status}, true
}

// simplify drops intermediate cells that are in line of sight of the last
// kept corner.
func (g *Grid) simplify(start common.Vec3, cells []cell, end common.Vec3, filter QueryFilter) []common.Vec3 {
	points := make([]common.Vec3, 0, len(cells)+2)
	points = append(points, start)
	for i := 1; i < len(cells)-1; i++ {
		points = append(points, g.cellCenter(cells[i]))
	}
	points = append(points, end)

	out := []common.Vec3{start}
	anchor := 0
	for i := 2; i < len(points); i++ {
		if !g.clear(points[anchor], points[i], filter) {
			out = append(out, points[i-1])
			anchor = i - 1
		}
	}
	return append(out, end)
}

func (g *Grid) clear(a, b common.Vec3, filter QueryFilter) bool {
	_, hit := g.Raycast(a, b, filter)
	return !hit
}

// Raycast walks the segment on the XZ plane and reports the first point where
// it leaves the walkable area.
func (g *Grid) Raycast(from, to common.Vec3, filter QueryFilter) (Hit, bool) {
	if g.w == 0 {
		return Hit{Position: from}, true
	}
	dist := from.FlatDist(to)
	step := g.cfg.CellSize * 0.25
	n := int(math.Ceil(dist / step))
	if n < 1 {
		n = 1
	}
	last := from
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		p := common.Vec3{X: common.Lerp(from.X, to.X, t), Y: common.Lerp(from.Y, to.Y, t), Z: common.Lerp(from.Z, to.Z, t)}
		c := g.cellAt(p)
		if !g.walkable(c, filter) {
			return Hit{Position: last, Distance: from.FlatDist(last)}, true
		}
		p.Y = g.heights[g.index(c)]
		last = p
	}
	return Hit{Position: last, Distance: dist}, false
}

// ForEachCell reports every baked cell for debug drawing.
func (g *Grid) ForEachCell(fn func(center common.Vec3, walkable, carved bool)) {
	for z := 0; z < g.h; z++ {
		for x := 0; x < g.w; x++ {
			i := z*g.w + x
			if g.areas[i] == noArea {
				continue
			}
			fn(g.cellCenter(cell{x, z}), !g.carved[i], g.carved[i])
		}
	}
}

// Bounds returns the baked rectangle as min and max corners.
func (g *Grid) Bounds() (common.Vec3, common.Vec3) {
	cs := g.cfg.CellSize
	return common.Vec3{X: g.originX, Z: g.originZ},
		common.Vec3{X: g.originX + float64(g.w)*cs, Z: g.originZ + float64(g.h)*cs}
}
