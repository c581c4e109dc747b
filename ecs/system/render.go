package system

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"golang.org/x/image/colornames"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
)

const (
	debugCircleSegments = 24
	defaultZoom         = 32.0
	minZoom             = 4.0
	maxZoom             = 256.0
)

var (
	walkableColor = color.NRGBA{R: 0x2e, G: 0x4a, B: 0x3a, A: 0xff}
	carvedColor   = color.NRGBA{R: 0x6a, G: 0x2a, B: 0x2a, A: 0xff}
	surfaceColor  = color.NRGBA{R: 0x3a, G: 0x3a, B: 0x44, A: 0xff}
	hiddenAlpha   = uint8(0x90)
)

// RenderSystem draws the scene top-down: X to the right, Z downwards. The
// hidden layer is drawn shifted back by the hidden translation so each
// shadow overlays its visible actor.
type RenderSystem struct {
	ctx  *customnav.Context
	grid *navmesh.Grid

	Center   common.Vec3
	Zoom     float64
	Selected ecs.Entity
}

func NewRenderSystem(ctx *customnav.Context, grid *navmesh.Grid) *RenderSystem {
	return &RenderSystem{ctx: ctx, grid: grid, Zoom: defaultZoom}
}

// ZoomBy scales the view around its center.
func (r *RenderSystem) ZoomBy(f float64) {
	r.Zoom = common.Clamp(r.Zoom*f, minZoom, maxZoom)
}

func (r *RenderSystem) WorldToScreen(p common.Vec3, sw, sh int) (float64, float64) {
	return float64(sw)/2 + (p.X-r.Center.X)*r.Zoom, float64(sh)/2 + (p.Z-r.Center.Z)*r.Zoom
}

func (r *RenderSystem) ScreenToWorld(x, y float64, sw, sh int) common.Vec3 {
	return common.V3((x-float64(sw)/2)/r.Zoom+r.Center.X, 0, (y-float64(sh)/2)/r.Zoom+r.Center.Z)
}

// Pick returns the visible agent under the screen point.
func (r *RenderSystem) Pick(w *ecs.World, x, y float64, sw, sh int) (ecs.Entity, bool) {
	p := r.ScreenToWorld(x, y, sw, sh)
	best, bestDist := ecs.Entity(0), math.Inf(1)
	ecs.ForEach2(w, component.AgentComponent, component.TransformComponent, func(e ecs.Entity, a *component.Agent, t *component.Transform) {
		d := t.Position.FlatDist(p)
		if d <= a.Radius*horizontalScale(t.Scale) && d < bestDist {
			best, bestDist = e, d
		}
	})
	return best, best.Valid()
}

func (r *RenderSystem) Draw(w *ecs.World, screen *ebiten.Image) {
	if r == nil || w == nil || screen == nil {
		return
	}
	if r.Zoom <= 0 {
		r.Zoom = defaultZoom
	}
	screen.Fill(colornames.Black)

	r.drawSurfaces(w, screen)
	if r.ctx == nil || r.ctx.RenderHidden() {
		r.drawCells(screen)
	}
	r.drawObstacles(w, screen)
	if r.ctx != nil && r.ctx.RenderHidden() {
		r.drawHidden(w, screen)
	}
	r.drawAgents(w, screen)
}

func (r *RenderSystem) offset() common.Vec3 {
	if r.ctx == nil {
		return common.Vec3{}
	}
	return r.ctx.HiddenTranslation()
}

func (r *RenderSystem) drawSurfaces(w *ecs.World, screen *ebiten.Image) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	ecs.ForEach2(w, component.SurfaceComponent, component.TransformComponent, func(e ecs.Entity, s *component.Surface, t *component.Transform) {
		if ecs.Has(w, e, component.DisabledComponent) {
			return
		}
		sx := s.SizeX * math.Abs(t.Scale.X)
		sz := s.SizeZ * math.Abs(t.Scale.Z)
		x, y := r.WorldToScreen(t.Position.Sub(common.V3(sx/2, 0, sz/2)), sw, sh)
		ebitenutil.DrawRect(screen, x, y, sx*r.Zoom, sz*r.Zoom, surfaceColor)
	})
}

func (r *RenderSystem) drawCells(screen *ebiten.Image) {
	if r.grid == nil {
		return
	}
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	off := r.offset()
	cs := r.grid.CellSize() * r.Zoom
	inset := math.Max(cs-1, 1)
	r.grid.ForEachCell(func(center common.Vec3, walkable, carved bool) {
		x, y := r.WorldToScreen(center.Sub(off), sw, sh)
		if x < -cs || y < -cs || x > float64(sw)+cs || y > float64(sh)+cs {
			return
		}
		c := walkableColor
		if carved {
			c = carvedColor
		}
		ebitenutil.DrawRect(screen, x-cs/2, y-cs/2, inset, inset, c)
	})
}

func (r *RenderSystem) drawObstacles(w *ecs.World, screen *ebiten.Image) {
	ecs.ForEach2(w, component.ObstacleComponent, component.TransformComponent, func(e ecs.Entity, o *component.Obstacle, t *component.Transform) {
		c := tintOf(w, e, colornames.Orange)
		if ecs.Has(w, e, component.DisabledComponent) {
			c.A = 0x50
		}
		center := t.Position.Add(o.Center.Mul(t.Scale))
		r.drawShape(screen, o.Shape, center, t.Rotation, o.Size.Mul(t.Scale.Abs()), c)
	})
}

func (r *RenderSystem) drawHidden(w *ecs.World, screen *ebiten.Image) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	off := r.offset()

	hidden := ecs.Query(w, component.ColliderComponent)
	sort.Slice(hidden, func(i, j int) bool { return uint64(hidden[i]) < uint64(hidden[j]) })
	for _, h := range hidden {
		if vis, ok := ecs.Get(w, h, component.VisibilityComponent); ok && !vis.Visible {
			continue
		}
		if ecs.Has(w, h, component.UnusedComponent) || ecs.Has(w, h, customnav.HiddenSurfaceComponent) {
			continue
		}
		col, _ := ecs.Get(w, h, component.ColliderComponent)
		t, ok := ecs.Get(w, h, component.TransformComponent)
		if !ok {
			continue
		}

		c := nrgba(colornames.Cyan)
		if ha, ok := ecs.Get(w, h, customnav.HiddenAgentComponent); ok {
			if ha.Role == customnav.RoleObstacle {
				c = nrgba(colornames.Red)
			}
			r.drawPath(screen, ha, off, sw, sh)
		}
		c.A = hiddenAlpha
		r.drawShape(screen, col.Mesh, t.Position.Sub(off), t.Rotation, col.MeshScale.Mul(t.Scale.Abs()), c)
	}
}

func (r *RenderSystem) drawPath(screen *ebiten.Image, ha *customnav.HiddenAgent, off common.Vec3, sw, sh int) {
	if ha.Path == nil || len(ha.Path.Corners) < 2 {
		return
	}
	c := colornames.Yellow
	if ha.Path.Status == navmesh.PathPartial {
		c = colornames.Orangered
	}
	for i := 1; i < len(ha.Path.Corners); i++ {
		x0, y0 := r.WorldToScreen(ha.Path.Corners[i-1].Sub(off), sw, sh)
		x1, y1 := r.WorldToScreen(ha.Path.Corners[i].Sub(off), sw, sh)
		ebitenutil.DrawLine(screen, x0, y0, x1, y1, c)
	}
}

func (r *RenderSystem) drawAgents(w *ecs.World, screen *ebiten.Image) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	ecs.ForEach2(w, component.AgentComponent, component.TransformComponent, func(e ecs.Entity, a *component.Agent, t *component.Transform) {
		c := tintOf(w, e, colornames.White)
		if ecs.Has(w, e, component.DisabledComponent) {
			c.A = 0x50
		}
		radius := a.Radius * horizontalScale(t.Scale)
		r.drawCircle(screen, t.Position, radius, c)

		x, y := r.WorldToScreen(t.Position, sw, sh)
		heading := common.V3(0, 0, radius).RotateY(t.Rotation)
		hx, hy := r.WorldToScreen(t.Position.Add(heading), sw, sh)
		ebitenutil.DrawLine(screen, x, y, hx, hy, c)

		if e == r.Selected {
			r.drawCircle(screen, t.Position, radius+0.15, colornames.Gold)
		}
		if name, ok := ecs.Get(w, e, component.NameComponent); ok {
			ebitenutil.DebugPrintAt(screen, name.Value, int(x)+4, int(y)+4)
		}
	})
}

func (r *RenderSystem) drawShape(screen *ebiten.Image, shape component.ShapeKind, center common.Vec3, rot float64, size common.Vec3, c color.Color) {
	if shape == component.ShapeBox {
		r.drawBox(screen, center, rot, size, c)
		return
	}
	r.drawCircle(screen, center, math.Max(size.X, size.Z)/2, c)
}

func (r *RenderSystem) drawBox(screen *ebiten.Image, center common.Vec3, rot float64, size common.Vec3, c color.Color) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	hx, hz := size.X/2, size.Z/2
	corners := [4]common.Vec3{
		common.V3(-hx, 0, -hz), common.V3(hx, 0, -hz),
		common.V3(hx, 0, hz), common.V3(-hx, 0, hz),
	}
	for i := range corners {
		a := center.Add(corners[i].RotateY(rot))
		b := center.Add(corners[(i+1)%4].RotateY(rot))
		x0, y0 := r.WorldToScreen(a, sw, sh)
		x1, y1 := r.WorldToScreen(b, sw, sh)
		ebitenutil.DrawLine(screen, x0, y0, x1, y1, c)
	}
}

func (r *RenderSystem) drawCircle(screen *ebiten.Image, center common.Vec3, radius float64, c color.Color) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	cx, cy := r.WorldToScreen(center, sw, sh)
	rr := radius * r.Zoom
	step := 2 * math.Pi / debugCircleSegments
	for i := 0; i < debugCircleSegments; i++ {
		a0 := float64(i) * step
		a1 := a0 + step
		ebitenutil.DrawLine(screen, cx+math.Cos(a0)*rr, cy+math.Sin(a0)*rr, cx+math.Cos(a1)*rr, cy+math.Sin(a1)*rr, c)
	}
}

// DrawStatus prints the simulation summary in the top-left corner.
func DrawStatus(ctx *customnav.Context, screen *ebiten.Image, extra string) {
	if ctx == nil || screen == nil {
		return
	}
	following, blocking := 0, 0
	ecs.ForEach(ctx.World, customnav.HiddenAgentComponent, func(_ ecs.Entity, ha *customnav.HiddenAgent) {
		if ha.Policy.Mode == customnav.ModeBlocking {
			blocking++
		} else {
			following++
		}
	})
	version := uint32(0)
	if ctx.Nav != nil {
		version = ctx.Nav.Version()
	}
	text := fmt.Sprintf("t=%.1fs following=%d blocking=%d navmesh v%d\n%s",
		ctx.World.Time(), following, blocking, version, extra)
	ebitenutil.DebugPrintAt(screen, text, 10, 10)
}

func tintOf(w *ecs.World, e ecs.Entity, fallback color.RGBA) color.NRGBA {
	if t, ok := ecs.Get(w, e, component.TintComponent); ok {
		return t.Color
	}
	return nrgba(fallback)
}

func nrgba(c color.RGBA) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

func horizontalScale(s common.Vec3) float64 {
	return math.Max(math.Abs(s.X), math.Abs(s.Z))
}
