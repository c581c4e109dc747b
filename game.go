package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/system"
	"github.com/jadvrodrigues/customnavmesh/scene"
)

const (
	baseWidth  = 1280
	baseHeight = 720
	tickRate   = 1.0 / 60.0
	panSpeed   = 12.0
	panelWidth = 280
)

type Game struct {
	scene    *scene.Scene
	render   *system.RenderSystem
	reloader *scene.Reloader
	ui       *ebitenui.UI
	panel    *inspector

	paused       bool
	clipboardOK  bool
	snapshotDir  string
	status       string
	screenWidth  int
	screenHeight int
}

func NewGame(s *scene.Scene, reloader *scene.Reloader, snapshotDir string) *Game {
	g := &Game{
		scene:        s,
		render:       system.NewRenderSystem(s.Ctx, s.Grid),
		reloader:     reloader,
		snapshotDir:  snapshotDir,
		screenWidth:  baseWidth,
		screenHeight: baseHeight,
	}
	if err := clipboard.Init(); err != nil {
		log.Printf("viewer: clipboard unavailable: %v", err)
	} else {
		g.clipboardOK = true
	}
	if min, max := s.Grid.Bounds(); max.X > min.X {
		g.render.Center = min.Add(max).Scale(0.5).Sub(s.Ctx.HiddenTranslation().Flat())
	}
	g.ui, g.panel = NewInspectorUI(g)
	return g
}

func (g *Game) Update() error {
	g.ui.Update()
	g.handleInput()

	if g.reloader != nil && g.reloader.Poll() {
		g.status = "reloaded " + g.scene.Source()
	}
	if !g.paused {
		g.scene.Tick(tickRate)
	}
	g.panel.refresh(g)
	return nil
}

func (g *Game) handleInput() {
	dt := tickRate
	pan := panSpeed / g.render.Zoom * 32 * dt
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.render.Center.X -= pan
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.render.Center.X += pan
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.render.Center.Z -= pan
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.render.Center.Z += pan
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		g.render.ZoomBy(1 + 0.1*common.Sign(wy))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.togglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		g.toggleHidden()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPeriod) && g.paused {
		g.scene.Tick(tickRate)
	}

	x, y := ebiten.CursorPosition()
	if x >= g.screenWidth-panelWidth {
		return
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		e, ok := g.render.Pick(g.scene.Ctx.World, float64(x), float64(y), g.screenWidth, g.screenHeight)
		if ok {
			g.render.Selected = e
		} else {
			g.render.Selected = 0
		}
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		if a, ok := g.selectedAgent(); ok {
			p := g.render.ScreenToWorld(float64(x), float64(y), g.screenWidth, g.screenHeight)
			if !a.SetDestination(p) {
				g.status = "no path to " + p.String()
			}
		}
	}
}

func (g *Game) selectedAgent() (customnav.Agent, bool) {
	if !g.render.Selected.Valid() {
		return customnav.Agent{}, false
	}
	a, err := customnav.AgentOf(g.scene.Ctx, g.render.Selected)
	if err != nil {
		return customnav.Agent{}, false
	}
	return a, true
}

func (g *Game) selectedName() string {
	a, ok := g.selectedAgent()
	if !ok {
		return ""
	}
	return a.Name()
}

func (g *Game) togglePause() {
	g.paused = !g.paused
}

func (g *Game) toggleHidden() {
	g.scene.Ctx.SetRenderHidden(!g.scene.Ctx.RenderHidden())
}

func (g *Game) toggleSelectedEnabled() {
	a, ok := g.selectedAgent()
	if !ok {
		return
	}
	if a.Enabled() {
		a.Disable()
	} else {
		a.Enable()
	}
}

// copySelected puts the selected agent's prefab entry on the clipboard.
func (g *Game) copySelected() {
	name := g.selectedName()
	if name == "" {
		g.status = "select an agent first"
		return
	}
	out, err := g.scene.AgentYAML(name)
	if err != nil {
		g.status = err.Error()
		return
	}
	if !g.clipboardOK {
		log.Printf("viewer: %s\n%s", name, out)
		g.status = "clipboard unavailable, yaml logged"
		return
	}
	clipboard.Write(clipboard.FmtText, out)
	g.status = "copied " + name
}

func (g *Game) saveSnapshot() {
	base := strings.TrimSuffix(filepath.Base(g.scene.Name), filepath.Ext(g.scene.Name))
	if base == "" || base == "." {
		base = "scene"
	}
	path := filepath.Join(g.snapshotDir, fmt.Sprintf("%s-%.0f.yaml.zst", base, g.scene.Ctx.World.Time()*1000))
	if err := g.scene.Save(path); err != nil {
		g.status = err.Error()
		return
	}
	g.status = "saved " + path
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.render.Draw(g.scene.Ctx.World, screen)

	extra := g.status
	if g.paused {
		extra = "[paused] " + extra
	}
	system.DrawStatus(g.scene.Ctx, screen, extra)
	g.ui.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth > 0 && outsideHeight > 0 {
		g.screenWidth, g.screenHeight = outsideWidth, outsideHeight
	}
	return g.screenWidth, g.screenHeight
}

// lastEvent formats the newest simulation event for the panel.
func (g *Game) lastEvent() string {
	events := g.scene.RecentEvents()
	if len(events) == 0 {
		return "-"
	}
	ev := events[len(events)-1]
	return fmt.Sprintf("%s %s", ev.Type, entityName(g.scene.Ctx, ev.Entity))
}

func entityName(ctx *customnav.Context, e ecs.Entity) string {
	if !e.Valid() {
		return ""
	}
	if a, err := customnav.AgentOf(ctx, e); err == nil {
		return a.Name()
	}
	return e.String()
}
