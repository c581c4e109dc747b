// Package scene wires a navigation scene together: the hidden-layer context,
// the grid navmesh, the visible actors of a prefab and the ordered systems
// that advance them.
package scene

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"sort"

	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/ecs/system"
	"github.com/jadvrodrigues/customnavmesh/navmesh"
	"github.com/jadvrodrigues/customnavmesh/prefabs"
)

const recentEventLimit = 32

type Options struct {
	// Scripts loads controller sources. Defaults to prefabs.LoadScript.
	Scripts system.ScriptLoader
	Debug   bool
	// OnEvent observes every simulation event before it is dropped at the
	// end of the tick.
	OnEvent func(ecs.Event)
}

type Scene struct {
	Name        string
	Ctx         *customnav.Context
	Grid        *navmesh.Grid
	Scheduler   *ecs.Scheduler
	Controllers *system.ControllerScriptSystem

	source  string
	nav     prefabs.NavSpec
	debug   bool
	onEvent func(ecs.Event)
	recent  []ecs.Event

	surfaces  map[string]ecs.Entity
	obstacles map[string]ecs.Entity
	agents    map[string]ecs.Entity
}

// Load builds the scene described by a prefab file.
func Load(name string, opts Options) (*Scene, error) {
	spec, err := prefabs.LoadSceneSpec(name)
	if err != nil {
		return nil, err
	}
	s, err := New(spec, opts)
	if err != nil {
		return nil, err
	}
	s.source = name
	return s, nil
}

func New(spec *prefabs.SceneSpec, opts Options) (*Scene, error) {
	if spec == nil {
		return nil, errors.New("scene: nil spec")
	}
	scripts := opts.Scripts
	if scripts == nil {
		scripts = prefabs.LoadScript
	}

	grid := navmesh.NewGrid(spec.Nav.Config())
	ctx := customnav.NewContext(nil, grid)
	ctx.Debug = opts.Debug

	s := &Scene{
		Name:        spec.Name,
		Ctx:         ctx,
		Grid:        grid,
		Controllers: system.NewControllerScriptSystem(ctx, scripts),
		nav:         spec.Nav,
		debug:       opts.Debug,
		onEvent:     opts.OnEvent,
		surfaces:    make(map[string]ecs.Entity),
		obstacles:   make(map[string]ecs.Entity),
		agents:      make(map[string]ecs.Entity),
	}
	s.Scheduler = ecs.NewScheduler(
		s.Controllers,
		system.NewTransformWatchSystem(ctx),
		system.NewCarvingSystem(ctx),
		system.NewSteeringSystem(ctx),
		system.NewBlockPolicySystem(ctx),
		system.NewVelocityReadbackSystem(ctx),
		ecs.SystemFunc(s.drainEvents),
	)

	if err := s.Apply(spec); err != nil {
		return nil, err
	}
	return s, nil
}

// Source is the prefab the scene was loaded from, if any.
func (s *Scene) Source() string {
	return s.source
}

// Tick advances the simulation by dt seconds.
func (s *Scene) Tick(dt float64) {
	s.Scheduler.Step(s.Ctx.World, dt)
}

// Apply reconciles the scene with spec by actor name: existing actors are
// reconfigured, new ones created and missing ones destroyed. Agents keep
// their current position so a reload does not teleport them.
func (s *Scene) Apply(spec *prefabs.SceneSpec) error {
	if spec.Name != "" {
		s.Name = spec.Name
	}
	s.Ctx.SetHiddenTranslation(spec.HiddenTranslation)
	s.Ctx.SetRenderHidden(spec.ShowHidden())

	if err := s.applySurfaces(spec.Surfaces); err != nil {
		return err
	}
	if s.Ctx.BakeDirty() {
		if err := s.Ctx.Rebake(); err != nil && !errors.Is(err, navmesh.ErrNoSurfaces) {
			return fmt.Errorf("scene: bake %s: %w", s.Name, err)
		}
	}
	if err := s.applyObstacles(spec.Obstacles); err != nil {
		return err
	}
	return s.applyAgents(spec.Agents)
}

func (s *Scene) applySurfaces(specs []prefabs.SurfaceSpec) error {
	keep := make(map[string]struct{}, len(specs))
	for _, sp := range specs {
		keep[sp.Name] = struct{}{}
		tr := sp.Transform.Transform()
		var surf customnav.Surface
		if e, ok := s.surfaces[sp.Name]; ok {
			surf, _ = customnav.SurfaceOf(s.Ctx, e)
			surf.Configure(sp.Surface)
			surf.SetPosition(tr.Position)
			surf.SetRotation(tr.Rotation)
			surf.SetScale(tr.Scale)
		} else {
			var err error
			surf, err = customnav.NewSurface(s.Ctx, sp.Name, tr, sp.Surface)
			if err != nil {
				return fmt.Errorf("scene: surface %s: %w", sp.Name, err)
			}
			s.surfaces[sp.Name] = surf.Entity()
		}
		if sp.Disabled {
			surf.Disable()
		} else {
			surf.Enable()
		}
	}
	for name, e := range s.surfaces {
		if _, ok := keep[name]; ok {
			continue
		}
		if surf, err := customnav.SurfaceOf(s.Ctx, e); err == nil {
			surf.Destroy()
		}
		delete(s.surfaces, name)
	}
	return nil
}

func (s *Scene) applyObstacles(specs []prefabs.ObstacleSpec) error {
	keep := make(map[string]struct{}, len(specs))
	for _, sp := range specs {
		keep[sp.Name] = struct{}{}
		cfg, err := sp.Config()
		if err != nil {
			return fmt.Errorf("scene: obstacle %s: %w", sp.Name, err)
		}
		tr := sp.Transform.Transform()
		var o customnav.Obstacle
		if e, ok := s.obstacles[sp.Name]; ok {
			o, _ = customnav.ObstacleOf(s.Ctx, e)
			o.Configure(cfg)
			o.SetPosition(tr.Position)
			o.SetRotation(tr.Rotation)
			o.SetScale(tr.Scale)
		} else {
			o, err = customnav.NewObstacle(s.Ctx, sp.Name, tr, cfg)
			if err != nil {
				return fmt.Errorf("scene: obstacle %s: %w", sp.Name, err)
			}
			s.obstacles[sp.Name] = o.Entity()
		}
		s.setTint(o.Entity(), sp.Tint)
		if sp.Disabled {
			o.Disable()
		} else {
			o.Enable()
		}
	}
	for name, e := range s.obstacles {
		if _, ok := keep[name]; ok {
			continue
		}
		if o, err := customnav.ObstacleOf(s.Ctx, e); err == nil {
			o.Destroy()
		}
		delete(s.obstacles, name)
	}
	return nil
}

func (s *Scene) applyAgents(specs []prefabs.AgentSpec) error {
	keep := make(map[string]struct{}, len(specs))
	for _, sp := range specs {
		keep[sp.Name] = struct{}{}
		cfg, err := sp.Config()
		if err != nil {
			return fmt.Errorf("scene: agent %s: %w", sp.Name, err)
		}
		var a customnav.Agent
		if e, ok := s.agents[sp.Name]; ok {
			a, _ = customnav.AgentOf(s.Ctx, e)
			a.Configure(cfg)
		} else {
			a, err = customnav.NewAgent(s.Ctx, sp.Name, sp.Transform.Transform(), cfg)
			if err != nil {
				return fmt.Errorf("scene: agent %s: %w", sp.Name, err)
			}
			s.agents[sp.Name] = a.Entity()
		}
		s.setTint(a.Entity(), sp.Tint)
		s.setController(a.Entity(), sp.Controller)
		if sp.Disabled {
			a.Disable()
		} else {
			a.Enable()
		}
	}
	for name, e := range s.agents {
		if _, ok := keep[name]; ok {
			continue
		}
		if a, err := customnav.AgentOf(s.Ctx, e); err == nil {
			a.Destroy()
		}
		delete(s.agents, name)
	}
	return nil
}

func (s *Scene) setTint(e ecs.Entity, c *prefabs.YAMLColor) {
	w := s.Ctx.World
	if c == nil || c.Color == nil {
		ecs.Remove(w, e, component.TintComponent)
		return
	}
	_ = ecs.Add(w, e, component.TintComponent, &component.Tint{Color: c.NRGBA(color.NRGBA{A: 0xff})})
}

func (s *Scene) setController(e ecs.Entity, c *component.Controller) {
	w := s.Ctx.World
	if c == nil {
		ecs.Remove(w, e, component.ControllerComponent)
		return
	}
	ctrl := *c
	_ = ecs.Add(w, e, component.ControllerComponent, &ctrl)
}

func (s *Scene) drainEvents(w *ecs.World) {
	for _, ev := range w.Events().Drain() {
		if s.debug {
			log.Printf("scene: %s %s", ev.Type, s.nameOf(ev.Entity))
		}
		s.recent = append(s.recent, ev)
		if s.onEvent != nil {
			s.onEvent(ev)
		}
	}
	if over := len(s.recent) - recentEventLimit; over > 0 {
		s.recent = append(s.recent[:0], s.recent[over:]...)
	}
}

// RecentEvents returns the latest simulation events, oldest first.
func (s *Scene) RecentEvents() []ecs.Event {
	out := make([]ecs.Event, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *Scene) nameOf(e ecs.Entity) string {
	if n, ok := ecs.Get(s.Ctx.World, e, component.NameComponent); ok {
		return n.Value
	}
	return ""
}

func (s *Scene) Agent(name string) (customnav.Agent, bool) {
	e, ok := s.agents[name]
	if !ok {
		return customnav.Agent{}, false
	}
	a, err := customnav.AgentOf(s.Ctx, e)
	return a, err == nil
}

func (s *Scene) Obstacle(name string) (customnav.Obstacle, bool) {
	e, ok := s.obstacles[name]
	if !ok {
		return customnav.Obstacle{}, false
	}
	o, err := customnav.ObstacleOf(s.Ctx, e)
	return o, err == nil
}

func (s *Scene) Surface(name string) (customnav.Surface, bool) {
	e, ok := s.surfaces[name]
	if !ok {
		return customnav.Surface{}, false
	}
	sf, err := customnav.SurfaceOf(s.Ctx, e)
	return sf, err == nil
}

// AgentNames lists the agents in name order.
func (s *Scene) AgentNames() []string {
	return sortedKeys(s.agents)
}

func (s *Scene) ObstacleNames() []string {
	return sortedKeys(s.obstacles)
}

func (s *Scene) SurfaceNames() []string {
	return sortedKeys(s.surfaces)
}

func sortedKeys(m map[string]ecs.Entity) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
