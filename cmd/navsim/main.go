// Command navsim runs a navigation scene without a window and reports what
// the agents did.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/scene"
)

func main() {
	sceneName := flag.String("scene", "courtyard.yaml", "scene prefab in prefabs/")
	load := flag.String("load", "", "restore a snapshot (.yaml or .yaml.zst) instead of loading -scene")
	save := flag.String("save", "", "write a snapshot here when the run ends")
	ticks := flag.Int("ticks", 600, "number of ticks to simulate; 0 runs until interrupted with -watch")
	dt := flag.Float64("dt", 1.0/60.0, "tick length in seconds")
	watch := flag.Bool("watch", false, "apply prefab and script edits while running, ticking in real time")
	verbose := flag.Bool("v", false, "log every navigation event")
	flag.Parse()

	if *dt <= 0 {
		log.Fatalf("navsim: -dt must be positive, got %v", *dt)
	}

	opts := scene.Options{Debug: *verbose}
	var transitions int
	opts.OnEvent = func(ev ecs.Event) {
		if ev.Type != "navmesh_changed" {
			transitions++
		}
	}

	var (
		s   *scene.Scene
		err error
	)
	if *load != "" {
		s, err = scene.LoadSnapshot(*load, opts)
	} else {
		s, err = scene.Load(*sceneName, opts)
	}
	if err != nil {
		log.Fatalf("navsim: %v", err)
	}

	var reloader *scene.Reloader
	if *watch {
		reloader, err = scene.Watch(s, "prefabs", "prefabs/scripts")
		if err != nil {
			log.Fatalf("navsim: watch: %v", err)
		}
		defer reloader.Close()
	}

	start := time.Now()
	if reloader != nil {
		runRealtime(s, reloader, *ticks, *dt)
	} else {
		for i := 0; i < *ticks; i++ {
			s.Tick(*dt)
		}
	}

	report(s, transitions, time.Since(start))

	if *save != "" {
		if err := s.Save(*save); err != nil {
			log.Fatalf("navsim: %v", err)
		}
		log.Printf("navsim: saved %s", *save)
	}
}

func runRealtime(s *scene.Scene, r *scene.Reloader, ticks int, dt float64) {
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()
	for i := 0; ticks == 0 || i < ticks; i++ {
		<-ticker.C
		r.Poll()
		s.Tick(dt)
	}
}

func report(s *scene.Scene, transitions int, elapsed time.Duration) {
	fmt.Fprintf(os.Stdout, "scene %s: t=%.2fs, %d transitions, navmesh v%d (%s wall)\n",
		s.Name, s.Ctx.World.Time(), transitions, s.Ctx.Nav.Version(), elapsed.Round(time.Millisecond))
	for _, name := range s.AgentNames() {
		a, _ := s.Agent(name)
		pos := a.Transform().Position
		line := fmt.Sprintf("  %-10s %-9s pos=%s", name, a.Mode(), pos)
		if d, ok := a.Destination(); ok {
			line += fmt.Sprintf(" dest=%s remaining=%.2f", d, a.RemainingDistance())
		}
		if !a.Enabled() {
			line += " (disabled)"
		}
		fmt.Fprintln(os.Stdout, line)
	}
}
