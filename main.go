package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/jadvrodrigues/customnavmesh/scene"
)

func main() {
	sceneName := flag.String("scene", "courtyard.yaml", "scene prefab in prefabs/")
	load := flag.String("load", "", "restore a snapshot instead of loading -scene")
	watch := flag.Bool("watch", false, "apply prefab and script edits while running")
	debug := flag.Bool("debug", false, "log every navigation event")
	snapshots := flag.String("snapshots", "snapshots", "directory for snapshots saved from the panel")
	flag.Parse()

	opts := scene.Options{Debug: *debug}
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
		log.Fatal(err)
	}

	var reloader *scene.Reloader
	if *watch {
		reloader, err = scene.Watch(s, "prefabs", "prefabs/scripts")
		if err != nil {
			log.Fatal(err)
		}
		defer reloader.Close()
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("customnavmesh - " + s.Name)

	if err := ebiten.RunGame(NewGame(s, reloader, *snapshots)); err != nil {
		log.Fatal(err)
	}
}
