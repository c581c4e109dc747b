package scene

import (
	"log"
	"path/filepath"

	"github.com/jadvrodrigues/customnavmesh/prefabs"
)

// Reloader applies prefab and script edits to a running scene. Poll must be
// called from the goroutine that ticks the scene.
type Reloader struct {
	scene   *Scene
	watcher *prefabs.Watcher
}

// Watch starts watching dirs for edits to the scene's prefab and to
// controller scripts.
func Watch(s *Scene, dirs ...string) (*Reloader, error) {
	w, err := prefabs.NewWatcher(dirs...)
	if err != nil {
		return nil, err
	}
	return &Reloader{scene: s, watcher: w}, nil
}

// Poll applies every pending change without blocking. It reports whether the
// scene changed.
func (r *Reloader) Poll() bool {
	changed := false
	for {
		select {
		case path, ok := <-r.watcher.Events:
			if !ok {
				return changed
			}
			applied, err := r.scene.HandleFileChange(path)
			if err != nil {
				log.Printf("scene: reload %s: %v", path, err)
				continue
			}
			changed = changed || applied
		case err, ok := <-r.watcher.Errors:
			if ok {
				log.Printf("scene: watch: %v", err)
			}
		default:
			return changed
		}
	}
}

func (r *Reloader) Close() error {
	return r.watcher.Close()
}

// HandleFileChange reacts to an edited file: scripts are recompiled on the
// next tick and the scene's own prefab is reapplied. Other files are
// ignored.
func (s *Scene) HandleFileChange(path string) (bool, error) {
	if prefabs.IsScriptFile(path) {
		s.Controllers.Invalidate()
		return true, nil
	}
	if s.source == "" || filepath.Base(path) != filepath.Base(s.source) {
		return false, nil
	}
	spec, err := prefabs.LoadSceneSpec(s.source)
	if err != nil {
		return false, err
	}
	if err := s.Apply(spec); err != nil {
		return false, err
	}
	log.Printf("scene: reloaded %s", s.source)
	return true, nil
}
