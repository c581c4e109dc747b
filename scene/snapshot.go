package scene

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
	"github.com/jadvrodrigues/customnavmesh/prefabs"
)

const snapshotVersion = 1

// Snapshot is a saved scene: the current configuration of every actor as a
// scene spec, plus the ids and runtime state that a spec cannot express.
type Snapshot struct {
	Version int               `yaml:"version"`
	Time    float64           `yaml:"time"`
	Scene   prefabs.SceneSpec `yaml:"scene"`
	Actors  []ActorIdentity   `yaml:"actors"`
	Agents  []AgentSnapshot   `yaml:"agent_states"`
}

// ActorIdentity ties an actor name to its stable id.
type ActorIdentity struct {
	Name string    `yaml:"name"`
	ID   uuid.UUID `yaml:"id"`
}

// AgentSnapshot is the persisted state of one hidden agent. The destination
// is in visible space.
type AgentSnapshot struct {
	Name         string       `yaml:"name"`
	HiddenID     uuid.UUID    `yaml:"hidden_id"`
	Role         string       `yaml:"role"`
	Mode         string       `yaml:"mode"`
	IdleTime     float64      `yaml:"idle_time"`
	BlockingTime float64      `yaml:"blocking_time"`
	Destination  *common.Vec3 `yaml:"destination,omitempty"`
}

// Capture records the scene as it is now.
func (s *Scene) Capture() (Snapshot, error) {
	w := s.Ctx.World
	render := s.Ctx.RenderHidden()
	snap := Snapshot{
		Version: snapshotVersion,
		Time:    w.Time(),
		Scene: prefabs.SceneSpec{
			Name:              s.Name,
			HiddenTranslation: s.Ctx.HiddenTranslation(),
			RenderHidden:      &render,
			Nav:               s.nav,
		},
	}

	for _, name := range s.SurfaceNames() {
		sf, _ := s.Surface(name)
		snap.Scene.Surfaces = append(snap.Scene.Surfaces, prefabs.SurfaceSpec{
			Name:      name,
			Disabled:  !sf.Enabled(),
			Transform: transformSpec(sf.Transform()),
			Surface:   sf.Config(),
		})
		snap.Actors = append(snap.Actors, s.identity(name, sf.Entity()))
	}

	for _, name := range s.ObstacleNames() {
		o, _ := s.Obstacle(name)
		node, err := prefabs.EncodeComponentSpec(o.Config())
		if err != nil {
			return Snapshot{}, fmt.Errorf("scene: encode obstacle %s: %w", name, err)
		}
		snap.Scene.Obstacles = append(snap.Scene.Obstacles, prefabs.ObstacleSpec{
			Name:      name,
			Disabled:  !o.Enabled(),
			Transform: transformSpec(o.Transform()),
			Obstacle:  node,
			Tint:      s.tint(o.Entity()),
		})
		snap.Actors = append(snap.Actors, s.identity(name, o.Entity()))
	}

	for _, name := range s.AgentNames() {
		a, _ := s.Agent(name)
		spec, err := s.agentSpec(name, a)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Scene.Agents = append(snap.Scene.Agents, spec)
		snap.Actors = append(snap.Actors, s.identity(name, a.Entity()))

		st, ok := customnav.CaptureAgentState(a)
		if !ok {
			continue
		}
		as := AgentSnapshot{
			Name:         name,
			HiddenID:     st.HiddenID,
			Role:         st.Role.String(),
			Mode:         st.Policy.Mode.String(),
			IdleTime:     st.Policy.IdleTime,
			BlockingTime: st.Policy.BlockingTime,
		}
		if st.HasDestination {
			d := st.Destination
			as.Destination = &d
		}
		snap.Agents = append(snap.Agents, as)
	}
	return snap, nil
}

func (s *Scene) agentSpec(name string, a customnav.Agent) (prefabs.AgentSpec, error) {
	node, err := prefabs.EncodeComponentSpec(a.Config())
	if err != nil {
		return prefabs.AgentSpec{}, fmt.Errorf("scene: encode agent %s: %w", name, err)
	}
	spec := prefabs.AgentSpec{
		Name:      name,
		Disabled:  !a.Enabled(),
		Transform: transformSpec(a.Transform()),
		Agent:     node,
		Tint:      s.tint(a.Entity()),
	}
	if c, ok := ecs.Get(s.Ctx.World, a.Entity(), component.ControllerComponent); ok {
		ctrl := *c
		spec.Controller = &ctrl
	}
	return spec, nil
}

// AgentYAML returns the prefab entry of one agent as it is configured now.
func (s *Scene) AgentYAML(name string) ([]byte, error) {
	a, ok := s.Agent(name)
	if !ok {
		return nil, fmt.Errorf("scene: no agent %q", name)
	}
	spec, err := s.agentSpec(name, a)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal([]prefabs.AgentSpec{spec})
}

func (s *Scene) identity(name string, e ecs.Entity) ActorIdentity {
	id := ActorIdentity{Name: name}
	if ident, ok := ecs.Get(s.Ctx.World, e, component.IdentityComponent); ok {
		id.ID = ident.ID
	}
	return id
}

func (s *Scene) tint(e ecs.Entity) *prefabs.YAMLColor {
	if t, ok := ecs.Get(s.Ctx.World, e, component.TintComponent); ok {
		return &prefabs.YAMLColor{Color: t.Color}
	}
	return nil
}

func transformSpec(t component.Transform) prefabs.TransformSpec {
	scale := t.Scale
	return prefabs.TransformSpec{Position: t.Position, Rotation: t.Rotation, Scale: &scale}
}

// Restore builds a scene from a snapshot. Actor ids are reapplied and every
// hidden agent is relinked with its visible agent before the first tick.
func Restore(snap Snapshot, opts Options) (*Scene, error) {
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("scene: unsupported snapshot version %d", snap.Version)
	}
	if err := snap.Scene.Validate(); err != nil {
		return nil, fmt.Errorf("scene: snapshot: %w", err)
	}
	s, err := New(&snap.Scene, opts)
	if err != nil {
		return nil, err
	}
	w := s.Ctx.World
	w.Advance(snap.Time)

	for _, id := range snap.Actors {
		if id.ID == uuid.Nil {
			continue
		}
		if e, ok := s.entityNamed(id.Name); ok {
			customnav.SetIdentity(w, e, id.ID)
		}
	}
	for _, as := range snap.Agents {
		a, ok := s.Agent(as.Name)
		if !ok {
			log.Printf("scene: snapshot state for unknown agent %s", as.Name)
			continue
		}
		st := customnav.AgentState{
			HiddenID: as.HiddenID,
			Role:     parseRole(as.Role),
			Policy: customnav.BlockPolicyState{
				Mode:         parseMode(as.Mode),
				IdleTime:     as.IdleTime,
				BlockingTime: as.BlockingTime,
			},
		}
		if as.Destination != nil {
			st.Destination = *as.Destination
			st.HasDestination = true
		}
		customnav.RestoreAgentState(a, st)
	}
	s.Ctx.RebuildRegistry()
	return s, nil
}

func (s *Scene) entityNamed(name string) (ecs.Entity, bool) {
	for _, m := range []map[string]ecs.Entity{s.agents, s.obstacles, s.surfaces} {
		if e, ok := m[name]; ok {
			return e, true
		}
	}
	return 0, false
}

func parseRole(v string) customnav.Role {
	if v == customnav.RoleObstacle.String() {
		return customnav.RoleObstacle
	}
	return customnav.RoleFollowing
}

func parseMode(v string) customnav.Mode {
	if v == customnav.ModeBlocking.String() {
		return customnav.ModeBlocking
	}
	return customnav.ModeFollowing
}

// Save writes a snapshot of the scene. Paths ending in .zst are zstd
// compressed.
func (s *Scene) Save(path string) error {
	snap, err := s.Capture()
	if err != nil {
		return err
	}
	return WriteSnapshot(path, snap)
}

// LoadSnapshot reads a snapshot file and restores it.
func LoadSnapshot(path string, opts Options) (*Scene, error) {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return Restore(snap, opts)
}

// WriteSnapshot saves snap to path. The previous file survives a failed
// write.
func WriteSnapshot(path string, snap Snapshot) error {
	err := writeFileAtomic(path, func(out io.Writer) error {
		return EncodeSnapshot(out, snap, isCompressed(path))
	})
	if err != nil {
		return fmt.Errorf("scene: write %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes to a temp file next to path and renames it over
// path once write and close succeed.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func ReadSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	snap, err := DecodeSnapshot(f, isCompressed(path))
	if err != nil {
		return Snapshot{}, fmt.Errorf("scene: read %s: %w", path, err)
	}
	return snap, nil
}

func EncodeSnapshot(out io.Writer, snap Snapshot, compress bool) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	if !compress {
		_, err = out.Write(data)
		return err
	}
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func DecodeSnapshot(in io.Reader, compressed bool) (Snapshot, error) {
	var snap Snapshot
	if compressed {
		dec, err := zstd.NewReader(in)
		if err != nil {
			return snap, err
		}
		defer dec.Close()
		in = dec
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(in); err != nil {
		return snap, err
	}
	if err := yaml.Unmarshal(buf.Bytes(), &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

func isCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zst")
}
