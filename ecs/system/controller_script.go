package system

import (
	"fmt"
	"log"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/customnav"
	"github.com/jadvrodrigues/customnavmesh/ecs"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

// ScriptLoader returns the source of a controller script.
type ScriptLoader func(name string) ([]byte, error)

type controllerRuntime struct {
	script   string
	compiled *tengo.Compiled
	state    *tengo.Map
	started  bool
	failed   bool
}

const controllerDispatchScript = `
if __phase == "start" {
	start(__agent, __state)
} else if __phase == "update" {
	update(__agent, __state)
}
`

// ControllerScriptSystem runs the tengo controller attached to each visible
// agent. Scripts define start(agent, state), run once, and
// update(agent, state), run every tick. A script that fails is skipped until
// it is reloaded.
type ControllerScriptSystem struct {
	ctx      *customnav.Context
	load     ScriptLoader
	runtimes map[ecs.Entity]*controllerRuntime
}

func NewControllerScriptSystem(ctx *customnav.Context, load ScriptLoader) *ControllerScriptSystem {
	return &ControllerScriptSystem{
		ctx:      ctx,
		load:     load,
		runtimes: make(map[ecs.Entity]*controllerRuntime),
	}
}

// Invalidate drops every compiled script so the next tick reloads them.
func (s *ControllerScriptSystem) Invalidate() {
	s.runtimes = make(map[ecs.Entity]*controllerRuntime)
}

func (s *ControllerScriptSystem) Update(w *ecs.World) {
	if s == nil || s.ctx == nil || w == nil || s.load == nil {
		return
	}

	for e := range s.runtimes {
		if !ecs.Has(w, e, component.ControllerComponent) {
			delete(s.runtimes, e)
		}
	}

	ecs.ForEach(w, component.ControllerComponent, func(e ecs.Entity, c *component.Controller) {
		if strings.TrimSpace(c.Script) == "" || ecs.Has(w, e, component.DisabledComponent) {
			return
		}
		a, err := customnav.AgentOf(s.ctx, e)
		if err != nil {
			return
		}
		rt, err := s.runtime(e, c.Script)
		if err != nil {
			log.Printf("controller: entity=%v load %s: %v", e, c.Script, err)
			return
		}
		if rt.failed {
			return
		}
		api := buildAgentAPI(a, c.Params, w)
		if !rt.started {
			rt.started = true
			if err := rt.run("start", api); err != nil {
				rt.failed = true
				log.Printf("controller: entity=%v %s start: %v", e, c.Script, err)
				return
			}
		}
		if err := rt.run("update", api); err != nil {
			rt.failed = true
			log.Printf("controller: entity=%v %s update: %v", e, c.Script, err)
		}
	})
}

func (s *ControllerScriptSystem) runtime(e ecs.Entity, script string) (*controllerRuntime, error) {
	if rt, ok := s.runtimes[e]; ok && rt.script == script {
		return rt, nil
	}
	src, err := s.load(script)
	if err != nil {
		return nil, err
	}
	sc := tengo.NewScript([]byte(string(src) + "\n" + controllerDispatchScript))
	_ = sc.Add("__phase", "")
	_ = sc.Add("__agent", map[string]any{})
	_ = sc.Add("__state", map[string]any{})
	sc.SetImports(stdlib.GetModuleMap("math", "fmt", "text"))

	compiled, err := sc.Compile()
	if err != nil {
		return nil, err
	}
	rt := &controllerRuntime{
		script:   script,
		compiled: compiled,
		state:    &tengo.Map{Value: map[string]tengo.Object{}},
	}
	s.runtimes[e] = rt
	return rt, nil
}

func (rt *controllerRuntime) run(phase string, api *tengo.ImmutableMap) error {
	if err := rt.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := rt.compiled.Set("__agent", api); err != nil {
		return err
	}
	if err := rt.compiled.Set("__state", rt.state); err != nil {
		return err
	}
	return rt.compiled.Run()
}

func buildAgentAPI(a customnav.Agent, params map[string]any, w *ecs.World) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["name"] = &tengo.String{Value: a.Name()}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return vecObject(a.Transform().Position), nil
	}}

	values["destination"] = &tengo.UserFunction{Name: "destination", Value: func(args ...tengo.Object) (tengo.Object, error) {
		d, ok := a.Destination()
		if !ok {
			return tengo.UndefinedValue, nil
		}
		return vecObject(d), nil
	}}

	values["set_destination"] = &tengo.UserFunction{Name: "set_destination", Value: func(args ...tengo.Object) (tengo.Object, error) {
		p, err := vecArgs("set_destination", args)
		if err != nil {
			return nil, err
		}
		return boolObject(a.SetDestination(p)), nil
	}}

	values["warp"] = &tengo.UserFunction{Name: "warp", Value: func(args ...tengo.Object) (tengo.Object, error) {
		p, err := vecArgs("warp", args)
		if err != nil {
			return nil, err
		}
		return boolObject(a.Warp(p)), nil
	}}

	values["reset_path"] = &tengo.UserFunction{Name: "reset_path", Value: func(args ...tengo.Object) (tengo.Object, error) {
		a.ResetPath()
		return tengo.UndefinedValue, nil
	}}

	values["has_path"] = &tengo.UserFunction{Name: "has_path", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return boolObject(a.HasPath()), nil
	}}

	values["remaining_distance"] = &tengo.UserFunction{Name: "remaining_distance", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: a.RemainingDistance()}, nil
	}}

	values["stopping_distance"] = &tengo.UserFunction{Name: "stopping_distance", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: a.Config().StoppingDistance}, nil
	}}

	values["mode"] = &tengo.UserFunction{Name: "mode", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.String{Value: a.Mode().String()}, nil
	}}

	values["time"] = &tengo.UserFunction{Name: "time", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: w.Time()}, nil
	}}

	values["param"] = &tengo.UserFunction{Name: "param", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.UndefinedValue, nil
		}
		if v, ok := params[objectAsString(args[0])]; ok {
			return tengo.FromInterface(normalizeParam(v))
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return tengo.UndefinedValue, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, arg := range args {
			parts = append(parts, objectAsString(arg))
		}
		log.Printf("controller: %s: %s", a.Name(), strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func vecObject(v common.Vec3) tengo.Object {
	return &tengo.Array{Value: []tengo.Object{
		&tengo.Float{Value: v.X},
		&tengo.Float{Value: v.Y},
		&tengo.Float{Value: v.Z},
	}}
}

func boolObject(b bool) tengo.Object {
	if b {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

// vecArgs accepts either three numbers or one [x, y, z] array.
func vecArgs(name string, args []tengo.Object) (common.Vec3, error) {
	if len(args) == 1 {
		if arr, ok := args[0].(*tengo.Array); ok {
			args = arr.Value
		}
	}
	if len(args) != 3 {
		return common.Vec3{}, fmt.Errorf("%s: want x, y, z, got %d values", name, len(args))
	}
	var out [3]float64
	for i, arg := range args {
		f, ok := tengo.ToFloat64(arg)
		if !ok {
			return common.Vec3{}, fmt.Errorf("%s: argument %d is %s, not a number", name, i, arg.TypeName())
		}
		out[i] = f
	}
	return common.V3(out[0], out[1], out[2]), nil
}

// normalizeParam converts values decoded from YAML into types tengo can
// wrap.
func normalizeParam(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeParam(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeParam(item)
		}
		return out
	case int:
		return int64(t)
	default:
		return v
	}
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
