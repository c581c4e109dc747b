package component

// Controller references the script that drives a visible agent.
type Controller struct {
	Script string         `yaml:"script"`
	Params map[string]any `yaml:"params"`
}

var ControllerComponent = NewComponent[Controller]("controller")
