package component

// Name is the display name of an actor.
type Name struct {
	Value string
}

var NameComponent = NewComponent[Name]("name")

// Disabled marks a visible actor whose hidden counterpart is inactive.
type Disabled struct{}

var DisabledComponent = NewComponent[Disabled]("disabled")

// Unused marks a hidden actor kept around while its owner is disabled.
type Unused struct{}

var UnusedComponent = NewComponent[Unused]("unused")
