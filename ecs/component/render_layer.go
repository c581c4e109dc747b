package component

import "image/color"

// Visibility controls whether the viewer draws a hidden actor.
type Visibility struct {
	Visible bool
}

var VisibilityComponent = NewComponent[Visibility]("visibility")

// Tint is the color the viewer draws a visible actor with.
type Tint struct {
	Color color.NRGBA
}

var TintComponent = NewComponent[Tint]("tint")
