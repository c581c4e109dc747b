package main

import (
	"fmt"
	"image/color"
	"math"

	"golang.org/x/image/font/basicfont"

	"github.com/ebitenui/ebitenui"
	imageui "github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
)

var (
	panelColor  = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 200}
	buttonColor = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 255}
	textColor   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	dimColor    = color.NRGBA{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff}
)

// inspector is the side panel describing the selected agent.
type inspector struct {
	title   *widget.Text
	details *widget.Text
	event   *widget.Text
	pause   *widget.Button
	enable  *widget.Button
}

// NewInspectorUI builds the right-hand panel: selection details plus the
// viewer's actions.
func NewInspectorUI(g *Game) (*ebitenui.UI, *inspector) {
	panelImg := imageui.NewNineSliceColor(panelColor)
	btnImg := imageui.NewNineSliceColor(buttonColor)

	var face ebtext.Face = ebtext.NewGoXFace(basicfont.Face7x13)
	btnTextColor := &widget.ButtonTextColor{Idle: textColor}
	fill := widget.WidgetOpts.LayoutData(widget.RowLayoutData{Stretch: true})

	in := &inspector{}
	in.title = widget.NewText(
		widget.TextOpts.Text("No selection", &face, textColor),
		widget.TextOpts.WidgetOpts(fill),
	)
	in.details = widget.NewText(
		widget.TextOpts.Text("click an agent to inspect it\nright click sends it somewhere", &face, dimColor),
		widget.TextOpts.WidgetOpts(fill),
	)
	in.event = widget.NewText(
		widget.TextOpts.Text("", &face, dimColor),
		widget.TextOpts.WidgetOpts(fill),
	)

	button := func(label string, onClick func()) *widget.Button {
		return widget.NewButton(
			widget.ButtonOpts.Image(&widget.ButtonImage{Idle: btnImg, Pressed: btnImg}),
			widget.ButtonOpts.Text(label, &face, btnTextColor),
			widget.ButtonOpts.WidgetOpts(fill),
			widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
				onClick()
			}),
		)
	}
	in.pause = button("Pause", g.togglePause)
	in.enable = button("Disable agent", g.toggleSelectedEnabled)

	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(panelImg),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(8),
			widget.RowLayoutOpts.Padding(&widget.Insets{Top: 16, Bottom: 16, Left: 12, Right: 12}),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(panelWidth, baseHeight),
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionEnd,
				VerticalPosition:   widget.AnchorLayoutPositionStart,
				StretchVertical:    true,
			}),
		),
	)
	panel.AddChild(in.title)
	panel.AddChild(in.details)
	panel.AddChild(in.pause)
	panel.AddChild(button("Toggle hidden layer", g.toggleHidden))
	panel.AddChild(in.enable)
	panel.AddChild(button("Copy agent YAML", g.copySelected))
	panel.AddChild(button("Save snapshot", g.saveSnapshot))
	panel.AddChild(in.event)

	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)
	root.AddChild(panel)

	return &ebitenui.UI{Container: root}, in
}

// refresh copies the selected agent's state into the panel.
func (in *inspector) refresh(g *Game) {
	if g.paused {
		in.pause.Text().Label = "Resume"
	} else {
		in.pause.Text().Label = "Pause"
	}
	in.event.Label = "last event: " + g.lastEvent()

	a, ok := g.selectedAgent()
	if !ok {
		in.title.Label = "No selection"
		in.details.Label = "click an agent to inspect it\nright click sends it somewhere"
		in.enable.Text().Label = "Disable agent"
		return
	}
	if a.Enabled() {
		in.enable.Text().Label = "Disable agent"
	} else {
		in.enable.Text().Label = "Enable agent"
	}

	cfg := a.Config()
	in.title.Label = a.Name()
	details := fmt.Sprintf("mode     %s\nrole     %s\nspeed    %.2f / %.2f\npriority %d\navoid    %s\nposition %s",
		a.Mode(), a.Role(), a.Velocity().Flat().Len(), cfg.Speed,
		cfg.AvoidancePriority, cfg.ObstacleAvoidance, a.Transform().Position)
	if d, ok := a.Destination(); ok {
		details += fmt.Sprintf("\ndest     %s\npath     %s", d, a.PathStatus())
		if rem := a.RemainingDistance(); !math.IsInf(rem, 1) {
			details += fmt.Sprintf("\nleft     %.2f", rem)
		}
	}
	in.details.Label = details
}
