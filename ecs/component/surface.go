package component

// Surface is a walkable rectangle centered on its transform, lying on the
// XZ plane at the transform's height.
type Surface struct {
	SizeX float64 `yaml:"size_x"`
	SizeZ float64 `yaml:"size_z"`
	Area  int     `yaml:"area"`
}

var SurfaceComponent = NewComponent[Surface]("surface")
