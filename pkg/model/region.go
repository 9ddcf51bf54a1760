package model

// RegionKind identifies one cell of the contingency diagram.
type RegionKind string

const (
	TruePositive  RegionKind = "true_positive"
	FalseNegative RegionKind = "false_negative"
	FalsePositive RegionKind = "false_positive"
	TrueNegative  RegionKind = "true_negative"
)

// RegionKinds lists the kinds in drawing order.
var RegionKinds = []RegionKind{TruePositive, FalseNegative, FalsePositive, TrueNegative}

// Label returns the human readable name of the region.
func (k RegionKind) Label() string {
	switch k {
	case TruePositive:
		return "True Positive"
	case FalseNegative:
		return "False Negative"
	case FalsePositive:
		return "False Positive"
	case TrueNegative:
		return "True Negative"
	default:
		return string(k)
	}
}

// Color is a named fill colour.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Fill colours for the four regions. The outline is always black.
var (
	ColorTruePositive  = Color{Name: "red", Hex: "#FF0000"}
	ColorFalseNegative = Color{Name: "darkorange", Hex: "#FF8C00"}
	ColorFalsePositive = Color{Name: "mediumblue", Hex: "#0000CD"}
	ColorTrueNegative  = Color{Name: "forestgreen", Hex: "#228B22"}
	ColorOutline       = Color{Name: "black", Hex: "#000000"}
)

// Color returns the fill colour of the region kind.
func (k RegionKind) Color() Color {
	switch k {
	case TruePositive:
		return ColorTruePositive
	case FalseNegative:
		return ColorFalseNegative
	case FalsePositive:
		return ColorFalsePositive
	default:
		return ColorTrueNegative
	}
}

// Point is a coordinate in diagram space. Y grows downwards: 0 is the top edge.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region is one labelled rectangle of the diagram, stored as a closed
// quadrilateral (top-left, top-right, bottom-right, bottom-left).
type Region struct {
	Kind    RegionKind `json:"kind"`
	Label   string     `json:"label"`
	Color   Color      `json:"color"`
	Count   int        `json:"count"`
	Polygon [4]Point   `json:"polygon"`
	LabelAt Point      `json:"label_at"`
}

// Bounds returns the rectangle as x, y, width, height.
func (r Region) Bounds() (x, y, w, h float64) {
	x, y = r.Polygon[0].X, r.Polygon[0].Y
	w = r.Polygon[2].X - x
	h = r.Polygon[2].Y - y
	return x, y, w, h
}

// Empty reports whether the region has zero area.
func (r Region) Empty() bool {
	_, _, w, h := r.Bounds()
	return w <= 0 || h <= 0
}
