// Package diagram turns test parameters into the geometry of a
// population-proportional 2x2 contingency diagram.
//
// The diseased column sits on the left (x in [0, DiseasedWidth]) and the
// healthy column on the right. Y grows downwards: true positives and false
// positives occupy the top of their columns, false negatives and true
// negatives the bottom.
package diagram

import (
	"fmt"
	"math"

	"github.com/sensspec/sensspec/pkg/model"
)

// Label margins as a fraction of the grid, so labels stay readable when a
// column or row is very thin.
const (
	labelMarginX = 0.065
	labelMarginY = 0.08
)

// Build computes counts, geometry and the four regions for p on grid g.
// It is a pure function; invalid input yields an error and no geometry.
func Build(p model.Params, g model.Grid) (model.Diagram, error) {
	if err := p.Validate(); err != nil {
		return model.Diagram{}, err
	}
	if err := g.Validate(); err != nil {
		return model.Diagram{}, err
	}

	counts := ComputeCounts(p, g)
	geom := ComputeGeometry(p, g, counts)

	return model.Diagram{
		Params:   p,
		Counts:   counts,
		Geometry: geom,
		Regions:  regions(geom, counts),
	}, nil
}

// MustBuild is like Build but panics on invalid input.
func MustBuild(p model.Params, g model.Grid) model.Diagram {
	d, err := Build(p, g)
	if err != nil {
		panic(fmt.Sprintf("diagram.MustBuild: %v", err))
	}
	return d
}

// ComputeCounts splits the population into TP, FN, FP and TN. The diseased
// and healthy populations are derived independently from prevalence.
func ComputeCounts(p model.Params, g model.Grid) model.Counts {
	n := float64(g.N())

	diseased := p.Prevalence * n
	missRate := 1/p.Sensitivity - 1
	tp := round(diseased / (1 + missRate))
	fn := round(float64(tp) * missRate)

	healthy := (1 - p.Prevalence) * n
	falseAlarm := 1/p.Specificity - 1
	tn := round(healthy / (1 + falseAlarm))
	fp := round(float64(tn) * falseAlarm)

	return model.Counts{TP: tp, FP: fp, FN: fn, TN: tn}
}

// ComputeGeometry derives column widths and split heights. Split heights are
// densities (count / column width), not proportions of the column, and are
// clamped to [0, height]. A zero-width column gets a split height of 0.
func ComputeGeometry(p model.Params, g model.Grid, c model.Counts) model.Geometry {
	dw := round(p.Prevalence * float64(g.Width))
	if dw > g.Width {
		dw = g.Width
	}
	hw := g.Width - dw

	hTP := density(c.TP, dw, g.Height)
	hFP := density(c.FP, hw, g.Height)

	return model.Geometry{
		Grid:          g,
		DiseasedWidth: dw,
		HealthyWidth:  hw,
		HeightTP:      hTP,
		HeightFN:      g.Height - hTP,
		HeightFP:      hFP,
		HeightTN:      g.Height - hFP,
	}
}

func density(count, width, height int) int {
	if width <= 0 {
		return 0
	}
	h := round(float64(count) / float64(width))
	if h < 0 {
		return 0
	}
	if h > height {
		return height
	}
	return h
}

func regions(geom model.Geometry, c model.Counts) []model.Region {
	w := float64(geom.Grid.Width)
	h := float64(geom.Grid.Height)
	dw := float64(geom.DiseasedWidth)
	hTP := float64(geom.HeightTP)
	hFP := float64(geom.HeightFP)

	out := []model.Region{
		newRegion(model.TruePositive, c.TP, 0, 0, dw, hTP),
		newRegion(model.FalseNegative, c.FN, 0, hTP, dw, h),
		newRegion(model.FalsePositive, c.FP, dw, 0, w, hFP),
		newRegion(model.TrueNegative, c.TN, dw, hFP, w, h),
	}
	for i := range out {
		out[i].LabelAt = placeLabel(out[i], geom.Grid)
	}
	return out
}

func newRegion(kind model.RegionKind, count int, x0, y0, x1, y1 float64) model.Region {
	return model.Region{
		Kind:  kind,
		Label: kind.Label(),
		Color: kind.Color(),
		Count: count,
		Polygon: [4]model.Point{
			{X: x0, Y: y0},
			{X: x1, Y: y0},
			{X: x1, Y: y1},
			{X: x0, Y: y1},
		},
	}
}

// placeLabel centres the label on its region, then pulls it inside the
// drawable margins.
func placeLabel(r model.Region, g model.Grid) model.Point {
	x, y, w, h := r.Bounds()
	cx := x + w/2
	cy := y + h/2

	mx := math.Round(float64(g.Width) * labelMarginX)
	my := math.Round(float64(g.Height) * labelMarginY)

	return model.Point{
		X: clamp(cx, mx, float64(g.Width)-mx),
		Y: clamp(cy, my, float64(g.Height)-my),
	}
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

// round rounds half to even, matching the reference figures exactly.
func round(v float64) int {
	return int(math.RoundToEven(v))
}
