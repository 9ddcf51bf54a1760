package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter is returned when sensitivity, specificity or
	// prevalence is outside (0,1].
	ErrInvalidParameter = errors.New("invalid test parameter")
	// ErrInvalidGrid is returned for a population grid without positive dimensions.
	ErrInvalidGrid = errors.New("invalid population grid")
)

// Params holds the three test parameters as fractions in (0,1].
type Params struct {
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
	Prevalence  float64 `json:"prevalence"`
}

// ParamsFromPercent converts percentages (as shown on the sliders) into fractions.
func ParamsFromPercent(sens, spec, prev float64) Params {
	return Params{
		Sensitivity: sens / 100,
		Specificity: spec / 100,
		Prevalence:  prev / 100,
	}
}

// Percent returns sensitivity, specificity and prevalence in percent.
func (p Params) Percent() (sens, spec, prev float64) {
	return p.Sensitivity * 100, p.Specificity * 100, p.Prevalence * 100
}

// Validate checks that every parameter lies in (0,1].
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"sensitivity", p.Sensitivity},
		{"specificity", p.Specificity},
		{"prevalence", p.Prevalence},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || f.value <= 0 || f.value > 1 {
			return fmt.Errorf("%w: %s must be in (0,1], got %v", ErrInvalidParameter, f.name, f.value)
		}
	}
	return nil
}

// Grid is the fixed virtual population laid out as a width x height rectangle.
type Grid struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultGrid is a 1024x768 population (786,432 units).
var DefaultGrid = Grid{Width: 1024, Height: 768}

// N returns the population size.
func (g Grid) N() int {
	return g.Width * g.Height
}

// Validate checks that both dimensions are positive.
func (g Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGrid, g.Width, g.Height)
	}
	return nil
}

// Counts are the four cells of the contingency table.
type Counts struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TN int `json:"tn"`
}

// Diseased returns TP+FN.
func (c Counts) Diseased() int { return c.TP + c.FN }

// Healthy returns FP+TN.
func (c Counts) Healthy() int { return c.FP + c.TN }

// Positives returns the number of positive test results.
func (c Counts) Positives() int { return c.TP + c.FP }

// Total returns the sum of all four cells.
func (c Counts) Total() int { return c.TP + c.FP + c.FN + c.TN }

// PPV is the positive predictive value, TP/(TP+FP).
func (c Counts) PPV() float64 { return ratio(c.TP, c.TP+c.FP) }

// NPV is the negative predictive value, TN/(TN+FN).
func (c Counts) NPV() float64 { return ratio(c.TN, c.TN+c.FN) }

// Accuracy is (TP+TN)/total.
func (c Counts) Accuracy() float64 { return ratio(c.TP+c.TN, c.Total()) }

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Geometry describes the two columns and their split heights.
type Geometry struct {
	Grid          Grid `json:"grid"`
	DiseasedWidth int  `json:"diseased_width"`
	HealthyWidth  int  `json:"healthy_width"`
	HeightTP      int  `json:"h_tp"`
	HeightFN      int  `json:"h_fn"`
	HeightFP      int  `json:"h_fp"`
	HeightTN      int  `json:"h_tn"`
}

// Diagram is the full output of the diagram builder.
type Diagram struct {
	Params   Params   `json:"params"`
	Counts   Counts   `json:"counts"`
	Geometry Geometry `json:"geometry"`
	Regions  []Region `json:"regions"`
}

// Region returns the region of the given kind.
func (d Diagram) Region(kind RegionKind) (Region, bool) {
	for _, r := range d.Regions {
		if r.Kind == kind {
			return r, true
		}
	}
	return Region{}, false
}
