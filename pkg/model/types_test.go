package model

import (
	"errors"
	"math"
	"testing"
)

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", ParamsFromPercent(90, 90, 14.2), false},
		{"all ones", Params{1, 1, 1}, false},
		{"tiny prevalence", Params{0.5, 0.5, 0.0001}, false},
		{"zero sensitivity", Params{0, 0.9, 0.1}, true},
		{"negative specificity", Params{0.9, -0.1, 0.1}, true},
		{"prevalence above one", Params{0.9, 0.9, 1.01}, true},
		{"nan", Params{math.NaN(), 0.9, 0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %+v", tt.params)
				}
				if !errors.Is(err, ErrInvalidParameter) {
					t.Errorf("expected ErrInvalidParameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGridValidate(t *testing.T) {
	if err := DefaultGrid.Validate(); err != nil {
		t.Fatalf("default grid invalid: %v", err)
	}
	if DefaultGrid.N() != 786432 {
		t.Errorf("expected N=786432, got %d", DefaultGrid.N())
	}
	for _, g := range []Grid{{0, 10}, {10, 0}, {-1, 5}} {
		if err := g.Validate(); !errors.Is(err, ErrInvalidGrid) {
			t.Errorf("grid %+v: expected ErrInvalidGrid, got %v", g, err)
		}
	}
}

func TestCountsDerived(t *testing.T) {
	c := Counts{TP: 90, FN: 10, FP: 45, TN: 855}

	if c.Diseased() != 100 || c.Healthy() != 900 || c.Total() != 1000 {
		t.Fatalf("unexpected totals: %+v", c)
	}
	if got := c.PPV(); math.Abs(got-90.0/135.0) > 1e-12 {
		t.Errorf("PPV = %v", got)
	}
	if got := c.NPV(); math.Abs(got-855.0/865.0) > 1e-12 {
		t.Errorf("NPV = %v", got)
	}
	if got := c.Accuracy(); math.Abs(got-0.945) > 1e-12 {
		t.Errorf("Accuracy = %v", got)
	}

	var zero Counts
	if zero.PPV() != 0 || zero.NPV() != 0 || zero.Accuracy() != 0 {
		t.Errorf("expected zero ratios for empty counts")
	}
}

func TestRegionKindLabelsAndColors(t *testing.T) {
	want := map[RegionKind]string{
		TruePositive:  "red",
		FalseNegative: "darkorange",
		FalsePositive: "mediumblue",
		TrueNegative:  "forestgreen",
	}
	for kind, color := range want {
		if kind.Color().Name != color {
			t.Errorf("%s: expected %s, got %s", kind, color, kind.Color().Name)
		}
		if kind.Label() == string(kind) {
			t.Errorf("%s: missing label", kind)
		}
	}
}

func TestRegionBoundsAndEmpty(t *testing.T) {
	r := Region{Polygon: [4]Point{{10, 0}, {30, 0}, {30, 5}, {10, 5}}}
	x, y, w, h := r.Bounds()
	if x != 10 || y != 0 || w != 20 || h != 5 {
		t.Errorf("unexpected bounds %v %v %v %v", x, y, w, h)
	}
	if r.Empty() {
		t.Error("expected non-empty region")
	}

	flat := Region{Polygon: [4]Point{{0, 3}, {0, 3}, {0, 3}, {0, 3}}}
	if !flat.Empty() {
		t.Error("expected empty region")
	}
}
