package model

import "fmt"

// Slider bounds and defaults, in tenths of a percent.
const (
	MinSensSpecTenths = 500
	MaxSensSpecTenths = 1000
	MinPrevTenths     = 5
	MaxPrevTenths     = 1000

	DefaultSensTenths = 900
	DefaultSpecTenths = 900
	DefaultPrevTenths = 142
)

// Settings is the session state behind the three sliders. Values are kept in
// tenths of a percent so 0.1 steps never accumulate floating point error.
type Settings struct {
	Sensitivity int `json:"sensitivity_tenths"`
	Specificity int `json:"specificity_tenths"`
	Prevalence  int `json:"prevalence_tenths"`
}

// DefaultSettings returns 90.0 / 90.0 / 14.2.
func DefaultSettings() Settings {
	return Settings{
		Sensitivity: DefaultSensTenths,
		Specificity: DefaultSpecTenths,
		Prevalence:  DefaultPrevTenths,
	}
}

// TenthsFromPercent rounds a percentage to the nearest tenth.
func TenthsFromPercent(pct float64) int {
	if pct < 0 {
		return int(pct*10 - 0.5)
	}
	return int(pct*10 + 0.5)
}

// SettingsFromPercent builds clamped settings from percentages.
func SettingsFromPercent(sens, spec, prev float64) Settings {
	return Settings{
		Sensitivity: TenthsFromPercent(sens),
		Specificity: TenthsFromPercent(spec),
		Prevalence:  TenthsFromPercent(prev),
	}.Clamp()
}

// Clamp pulls every value back inside its slider range.
func (s Settings) Clamp() Settings {
	s.Sensitivity = clampInt(s.Sensitivity, MinSensSpecTenths, MaxSensSpecTenths)
	s.Specificity = clampInt(s.Specificity, MinSensSpecTenths, MaxSensSpecTenths)
	s.Prevalence = clampInt(s.Prevalence, MinPrevTenths, MaxPrevTenths)
	return s
}

// Params converts the settings into fractions for the diagram builder.
func (s Settings) Params() Params {
	return Params{
		Sensitivity: float64(s.Sensitivity) / 1000,
		Specificity: float64(s.Specificity) / 1000,
		Prevalence:  float64(s.Prevalence) / 1000,
	}
}

// String formats the settings as shown on the sliders.
func (s Settings) String() string {
	return fmt.Sprintf("sens %s, spec %s, prev %s",
		FormatTenths(s.Sensitivity), FormatTenths(s.Specificity), FormatTenths(s.Prevalence))
}

// FormatTenths renders 653 as "65.3%".
func FormatTenths(v int) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%d%%", sign, v/10, v%10)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Field identifies one slider.
type Field int

const (
	FieldSpecificity Field = iota
	FieldSensitivity
	FieldPrevalence
)

// Fields lists the sliders in display order.
var Fields = []Field{FieldSpecificity, FieldSensitivity, FieldPrevalence}

// Label returns the slider caption.
func (f Field) Label() string {
	switch f {
	case FieldSpecificity:
		return "Specificity (%)"
	case FieldSensitivity:
		return "Sensitivity (%)"
	default:
		return "Prevalence (%)"
	}
}

// Bounds returns the slider range in tenths.
func (f Field) Bounds() (lo, hi int) {
	if f == FieldPrevalence {
		return MinPrevTenths, MaxPrevTenths
	}
	return MinSensSpecTenths, MaxSensSpecTenths
}

// Get returns the value of field f.
func (s Settings) Get(f Field) int {
	switch f {
	case FieldSpecificity:
		return s.Specificity
	case FieldSensitivity:
		return s.Sensitivity
	default:
		return s.Prevalence
	}
}

// Set returns a copy of s with field f set to v. No clamping is applied.
func (s Settings) Set(f Field, v int) Settings {
	switch f {
	case FieldSpecificity:
		s.Specificity = v
	case FieldSensitivity:
		s.Sensitivity = v
	default:
		s.Prevalence = v
	}
	return s
}

// Step moves field f by delta tenths. The result stays inside the slider
// range, except that a value already below the minimum (set by a preset) is
// never pushed further down.
func (s Settings) Step(f Field, delta int) Settings {
	lo, hi := f.Bounds()
	cur := s.Get(f)
	next := cur + delta

	if cur < lo {
		lo = cur
	}
	return s.Set(f, clampInt(next, lo, hi))
}
