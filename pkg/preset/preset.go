// Package preset holds the named test kits whose published sensitivity and
// specificity override the slider values when selected.
package preset

import (
	"fmt"
	"math"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/sensspec/sensspec/pkg/model"
)

// Preset is a named test kit. Specificity is optional: a preset without one
// leaves the current specificity untouched.
type Preset struct {
	Name        string   `json:"name" yaml:"name"`
	Sensitivity float64  `json:"sensitivity" yaml:"sensitivity"`
	Specificity *float64 `json:"specificity,omitempty" yaml:"specificity,omitempty"`
	Source      string   `json:"source,omitempty" yaml:"source,omitempty"`
	Custom      bool     `json:"custom,omitempty" yaml:"-"`
}

func pct(v float64) *float64 { return &v }

// Builtin returns the bundled presets in display order.
func Builtin() []Preset {
	return []Preset{
		{Name: "(Symptomatic) Roche/SD Biosensor rapid antigen", Sensitivity: 65.3, Specificity: pct(99.9), Source: "https://pubmed.ncbi.nlm.nih.gov/34242764/"},
		{Name: "(Asymptomatic) Roche/SD Biosensor rapid antigen", Sensitivity: 44.0, Specificity: pct(99.9), Source: "https://pubmed.ncbi.nlm.nih.gov/34242764/"},
		{Name: "(Symptomatic) Coris BIOCONCEPT", Sensitivity: 34.1},
		{Name: "(Symptomatic) ID NOW", Sensitivity: 73.0, Specificity: pct(99.7)},
		{Name: "(Symptomatic) Xpert Xpress", Sensitivity: 100.0, Specificity: pct(97.2)},
	}
}

// Validate checks the preset has a name and percentages that survive
// rounding to the nearest tenth as a value in [0.1, 100].
func (p Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name is required")
	}
	if err := checkPercent(p.Sensitivity); err != nil {
		return fmt.Errorf("preset %q: sensitivity %w", p.Name, err)
	}
	if p.Specificity != nil {
		if err := checkPercent(*p.Specificity); err != nil {
			return fmt.Errorf("preset %q: specificity %w", p.Name, err)
		}
	}
	return nil
}

func checkPercent(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("is not a number")
	}
	if t := model.TenthsFromPercent(v); t < 1 || t > 1000 {
		return fmt.Errorf("%g%% out of range [0.1, 100]", v)
	}
	return nil
}

// Apply returns s with the preset's sensitivity and, when present, its
// specificity. Prevalence is never touched. Published values are kept as-is
// even when they fall below the slider minimum (Coris at 34.1%).
func (p Preset) Apply(s model.Settings) model.Settings {
	s.Sensitivity = model.TenthsFromPercent(p.Sensitivity)
	if p.Specificity != nil {
		s.Specificity = model.TenthsFromPercent(*p.Specificity)
	}
	return s
}

// Summary is a one-line description such as "sens 65.3% · spec 99.9%".
func (p Preset) Summary() string {
	spec := "unchanged"
	if p.Specificity != nil {
		spec = fmt.Sprintf("%.1f%%", *p.Specificity)
	}
	return fmt.Sprintf("sens %.1f%% · spec %s", p.Sensitivity, spec)
}

// Merge appends custom presets to base. A custom preset whose name matches an
// existing one (case-insensitively) replaces it in place.
func Merge(base, custom []Preset) []Preset {
	out := make([]Preset, len(base), len(base)+len(custom))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[strings.ToLower(p.Name)] = i
	}
	for _, c := range custom {
		c.Custom = true
		key := strings.ToLower(c.Name)
		if i, ok := index[key]; ok {
			out[i] = c
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

// Lookup finds a preset by case-insensitive name.
func Lookup(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Preset{}, false
}

type presetSource []Preset

func (s presetSource) String(i int) string { return s[i].Name }
func (s presetSource) Len() int            { return len(s) }

// Search ranks presets against query with fuzzy matching. An empty query
// returns the presets unchanged.
func Search(presets []Preset, query string) []Preset {
	query = strings.TrimSpace(query)
	if query == "" {
		return presets
	}
	matches := fuzzy.FindFrom(query, presetSource(presets))

	out := make([]Preset, 0, len(matches))
	for _, m := range matches {
		out = append(out, presets[m.Index])
	}
	return out
}
