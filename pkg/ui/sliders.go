package ui

import (
	"fmt"
	"strings"

	"github.com/sensspec/sensspec/pkg/model"
)

// renderSlider draws one slider: caption, value, and a track with a knob.
// Values below the slider minimum (set by a preset) pin the knob to the left
// end and show the value in the warning colour.
func renderSlider(f model.Field, value int, selected, focused bool, t Theme) string {
	lo, hi := f.Bounds()

	pos := 0
	if hi > lo {
		pos = (value - lo) * (SliderBarWidth - 1) / (hi - lo)
	}
	if pos < 0 {
		pos = 0
	}
	if pos > SliderBarWidth-1 {
		pos = SliderBarWidth - 1
	}

	track := t.Renderer.NewStyle().Foreground(t.Secondary)
	fill := t.Renderer.NewStyle().Foreground(t.Primary)
	bar := fill.Render(strings.Repeat("━", pos)) + fill.Render("●") + track.Render(strings.Repeat("─", SliderBarWidth-1-pos))

	caption := t.Renderer.NewStyle().Foreground(t.Subtext)
	cursor := "  "
	if selected && focused {
		caption = caption.Bold(true).Foreground(t.Primary)
		cursor = "▸ "
	}

	valueStyle := t.Renderer.NewStyle().Bold(true)
	if value < lo {
		valueStyle = valueStyle.Foreground(t.Warning)
	}

	return fmt.Sprintf("%s%s %s\n  %s",
		cursor, caption.Render(fmt.Sprintf("%-16s", f.Label())), valueStyle.Render(model.FormatTenths(value)), bar)
}

// renderSliders draws all sliders in display order.
func renderSliders(s model.Settings, cursor int, focused bool, t Theme) string {
	parts := make([]string, 0, len(model.Fields))
	for i, f := range model.Fields {
		parts = append(parts, renderSlider(f, s.Get(f), i == cursor, focused, t))
	}
	return strings.Join(parts, "\n")
}
