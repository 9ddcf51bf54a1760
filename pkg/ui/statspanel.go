package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sensspec/sensspec/pkg/model"
)

// RenderStatsPanel lists the four counts with their colour swatches, then the
// predictive values as mini bars.
func RenderStatsPanel(d model.Diagram, t Theme) string {
	c := d.Counts
	total := c.Total()
	if total == 0 {
		total = 1
	}

	header := t.Renderer.NewStyle().Bold(true).Foreground(t.Primary)
	label := t.Renderer.NewStyle().Foreground(t.Subtext)

	var lines []string
	lines = append(lines, header.Render(fmt.Sprintf("POPULATION  %s", humanize.Comma(int64(d.Geometry.Grid.N())))))

	counts := []struct {
		kind  model.RegionKind
		count int
	}{
		{model.TruePositive, c.TP},
		{model.FalseNegative, c.FN},
		{model.FalsePositive, c.FP},
		{model.TrueNegative, c.TN},
	}
	for _, row := range counts {
		swatch := t.Renderer.NewStyle().Foreground(RegionColor(row.kind)).Render("■")
		share := float64(row.count) / float64(total) * 100
		lines = append(lines, fmt.Sprintf(" %s %s %9s %5.1f%%",
			swatch, label.Render(fmt.Sprintf("%-15s", row.kind.Label()+":")), humanize.Comma(int64(row.count)), share))
	}

	lines = append(lines, "")
	ratios := []struct {
		name  string
		value float64
	}{
		{"PPV", c.PPV()},
		{"NPV", c.NPV()},
		{"Accuracy", c.Accuracy()},
	}
	for _, r := range ratios {
		lines = append(lines, fmt.Sprintf(" %s %6.2f%% %s",
			label.Render(fmt.Sprintf("%-9s", r.name+":")), r.value*100, RenderMiniBar(r.value, 12, t)))
	}

	return strings.Join(lines, "\n")
}

// Summary is the plain-text description copied to the clipboard and printed
// when stdout is not a terminal.
func Summary(s model.Settings, d model.Diagram) string {
	c := d.Counts
	g := d.Geometry
	var b strings.Builder
	fmt.Fprintf(&b, "Sensitivity %s, Specificity %s, Prevalence %s\n",
		model.FormatTenths(s.Sensitivity), model.FormatTenths(s.Specificity), model.FormatTenths(s.Prevalence))
	fmt.Fprintf(&b, "Population %s (%dx%d)\n", humanize.Comma(int64(g.Grid.N())), g.Grid.Width, g.Grid.Height)
	fmt.Fprintf(&b, "TP %s  FN %s  FP %s  TN %s\n",
		humanize.Comma(int64(c.TP)), humanize.Comma(int64(c.FN)), humanize.Comma(int64(c.FP)), humanize.Comma(int64(c.TN)))
	fmt.Fprintf(&b, "PPV %.2f%%  NPV %.2f%%  Accuracy %.2f%%\n", c.PPV()*100, c.NPV()*100, c.Accuracy()*100)
	fmt.Fprintf(&b, "Columns %d/%d  Heights TP %d FN %d FP %d TN %d",
		g.DiseasedWidth, g.HealthyWidth, g.HeightTP, g.HeightFN, g.HeightFP, g.HeightTN)
	return b.String()
}
