package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sensspec/sensspec/pkg/model"
)

var labelColor = lipgloss.Color("#FFFFFF")

// cellLayout is the diagram geometry scaled to terminal cells.
type cellLayout struct {
	cols, rows   int
	diseasedCols int
	tpRows       int
	fpRows       int
}

// scaleSpan maps part/whole onto n cells. Non-zero parts keep at least one
// cell and non-zero complements keep at least one cell, so thin strips stay
// visible on a small terminal.
func scaleSpan(part, whole, n int) int {
	if whole <= 0 || n <= 0 {
		return 0
	}
	cells := int(math.Round(float64(part) / float64(whole) * float64(n)))
	if part > 0 && cells == 0 {
		cells = 1
	}
	if part < whole && cells == n && n > 1 {
		cells = n - 1
	}
	if cells > n {
		cells = n
	}
	return cells
}

func layoutCells(g model.Geometry, cols, rows int) cellLayout {
	return cellLayout{
		cols:         cols,
		rows:         rows,
		diseasedCols: scaleSpan(g.DiseasedWidth, g.Grid.Width, cols),
		tpRows:       scaleSpan(g.HeightTP, g.Grid.Height, rows),
		fpRows:       scaleSpan(g.HeightFP, g.Grid.Height, rows),
	}
}

func (l cellLayout) kindAt(col, row int) model.RegionKind {
	if col < l.diseasedCols {
		if row < l.tpRows {
			return model.TruePositive
		}
		return model.FalseNegative
	}
	if row < l.fpRows {
		return model.FalsePositive
	}
	return model.TrueNegative
}

// cellRect returns the cell bounds [c0,c1) x [r0,r1) of a region.
func (l cellLayout) cellRect(kind model.RegionKind) (c0, r0, c1, r1 int) {
	switch kind {
	case model.TruePositive:
		return 0, 0, l.diseasedCols, l.tpRows
	case model.FalseNegative:
		return 0, l.tpRows, l.diseasedCols, l.rows
	case model.FalsePositive:
		return l.diseasedCols, 0, l.cols, l.fpRows
	default:
		return l.diseasedCols, l.fpRows, l.cols, l.rows
	}
}

// RenderDiagram draws the four regions as coloured cells, cols x rows, with
// each region's label centred on it when it fits.
func RenderDiagram(d model.Diagram, cols, rows int, t Theme) string {
	if cols < 1 || rows < 1 || len(d.Regions) == 0 {
		return ""
	}
	l := layoutCells(d.Geometry, cols, rows)

	text := make([][]rune, rows)
	for r := range text {
		text[r] = []rune(strings.Repeat(" ", cols))
	}

	for _, kind := range model.RegionKinds {
		c0, r0, c1, r1 := l.cellRect(kind)
		w, h := c1-c0, r1-r0
		if w < 3 || h < 1 {
			continue
		}
		label := runewidth.Truncate(kind.Label(), w-2, "…")
		lw := runewidth.StringWidth(label)
		row := r0 + h/2
		start := c0 + (w-lw)/2
		for i, ch := range []rune(label) {
			text[row][start+i] = ch
		}
	}

	var b strings.Builder
	for r := 0; r < rows; r++ {
		var run strings.Builder
		current := l.kindAt(0, r)
		flush := func(kind model.RegionKind) {
			b.WriteString(t.Renderer.NewStyle().
				Background(RegionColor(kind)).
				Foreground(labelColor).
				Bold(true).
				Render(run.String()))
			run.Reset()
		}
		for c := 0; c < cols; c++ {
			kind := l.kindAt(c, r)
			if kind != current {
				flush(current)
				current = kind
			}
			run.WriteRune(text[r][c])
		}
		flush(current)
		if r < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
