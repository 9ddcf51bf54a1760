package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	reflowtrunc "github.com/muesli/reflow/truncate"

	"github.com/sensspec/sensspec/pkg/reference"
)

// View implements tea.Model
func (m Model) View() string {
	if m.help.IsVisible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.help.View())
	}

	title := m.theme.Renderer.NewStyle().Bold(true).Foreground(m.theme.Primary).
		Render("Specificity and Sensitivity")

	sidebar := m.renderSidebar()
	main := m.renderMain()
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)

	return lipgloss.JoinVertical(lipgloss.Left, title, body, m.renderFooter())
}

func (m Model) renderSidebar() string {
	t := m.theme
	innerWidth := SidebarWidth - 4

	var b strings.Builder
	b.WriteString(t.Renderer.NewStyle().Bold(true).Render("Select test type:"))
	b.WriteString("\n")
	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	visible := m.VisiblePresets()
	if len(visible) == 0 {
		b.WriteString(t.Renderer.NewStyle().Faint(true).Render("  no matching test types"))
		b.WriteString("\n")
	}
	for i, p := range visible {
		marker := "( )"
		if m.applied >= 0 && m.applied < len(m.presets) && m.presets[m.applied].Name == p.Name {
			marker = "(•)"
		}
		line := reflowtrunc.StringWithTail(fmt.Sprintf("%s %s", marker, p.Name), uint(innerWidth-2), "…")
		style := t.Renderer.NewStyle().Foreground(t.Subtext)
		cursor := "  "
		if i == m.presetCursor && m.focus == focusPresets {
			style = style.Bold(true).Foreground(t.Primary)
			cursor = "▸ "
		}
		b.WriteString(cursor + style.Render(line) + "\n")
		if i == m.presetCursor && m.focus == focusPresets {
			b.WriteString("      " + t.Renderer.NewStyle().Faint(true).Render(p.Summary()) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(renderSliders(m.settings, m.sliderCursor, m.focus == focusSliders, t))

	style := t.PanelStyle()
	return style.Width(SidebarWidth - 2).Padding(0, 1).Render(b.String())
}

func (m Model) diagramSize() (cols, rows int) {
	cols = m.width - SidebarWidth - 3
	rows = m.height - StatsPanelLines - 6
	if m.showExplanation {
		rows = (m.height - 6) / 2
	}
	return max(cols, MinDiagramCols), max(rows, MinDiagramRows)
}

func (m Model) renderMain() string {
	cols, rows := m.diagramSize()

	var top string
	if m.buildErr != nil {
		top = m.theme.Renderer.NewStyle().Foreground(m.theme.Danger).
			Width(cols).Render(fmt.Sprintf("Cannot draw diagram: %v", m.buildErr))
	} else {
		top = RenderDiagram(m.diagram, cols, rows, m.theme)
	}

	var bottom string
	switch {
	case m.showExplanation:
		bottom = m.theme.PanelStyle().Render(m.explanation.View())
	case m.buildErr == nil:
		bottom = RenderStatsPanel(m.diagram, m.theme)
	}

	return lipgloss.JoinVertical(lipgloss.Left, top, "", bottom)
}

func (m Model) renderFooter() string {
	t := m.theme
	hint := t.Renderer.NewStyle().Faint(true).
		Render("tab focus • ←/→ adjust • enter apply • / filter • e explain • x export • y copy • ? help • q quit")
	if m.status == "" {
		return hint
	}
	return t.Renderer.NewStyle().Foreground(t.Warning).Render(m.status) + "  " + hint
}

func (m *Model) resizeExplanation() {
	cols, rows := m.diagramSize()
	m.explanation.Width = cols - 2
	m.explanation.Height = max(m.height-rows-8, 6)
	m.refreshExplanation()
}

// refreshExplanation rebuilds the collapsible panel content: glossary,
// reference thumbnail (or why it is missing) and the link.
func (m *Model) refreshExplanation() {
	if !m.showExplanation {
		return
	}
	t := m.theme
	width := max(m.explanation.Width, 20)

	var b strings.Builder
	text, err := reference.Explanation(m.cfg.Reference.URL, width-4)
	if err != nil {
		b.WriteString(t.Renderer.NewStyle().Foreground(t.Danger).Render(err.Error()))
	} else {
		b.WriteString(text)
	}
	b.WriteString("\n")

	switch {
	case m.refImage != nil:
		b.WriteString(reference.Thumbnail(m.refImage, width-4, 16, t.Renderer))
	case m.refErr != nil:
		b.WriteString(t.Renderer.NewStyle().Foreground(t.Warning).
			Render(fmt.Sprintf("Reference image unavailable: %v", m.refErr)))
	default:
		b.WriteString(t.Renderer.NewStyle().Faint(true).Render("Loading reference image..."))
	}
	b.WriteString("\n")
	b.WriteString(t.Renderer.NewStyle().Underline(true).Foreground(t.Secondary).Render(m.cfg.Reference.URL))

	m.explanation.SetContent(b.String())
}
