package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpOverlayModel shows keyboard shortcuts help
type HelpOverlayModel struct {
	visible bool
	theme   Theme
}

// NewHelpOverlayModel creates a new help overlay
func NewHelpOverlayModel(theme Theme) HelpOverlayModel {
	return HelpOverlayModel{theme: theme}
}

// Toggle toggles visibility
func (m *HelpOverlayModel) Toggle() {
	m.visible = !m.visible
}

// IsVisible returns true if overlay is showing
func (m HelpOverlayModel) IsVisible() bool {
	return m.visible
}

// Update closes the overlay on any key.
func (m HelpOverlayModel) Update(msg tea.Msg) HelpOverlayModel {
	if _, ok := msg.(tea.KeyMsg); ok && m.visible {
		m.visible = false
	}
	return m
}

type shortcut struct{ key, desc string }

var helpSections = []struct {
	title     string
	shortcuts []shortcut
}{
	{"NAVIGATION", []shortcut{
		{"Tab", "Switch between presets and sliders"},
		{"j/↓ k/↑", "Move selection"},
	}},
	{"PRESETS", []shortcut{
		{"Enter", "Apply test type"},
		{"/", "Filter test types"},
		{"Esc", "Clear filter"},
	}},
	{"SLIDERS", []shortcut{
		{"h/← l/→", "Adjust by 0.1"},
		{"H L", "Adjust by 1.0"},
		{"r", "Reset to defaults"},
	}},
	{"VIEW", []shortcut{
		{"e", "Toggle explanation"},
		{"x", "Export SVG and PNG"},
		{"y", "Copy summary"},
		{"?", "Toggle this help"},
		{"q", "Quit"},
	}},
}

// View renders the help overlay
func (m HelpOverlayModel) View() string {
	if !m.visible {
		return ""
	}

	var b strings.Builder

	titleStyle := m.theme.Renderer.NewStyle().
		Bold(true).
		Foreground(m.theme.Primary).
		MarginBottom(1)
	b.WriteString(titleStyle.Render("Specificity and Sensitivity Help"))
	b.WriteString("\n\n")

	sectionStyle := m.theme.Renderer.NewStyle().Bold(true).Foreground(m.theme.Secondary)
	keyStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Primary).Width(12)
	descStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext)

	for i, section := range helpSections {
		b.WriteString(sectionStyle.Render(section.title) + "\n")
		for _, s := range section.shortcuts {
			b.WriteString("  " + keyStyle.Render(s.key) + descStyle.Render(s.desc) + "\n")
		}
		if i < len(helpSections)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	hintStyle := m.theme.Renderer.NewStyle().Faint(true).Italic(true)
	b.WriteString(hintStyle.Render("[Press any key to close]"))

	boxStyle := m.theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Padding(1, 2)

	return boxStyle.Render(b.String())
}
