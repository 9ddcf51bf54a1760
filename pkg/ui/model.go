package ui

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sensspec/sensspec/pkg/config"
	"github.com/sensspec/sensspec/pkg/diagram"
	"github.com/sensspec/sensspec/pkg/export"
	"github.com/sensspec/sensspec/pkg/model"
	"github.com/sensspec/sensspec/pkg/preset"
	"github.com/sensspec/sensspec/pkg/reference"
)

type focusArea int

const (
	focusPresets focusArea = iota
	focusSliders
)

// statusTimeout is how long a status message stays in the footer.
const statusTimeout = 4 * time.Second

// ConfigReloadedMsg is sent by the config watcher after the file changed.
type ConfigReloadedMsg struct {
	Config config.Config
	Err    error
}

type referenceLoadedMsg struct {
	img image.Image
	err error
}

type exportDoneMsg struct {
	paths []string
	err   error
}

type clearStatusMsg struct{ seq int }

// FetchFunc downloads the reference illustration.
type FetchFunc func(ctx context.Context, url string, timeout time.Duration) (image.Image, error)

// Model is the interactive session. The only mutable domain state is the
// slider settings; every change goes through recompute.
type Model struct {
	cfg     config.Config
	presets []preset.Preset

	settings model.Settings
	diagram  model.Diagram
	buildErr error

	focus        focusArea
	presetCursor int
	applied      int // index into presets of the last applied preset, -1 for none
	sliderCursor int

	filtering bool
	filter    textinput.Model

	showExplanation bool
	explanation     viewport.Model
	refRequested    bool
	refImage        image.Image
	refErr          error

	help HelpOverlayModel

	status    string
	statusSeq int

	width  int
	height int
	theme  Theme

	fetch  FetchFunc
	copyFn func(string) error
	now    func() time.Time
}

// NewModel builds the session from configuration.
func NewModel(cfg config.Config, theme Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Filter test types..."
	ti.CharLimit = 64
	ti.Width = SidebarWidth - 8

	m := Model{
		cfg:         cfg,
		presets:     cfg.AllPresets(),
		settings:    cfg.InitialSettings(),
		applied:     -1,
		filter:      ti,
		explanation: viewport.New(60, 20),
		help:        NewHelpOverlayModel(theme),
		theme:       theme,
		width:       120,
		height:      40,
		copyFn:      clipboard.WriteAll,
		now:         time.Now,
	}
	m.fetch = func(ctx context.Context, url string, timeout time.Duration) (image.Image, error) {
		return reference.Fetch(ctx, nil, url, timeout)
	}
	m.recompute()
	return m
}

// recompute rebuilds the diagram from the current settings. It is the single
// entry point invoked after every state transition.
func (m *Model) recompute() {
	m.diagram, m.buildErr = diagram.Build(m.settings.Params(), m.cfg.Grid)
}

// WithSettings replaces the slider state, as chosen on the command line.
// presetName marks the matching preset as applied; empty means none.
func (m Model) WithSettings(s model.Settings, presetName string) Model {
	m.settings = s
	m.applied = -1
	if p, ok := preset.Lookup(m.presets, presetName); ok {
		for i := range m.presets {
			if m.presets[i].Name == p.Name {
				m.applied = i
				m.presetCursor = i
			}
		}
	}
	m.recompute()
	return m
}

// Settings returns the current slider state.
func (m Model) Settings() model.Settings { return m.settings }

// Diagram returns the current diagram.
func (m Model) Diagram() model.Diagram { return m.diagram }

// VisiblePresets returns the presets matching the current filter.
func (m Model) VisiblePresets() []preset.Preset {
	return preset.Search(m.presets, m.filter.Value())
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resizeExplanation()
		return m, nil

	case referenceLoadedMsg:
		m.refImage, m.refErr = msg.img, msg.err
		m.refreshExplanation()
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			return m.setStatus(fmt.Sprintf("Export failed: %v", msg.err))
		}
		return m.setStatus(fmt.Sprintf("Exported %s", strings.Join(msg.paths, ", ")))

	case ConfigReloadedMsg:
		if msg.Err != nil {
			return m.setStatus(fmt.Sprintf("Config reload failed: %v", msg.Err))
		}
		m.applyConfig(msg.Config)
		return m.setStatus("Config reloaded")

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.help.IsVisible() {
		m.help = m.help.Update(msg)
		return m, nil
	}

	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.help.Toggle()
		return m, nil
	case "tab", "shift+tab":
		if m.focus == focusPresets {
			m.focus = focusSliders
		} else {
			m.focus = focusPresets
		}
		return m, nil
	case "e":
		return m.toggleExplanation()
	case "x":
		return m, m.exportCmd()
	case "y":
		return m.copySummary()
	case "pgup", "pgdown":
		if m.showExplanation {
			var cmd tea.Cmd
			m.explanation, cmd = m.explanation.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.focus == focusPresets {
		return m.handlePresetKey(msg)
	}
	return m.handleSliderKey(msg)
}

func (m Model) handlePresetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.VisiblePresets()
	switch msg.String() {
	case "up", "k":
		if m.presetCursor > 0 {
			m.presetCursor--
		}
	case "down", "j":
		if m.presetCursor < len(visible)-1 {
			m.presetCursor++
		}
	case "enter", " ":
		if m.presetCursor < len(visible) {
			m.applyPreset(visible[m.presetCursor])
		}
	case "/":
		m.filtering = true
		m.filter.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.presetCursor = 0
		return m, nil
	case "enter":
		visible := m.VisiblePresets()
		if m.presetCursor < len(visible) {
			m.applyPreset(visible[m.presetCursor])
		}
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.presetCursor = m.appliedIndexIn(m.VisiblePresets())
		return m, nil
	case "up", "ctrl+p":
		if m.presetCursor > 0 {
			m.presetCursor--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.presetCursor < len(m.VisiblePresets())-1 {
			m.presetCursor++
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if n := len(m.VisiblePresets()); m.presetCursor >= n {
		m.presetCursor = max(0, n-1)
	}
	return m, cmd
}

func (m Model) handleSliderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	field := model.Fields[m.sliderCursor]
	switch msg.String() {
	case "up", "k":
		if m.sliderCursor > 0 {
			m.sliderCursor--
		}
	case "down", "j":
		if m.sliderCursor < len(model.Fields)-1 {
			m.sliderCursor++
		}
	case "left", "h":
		m.settings = m.settings.Step(field, -1)
		m.recompute()
	case "right", "l":
		m.settings = m.settings.Step(field, 1)
		m.recompute()
	case "H", "shift+left":
		m.settings = m.settings.Step(field, -10)
		m.recompute()
	case "L", "shift+right":
		m.settings = m.settings.Step(field, 10)
		m.recompute()
	case "r":
		m.settings = m.cfg.InitialSettings()
		m.applied = -1
		m.recompute()
	}
	return m, nil
}

// applyPreset is the preset-selection transition: the preset overrides the
// stored sensitivity and specificity, then the diagram is recomputed.
func (m *Model) applyPreset(p preset.Preset) {
	m.settings = p.Apply(m.settings)
	for i := range m.presets {
		if m.presets[i].Name == p.Name {
			m.applied = i
		}
	}
	m.recompute()
}

func (m Model) appliedIndexIn(list []preset.Preset) int {
	if m.applied < 0 || m.applied >= len(m.presets) {
		return 0
	}
	for i, p := range list {
		if p.Name == m.presets[m.applied].Name {
			return i
		}
	}
	return 0
}

// applyConfig swaps in a reloaded configuration. Current slider values are
// kept; the grid and preset list follow the file.
func (m *Model) applyConfig(cfg config.Config) {
	var appliedName string
	if m.applied >= 0 && m.applied < len(m.presets) {
		appliedName = m.presets[m.applied].Name
	}

	m.cfg = cfg
	m.presets = cfg.AllPresets()
	m.applied = -1
	for i, p := range m.presets {
		if p.Name == appliedName {
			m.applied = i
		}
	}
	if n := len(m.VisiblePresets()); m.presetCursor >= n {
		m.presetCursor = max(0, n-1)
	}
	m.recompute()
}

func (m Model) toggleExplanation() (tea.Model, tea.Cmd) {
	m.showExplanation = !m.showExplanation
	m.resizeExplanation()
	m.refreshExplanation()
	if !m.showExplanation || m.refRequested || m.fetch == nil {
		return m, nil
	}
	m.refRequested = true
	fetch := m.fetch
	url, timeout := m.cfg.Reference.URL, m.cfg.ReferenceTimeout()
	return m, func() tea.Msg {
		img, err := fetch(context.Background(), url, timeout)
		return referenceLoadedMsg{img: img, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	if m.buildErr != nil {
		err := m.buildErr
		return func() tea.Msg { return exportDoneMsg{err: err} }
	}
	d := m.diagram
	title := m.settings.String()
	stamp := m.now().Format("20060102-150405")
	dir := m.cfg.Export.Dir
	if dir == "" {
		dir = "."
	}
	paths := []string{
		filepath.Join(dir, "sensspec-"+stamp+".svg"),
		filepath.Join(dir, "sensspec-"+stamp+".png"),
	}
	return func() tea.Msg {
		opts := make([]export.DiagramSnapshotOptions, 0, len(paths))
		for _, p := range paths {
			opts = append(opts, export.DiagramSnapshotOptions{Path: p, Diagram: d, Title: title})
		}
		err := export.SaveAll(context.Background(), opts...)
		return exportDoneMsg{paths: paths, err: err}
	}
}

func (m Model) copySummary() (tea.Model, tea.Cmd) {
	if m.buildErr != nil {
		return m.setStatus(fmt.Sprintf("Nothing to copy: %v", m.buildErr))
	}
	if err := m.copyFn(Summary(m.settings, m.diagram)); err != nil {
		return m.setStatus(fmt.Sprintf("Clipboard unavailable: %v", err))
	}
	return m.setStatus("Summary copied to clipboard")
}

func (m Model) setStatus(s string) (tea.Model, tea.Cmd) {
	m.status = s
	m.statusSeq++
	seq := m.statusSeq
	return m, tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

