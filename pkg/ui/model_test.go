package ui

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sensspec/sensspec/pkg/config"
	"github.com/sensspec/sensspec/pkg/model"
	"github.com/sensspec/sensspec/pkg/preset"
)

// keyMsg creates a tea.KeyMsg for testing
func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func testTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(io.Discard))
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(config.Default(), testTheme())
	m.fetch = func(context.Context, string, time.Duration) (image.Image, error) {
		return nil, errors.New("offline")
	}
	m.copyFn = func(string) error { return nil }
	return m
}

// press feeds keys through Update and returns the resulting model.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(t)

	if got := m.Settings(); got != model.DefaultSettings() {
		t.Fatalf("Settings() = %+v, want defaults", got)
	}
	c := m.Diagram().Counts
	if c.TP != 100506 || c.FN != 11167 || c.FP != 67476 || c.TN != 607283 {
		t.Errorf("counts = %+v", c)
	}
	if m.applied != -1 {
		t.Errorf("no preset should be applied at startup, got %d", m.applied)
	}
	if len(m.VisiblePresets()) != len(preset.Builtin()) {
		t.Errorf("VisiblePresets() = %d entries", len(m.VisiblePresets()))
	}
}

func TestPresetSelection(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, "j", "enter")
	s := m.Settings()
	if s.Sensitivity != 440 || s.Specificity != 999 || s.Prevalence != 142 {
		t.Fatalf("after asymptomatic Roche: %+v", s)
	}
	first := m.Diagram()

	// Selecting the same preset again changes nothing.
	m = press(t, m, "enter")
	if m.Settings() != s {
		t.Errorf("reapplying preset changed settings: %+v", m.Settings())
	}
	if m.Diagram().Counts != first.Counts {
		t.Errorf("reapplying preset changed counts")
	}

	// Coris has no specificity, so the slider keeps its value.
	m = press(t, m, "j", "enter")
	s = m.Settings()
	if s.Sensitivity != 341 || s.Specificity != 999 {
		t.Errorf("after Coris: %+v", s)
	}
	if !strings.Contains(m.View(), "(•) (Symptomatic) Coris") {
		t.Errorf("applied marker missing from view")
	}
}

func TestPresetCursorBounds(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "k", "k")
	if m.presetCursor != 0 {
		t.Errorf("cursor moved above first preset: %d", m.presetCursor)
	}
	for range 10 {
		m = press(t, m, "j")
	}
	if want := len(m.VisiblePresets()) - 1; m.presetCursor != want {
		t.Errorf("cursor = %d, want %d", m.presetCursor, want)
	}
}

func TestSliderKeys(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.focus != focusSliders {
		t.Fatalf("tab did not focus sliders")
	}

	tests := []struct {
		name string
		keys []string
		want model.Settings
	}{
		{"specificity up", []string{"l"}, model.Settings{Sensitivity: 900, Specificity: 901, Prevalence: 142}},
		{"specificity coarse down", []string{"H"}, model.Settings{Sensitivity: 900, Specificity: 890, Prevalence: 142}},
		{"sensitivity down", []string{"j", "h"}, model.Settings{Sensitivity: 899, Specificity: 900, Prevalence: 142}},
		{"prevalence coarse up", []string{"j", "j", "L"}, model.Settings{Sensitivity: 900, Specificity: 900, Prevalence: 152}},
		{"specificity clamps at max", []string{"L", "L", "L", "L", "L", "L", "L", "L", "L", "L", "L"}, model.Settings{Sensitivity: 900, Specificity: 1000, Prevalence: 142}},
		{"reset", []string{"l", "j", "l", "r"}, model.DefaultSettings()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := press(t, m, tt.keys...)
			if got.Settings() != tt.want {
				t.Errorf("Settings() = %+v, want %+v", got.Settings(), tt.want)
			}
		})
	}
}

func TestSliderChangeRecomputes(t *testing.T) {
	m := newTestModel(t)
	before := m.Diagram().Counts.TP
	m = press(t, m, "tab", "j", "L")
	if m.Diagram().Counts.TP <= before {
		t.Errorf("TP did not grow with sensitivity: %d -> %d", before, m.Diagram().Counts.TP)
	}
}

func TestFilterAndApply(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "/")
	if !m.filtering {
		t.Fatal("/ should start filtering")
	}
	m = press(t, m, "xpert")
	visible := m.VisiblePresets()
	if len(visible) != 1 || !strings.Contains(visible[0].Name, "Xpert") {
		t.Fatalf("VisiblePresets() = %v", visible)
	}

	m = press(t, m, "enter")
	if m.filtering || m.filter.Value() != "" {
		t.Errorf("enter should leave filter mode and clear the query")
	}
	if s := m.Settings(); s.Sensitivity != 1000 || s.Specificity != 972 {
		t.Errorf("after Xpert Xpress: %+v", s)
	}
	if m.VisiblePresets()[m.presetCursor].Name != visible[0].Name {
		t.Errorf("cursor should follow the applied preset")
	}
}

func TestFilterEscape(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "/", "zzzz")
	if len(m.VisiblePresets()) != 0 {
		t.Fatalf("expected no matches")
	}
	if !strings.Contains(m.View(), "no matching test types") {
		t.Errorf("empty filter result not shown")
	}
	m = press(t, m, "esc")
	if m.filtering || len(m.VisiblePresets()) != len(preset.Builtin()) {
		t.Errorf("esc should restore the full list")
	}
	if m.Settings() != model.DefaultSettings() {
		t.Errorf("filtering must not change settings")
	}
}

func TestExplanationFetchesOnce(t *testing.T) {
	m := newTestModel(t)
	calls := 0
	m.fetch = func(_ context.Context, url string, _ time.Duration) (image.Image, error) {
		calls++
		if url != config.DefaultReferenceURL {
			t.Errorf("fetch url = %q", url)
		}
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	}

	next, cmd := m.Update(keyMsg("e"))
	m = next.(Model)
	if !m.showExplanation || cmd == nil {
		t.Fatal("e should open the explanation and start a fetch")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)
	if m.refImage == nil || m.refErr != nil {
		t.Errorf("reference not stored: img=%v err=%v", m.refImage, m.refErr)
	}

	m = press(t, m, "e")
	next, cmd = m.Update(keyMsg("e"))
	m = next.(Model)
	if cmd != nil {
		t.Errorf("second open should not refetch")
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
	if !strings.Contains(m.View(), "Specificity and Sensitivity") {
		t.Errorf("title missing from view")
	}
}

func TestExplanationFetchFailure(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(keyMsg("e"))
	m = next.(Model)
	next, _ = m.Update(cmd())
	m = next.(Model)
	if m.refErr == nil {
		t.Fatal("expected fetch error")
	}
	if m.Diagram().Counts.TP != 100506 {
		t.Errorf("fetch failure must not affect the diagram")
	}
}

func TestCopySummary(t *testing.T) {
	m := newTestModel(t)
	var copied string
	m.copyFn = func(s string) error {
		copied = s
		return nil
	}
	next, cmd := m.Update(keyMsg("y"))
	m = next.(Model)
	if !strings.Contains(copied, "TP 100,506") {
		t.Errorf("copied summary = %q", copied)
	}
	if m.status != "Summary copied to clipboard" || cmd == nil {
		t.Errorf("status = %q", m.status)
	}

	m.copyFn = func(string) error { return errors.New("no clipboard") }
	m = press(t, m, "y")
	if !strings.Contains(m.status, "no clipboard") {
		t.Errorf("status = %q", m.status)
	}
}

func TestStatusClears(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(keyMsg("y"))
	m = next.(Model)
	seq := m.statusSeq

	next, _ = m.Update(clearStatusMsg{seq: seq - 1})
	m = next.(Model)
	if m.status == "" {
		t.Error("stale clear message removed a newer status")
	}
	next, _ = m.Update(clearStatusMsg{seq: seq})
	m = next.(Model)
	if m.status != "" {
		t.Errorf("status = %q, want empty", m.status)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Export.Dir = dir
	m := NewModel(cfg, testTheme())
	m.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	_, cmd := m.Update(keyMsg("x"))
	if cmd == nil {
		t.Fatal("x should return an export command")
	}
	msg, ok := cmd().(exportDoneMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if msg.err != nil {
		t.Fatalf("export: %v", msg.err)
	}
	for _, name := range []string{"sensspec-20240301-123000.svg", "sensspec-20240301-123000.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	next, _ := m.Update(msg)
	if status := next.(Model).status; !strings.HasPrefix(status, "Exported") {
		t.Errorf("status = %q", status)
	}
}

func TestConfigReload(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "enter")
	applied := m.Settings()

	cfg := config.Default()
	cfg.Grid = model.Grid{Width: 100, Height: 100}
	cfg.Presets = []preset.Preset{{Name: "Lab PCR", Sensitivity: 98.5}}

	next, _ := m.Update(ConfigReloadedMsg{Config: cfg})
	m = next.(Model)
	if m.Settings() != applied {
		t.Errorf("reload changed slider values: %+v", m.Settings())
	}
	if m.Diagram().Geometry.Grid.N() != 10000 {
		t.Errorf("grid not reloaded: %+v", m.Diagram().Geometry.Grid)
	}
	if _, ok := preset.Lookup(m.VisiblePresets(), "lab pcr"); !ok {
		t.Errorf("custom preset missing after reload")
	}
	if m.applied != 0 {
		t.Errorf("applied preset lost across reload: %d", m.applied)
	}

	next, _ = m.Update(ConfigReloadedMsg{Err: errors.New("bad yaml")})
	m = next.(Model)
	if !strings.Contains(m.status, "bad yaml") {
		t.Errorf("status = %q", m.status)
	}
	if m.Diagram().Geometry.Grid.N() != 10000 {
		t.Errorf("failed reload must keep the previous config")
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "?")
	if !m.help.IsVisible() || !strings.Contains(m.View(), "Help") {
		t.Fatal("? should show help")
	}
	m = press(t, m, "l")
	if m.help.IsVisible() {
		t.Error("any key should close help")
	}
	if m.Settings() != model.DefaultSettings() {
		t.Error("the closing key must not reach the sliders")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q did not quit")
	}
}

func TestViewFitsWindow(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 45})
	m = next.(Model)

	view := m.View()
	for _, want := range []string{"Select test type:", "Specificity (%)", "Prevalence (%)", "POPULATION", "True Negative"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if w := lipgloss.Width(view); w > 140 {
		t.Errorf("view width %d exceeds window", w)
	}
}
