package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sensspec/sensspec/pkg/model"
	"github.com/sensspec/sensspec/pkg/preset"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Grid != model.DefaultGrid {
		t.Errorf("grid = %+v, want default", cfg.Grid)
	}
	if cfg.InitialSettings() != model.DefaultSettings() {
		t.Errorf("initial settings = %+v", cfg.InitialSettings())
	}
	if cfg.Path != "" {
		t.Errorf("expected empty path for defaults, got %q", cfg.Path)
	}
	if len(cfg.AllPresets()) != len(preset.Builtin()) {
		t.Errorf("expected only builtin presets")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
grid: {width: 200, height: 100}
defaults: {sensitivity: 80, specificity: 95.5, prevalence: 2}
reference:
  url: http://example.invalid/ref.png
  timeout: 2s
presets:
  - name: My kit
    sensitivity: 80
    specificity: 98.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Grid != (model.Grid{Width: 200, Height: 100}) {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if got := cfg.InitialSettings(); got != (model.Settings{Sensitivity: 800, Specificity: 955, Prevalence: 20}) {
		t.Errorf("initial settings = %+v", got)
	}
	if cfg.ReferenceTimeout() != 2*time.Second {
		t.Errorf("timeout = %v", cfg.ReferenceTimeout())
	}
	all := cfg.AllPresets()
	if len(all) != 6 || all[5].Name != "My kit" || *all[5].Specificity != 98.5 {
		t.Errorf("unexpected presets %+v", all)
	}
	if cfg.Path != path {
		t.Errorf("path = %q", cfg.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SENSSPEC_WIDTH", "640")
	t.Setenv("SENSSPEC_HEIGHT", "480")
	t.Setenv("SENSSPEC_EXPORT_DIR", "/tmp/out")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Grid != (model.Grid{Width: 640, Height: 480}) {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if cfg.Export.Dir != "/tmp/out" {
		t.Errorf("export dir = %q", cfg.Export.Dir)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "grid: [1, 2"},
		{"zero grid", "grid: {width: 0, height: 10}"},
		{"default out of slider range", "defaults: {sensitivity: 40, specificity: 90, prevalence: 10}"},
		{"prevalence too small", "defaults: {sensitivity: 90, specificity: 90, prevalence: 0.1}"},
		{"preset without name", "presets: [{sensitivity: 80}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("SENSSPEC_WIDTH", "wide")
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatal("expected error for non-numeric width")
		}
	})

	t.Run("grid error is typed", func(t *testing.T) {
		_, err := Load(writeConfig(t, "grid: {width: -1, height: 10}"))
		if !errors.Is(err, model.ErrInvalidGrid) {
			t.Errorf("expected ErrInvalidGrid, got %v", err)
		}
	})
}

func TestSavePreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	spec := 99.0

	if err := SavePreset(path, preset.Preset{Name: "Kit A", Sensitivity: 81, Specificity: &spec}); err != nil {
		t.Fatalf("SavePreset error: %v", err)
	}
	if err := SavePreset(path, preset.Preset{Name: "Kit B", Sensitivity: 70}); err != nil {
		t.Fatalf("SavePreset error: %v", err)
	}
	if err := SavePreset(path, preset.Preset{Name: "kit a", Sensitivity: 85}); err != nil {
		t.Fatalf("SavePreset error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Presets) != 2 {
		t.Fatalf("expected 2 custom presets, got %+v", cfg.Presets)
	}
	if cfg.Presets[0].Sensitivity != 85 || cfg.Presets[0].Specificity != nil {
		t.Errorf("expected Kit A replaced, got %+v", cfg.Presets[0])
	}
	if cfg.ReferenceTimeout() != DefaultReferenceTimeout {
		t.Errorf("timeout not round-tripped: %v", cfg.ReferenceTimeout())
	}

	if err := SavePreset(path, preset.Preset{Name: "", Sensitivity: 70}); err == nil {
		t.Error("expected validation error")
	}
}
