// Package config loads sensspec settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sensspec/sensspec/pkg/model"
	"github.com/sensspec/sensspec/pkg/preset"
)

// DefaultReferenceURL is the illustration shown in the explanation panel.
const DefaultReferenceURL = "https://upload.medbullets.com/topic/101006/images/sensitivity-specificity_corrected.jpg"

// DefaultReferenceTimeout bounds the reference image download.
const DefaultReferenceTimeout = 5 * time.Second

// Config is the on-disk configuration.
type Config struct {
	Grid      model.Grid      `yaml:"grid"`
	Defaults  Defaults        `yaml:"defaults"`
	Reference Reference       `yaml:"reference"`
	Export    Export          `yaml:"export"`
	Presets   []preset.Preset `yaml:"presets,omitempty"`

	// Path is where the config was loaded from (empty for defaults).
	Path string `yaml:"-"`
}

// Defaults are the initial slider positions, in percent.
type Defaults struct {
	Sensitivity float64 `yaml:"sensitivity"`
	Specificity float64 `yaml:"specificity"`
	Prevalence  float64 `yaml:"prevalence"`
}

// Reference configures the explanation panel illustration.
type Reference struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Export configures where snapshots are written from the TUI.
type Export struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Grid: model.DefaultGrid,
		Defaults: Defaults{
			Sensitivity: 90.0,
			Specificity: 90.0,
			Prevalence:  14.2,
		},
		Reference: Reference{
			URL:     DefaultReferenceURL,
			Timeout: DefaultReferenceTimeout,
		},
		Export: Export{Dir: "."},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/sensspec/config.yaml, falling back to
// the user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return filepath.Join(".", ".sensspec.yaml")
		}
	}
	return filepath.Join(dir, "sensspec", "config.yaml")
}

// Load reads the config at path. A missing file yields the defaults. A .env
// file in the working directory is loaded first, then SENSSPEC_* variables
// override file values.
func Load(path string) (Config, error) {
	cfg := Default()

	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, os.ErrNotExist):
		// defaults
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SENSSPEC_WIDTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SENSSPEC_WIDTH: %w", err)
		}
		c.Grid.Width = n
	}
	if v := os.Getenv("SENSSPEC_HEIGHT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SENSSPEC_HEIGHT: %w", err)
		}
		c.Grid.Height = n
	}
	if v := os.Getenv("SENSSPEC_REFERENCE_URL"); v != "" {
		c.Reference.URL = v
	}
	if v := os.Getenv("SENSSPEC_EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
	return nil
}

// Validate checks the grid, the default slider positions and custom presets.
func (c Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}

	d := c.Defaults
	if d.Sensitivity < 50 || d.Sensitivity > 100 {
		return fmt.Errorf("defaults.sensitivity %.1f outside [50,100]", d.Sensitivity)
	}
	if d.Specificity < 50 || d.Specificity > 100 {
		return fmt.Errorf("defaults.specificity %.1f outside [50,100]", d.Specificity)
	}
	if d.Prevalence < 0.5 || d.Prevalence > 100 {
		return fmt.Errorf("defaults.prevalence %.1f outside [0.5,100]", d.Prevalence)
	}

	if c.Reference.Timeout < 0 {
		return fmt.Errorf("reference.timeout must not be negative")
	}

	for i, p := range c.Presets {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("presets[%d]: %w", i, err)
		}
	}
	return nil
}

// InitialSettings returns the configured slider defaults.
func (c Config) InitialSettings() model.Settings {
	return model.SettingsFromPercent(c.Defaults.Sensitivity, c.Defaults.Specificity, c.Defaults.Prevalence)
}

// AllPresets returns the builtin presets merged with custom ones.
func (c Config) AllPresets() []preset.Preset {
	return preset.Merge(preset.Builtin(), c.Presets)
}

// ReferenceTimeout returns the configured timeout or the default.
func (c Config) ReferenceTimeout() time.Duration {
	if c.Reference.Timeout <= 0 {
		return DefaultReferenceTimeout
	}
	return c.Reference.Timeout
}

// SavePreset adds p to the config file at path, replacing a custom preset with
// the same name. The file and its directory are created if needed.
func SavePreset(path string, p preset.Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	replaced := false
	for i := range cfg.Presets {
		if strings.EqualFold(cfg.Presets[i].Name, p.Name) {
			cfg.Presets[i] = p
			replaced = true
		}
	}
	if !replaced {
		cfg.Presets = append(cfg.Presets, p)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, path)
}
