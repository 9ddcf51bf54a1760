package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/sensspec/sensspec/pkg/config"
	"github.com/sensspec/sensspec/pkg/diagram"
	"github.com/sensspec/sensspec/pkg/export"
	"github.com/sensspec/sensspec/pkg/model"
	"github.com/sensspec/sensspec/pkg/preset"
	"github.com/sensspec/sensspec/pkg/ui"
	"github.com/sensspec/sensspec/pkg/watcher"
)

const version = "0.1.0"

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// options holds the parsed command line.
type options struct {
	configPath string
	presetName string
	sens       float64
	spec       float64
	prev       float64
	robotJSON  bool
	exports    stringList
	serve      bool
	port       int
	addPreset  bool
	noWatch    bool
	set        map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, bool, error) {
	fs := flag.NewFlagSet("sensspec", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	help := fs.Bool("help", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/sensspec/config.yaml)")
	fs.StringVar(&opts.presetName, "preset", "", "Apply a test type preset by name")
	fs.Float64Var(&opts.sens, "sens", 0, "Sensitivity in percent (50-100)")
	fs.Float64Var(&opts.spec, "spec", 0, "Specificity in percent (50-100)")
	fs.Float64Var(&opts.prev, "prev", 0, "Prevalence in percent (0.5-100)")
	fs.BoolVar(&opts.robotJSON, "robot-json", false, "Print the diagram as JSON and exit")
	fs.Var(&opts.exports, "export", "Write the diagram to an .svg or .png file (repeatable)")
	fs.BoolVar(&opts.serve, "serve", false, "Serve the diagram over HTTP")
	fs.IntVar(&opts.port, "port", 0, "Port for --serve (0 picks a free one)")
	fs.BoolVar(&opts.addPreset, "add-preset", false, "Add a custom test type to the config file")
	fs.BoolVar(&opts.noWatch, "no-watch", false, "Do not reload the config file when it changes")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if *help {
		fmt.Fprintln(stderr, "Usage: sensspec [options]")
		fmt.Fprintln(stderr, "\nVisualize how sensitivity, specificity and prevalence shape test results.")
		fs.PrintDefaults()
		return nil, true, nil
	}
	if *showVersion {
		fmt.Fprintf(stderr, "sensspec version %s\n", version)
		return nil, true, nil
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, false, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, done, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}
	if done {
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	if opts.addPreset {
		if err := addPresetInteractive(configPath(cfg, opts)); err != nil {
			fmt.Fprintf(stderr, "Error adding preset: %v\n", err)
			return 1
		}
		return 0
	}

	settings, err := resolveSettings(cfg, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	switch {
	case opts.serve:
		pc := export.DefaultPreviewConfig()
		pc.Port = opts.port
		pc.Grid = cfg.Grid
		pc.Defaults = settings
		pc.Presets = cfg.AllPresets()
		if err := export.StartPreview(pc); err != nil {
			fmt.Fprintf(stderr, "Error running preview server: %v\n", err)
			return 1
		}
		return 0

	case opts.robotJSON || len(opts.exports) > 0:
		d, err := diagram.Build(settings.Params(), cfg.Grid)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if len(opts.exports) > 0 {
			if err := exportAll(d, settings, opts.exports); err != nil {
				fmt.Fprintf(stderr, "Error exporting: %v\n", err)
				return 1
			}
		}
		if opts.robotJSON {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(export.NewDiagramResponse(settings, d)); err != nil {
				fmt.Fprintf(stderr, "Error encoding JSON: %v\n", err)
				return 1
			}
		} else {
			for _, p := range opts.exports {
				fmt.Fprintf(stdout, "Wrote %s\n", p)
			}
		}
		return 0
	}

	if !isTerminal(stdout) {
		d, err := diagram.Build(settings.Params(), cfg.Grid)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, ui.Summary(settings, d))
		return 0
	}

	if err := runTUI(cfg, settings, opts); err != nil {
		fmt.Fprintf(stderr, "Error running sensspec: %v\n", err)
		return 1
	}
	return 0
}

// resolveSettings starts from the configured defaults, applies --preset, then
// any explicit --sens/--spec/--prev.
func resolveSettings(cfg config.Config, opts *options) (model.Settings, error) {
	s := cfg.InitialSettings()

	if opts.presetName != "" {
		p, ok := preset.Lookup(cfg.AllPresets(), opts.presetName)
		if !ok {
			return s, fmt.Errorf("unknown preset %q", opts.presetName)
		}
		s = p.Apply(s)
	}

	overrides := []struct {
		flag  string
		field model.Field
		value float64
	}{
		{"sens", model.FieldSensitivity, opts.sens},
		{"spec", model.FieldSpecificity, opts.spec},
		{"prev", model.FieldPrevalence, opts.prev},
	}
	for _, o := range overrides {
		if !opts.set[o.flag] {
			continue
		}
		v := model.TenthsFromPercent(o.value)
		lo, hi := o.field.Bounds()
		if v < lo || v > hi {
			return s, fmt.Errorf("--%s %s: %w: must be between %s and %s",
				o.flag, strconv.FormatFloat(o.value, 'f', -1, 64), model.ErrInvalidParameter,
				model.FormatTenths(lo), model.FormatTenths(hi))
		}
		s = s.Set(o.field, v)
	}
	return s, nil
}

func exportAll(d model.Diagram, s model.Settings, paths []string) error {
	opts := make([]export.DiagramSnapshotOptions, 0, len(paths))
	for _, p := range paths {
		opts = append(opts, export.DiagramSnapshotOptions{Path: p, Diagram: d, Title: s.String()})
	}
	return export.SaveAll(context.Background(), opts...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runTUI(cfg config.Config, settings model.Settings, opts *options) error {
	if os.Getenv("SENSSPEC_DEBUG") != "" {
		f, err := tea.LogToFile("sensspec-debug.log", "sensspec")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	m := ui.NewModel(cfg, ui.DefaultTheme(lipgloss.DefaultRenderer())).WithSettings(settings, appliedPresetName(opts))
	p := tea.NewProgram(m, tea.WithAltScreen())

	if !opts.noWatch {
		path := configPath(cfg, opts)
		w, err := watcher.NewConfigWatcher(path, watcher.DefaultDebounceDuration, func() {
			next, err := config.Load(path)
			p.Send(ui.ConfigReloadedMsg{Config: next, Err: err})
		})
		if err != nil {
			log.Printf("Warning: config watcher disabled: %v", err)
		} else {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)
		}
	}

	_, err := p.Run()
	return err
}

// configPath is the file the session reads and writes: the loaded file, else
// the --config path even if it does not exist yet, else the default location.
func configPath(cfg config.Config, opts *options) string {
	switch {
	case cfg.Path != "":
		return cfg.Path
	case opts.configPath != "":
		return opts.configPath
	default:
		return config.DefaultPath()
	}
}

// appliedPresetName is the preset to mark as selected in the TUI. An explicit
// --sens or --spec means the sliders no longer show the preset's values.
func appliedPresetName(opts *options) string {
	if opts.set["sens"] || opts.set["spec"] {
		return ""
	}
	return opts.presetName
}

// addPresetInteractive asks for a new test type and saves it to path.
func addPresetInteractive(path string) error {
	var name, sens, spec, source string

	percent := func(optional bool) func(string) error {
		return func(v string) error {
			v = strings.TrimSpace(v)
			if v == "" && optional {
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.New("enter a number")
			}
			if t := model.TenthsFromPercent(f); t < 1 || t > 1000 {
				return errors.New("must be between 0.1 and 100")
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Test name").
				Value(&name).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Sensitivity (%)").
				Value(&sens).
				Validate(percent(false)),
			huh.NewInput().
				Title("Specificity (%)").
				Description("Leave empty to keep the slider value").
				Value(&spec).
				Validate(percent(true)),
			huh.NewInput().
				Title("Source").
				Description("Optional citation or URL").
				Value(&source),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	p, err := presetFromForm(name, sens, spec, source)
	if err != nil {
		return err
	}

	if err := config.SavePreset(path, p); err != nil {
		return err
	}
	fmt.Printf("Saved %q to %s\n", p.Name, path)
	return nil
}

func presetFromForm(name, sens, spec, source string) (preset.Preset, error) {
	p := preset.Preset{Name: strings.TrimSpace(name), Source: strings.TrimSpace(source)}

	v, err := strconv.ParseFloat(strings.TrimSpace(sens), 64)
	if err != nil {
		return p, fmt.Errorf("sensitivity: %w", err)
	}
	p.Sensitivity = v

	if spec = strings.TrimSpace(spec); spec != "" {
		v, err := strconv.ParseFloat(spec, 64)
		if err != nil {
			return p, fmt.Errorf("specificity: %w", err)
		}
		p.Specificity = &v
	}
	return p, p.Validate()
}
