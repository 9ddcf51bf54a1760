package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sensspec/sensspec/pkg/diagram"
	"github.com/sensspec/sensspec/pkg/model"
	"github.com/sensspec/sensspec/pkg/preset"
)

// DefaultPreviewPort is the default port for the preview server.
const DefaultPreviewPort = 9000

// PreviewPortRangeStart and PreviewPortRangeEnd bound automatic port selection.
const (
	PreviewPortRangeStart = 9000
	PreviewPortRangeEnd   = 9100
)

// PreviewConfig configures the preview server.
type PreviewConfig struct {
	// Port is the port to serve on (0 for auto-select)
	Port int

	// Grid is the virtual population used for every request
	Grid model.Grid

	// Defaults are used for any query parameter a request omits
	Defaults model.Settings

	// Presets are selectable with ?preset=
	Presets []preset.Preset

	// OpenBrowser determines whether to auto-open a browser
	OpenBrowser bool

	// Quiet suppresses status messages
	Quiet bool
}

// DefaultPreviewConfig returns sensible defaults for preview configuration.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Port:        0, // Auto-select
		Grid:        model.DefaultGrid,
		Defaults:    model.DefaultSettings(),
		Presets:     preset.Builtin(),
		OpenBrowser: true,
	}
}

// PreviewServer serves the live diagram over HTTP.
type PreviewServer struct {
	cfg       PreviewConfig
	server    *http.Server
	startedAt time.Time
}

// NewPreviewServer creates a preview server. The port must already be chosen.
func NewPreviewServer(cfg PreviewConfig) *PreviewServer {
	if cfg.Grid.Width == 0 && cfg.Grid.Height == 0 {
		cfg.Grid = model.DefaultGrid
	}
	if cfg.Defaults == (model.Settings{}) {
		cfg.Defaults = model.DefaultSettings()
	}
	return &PreviewServer{cfg: cfg}
}

// Handler returns the HTTP routes.
func (p *PreviewServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(noCacheMiddleware)

	r.Get("/", p.indexHandler)
	r.Get("/diagram.svg", p.svgHandler)
	r.Get("/api/diagram", p.diagramHandler)
	r.Get("/api/presets", p.presetsHandler)
	r.Get("/__preview__/status", p.statusHandler)
	return r
}

// Start starts the preview server and blocks until stopped.
func (p *PreviewServer) Start() error {
	p.startedAt = time.Now()
	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", p.cfg.Port),
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if p.cfg.OpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := OpenInBrowser(p.URL()); err != nil && !p.cfg.Quiet {
				fmt.Printf("Could not open browser: %v\n", err)
				fmt.Printf("Open %s in your browser\n", p.URL())
			}
		}()
	}

	if !p.cfg.Quiet {
		fmt.Printf("\nPreview server running at %s\n", p.URL())
		fmt.Print("\nPress Ctrl+C to stop\n\n")
	}

	return p.server.ListenAndServe()
}

// StartWithGracefulShutdown starts the server with signal handling for clean shutdown.
func (p *PreviewServer) StartWithGracefulShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errChan := make(chan error, 1)
	go func() {
		if err := p.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-stop:
		if !p.cfg.Quiet {
			fmt.Println("\nShutting down preview server...")
		}
		return p.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the preview server.
func (p *PreviewServer) Stop() error {
	if p.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.server.Shutdown(ctx)
}

// Port returns the port the server is running on.
func (p *PreviewServer) Port() int {
	return p.cfg.Port
}

// URL returns the full URL of the preview server.
func (p *PreviewServer) URL() string {
	return fmt.Sprintf("http://localhost:%d", p.cfg.Port)
}

// StartPreview picks a port when needed and serves until interrupted.
func StartPreview(cfg PreviewConfig) error {
	if cfg.Port == 0 {
		port, err := FindAvailablePort(PreviewPortRangeStart, PreviewPortRangeEnd)
		if err != nil {
			return fmt.Errorf("could not find available port: %w", err)
		}
		cfg.Port = port
	}
	return NewPreviewServer(cfg).StartWithGracefulShutdown()
}

// settingsFromQuery starts from the defaults, seeds them from an optional
// preset name, then applies any explicit sens, spec and prev (percent). A
// preset is a one-off update: the page sends it only when the selection
// changes, and slider values sent afterwards always win.
func (p *PreviewServer) settingsFromQuery(r *http.Request) (model.Settings, error) {
	s := p.cfg.Defaults
	q := r.URL.Query()

	if name := q.Get("preset"); name != "" {
		pr, ok := preset.Lookup(p.cfg.Presets, name)
		if !ok {
			return s, fmt.Errorf("unknown preset %q", name)
		}
		s = pr.Apply(s)
	}

	fields := []struct {
		key   string
		field model.Field
	}{
		{"sens", model.FieldSensitivity},
		{"spec", model.FieldSpecificity},
		{"prev", model.FieldPrevalence},
	}
	for _, f := range fields {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %w", f.key, err)
		}
		lo, hi := f.field.Bounds()
		tenths := model.TenthsFromPercent(v)
		if tenths < lo || tenths > hi {
			return s, fmt.Errorf("%s: %s outside [%s, %s]", f.key, raw, model.FormatTenths(lo), model.FormatTenths(hi))
		}
		s = s.Set(f.field, tenths)
	}

	return s, nil
}

func (p *PreviewServer) build(r *http.Request) (model.Diagram, model.Settings, error) {
	s, err := p.settingsFromQuery(r)
	if err != nil {
		return model.Diagram{}, s, err
	}
	d, err := diagram.Build(s.Params(), p.cfg.Grid)
	return d, s, err
}

func (p *PreviewServer) svgHandler(w http.ResponseWriter, r *http.Request) {
	d, s, err := p.build(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := WriteSVG(w, d, s.String()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: write svg: %v\n", err)
	}
}

// DiagramResponse is the JSON body of /api/diagram.
type DiagramResponse struct {
	Settings model.Settings `json:"settings"`
	Diagram  model.Diagram  `json:"diagram"`
	PPV      float64        `json:"ppv"`
	NPV      float64        `json:"npv"`
	Accuracy float64        `json:"accuracy"`
}

// NewDiagramResponse wraps a diagram with its derived statistics.
func NewDiagramResponse(s model.Settings, d model.Diagram) DiagramResponse {
	return DiagramResponse{
		Settings: s,
		Diagram:  d,
		PPV:      d.Counts.PPV(),
		NPV:      d.Counts.NPV(),
		Accuracy: d.Counts.Accuracy(),
	}
}

func (p *PreviewServer) diagramHandler(w http.ResponseWriter, r *http.Request) {
	d, s, err := p.build(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, NewDiagramResponse(s, d))
}

func (p *PreviewServer) presetsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.cfg.Presets)
}

// statusHandler returns the preview server status as JSON.
func (p *PreviewServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "running",
		"port":         p.cfg.Port,
		"grid":         p.cfg.Grid,
		"preset_count": len(p.cfg.Presets),
		"uptime_sec":   int(time.Since(p.startedAt).Seconds()),
	})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Specificity and Sensitivity</title>
<style>
body { background: #0E1117; color: #FAFAFA; font-family: sans-serif; display: flex; gap: 2em; }
aside { min-width: 18em; }
label { display: block; margin-top: 1em; }
img { max-width: 100%; }
</style>
</head>
<body>
<aside>
<h1>Specificity and Sensitivity</h1>
<label>Select test type:
<select id="preset"><option value="">(sliders)</option>{{range .Presets}}<option>{{.Name}}</option>{{end}}</select></label>
<label>Specificity (%) <output id="spec-out">{{.Spec}}</output>
<input id="spec" type="range" min="50" max="100" step="0.1" value="{{.Spec}}"></label>
<label>Sensitivity (%) <output id="sens-out">{{.Sens}}</output>
<input id="sens" type="range" min="50" max="100" step="0.1" value="{{.Sens}}"></label>
<label>Prevalence (%) <output id="prev-out">{{.Prev}}</output>
<input id="prev" type="range" min="0.5" max="100" step="0.1" value="{{.Prev}}"></label>
</aside>
<main><img id="diagram" src="/diagram.svg" alt="contingency diagram"></main>
<script>
const presets = {{.Presets}};
const ids = ["spec", "sens", "prev"];
function refresh(fromPreset) {
  const q = new URLSearchParams();
  ids.forEach(id => { if (!fromPreset.includes(id)) { q.set(id, document.getElementById(id).value); } });
  if (fromPreset.length) { q.set("preset", document.getElementById("preset").value); }
  document.getElementById("diagram").src = "/diagram.svg?" + q.toString();
}
function onSlider(ev) {
  document.getElementById(ev.target.id + "-out").textContent = ev.target.value;
  refresh([]);
}
function onPreset() {
  const name = document.getElementById("preset").value;
  const p = presets.find(p => p.name === name);
  if (!p) { refresh([]); return; }
  const values = { sens: p.sensitivity };
  if (p.specificity !== undefined) { values.spec = p.specificity; }
  Object.entries(values).forEach(([id, v]) => {
    document.getElementById(id).value = v;
    document.getElementById(id + "-out").textContent = v.toFixed(1);
  });
  refresh(Object.keys(values));
}
ids.forEach(id => document.getElementById(id).addEventListener("input", onSlider));
document.getElementById("preset").addEventListener("change", onPreset);
</script>
</body>
</html>
`))

func (p *PreviewServer) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Presets          []preset.Preset
		Sens, Spec, Prev string
	}{
		Presets: p.cfg.Presets,
		Sens:    tenthsString(p.cfg.Defaults.Sensitivity),
		Spec:    tenthsString(p.cfg.Defaults.Specificity),
		Prev:    tenthsString(p.cfg.Defaults.Prevalence),
	}
	if err := indexTemplate.Execute(w, data); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: render index: %v\n", err)
	}
}

func tenthsString(v int) string {
	return strconv.FormatFloat(float64(v)/10, 'f', 1, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// noCacheMiddleware adds headers to prevent browser caching.
func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FindAvailablePort finds an available port in the given range.
func FindAvailablePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", start, end)
}

// OpenInBrowser opens url with the platform's default handler.
func OpenInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
