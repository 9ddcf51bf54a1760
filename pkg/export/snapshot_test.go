package export

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sensspec/sensspec/pkg/diagram"
	"github.com/sensspec/sensspec/pkg/model"
)

func testDiagram(t *testing.T) model.Diagram {
	t.Helper()
	d, err := diagram.Build(model.Params{Sensitivity: 0.9, Specificity: 0.9, Prevalence: 0.142}, model.DefaultGrid)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return d
}

func TestSaveDiagramSnapshot_SVGAndPNG(t *testing.T) {
	d := testDiagram(t)
	tmp := t.TempDir()

	cases := []struct {
		name   string
		file   string
		format string
	}{
		{"svg by extension", "diagram.svg", ""},
		{"png by extension", "diagram.png", ""},
		{"explicit format", "nested/out.img", "png"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(tmp, tc.file)
			err := SaveDiagramSnapshot(DiagramSnapshotOptions{
				Path:    out,
				Format:  tc.format,
				Diagram: d,
				Title:   "test",
			})
			if err != nil {
				t.Fatalf("SaveDiagramSnapshot error: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatalf("output file is empty")
			}
		})
	}
}

func TestSaveDiagramSnapshot_PNGDimensions(t *testing.T) {
	out := filepath.Join(t.TempDir(), "d.png")
	if err := SaveDiagramSnapshot(DiagramSnapshotOptions{Path: out, Diagram: testDiagram(t)}); err != nil {
		t.Fatalf("SaveDiagramSnapshot error: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 1024+2*snapshotPadding || cfg.Height != 768+2*snapshotPadding {
		t.Errorf("png is %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSaveDiagramSnapshot_InvalidInput(t *testing.T) {
	d := testDiagram(t)

	if err := SaveDiagramSnapshot(DiagramSnapshotOptions{Path: "diagram.txt", Diagram: d}); err == nil {
		t.Error("expected error for invalid format")
	}
	if err := SaveDiagramSnapshot(DiagramSnapshotOptions{Diagram: d}); err == nil {
		t.Error("expected error for missing path")
	}
	if err := SaveDiagramSnapshot(DiagramSnapshotOptions{Path: filepath.Join(t.TempDir(), "x.svg")}); err == nil {
		t.Error("expected error for empty diagram")
	}
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, testDiagram(t), "sens 90.0%"); err != nil {
		t.Fatalf("WriteSVG error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"<svg", "</svg>", "#FF0000", "#FF8C00", "#0000CD", "#228B22", "Positive", "Negative", "sens 90.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if got := strings.Count(out, "<polygon"); got != 4 {
		t.Errorf("expected 4 polygons, got %d", got)
	}
	// TP polygon spans the diseased column down to h_TP.
	if !strings.Contains(out, `points="0,0 145,0 145,693 0,693`) {
		t.Errorf("TP polygon not found in:\n%s", out)
	}
}

func TestWriteSVG_SkipsLabelsOfEmptyRegions(t *testing.T) {
	d := diagram.MustBuild(model.Params{Sensitivity: 1, Specificity: 0.9, Prevalence: 0.5}, model.DefaultGrid)
	var buf bytes.Buffer
	if err := WriteSVG(&buf, d, ""); err != nil {
		t.Fatalf("WriteSVG error: %v", err)
	}
	// sensitivity 1 leaves no false negatives, and h_TP is clamped to the full height.
	if strings.Count(buf.String(), ">Negative<") != 1 {
		t.Errorf("expected only the True Negative label, got:\n%s", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteSVG_PropagatesWriteError(t *testing.T) {
	if err := WriteSVG(failingWriter{}, testDiagram(t), ""); err == nil {
		t.Fatal("expected write error")
	}
}

func TestSaveAll(t *testing.T) {
	d := testDiagram(t)
	tmp := t.TempDir()
	svgPath := filepath.Join(tmp, "a.svg")
	pngPath := filepath.Join(tmp, "a.png")

	err := SaveAll(context.Background(),
		DiagramSnapshotOptions{Path: svgPath, Diagram: d},
		DiagramSnapshotOptions{Path: pngPath, Diagram: d},
	)
	if err != nil {
		t.Fatalf("SaveAll error: %v", err)
	}
	for _, p := range []string{svgPath, pngPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
	}

	err = SaveAll(context.Background(),
		DiagramSnapshotOptions{Path: filepath.Join(tmp, "b.svg"), Diagram: d},
		DiagramSnapshotOptions{Path: filepath.Join(tmp, "b.bmp"), Diagram: d},
	)
	if err == nil || !strings.Contains(err.Error(), "b.bmp") {
		t.Errorf("expected error naming b.bmp, got %v", err)
	}
}
