// Package export provides diagram export functionality for sensspec.
//
// Snapshots are written as SVG (vector, via svgo) or PNG (raster, via gg).
// The preview server in preview.go serves the same SVG over HTTP.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/sync/errgroup"

	"github.com/sensspec/sensspec/pkg/model"
)

// Padding around the diagram, in diagram units.
const snapshotPadding = 5

// BackgroundColor matches the dark page the diagram was designed for.
const BackgroundColor = "#0E1117"

// DiagramSnapshotOptions configures a snapshot export.
type DiagramSnapshotOptions struct {
	Path    string
	Format  string // "svg" or "png"; inferred from Path when empty
	Diagram model.Diagram
	Title   string
}

// SaveDiagramSnapshot writes the diagram to opts.Path.
func SaveDiagramSnapshot(opts DiagramSnapshotOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	format, err := snapshotFormat(opts)
	if err != nil {
		return err
	}
	if len(opts.Diagram.Regions) == 0 {
		return fmt.Errorf("diagram has no regions")
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	switch format {
	case "svg":
		f, err := os.Create(opts.Path)
		if err != nil {
			return fmt.Errorf("create %s: %w", opts.Path, err)
		}
		if err := WriteSVG(f, opts.Diagram, opts.Title); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return savePNG(opts.Path, opts.Diagram)
	}
}

// SaveAll writes several snapshots concurrently and returns the first error.
func SaveAll(ctx context.Context, opts ...DiagramSnapshotOptions) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, o := range opts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := SaveDiagramSnapshot(o); err != nil {
				return fmt.Errorf("%s: %w", o.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func snapshotFormat(opts DiagramSnapshotOptions) (string, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.Path)), ".")
	}
	switch format {
	case "svg", "png":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported snapshot format %q (want svg or png)", format)
	}
}

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

// WriteSVG streams the diagram as an SVG document. The four regions are drawn
// as closed polygons with a black outline; labels are two-line text centred on
// each non-empty region.
func WriteSVG(w io.Writer, d model.Diagram, title string) error {
	ew := &errWriter{w: w}
	g := d.Geometry.Grid
	width := g.Width + 2*snapshotPadding
	height := g.Height + 2*snapshotPadding

	canvas := svg.New(ew)
	canvas.Start(width, height)
	if title != "" {
		canvas.Title(title)
	}
	canvas.Rect(0, 0, width, height, "fill:"+BackgroundColor)
	canvas.Gtransform(fmt.Sprintf("translate(%d,%d)", snapshotPadding, snapshotPadding))

	for _, r := range d.Regions {
		xs := make([]int, len(r.Polygon))
		ys := make([]int, len(r.Polygon))
		for i, p := range r.Polygon {
			xs[i] = int(p.X)
			ys[i] = int(p.Y)
		}
		canvas.Polygon(xs, ys, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.5", r.Color.Hex, model.ColorOutline.Hex))
	}

	for _, r := range d.Regions {
		if r.Empty() {
			continue
		}
		lines := strings.SplitN(r.Label, " ", 2)
		x := int(r.LabelAt.X)
		y := int(r.LabelAt.Y) - 8*(len(lines)-1)
		for i, line := range lines {
			canvas.Text(x, y+16*i, line, "text-anchor:middle;font-family:sans-serif;font-size:14px;fill:white")
		}
	}

	canvas.Gend()
	canvas.End()
	return ew.err
}

func savePNG(path string, d model.Diagram) error {
	g := d.Geometry.Grid
	dc := gg.NewContext(g.Width+2*snapshotPadding, g.Height+2*snapshotPadding)

	dc.SetHexColor(BackgroundColor)
	dc.Clear()
	dc.Translate(snapshotPadding, snapshotPadding)

	for _, r := range d.Regions {
		if r.Empty() {
			continue
		}
		x, y, w, h := r.Bounds()
		dc.DrawRectangle(x, y, w, h)
		dc.SetHexColor(r.Color.Hex)
		dc.FillPreserve()
		dc.SetHexColor(model.ColorOutline.Hex)
		dc.SetLineWidth(1.5)
		dc.Stroke()
	}

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetHexColor("#FFFFFF")
	for _, r := range d.Regions {
		if r.Empty() {
			continue
		}
		label := strings.Replace(r.Label, " ", "\n", 1)
		dc.DrawStringWrapped(label, r.LabelAt.X, r.LabelAt.Y, 0.5, 0.5, 120, 1.2, gg.AlignCenter)
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
