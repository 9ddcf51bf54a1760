// Package reference provides the explanation panel content: a glossary
// rendered from markdown and a downloaded reference illustration shown as a
// terminal thumbnail.
package reference

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

// maxImageBytes caps the download so a misconfigured URL cannot exhaust memory.
const maxImageBytes = 10 << 20

// Fetch downloads and decodes the image at url. A nil client gets a default
// one with timeout.
func Fetch(ctx context.Context, client *http.Client, url string, timeout time.Duration) (image.Image, error) {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "sensspec")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch reference image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reference image returned status: %s", resp.Status)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode reference image: %w", err)
	}
	return img, nil
}

// Thumbnail renders img as cols x rows terminal cells using upper half blocks:
// each cell shows two vertically stacked pixels (foreground top, background
// bottom). The aspect ratio is preserved inside the box.
func Thumbnail(img image.Image, cols, rows int, r *lipgloss.Renderer) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}

	b := img.Bounds()
	pw, ph := cols, rows*2
	if b.Dx() > 0 && b.Dy() > 0 {
		scale := min(float64(pw)/float64(b.Dx()), float64(ph)/float64(b.Dy()))
		pw = max(1, int(float64(b.Dx())*scale))
		ph = max(2, int(float64(b.Dy())*scale))
	}
	if ph%2 == 1 {
		ph++
	}

	dst := image.NewRGBA(image.Rect(0, 0, pw, ph))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < ph; y += 2 {
		for x := 0; x < pw; x++ {
			top := hexColor(dst.At(x, y))
			bottom := hexColor(dst.At(x, y+1))
			sb.WriteString(r.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
		if y+2 < ph {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8)
}

const explanationMarkdown = `# Explanation

The diagram splits a virtual population into four groups. The **left column**
holds everyone who truly has the disease; its width is the *prevalence*. The
**right column** holds everyone who is healthy.

| Term | Meaning |
|---|---|
| Sensitivity | share of diseased people who test positive |
| Specificity | share of healthy people who test negative |
| Prevalence | share of the population that is diseased |
| PPV | chance a positive result is a true positive |
| NPV | chance a negative result is a true negative |

Each rectangle's area is proportional to the number of people in it, so a small
false-positive strip across a large healthy column can still outnumber the true
positives when prevalence is low.

[Testing and Screening](%s)
`

// Explanation renders the explanation panel markdown for the given width.
func Explanation(url string, width int) (string, error) {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(fmt.Sprintf(explanationMarkdown, url))
	if err != nil {
		return "", fmt.Errorf("render explanation: %w", err)
	}
	return out, nil
}
