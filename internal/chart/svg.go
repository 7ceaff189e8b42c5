package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/guttosm/indexpulse/internal/domain/models"
)

// SVGRenderer draws a plain candlestick chart and writes it under Dir
// using the conventional filename for the given name.
type SVGRenderer struct {
	Dir    string
	Width  int
	Height int
}

// NewSVGRenderer creates a renderer targeting dir, creating it if needed.
func NewSVGRenderer(dir string) (*SVGRenderer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}
	return &SVGRenderer{Dir: dir, Width: 1200, Height: 600}, nil
}

func (r *SVGRenderer) Render(s *models.Series, title, name string) (string, error) {
	if s.Empty() {
		return "", fmt.Errorf("render: empty series")
	}
	path := filepath.Join(r.Dir, Filename(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := WriteSVG(f, s, title, r.Width, r.Height); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSVG emits the candlestick markup: one wick line and one body rect
// per bar, up bars red and down bars green per the mainland convention.
func WriteSVG(w io.Writer, s *models.Series, title string, width, height int) error {
	if s.Empty() {
		return fmt.Errorf("empty series")
	}
	if width <= 0 {
		width = 1200
	}
	if height <= 0 {
		height = 600
	}

	lo, hi := s.Bars[0].Low, s.Bars[0].High
	for _, b := range s.Bars {
		if b.Low < lo {
			lo = b.Low
		}
		if b.High > hi {
			hi = b.High
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	const margin = 40.0
	plotW := float64(width) - 2*margin
	plotH := float64(height) - 2*margin
	y := func(price float64) float64 {
		return margin + plotH*(1-(price-lo)/(hi-lo))
	}
	step := plotW / float64(len(s.Bars))
	bodyW := step * 0.6

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+"\n", width, height)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="white"/>`+"\n", width, height)
	fmt.Fprintf(&sb, `<text x="%f" y="24" font-size="16">%s</text>`+"\n", margin, escape(title))

	for i, b := range s.Bars {
		cx := margin + step*(float64(i)+0.5)
		color := "#c33" // up
		if b.Close < b.Open {
			color = "#3a3"
		}
		fmt.Fprintf(&sb, `<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="%s"/>`+"\n",
			cx, y(b.High), cx, y(b.Low), color)

		top, bottom := b.Open, b.Close
		if b.Close > b.Open {
			top, bottom = b.Close, b.Open
		}
		h := y(bottom) - y(top)
		if h < 1 {
			h = 1
		}
		fmt.Fprintf(&sb, `<rect x="%f" y="%f" width="%f" height="%f" fill="%s"/>`+"\n",
			cx-bodyW/2, y(top), bodyW, h, color)
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
