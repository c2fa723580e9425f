package export

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

const svgMargin = 40

// SVG renders f as a standalone SVG document of width x height pixels.
// Labels and ticks are left out; use the PNG output for annotated plots.
func (f *Figure) SVG(width, height int) (string, error) {
	if err := f.validate(); err != nil {
		return "", err
	}
	if width <= 2*svgMargin || height <= 2*svgMargin {
		return "", ErrBadSize
	}

	minX, maxX, minY, maxY := f.bounds()
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.05
	rangeY *= 1.1

	plotW := float64(width - 2*svgMargin)
	plotH := float64(height - 2*svgMargin)
	px := func(x float64) float64 { return svgMargin + (x-minX)/rangeX*plotW }
	py := func(y float64) float64 { return float64(height-svgMargin) - (y-minY)/rangeY*plotH }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#ffffff"/>
`, width, height, width, height))
	if f.Title != "" {
		sb.WriteString(fmt.Sprintf(`<title>%s</title>
`, escape(f.Title)))
	}
	sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%.0f" height="%.0f" fill="none" stroke="#000000"/>
`, svgMargin, svgMargin, plotW, plotH))

	k := f.scale()
	for _, s := range f.Series {
		stroke := hex(s.Color)
		if s.Style == Points {
			sb.WriteString(fmt.Sprintf(`<g fill="%s">
`, stroke))
			for i := range s.Response.Time {
				sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="2"/>
`, px(s.Response.Time[i]*k), py(s.Response.Amplitude[i])))
			}
			sb.WriteString("</g>\n")
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke))
		for i := range s.Response.Time {
			x, y := px(s.Response.Time[i]*k), py(s.Response.Amplitude[i])
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	for _, m := range f.Markers {
		stroke := hex(m.Color)
		for i := range m.X {
			x, y := px(m.X[i]), py(m.Y[i])
			if m.Shape == Ring {
				sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="none" stroke="%s" stroke-width="1.5"/>
`, x, y, stroke))
				continue
			}
			sb.WriteString(fmt.Sprintf(`<path class="cross" stroke="%s" stroke-width="1.5" d="M%.1f,%.1f L%.1f,%.1f M%.1f,%.1f L%.1f,%.1f"/>
`, stroke, x-4, y-4, x+4, y+4, x-4, y+4, x+4, y-4))
		}
	}

	for _, r := range f.HLines {
		y := py(r.Value)
		sb.WriteString(dashed(px(minX), y, px(maxX), y, r.Color))
	}
	for _, r := range f.VLines {
		x := px(r.Value * k)
		sb.WriteString(dashed(x, py(minY), x, py(minY+rangeY), r.Color))
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}

// SaveSVG writes f to path atomically.
func (f *Figure) SaveSVG(path string, width, height int) error {
	doc, err := f.SVG(width, height)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return atomic.WriteFile(path, strings.NewReader(doc))
}

func dashed(x1, y1, x2, y2 float64, c color.RGBA) string {
	return fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-dasharray="6,4"/>
`, x1, y1, x2, y2, hex(c))
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var svgEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return svgEscaper.Replace(s) }
