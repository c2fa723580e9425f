// Package export turns exercise results into files: PNG and SVG figures of
// sampled responses and JSON dumps of stored runs.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/san-kum/ctrlkit/internal/response"
)

var (
	ErrEmptyFigure = errors.New("export: figure has no series")
	ErrBadSize     = errors.New("export: figure size must be positive")
)

// Style selects how a series is drawn.
type Style int

const (
	Line Style = iota
	Points
)

type Series struct {
	Label    string
	Response response.Sampled
	Style    Style
	Color    color.RGBA
}

// Shape is the glyph of a marker set.
type Shape int

const (
	Cross Shape = iota
	Ring
)

// Marker is a set of unconnected points given in plot units. Unlike a
// Series it has no time axis, so TimeScale does not apply and X may repeat.
type Marker struct {
	Label string
	X, Y  []float64
	Shape Shape
	Color color.RGBA
}

// Ref is a dashed horizontal or vertical reference line.
type Ref struct {
	Label string
	Value float64
	Color color.RGBA
}

// Figure describes one plot independently of the output format.
type Figure struct {
	Name   string
	Title  string
	XLabel string
	YLabel string
	Series  []Series
	Markers []Marker
	HLines []Ref
	VLines []Ref
	// TimeScale multiplies every time value (and VLines) before drawing,
	// e.g. 1000 for milliseconds.
	TimeScale float64
	// Width and Height are in inches.
	Width  float64
	Height float64
}

var (
	Red   = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	Blue  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	Green = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	Black = color.RGBA{A: 0xff}
	Gray  = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// NewFigure returns a 12x7 inch figure with unit time scale.
func NewFigure(name, title, xlabel, ylabel string) *Figure {
	return &Figure{
		Name:      name,
		Title:     title,
		XLabel:    xlabel,
		YLabel:    ylabel,
		TimeScale: 1,
		Width:     12,
		Height:    7,
	}
}

func (f *Figure) AddLine(label string, resp response.Sampled, c color.RGBA) *Figure {
	f.Series = append(f.Series, Series{Label: label, Response: resp, Style: Line, Color: c})
	return f
}

func (f *Figure) AddPoints(label string, resp response.Sampled, c color.RGBA) *Figure {
	f.Series = append(f.Series, Series{Label: label, Response: resp, Style: Points, Color: c})
	return f
}

// AddMarkers adds one glyph per (xs[i], ys[i]). Empty sets are skipped.
func (f *Figure) AddMarkers(label string, xs, ys []float64, shape Shape, c color.RGBA) *Figure {
	if len(xs) == 0 && len(ys) == 0 {
		return f
	}
	f.Markers = append(f.Markers, Marker{Label: label, X: xs, Y: ys, Shape: shape, Color: c})
	return f
}

func (f *Figure) AddHLine(label string, value float64, c color.RGBA) *Figure {
	f.HLines = append(f.HLines, Ref{Label: label, Value: value, Color: c})
	return f
}

func (f *Figure) AddVLine(label string, value float64, c color.RGBA) *Figure {
	f.VLines = append(f.VLines, Ref{Label: label, Value: value, Color: c})
	return f
}

func (f *Figure) validate() error {
	if len(f.Series) == 0 && len(f.Markers) == 0 {
		return ErrEmptyFigure
	}
	if !(f.Width > 0 && f.Height > 0) {
		return ErrBadSize
	}
	for _, s := range f.Series {
		if err := s.Response.Validate(); err != nil {
			return err
		}
	}
	for _, m := range f.Markers {
		if len(m.X) != len(m.Y) {
			return fmt.Errorf("markers %q: %d x, %d y: %w", m.Label, len(m.X), len(m.Y), response.ErrLengthMismatch)
		}
		for i := range m.X {
			if !finite(m.X[i]) || !finite(m.Y[i]) {
				return fmt.Errorf("markers %q: point %d: %w", m.Label, i, response.ErrNonFinite)
			}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (f *Figure) scale() float64 {
	if f.TimeScale == 0 {
		return 1
	}
	return f.TimeScale
}

// bounds covers every series, marker and reference line in drawing units.
func (f *Figure) bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	k := f.scale()
	for _, s := range f.Series {
		minX = math.Min(minX, s.Response.Start()*k)
		maxX = math.Max(maxX, s.Response.End()*k)
		for _, v := range s.Response.Amplitude {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}
	for _, m := range f.Markers {
		for i := range m.X {
			minX, maxX = math.Min(minX, m.X[i]), math.Max(maxX, m.X[i])
			minY, maxY = math.Min(minY, m.Y[i]), math.Max(maxY, m.Y[i])
		}
	}
	for _, r := range f.HLines {
		minY = math.Min(minY, r.Value)
		maxY = math.Max(maxY, r.Value)
	}
	for _, r := range f.VLines {
		minX = math.Min(minX, r.Value*k)
		maxX = math.Max(maxX, r.Value*k)
	}
	return minX, maxX, minY, maxY
}
