package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const DPI = 300

// Plot builds the gonum plot for f.
func (f *Figure) Plot() (*plot.Plot, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = f.Title
	p.X.Label.Text = f.XLabel
	p.Y.Label.Text = f.YLabel
	stylePlot(p)
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	k := f.scale()
	for _, s := range f.Series {
		xys := make(plotter.XYs, s.Response.Len())
		for i := range xys {
			xys[i].X = s.Response.Time[i] * k
			xys[i].Y = s.Response.Amplitude[i]
		}
		switch s.Style {
		case Points:
			sc, err := plotter.NewScatter(xys)
			if err != nil {
				return nil, fmt.Errorf("series %q: %w", s.Label, err)
			}
			sc.GlyphStyle.Color = s.Color
			sc.GlyphStyle.Radius = vg.Points(2.5)
			sc.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(sc)
			if s.Label != "" {
				p.Legend.Add(s.Label, sc)
			}
		default:
			l, err := plotter.NewLine(xys)
			if err != nil {
				return nil, fmt.Errorf("series %q: %w", s.Label, err)
			}
			l.LineStyle.Color = s.Color
			l.LineStyle.Width = vg.Points(2)
			p.Add(l)
			if s.Label != "" {
				p.Legend.Add(s.Label, l)
			}
		}
	}

	for _, m := range f.Markers {
		xys := make(plotter.XYs, len(m.X))
		for i := range xys {
			xys[i].X, xys[i].Y = m.X[i], m.Y[i]
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("markers %q: %w", m.Label, err)
		}
		sc.GlyphStyle.Color = m.Color
		sc.GlyphStyle.Radius = vg.Points(5)
		if m.Shape == Ring {
			sc.GlyphStyle.Shape = draw.RingGlyph{}
		} else {
			sc.GlyphStyle.Shape = draw.CrossGlyph{}
		}
		p.Add(sc)
		if m.Label != "" {
			p.Legend.Add(m.Label, sc)
		}
	}

	minX, maxX, minY, maxY := f.bounds()
	for _, r := range f.HLines {
		if err := addRef(p, r, plotter.XYs{{X: minX, Y: r.Value}, {X: maxX, Y: r.Value}}); err != nil {
			return nil, err
		}
	}
	for _, r := range f.VLines {
		x := r.Value * k
		if err := addRef(p, r, plotter.XYs{{X: x, Y: minY}, {X: x, Y: maxY}}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func addRef(p *plot.Plot, r Ref, xys plotter.XYs) error {
	l, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("reference %q: %w", r.Label, err)
	}
	l.LineStyle.Color = r.Color
	l.LineStyle.Width = vg.Points(1.5)
	l.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(l)
	if r.Label != "" {
		p.Legend.Add(r.Label, l)
	}
	return nil
}

// WritePNG renders f at 300 DPI.
func (f *Figure) WritePNG(w io.Writer) error {
	p, err := f.Plot()
	if err != nil {
		return err
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(f.Width)*vg.Inch, vg.Length(f.Height)*vg.Inch),
		vgimg.UseDPI(DPI),
	)
	p.Draw(draw.New(c))

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("export: write png: %w", err)
	}
	return nil
}

// SavePNG writes f to path atomically, creating parent directories.
func (f *Figure) SavePNG(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := f.WritePNG(&buf); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(20)
	p.Title.Padding = vg.Points(10)

	p.X.Label.TextStyle.Font.Size = vg.Points(16)
	p.Y.Label.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Padding = vg.Points(8)
	p.Y.Label.Padding = vg.Points(8)

	p.X.LineStyle.Width = vg.Points(1.5)
	p.Y.LineStyle.Width = vg.Points(1.5)
	p.X.Tick.Label.Font.Size = vg.Points(12)
	p.Y.Tick.Label.Font.Size = vg.Points(12)

	p.X.Tick.Marker = evenTicks(8)
	p.Y.Tick.Marker = evenTicks(8)
	p.Legend.TextStyle.Font.Size = vg.Points(12)
}

// evenTicks labels n evenly spaced values with %.4g.
func evenTicks(n int) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf("%.4g", min)}}
		}
		step := (max - min) / float64(n-1)
		ticks := make([]plot.Tick, n)
		for i := range ticks {
			v := min + float64(i)*step
			ticks[i] = plot.Tick{Value: v, Label: fmt.Sprintf("%.4g", v)}
		}
		return ticks
	})
}
