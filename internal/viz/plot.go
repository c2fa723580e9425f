package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ctrlkit/internal/response"
)

// PlotOptions sizes a terminal plot. TimeScale and TimeUnit relabel the
// time span in the caption, e.g. 1000 and "ms".
type PlotOptions struct {
	Width     int
	Height    int
	Caption   string
	TimeScale float64
	TimeUnit  string
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 72, Height: 16, TimeScale: 1, TimeUnit: "s"}
}

// Plot draws one or more responses on shared axes. Each curve is
// interpolated onto Width columns, so curves of different lengths align
// only when they span the same time window.
func Plot(opts PlotOptions, responses ...response.Sampled) string {
	var data [][]float64
	var legends []string
	var colors []asciigraph.AnsiColor
	start, end := math.Inf(1), math.Inf(-1)
	for i, r := range responses {
		if r.Len() == 0 {
			continue
		}
		data = append(data, r.Amplitude)
		legends = append(legends, r.Name)
		colors = append(colors, CurrentTheme.seriesColor(i))
		start = math.Min(start, r.Start())
		end = math.Max(end, r.End())
	}
	if len(data) == 0 {
		return ""
	}

	scale := opts.TimeScale
	if scale == 0 {
		scale = 1
	}
	caption := fmt.Sprintf("t: %.4g .. %.4g %s", start*scale, end*scale, opts.TimeUnit)
	if opts.Caption != "" {
		caption = opts.Caption + "  (" + caption + ")"
	}

	options := []asciigraph.Option{
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	}
	if len(data) > 1 {
		options = append(options, asciigraph.SeriesLegends(legends...))
	}
	return asciigraph.PlotMany(data, options...)
}
