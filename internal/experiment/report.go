package experiment

import (
	"fmt"
	"math"
	"math/cmplx"
	"path/filepath"
	"strings"

	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/export"
	"github.com/san-kum/ctrlkit/internal/metrics"
	"github.com/san-kum/ctrlkit/internal/response"
	"github.com/san-kum/ctrlkit/internal/storage"
)

type Row struct {
	Label string
	Value string
}

// Section is one titled block of a report: labelled values followed by
// free-form lines such as transfer functions or an ASCII portrait.
type Section struct {
	Title string
	Rows  []Row
	Text  []string
}

func (s *Section) Add(label, format string, args ...any) {
	s.Rows = append(s.Rows, Row{Label: label, Value: fmt.Sprintf(format, args...)})
}

func (s *Section) Line(format string, args ...any) {
	s.Text = append(s.Text, fmt.Sprintf(format, args...))
}

// Report is the structured outcome of one exercise. Failures of independent
// parts are recorded in Notes; the remaining sections are still filled.
type Report struct {
	Exercise  string
	Preset    string
	Method    string
	Summary   string
	Sections  []*Section
	Responses []response.Sampled
	Metrics   map[string]float64
	Figures   []*export.Figure
	Notes     []string
}

func newReport(exercise string, cfg *config.Config) *Report {
	return &Report{
		Exercise: exercise,
		Method:   cfg.Simulation.Method,
		Metrics:  make(map[string]float64),
	}
}

func (r *Report) Section(title string) *Section {
	s := &Section{Title: title}
	r.Sections = append(r.Sections, s)
	return s
}

func (r *Report) Note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

func (r *Report) AddResponse(resp response.Sampled) {
	r.Responses = append(r.Responses, resp)
}

func (r *Report) AddFigure(f *export.Figure) {
	r.Figures = append(r.Figures, f)
}

// Record stores m under prefix.name for every metric.
func (r *Report) Record(prefix string, m metrics.Metrics) {
	for name, v := range m.Values() {
		r.Metrics[key(prefix, name)] = v
	}
}

func key(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Run converts the report for storage.
func (r *Report) Run() storage.Run {
	return storage.Run{
		Exercise:  r.Exercise,
		Preset:    r.Preset,
		Method:    r.Method,
		Metrics:   r.Metrics,
		Notes:     r.Notes,
		Summary:   r.Summary,
		Responses: r.Responses,
	}
}

// WriteFigures renders every figure into dir in the formats enabled by out
// and returns the written paths.
func (r *Report) WriteFigures(dir string, out config.OutputConfig) ([]string, error) {
	var paths []string
	for _, f := range r.Figures {
		if out.PNG {
			path := filepath.Join(dir, f.Name+".png")
			if err := f.SavePNG(path); err != nil {
				return paths, fmt.Errorf("figure %s: %w", f.Name, err)
			}
			paths = append(paths, path)
		}
		if out.SVG {
			path := filepath.Join(dir, f.Name+".svg")
			if err := f.SaveSVG(path, out.SVGWidth, out.SVGHeight); err != nil {
				return paths, fmt.Errorf("figure %s: %w", f.Name, err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// addMetrics writes the metric rows of m into s, converting times with
// timeScale and labelling them with unit.
func addMetrics(s *Section, m metrics.Metrics, timeScale float64, unit string) {
	s.Add("steady-state value", "%s", formatValue(m.SteadyState, 1, ""))
	s.Add("time constant", "%s", formatValue(m.TimeConstant, timeScale, unit))
	s.Add("rise time (10-90%)", "%s", formatValue(m.RiseTime, timeScale, unit))
	s.Add("settling time (2%)", "%s", formatValue(m.SettlingTime, timeScale, unit))
	s.Add("peak", "%s at %s", formatValue(m.PeakValue, 1, ""), formatValue(m.PeakTime, timeScale, unit))
	s.Add("overshoot", "%s", formatValue(m.OvershootPercent, 1, "%"))
}

func formatValue(v, scale float64, unit string) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	s := fmt.Sprintf("%.4g", v*scale)
	if unit != "" {
		s += " " + unit
	}
	return strings.Replace(s, " %", "%", 1)
}

func formatRoots(roots []complex128) string {
	if len(roots) == 0 {
		return "none"
	}
	parts := make([]string, len(roots))
	for i, p := range roots {
		switch {
		case math.Abs(imag(p)) <= 1e-12*math.Max(1, cmplx.Abs(p)):
			parts[i] = fmt.Sprintf("%.4g", real(p))
		case imag(p) > 0:
			parts[i] = fmt.Sprintf("%.4g+%.4gj", real(p), imag(p))
		default:
			parts[i] = fmt.Sprintf("%.4g-%.4gj", real(p), -imag(p))
		}
	}
	return strings.Join(parts, ", ")
}
