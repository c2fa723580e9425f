package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/ctrlkit/internal/experiment"
	"github.com/san-kum/ctrlkit/internal/response"
	"github.com/san-kum/ctrlkit/internal/storage"
)

// RenderReport draws every section of rep followed by its notes.
func RenderReport(rep *experiment.Report) string {
	var b strings.Builder
	b.WriteString(Title.Render(strings.ToUpper(rep.Exercise)))
	if rep.Preset != "" {
		b.WriteString(Subtle.Render("  preset " + rep.Preset))
	}
	b.WriteString("\n")
	if rep.Summary != "" {
		b.WriteString(Subtle.Render(rep.Summary) + "\n")
	}
	b.WriteString("\n")

	for _, s := range rep.Sections {
		b.WriteString(RenderSection(s))
		b.WriteString("\n")
	}
	if len(rep.Notes) > 0 {
		b.WriteString(Warning.Render("notes") + "\n")
		for _, n := range rep.Notes {
			b.WriteString("  " + Muted.Render("• "+n) + "\n")
		}
	}
	return b.String()
}

func RenderSection(s *experiment.Section) string {
	width := 0
	for _, r := range s.Rows {
		width = max(width, len([]rune(r.Label)))
	}
	var lines []string
	lines = append(lines, Header.Render(s.Title))
	for _, r := range s.Rows {
		pad := strings.Repeat(" ", width-len([]rune(r.Label)))
		lines = append(lines, Label.Render(r.Label+pad)+"  "+renderValue(r.Value))
	}
	if len(s.Text) > 0 {
		if len(s.Rows) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, s.Text...)
	}
	return Panel.Render(strings.Join(lines, "\n"))
}

func renderValue(v string) string {
	if strings.HasPrefix(v, "undefined") {
		return Muted.Render(v)
	}
	return Value.Render(v)
}

// RenderFigures plots the series of each figure of rep in the terminal.
// Figures made only of markers are skipped.
func RenderFigures(rep *experiment.Report, opts PlotOptions) string {
	var b strings.Builder
	for _, f := range rep.Figures {
		if len(f.Series) == 0 {
			continue
		}
		var curves []response.Sampled
		for _, s := range f.Series {
			r := s.Response
			r.Name = s.Label
			curves = append(curves, r)
		}
		po := opts
		po.Caption = f.Title
		po.TimeScale = f.TimeScale
		po.TimeUnit = timeUnit(f.TimeScale)
		b.WriteString(Plot(po, curves...))
		b.WriteString("\n\n")
	}
	return b.String()
}

func timeUnit(scale float64) string {
	switch scale {
	case 1e3:
		return "ms"
	case 1e6:
		return "µs"
	default:
		return "s"
	}
}

// RenderMetadata shows a stored run: identity, summary, metrics and notes.
func RenderMetadata(meta storage.RunMetadata) string {
	s := &experiment.Section{Title: "run " + meta.ID}
	s.Add("exercise", "%s", meta.Exercise)
	if meta.Preset != "" {
		s.Add("preset", "%s", meta.Preset)
	}
	s.Add("time", "%s", meta.Timestamp.Format("2006-01-02 15:04:05"))
	if meta.Method != "" {
		s.Add("method", "%s", meta.Method)
	}
	if meta.Summary != "" {
		s.Add("summary", "%s", meta.Summary)
	}
	s.Add("responses", "%s", strings.Join(meta.Responses, ", "))

	names := make([]string, 0, len(meta.Metrics)+len(meta.Undefined))
	for k := range meta.Metrics {
		names = append(names, k)
	}
	names = append(names, meta.Undefined...)
	sort.Strings(names)
	m := &experiment.Section{Title: "metrics"}
	for _, k := range names {
		if v, ok := meta.Metrics[k]; ok {
			m.Add(k, "%.6g", v)
		} else {
			m.Add(k, "undefined")
		}
	}

	out := RenderSection(s) + "\n"
	if len(names) > 0 {
		out += RenderSection(m) + "\n"
	}
	for _, n := range meta.Notes {
		out += Muted.Render("• "+n) + "\n"
	}
	return out
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
