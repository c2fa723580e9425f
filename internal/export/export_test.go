package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/ctrlkit/internal/response"
	"github.com/san-kum/ctrlkit/internal/storage"
)

func stepCurve(t *testing.T, name string) response.Sampled {
	t.Helper()
	times := response.Linspace(0, 5, 51)
	amp := make([]float64, len(times))
	for i, x := range times {
		amp[i] = 1 - math.Exp(-x)
	}
	resp, err := response.New(name, times, amp)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func sampleFigure(t *testing.T) *Figure {
	fig := NewFigure("step", "Step <response>", "t [s]", "y")
	fig.AddPoints("data", stepCurve(t, "data"), Blue).
		AddLine("model", stepCurve(t, "model"), Red).
		AddHLine("final", 1, Green).
		AddVLine("step", 0.5, Black)
	fig.Width, fig.Height = 4, 3
	return fig
}

func TestFigure_EmptyAndSize(t *testing.T) {
	fig := NewFigure("x", "x", "t", "y")
	if _, err := fig.Plot(); !errors.Is(err, ErrEmptyFigure) {
		t.Errorf("expected ErrEmptyFigure, got %v", err)
	}
	fig.AddLine("a", stepCurve(t, "a"), Red)
	fig.Width = 0
	if _, err := fig.Plot(); !errors.Is(err, ErrBadSize) {
		t.Errorf("expected ErrBadSize, got %v", err)
	}
}

func TestFigure_BoundsIncludeReferences(t *testing.T) {
	fig := sampleFigure(t)
	fig.AddHLine("high", 3, Gray)
	fig.TimeScale = 1000
	minX, maxX, minY, maxY := fig.bounds()
	if minX != 0 || maxX != 5000 {
		t.Errorf("x bounds = [%g, %g], want [0, 5000]", minX, maxX)
	}
	if minY != 0 || maxY != 3 {
		t.Errorf("y bounds = [%g, %g], want [0, 3]", minY, maxY)
	}
}

func TestWritePNG(t *testing.T) {
	fig := sampleFigure(t)
	var buf bytes.Buffer
	if err := fig.WritePNG(&buf); err != nil {
		t.Fatalf("write png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 4*DPI || b.Dy() != 3*DPI {
		t.Errorf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), 4*DPI, 3*DPI)
	}
}

func TestSavePNG_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figs", "step.png")
	if err := sampleFigure(t).SavePNG(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("expected non-empty file, err=%v", err)
	}
}

func TestSVG(t *testing.T) {
	doc, err := sampleFigure(t).SVG(400, 300)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(doc, "<?xml") || !strings.HasSuffix(doc, "</svg>") {
		t.Error("not a complete svg document")
	}
	if got := strings.Count(doc, "<circle"); got != 51 {
		t.Errorf("expected 51 data points, got %d", got)
	}
	if got := strings.Count(doc, "<line"); got != 2 {
		t.Errorf("expected 2 reference lines, got %d", got)
	}
	if !strings.Contains(doc, "Step &lt;response&gt;") {
		t.Error("title not escaped")
	}
	if !strings.Contains(doc, `stroke="#d62728"`) {
		t.Error("model line color missing")
	}
	if _, err := sampleFigure(t).SVG(50, 50); !errors.Is(err, ErrBadSize) {
		t.Errorf("expected ErrBadSize, got %v", err)
	}
}

func pzFigure() *Figure {
	fig := NewFigure("pzmap", "Pole-zero map", "Re(s)", "Im(s)")
	fig.AddMarkers("poles", []float64{-1, -1, -4}, []float64{-2, 2, 0}, Cross, Red).
		AddMarkers("zeros", []float64{-3}, []float64{0}, Ring, Blue).
		AddMarkers("none", nil, nil, Ring, Gray)
	fig.Width, fig.Height = 4, 3
	return fig
}

func TestMarkers_SharedRealPart(t *testing.T) {
	fig := pzFigure()
	if len(fig.Markers) != 2 {
		t.Fatalf("empty marker set kept: %d sets", len(fig.Markers))
	}
	fig.TimeScale = 1000
	minX, maxX, minY, maxY := fig.bounds()
	if minX != -4 || maxX != -1 || minY != -2 || maxY != 2 {
		t.Errorf("bounds = [%g, %g] x [%g, %g], want [-4, -1] x [-2, 2]", minX, maxX, minY, maxY)
	}
	var buf bytes.Buffer
	if err := fig.WritePNG(&buf); err != nil {
		t.Fatalf("write png: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestMarkers_SVGGlyphs(t *testing.T) {
	doc, err := pzFigure().SVG(400, 300)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(doc, `class="cross"`); got != 3 {
		t.Errorf("expected 3 pole crosses, got %d", got)
	}
	if got := strings.Count(doc, `fill="none" stroke="#1f77b4"`); got != 1 {
		t.Errorf("expected 1 zero ring, got %d", got)
	}
}

func TestMarkers_Invalid(t *testing.T) {
	fig := NewFigure("pz", "pz", "Re", "Im")
	fig.AddMarkers("poles", []float64{-1, -1}, []float64{2}, Cross, Red)
	if _, err := fig.Plot(); !errors.Is(err, response.ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	fig = NewFigure("pz", "pz", "Re", "Im")
	fig.AddMarkers("poles", []float64{math.NaN()}, []float64{0}, Cross, Red)
	if _, err := fig.SVG(400, 300); !errors.Is(err, response.ErrNonFinite) {
		t.Errorf("expected ErrNonFinite, got %v", err)
	}
}

func TestExportJSON_NullForUndefined(t *testing.T) {
	meta := storage.RunMetadata{
		ID:        "dcdc_1",
		Exercise:  "dcdc",
		Metrics:   map[string]float64{"rise_time": 2.5},
		Undefined: []string{"time_constant"},
	}
	data := NewExportData(meta, []response.Sampled{stepCurve(t, "closed_loop")})

	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, data); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	metrics := decoded["metrics"].(map[string]any)
	if v, ok := metrics["time_constant"]; !ok || v != nil {
		t.Errorf("time_constant = %v (present %v), want null", v, ok)
	}
	if metrics["rise_time"] != 2.5 {
		t.Errorf("rise_time = %v", metrics["rise_time"])
	}
	curves := decoded["responses"].([]any)
	if len(curves) != 1 {
		t.Fatalf("expected 1 response, got %d", len(curves))
	}
}
