package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/ctrlkit/internal/response"
)

func curve(t *testing.T, amp ...float64) response.Sampled {
	t.Helper()
	times := make([]float64, len(amp))
	for i := range times {
		times[i] = float64(i)
	}
	s, err := response.New("test", times, amp)
	if err != nil {
		t.Fatalf("bad test curve: %v", err)
	}
	return s
}

func ramp(t *testing.T) response.Sampled {
	amp := make([]float64, 11)
	for i := range amp {
		amp[i] = float64(i)
	}
	return curve(t, amp...)
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAnalyze_Ramp(t *testing.T) {
	m, err := Analyze(ramp(t), DefaultOptions())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if !approx(m.SteadyState, 10, 1e-12) {
		t.Errorf("steady state = %v, want 10", m.SteadyState)
	}
	// first sample at or above 6.32
	if m.TimeConstant != 7 {
		t.Errorf("time constant = %v, want 7", m.TimeConstant)
	}
	if m.RiseTime != 8 {
		t.Errorf("rise time = %v, want time(9)-time(1) = 8", m.RiseTime)
	}
	if m.SettlingTime != 9 {
		t.Errorf("settling time = %v, want 9", m.SettlingTime)
	}
	if m.PeakValue != 10 || m.PeakTime != 10 {
		t.Errorf("peak = %v at %v, want 10 at 10", m.PeakValue, m.PeakTime)
	}
	if m.OvershootPercent != 0 {
		t.Errorf("overshoot = %v, want 0", m.OvershootPercent)
	}
	if m.Direction != Rising {
		t.Errorf("direction = %v, want rising", m.Direction)
	}
}

func TestAnalyze_Constant(t *testing.T) {
	m, err := Analyze(curve(t, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5), DefaultOptions())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if m.OvershootPercent != 0 {
		t.Errorf("overshoot = %v, want 0", m.OvershootPercent)
	}
	if m.SettlingTime != 0 {
		t.Errorf("settling time = %v, want 0", m.SettlingTime)
	}
}

func TestAnalyze_Overshoot(t *testing.T) {
	opts := DefaultOptions()
	opts.TrailingFraction = 0.3

	m, err := Analyze(curve(t, 0, 5, 12, 10, 10, 10, 10, 10, 10, 10), opts)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !approx(m.OvershootPercent, 20, 1e-9) {
		t.Errorf("overshoot = %v, want 20", m.OvershootPercent)
	}
	if m.PeakValue < m.SteadyState {
		t.Errorf("peak %v below steady state %v", m.PeakValue, m.SteadyState)
	}
	if m.PeakTime != 2 {
		t.Errorf("peak time = %v, want 2", m.PeakTime)
	}
}

func TestAnalyze_FallingUndershoot(t *testing.T) {
	opts := DefaultOptions()
	opts.TrailingFraction = 0.3

	m, err := Analyze(curve(t, 10, 5, -2, 0, 0, 0, 0, 0, 0, 0), opts)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if m.Direction != Falling {
		t.Fatalf("direction = %v, want falling", m.Direction)
	}
	if m.PeakValue != -2 {
		t.Errorf("peak = %v, want -2", m.PeakValue)
	}
	if !approx(m.OvershootPercent, 20, 1e-9) {
		t.Errorf("overshoot = %v, want 20", m.OvershootPercent)
	}
	// 10% and 90% levels are 9 and 1
	if m.RiseTime != 1 {
		t.Errorf("rise time = %v, want 1", m.RiseTime)
	}
}

func TestAnalyze_TwoSamplesSettled(t *testing.T) {
	opts := DefaultOptions()
	opts.TrailingFraction = 0.5

	m, err := Analyze(curve(t, 3, 3), opts)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if m.SettlingTime != 0 {
		t.Errorf("settling time = %v, want 0", m.SettlingTime)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	resp := curve(t, 0, 3, 7, 11, 10.5, 9.8, 10.1, 10, 10, 10)
	opts := DefaultOptions()
	opts.TrailingFraction = 0.3

	a, errA := Analyze(resp, opts)
	b, errB := Analyze(resp, opts)
	if (errA == nil) != (errB == nil) {
		t.Fatalf("errors differ: %v vs %v", errA, errB)
	}
	if a != b {
		t.Errorf("results differ:\n%+v\n%+v", a, b)
	}
}

func TestAnalyze_InsufficientTrailingWindow(t *testing.T) {
	m, err := Analyze(curve(t, 0, 1, 2, 3, 4), DefaultOptions())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	var ide *InsufficientDataError
	if !errors.As(err, &ide) || ide.Have != 0 {
		t.Errorf("unexpected error detail: %+v", ide)
	}
	for name, v := range m.Values() {
		if !math.IsNaN(v) {
			t.Errorf("%s = %v, want NaN", name, v)
		}
	}
}

func TestAnalyze_TooFewSamples(t *testing.T) {
	_, err := Analyze(response.Sampled{Time: []float64{0}, Amplitude: []float64{1}}, DefaultOptions())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyze_FinalOverrideNotReached(t *testing.T) {
	opts := DefaultOptions()
	opts.FinalValue = 20

	m, err := Analyze(ramp(t), opts)
	if !errors.Is(err, ErrThresholdNotReached) {
		t.Fatalf("expected ErrThresholdNotReached, got %v", err)
	}
	if !math.IsNaN(m.TimeConstant) || !math.IsNaN(m.RiseTime) {
		t.Errorf("dependent metrics should be NaN: %+v", m)
	}
	// independent metrics are still reported
	if m.PeakValue != 10 {
		t.Errorf("peak = %v, want 10", m.PeakValue)
	}
	if math.IsNaN(m.SettlingTime) {
		t.Error("settling time should still be reported")
	}
}

func TestAnalyze_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero fraction", func(o *Options) { o.TrailingFraction = 0 }},
		{"fraction above one", func(o *Options) { o.TrailingFraction = 1.5 }},
		{"negative band", func(o *Options) { o.SettlingBand = -0.1 }},
		{"inverted rise", func(o *Options) { o.RiseLow, o.RiseHigh = 0.9, 0.1 }},
		{"zero tau level", func(o *Options) { o.TimeConstantLevel = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			if _, err := Analyze(ramp(t), opts); !errors.Is(err, ErrInvalidOption) {
				t.Errorf("expected ErrInvalidOption, got %v", err)
			}
		})
	}
}

func TestSettlingTime_ReferenceAndWindow(t *testing.T) {
	resp := ramp(t)

	if got := SettlingTime(resp, 10, 0.02, 2); got != 7 {
		t.Errorf("settling from t=2 = %v, want 7", got)
	}
	if got := SettlingTime(resp, 10, 0.02, 9.5); got != 0 {
		t.Errorf("excursion before reference should give 0, got %v", got)
	}
	if got := SettlingTime(resp, 10, 0.02, 11); !math.IsNaN(got) {
		t.Errorf("reference outside window should be NaN, got %v", got)
	}
}

func TestSettlingTime_LastExcursionWins(t *testing.T) {
	resp := curve(t, 0, 10, 10, 10, 10, 10, 13, 10, 10, 10)
	if got := SettlingTime(resp, 10, 0.02, 0); got != 6 {
		t.Errorf("settling = %v, want 6 (late excursion)", got)
	}
}

func TestRiseTime_NotReached(t *testing.T) {
	_, err := RiseTime(ramp(t), 100, 0.1, 0.9)
	var tnr *ThresholdNotReachedError
	if !errors.As(err, &tnr) {
		t.Fatalf("expected ThresholdNotReachedError, got %v", err)
	}
	if tnr.Metric != "rise_time" || tnr.Threshold != 90 {
		t.Errorf("unexpected detail: %+v", tnr)
	}
}

func TestTimeConstant_FallingNegative(t *testing.T) {
	resp := curve(t, 0, -4, -7, -9, -10, -10)
	tau, err := TimeConstant(resp, -10, DefaultTimeConstantLevel)
	if err != nil {
		t.Fatal(err)
	}
	if tau != 2 {
		t.Errorf("tau = %v, want 2", tau)
	}
}

func TestSteadyState_Window(t *testing.T) {
	resp := curve(t, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3)

	tests := []struct {
		fraction float64
		want     float64
	}{
		{0.1, 3},
		{0.3, 2},
		{1.0, 0.6},
	}
	for _, tt := range tests {
		got, err := SteadyState(resp, tt.fraction)
		if err != nil {
			t.Fatalf("fraction %v: %v", tt.fraction, err)
		}
		if !approx(got, tt.want, 1e-12) {
			t.Errorf("fraction %v: got %v, want %v", tt.fraction, got, tt.want)
		}
	}
}

func TestOvershoot_NoOvershoot(t *testing.T) {
	tests := []struct {
		start, final, peak float64
	}{
		{0, 10, 10},
		{0, 10, 9},
		{10, 0, 0},
		{5, 5, 8},
	}
	for _, tt := range tests {
		if got := Overshoot(tt.start, tt.final, tt.peak); got != 0 {
			t.Errorf("Overshoot(%v, %v, %v) = %v, want 0", tt.start, tt.final, tt.peak, got)
		}
	}
}

func TestFirstCrossing(t *testing.T) {
	values := []float64{0, 1, 2, 3, 2, 1}

	if i, ok := FirstCrossing(values, 2, Rising); !ok || i != 2 {
		t.Errorf("rising crossing = %d %v, want 2", i, ok)
	}
	if i, ok := FirstCrossing(values, 1.5, Falling); !ok || i != 0 {
		t.Errorf("falling crossing = %d %v, want 0", i, ok)
	}
	if _, ok := FirstCrossing(values, 4, Rising); ok {
		t.Error("expected no crossing")
	}
}

func TestDirection_Text(t *testing.T) {
	for _, d := range []Direction{Rising, Falling} {
		text, _ := d.MarshalText()
		var back Direction
		if err := back.UnmarshalText(text); err != nil || back != d {
			t.Errorf("round trip of %v gave %v (%v)", d, back, err)
		}
	}
	var d Direction
	if err := d.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("expected error for unknown direction")
	}
}
