package response

import (
	"errors"
	"math"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		t, y []float64
		want error
	}{
		{"ok", []float64{0, 1}, []float64{0, 1}, nil},
		{"mismatch", []float64{0, 1, 2}, []float64{0, 1}, ErrLengthMismatch},
		{"single", []float64{0}, []float64{0}, ErrTooFewSamples},
		{"empty", nil, nil, ErrTooFewSamples},
		{"repeated time", []float64{0, 1, 1}, []float64{0, 1, 2}, ErrNotIncreasing},
		{"decreasing time", []float64{0, 2, 1}, []float64{0, 1, 2}, ErrNotIncreasing},
		{"nan amplitude", []float64{0, 1}, []float64{0, math.NaN()}, ErrNonFinite},
		{"inf time", []float64{0, math.Inf(1)}, []float64{0, 1}, ErrNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("x", tt.t, tt.y)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSampled_Window(t *testing.T) {
	s, err := New("w", []float64{1, 2, 4}, []float64{0, 1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if s.Start() != 1 || s.End() != 4 || s.Duration() != 3 {
		t.Errorf("window = [%v, %v] duration %v", s.Start(), s.End(), s.Duration())
	}
	if !s.Contains(4) || s.Contains(4.5) || s.Contains(0.5) {
		t.Error("Contains reports wrong membership")
	}
}

func TestSampled_At(t *testing.T) {
	s, _ := New("a", []float64{0, 1, 3}, []float64{0, 2, 6})

	tests := []struct {
		t, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 1},
		{2, 4},
		{3, 6},
		{10, 6},
	}
	for _, tt := range tests {
		if got := s.At(tt.t); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("At(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestSampled_ShiftDoesNotMutate(t *testing.T) {
	s, _ := New("s", []float64{0, 1}, []float64{1, 2})
	shifted := s.Shift(-16)
	if shifted.Amplitude[0] != -15 || shifted.Amplitude[1] != -14 {
		t.Errorf("shift = %v", shifted.Amplitude)
	}
	if s.Amplitude[0] != 1 {
		t.Error("Shift mutated the source")
	}
}

func TestSampled_Resample(t *testing.T) {
	s, _ := New("r", []float64{0, 0.3, 1}, []float64{0, 0.3, 1})
	r, err := s.Resample(11)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 11 {
		t.Fatalf("expected 11 samples, got %d", r.Len())
	}
	for i := range r.Time {
		if math.Abs(r.Amplitude[i]-r.Time[i]) > 1e-12 {
			t.Errorf("sample %d: %v != %v", i, r.Amplitude[i], r.Time[i])
		}
	}
}

func TestSampled_Slice(t *testing.T) {
	s, _ := New("s", []float64{0, 1, 2, 3}, []float64{0, 1, 2, 3})
	sub, err := s.Slice(1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Start() != 1 || sub.End() != 2 {
		t.Errorf("slice window = [%v, %v]", sub.Start(), sub.End())
	}
	if _, err := s.Slice(2, 9); err == nil {
		t.Error("expected out of range error")
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 0.02, 5)
	want := []float64{0, 0.005, 0.01, 0.015, 0.02}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Errorf("Linspace[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if got[len(got)-1] != 0.02 {
		t.Error("last point must equal the endpoint exactly")
	}
	if Linspace(0, 1, 0) != nil {
		t.Error("expected nil for n=0")
	}
	if one := Linspace(3, 5, 1); len(one) != 1 || one[0] != 3 {
		t.Errorf("Linspace n=1 = %v", one)
	}
}
