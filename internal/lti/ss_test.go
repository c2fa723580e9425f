package lti

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/ctrlkit/internal/dynamo"
	"github.com/san-kum/ctrlkit/internal/response"
)

func polyEqual(a, b Poly, tol float64) bool {
	a, b = a.Trim(), b.Trim()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestSS_TF(t *testing.T) {
	sys, err := NewSSFromRows([][]float64{{0, 1}, {-5, -2}}, []float64{0, 2}, []float64{0, 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	tf := sys.TF()
	if !polyEqual(tf.Num, Poly{2, 0}, 1e-12) {
		t.Errorf("num = %v, want [2 0]", tf.Num)
	}
	if !polyEqual(tf.Den, Poly{1, 2, 5}, 1e-12) {
		t.Errorf("den = %v, want [1 2 5]", tf.Den)
	}
}

func TestSS_TFWithFeedthrough(t *testing.T) {
	sys, err := NewSSFromRows([][]float64{{-1}}, []float64{1}, []float64{1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	// 1/(s+1) + 2 = (2s + 3)/(s + 1)
	tf := sys.TF()
	if !polyEqual(tf.Num, Poly{2, 3}, 1e-12) || !polyEqual(tf.Den, Poly{1, 1}, 1e-12) {
		t.Errorf("tf = %v / %v", tf.Num, tf.Den)
	}
}

func TestTF_StateSpaceRoundTrip(t *testing.T) {
	tests := []TransferFunction{
		MustTF([]float64{1, 3}, []float64{1, 3, 2}),
		MustTF([]float64{2, 1, 1}, []float64{1, 4, 6, 4}),
		MustTF([]float64{13.46}, []float64{1, 0.610, 4.486}),
		MustTF([]float64{36.21}, []float64{7.4, 1}),
		MustTF([]float64{1, 0}, []float64{1, 1}),
	}
	for _, tf := range tests {
		sys, err := tf.StateSpace()
		if err != nil {
			t.Fatalf("%v: %v", tf, err)
		}
		back := sys.TF()
		want := tf.Monic()
		if !polyEqual(back.Num, want.Num, 1e-9) || !polyEqual(back.Den, want.Den, 1e-9) {
			t.Errorf("round trip of\n%v\ngave\n%v", tf, back)
		}
	}
}

func TestTF_StateSpaceImproper(t *testing.T) {
	_, err := MustTF([]float64{1, 0, 0}, []float64{1, 1}).StateSpace()
	if !errors.Is(err, ErrImproper) {
		t.Errorf("expected ErrImproper, got %v", err)
	}
}

func TestNewSS_Dimensions(t *testing.T) {
	tests := []struct {
		name string
		a    [][]float64
		b, c []float64
	}{
		{"ragged A", [][]float64{{0, 1}, {1}}, []float64{0, 1}, []float64{1, 0}},
		{"short B", [][]float64{{0, 1}, {1, 0}}, []float64{1}, []float64{1, 0}},
		{"short C", [][]float64{{0, 1}, {1, 0}}, []float64{0, 1}, []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSSFromRows(tt.a, tt.b, tt.c, 0); !errors.Is(err, ErrDimension) {
				t.Errorf("expected ErrDimension, got %v", err)
			}
		})
	}
}

func TestStepResponse_FirstOrder(t *testing.T) {
	tf := MustTF([]float64{1}, []float64{1, 1})
	grid := response.Linspace(0, 5, 501)

	tests := []struct {
		method string
		tol    float64
	}{
		{MethodZOH, 1e-10},
		{MethodRK4, 1e-8},
		{MethodEuler, 1e-2},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			opts := DefaultSimOptions()
			opts.Method = tt.method
			resp, err := tf.Step(context.Background(), grid, opts)
			if err != nil {
				t.Fatal(err)
			}
			for i, tm := range resp.Time {
				want := 1 - math.Exp(-tm)
				if math.Abs(resp.Amplitude[i]-want) > tt.tol {
					t.Fatalf("t=%v: got %v, want %v", tm, resp.Amplitude[i], want)
				}
			}
		})
	}
}

func TestStepResponse_DefaultGrid(t *testing.T) {
	sys, _ := NewSSFromRows([][]float64{{0, 1}, {-5, -2}}, []float64{0, 2}, []float64{0, 1}, 0)
	resp, err := sys.TF().Step(context.Background(), nil, DefaultSimOptions())
	if err != nil {
		t.Fatal(err)
	}
	if resp.End() != 7 {
		t.Errorf("horizon = %v, want 7", resp.End())
	}
	// 2s/(s^2+2s+5) stepped is exp(-t) sin(2t)
	for i, tm := range resp.Time {
		want := math.Exp(-tm) * math.Sin(2*tm)
		if math.Abs(resp.Amplitude[i]-want) > 1e-9 {
			t.Fatalf("t=%v: got %v, want %v", tm, resp.Amplitude[i], want)
		}
	}
}

func TestStepResponse_StaticGain(t *testing.T) {
	resp, err := Gain(2.5).Step(context.Background(), []float64{0, 1, 2}, DefaultSimOptions())
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range resp.Amplitude {
		if v != 2.5 {
			t.Errorf("static gain output %v, want 2.5", v)
		}
	}
}

func TestForcedResponse_Errors(t *testing.T) {
	sys, _ := MustTF([]float64{1}, []float64{1, 1}).StateSpace()

	_, err := ForcedResponse(context.Background(), sys, []float64{0, 1}, []float64{1}, DefaultSimOptions())
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	opts := DefaultSimOptions()
	opts.Method = "trapezoid"
	if _, err := ForcedResponse(context.Background(), sys, []float64{0, 1}, []float64{1, 1}, opts); err == nil {
		t.Error("expected unknown method error")
	}
}

func TestForcedResponse_DelayedStep(t *testing.T) {
	sys, _ := MustTF([]float64{1}, []float64{1, 1}).StateSpace()
	grid := response.Linspace(0, 3, 301)
	u := make([]float64, len(grid))
	const onset = 100
	for i := onset; i < len(u); i++ {
		u[i] = 1
	}
	resp, err := ForcedResponse(context.Background(), sys, grid, u, DefaultSimOptions())
	if err != nil {
		t.Fatal(err)
	}
	for i, tm := range resp.Time {
		want := 0.0
		if i > onset {
			want = 1 - math.Exp(-(tm - grid[onset]))
		}
		if math.Abs(resp.Amplitude[i]-want) > 1e-9 {
			t.Fatalf("t=%v: got %v, want %v", tm, resp.Amplitude[i], want)
		}
	}
}

func TestDefaultTimeGrid_Unstable(t *testing.T) {
	grid := DefaultTimeGrid([]complex128{1}, 100)
	if grid[len(grid)-1] != 10 {
		t.Errorf("unstable horizon = %v, want 10", grid[len(grid)-1])
	}
}
