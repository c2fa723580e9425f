package lti

import (
	"errors"
	"math"
	"math/cmplx"
	"strings"
	"testing"
)

func buckBoostPlant() TransferFunction {
	const (
		vi = 24.0
		l  = 20e-6
		c  = 80e-6
		ro = 4.0
		d  = 0.4
	)
	return MustTF([]float64{-vi}, []float64{l * c, l / ro, (1 - d) * (1 - d)})
}

func TestNewTF_Validation(t *testing.T) {
	if _, err := NewTF([]float64{1}, []float64{0, 0}); !errors.Is(err, ErrZeroDenominator) {
		t.Errorf("expected ErrZeroDenominator, got %v", err)
	}
	tf, err := NewTF([]float64{0, 1}, []float64{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(tf.Num) != 1 || len(tf.Den) != 2 {
		t.Errorf("leading zeros not trimmed: %v / %v", tf.Num, tf.Den)
	}
}

func TestTF_DCGain(t *testing.T) {
	g := buckBoostPlant()
	if got := g.DCGain(); math.Abs(got-(-24/0.36)) > 1e-9 {
		t.Errorf("DCGain = %v, want %v", got, -24/0.36)
	}

	integrator := MustTF([]float64{1}, []float64{1, 0})
	if got := integrator.DCGain(); !math.IsInf(got, 1) {
		t.Errorf("integrator DCGain = %v, want +Inf", got)
	}
}

func TestTF_UnityFeedbackSteadyState(t *testing.T) {
	g := buckBoostPlant()
	k := 9.0 / g.DCGain()

	closed := Gain(k).Series(g).UnityFeedback()
	if got := closed.DCGain(); math.Abs(got-0.9) > 1e-12 {
		t.Errorf("closed-loop DC gain = %v, want 0.9", got)
	}
	if closed.Order() != 2 {
		t.Errorf("closed-loop order = %d, want 2", closed.Order())
	}
}

func TestTF_PositiveFeedback(t *testing.T) {
	g := MustTF([]float64{1}, []float64{1, 2})
	pos := g.Feedback(Gain(1), 1)
	// 1/(s+2-1)
	if got := pos.DCGain(); math.Abs(got-1) > 1e-12 {
		t.Errorf("positive feedback DC gain = %v, want 1", got)
	}
}

func TestTF_Parallel(t *testing.T) {
	a := MustTF([]float64{1}, []float64{1, 1})
	b := MustTF([]float64{1}, []float64{1, 2})
	p := a.Parallel(b)
	s := complex(0.5, 0.25)
	if d := cmplx.Abs(p.Eval(s) - (a.Eval(s) + b.Eval(s))); d > 1e-12 {
		t.Errorf("parallel mismatch %v", d)
	}
}

func TestTF_PolesZeros(t *testing.T) {
	tf := MustTF([]float64{1, 3}, []float64{1, 3, 2})
	poles, _ := tf.Poles()
	zeros, _ := tf.Zeros()
	if len(poles) != 2 || cmplx.Abs(poles[0]+2) > 1e-9 || cmplx.Abs(poles[1]+1) > 1e-9 {
		t.Errorf("poles = %v", poles)
	}
	if len(zeros) != 1 || cmplx.Abs(zeros[0]+3) > 1e-9 {
		t.Errorf("zeros = %v", zeros)
	}
}

func TestTF_String(t *testing.T) {
	out := MustTF([]float64{2, 0}, []float64{1, 2, 5}).String()
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", out)
	}
	if strings.TrimSpace(lines[0]) != "2 s" || strings.TrimSpace(lines[2]) != "s^2 + 2 s + 5" {
		t.Errorf("unexpected rendering:\n%s", out)
	}
	if strings.Trim(lines[1], "-") != "" {
		t.Errorf("middle line should be dashes: %q", lines[1])
	}
}
