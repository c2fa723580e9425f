package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_CloneIsIndependent(t *testing.T) {
	a := State{1, 2}
	b := a.Clone()
	b[0] = 9
	if a[0] != 1 {
		t.Errorf("clone aliases original: %v", a)
	}
}

func TestSampledInput_HoldsLastValue(t *testing.T) {
	in := SampledInput{0, 1, 2}
	if got := in.At(1, 0)[0]; got != 1 {
		t.Errorf("At(1) = %v, want 1", got)
	}
	if got := in.At(10, 0)[0]; got != 2 {
		t.Errorf("At(10) = %v, want 2", got)
	}
	if got := SampledInput(nil).At(0, 0)[0]; got != 0 {
		t.Errorf("empty input = %v, want 0", got)
	}
}

func TestSimulationError_Unwrap(t *testing.T) {
	err := &SimulationError{Step: 3, Time: 0.25, Err: ErrUnstable}
	if want := "step 3 (t=0.25): " + ErrUnstable.Error(); err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrUnstable) {
		t.Error("SimulationError should unwrap to its cause")
	}
}
