package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Linear is implemented by time-invariant systems dx/dt = Ax + Bu.
type Linear interface {
	System
	Matrices() (a, b *mat.Dense)
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Input yields the control held over [times[i], times[i+1]).
type Input interface {
	At(i int, t float64) Control
}

// SampledInput is a scalar input sampled on the simulation grid.
type SampledInput []float64

func (s SampledInput) At(i int, t float64) Control {
	if len(s) == 0 {
		return Control{0}
	}
	if i >= len(s) {
		i = len(s) - 1
	}
	return Control{s[i]}
}

// Constant is a scalar input that never changes.
type Constant float64

func (c Constant) At(i int, t float64) Control {
	return Control{float64(c)}
}

type Result struct {
	States     []State
	Times      []float64
	StepsTaken int
}
