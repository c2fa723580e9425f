package integrators

import (
	"github.com/san-kum/ctrlkit/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// RK4 is the classical fourth-order Runge-Kutta step with the input held
// over the interval. Stage buffers are reused between calls of the same
// dimension, so an RK4 must not be shared between goroutines.
type RK4 struct {
	stages [4]dynamo.State
	probe  dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.probe) == n {
		return
	}
	for i := range r.stages {
		r.stages[i] = make(dynamo.State, n)
	}
	r.probe = make(dynamo.State, n)
}

// stage evaluates the derivative at x + h*prev and stores it in dst.
func (r *RK4) stage(dst dynamo.State, dyn dynamo.System, x, prev dynamo.State, h float64, u dynamo.Control, t float64) {
	floats.AddScaledTo(r.probe, x, h, prev)
	copy(dst, dyn.Derive(r.probe, u, t))
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.resize(len(x))
	k1, k2, k3, k4 := r.stages[0], r.stages[1], r.stages[2], r.stages[3]

	copy(k1, dyn.Derive(x, u, t))
	r.stage(k2, dyn, x, k1, dt/2, u, t+dt/2)
	r.stage(k3, dyn, x, k2, dt/2, u, t+dt/2)
	r.stage(k4, dyn, x, k3, dt, u, t+dt)

	next := x.Clone()
	floats.AddScaled(next, dt/6, k1)
	floats.AddScaled(next, dt/3, k2)
	floats.AddScaled(next, dt/3, k3)
	floats.AddScaled(next, dt/6, k4)
	return next
}
