package integrators

import (
	"github.com/san-kum/ctrlkit/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Euler is the explicit first-order step. It is kept for comparison with
// the exact ZOH discretization; errors grow with dt.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	next := make(dynamo.State, len(x))
	floats.AddScaledTo(next, x, dt, dyn.Derive(x, u, t))
	return next
}
