package integrators

import (
	"math"

	"github.com/san-kum/ctrlkit/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// ZOH steps linear systems exactly under a zero-order-hold input using the
// matrix exponential of the augmented matrix [[A B]; [0 0]]*dt. Systems that
// do not implement dynamo.Linear are stepped with RK4.
type ZOH struct {
	fallback *RK4
	lastDt   float64
	ad       *mat.Dense
	bd       *mat.Dense
	a, b     *mat.Dense
}

func NewZOH() *ZOH {
	return &ZOH{fallback: NewRK4()}
}

func (z *ZOH) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	lin, ok := dyn.(dynamo.Linear)
	if !ok {
		return z.fallback.Step(dyn, x, u, t, dt)
	}
	a, b := lin.Matrices()
	z.discretize(a, b, dt)

	n := len(x)
	m := len(u)
	result := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += z.ad.At(i, j) * x[j]
		}
		for j := 0; j < m && j < z.bd.RawMatrix().Cols; j++ {
			sum += z.bd.At(i, j) * u[j]
		}
		result[i] = sum
	}
	return result
}

func (z *ZOH) discretize(a, b *mat.Dense, dt float64) {
	if z.ad != nil && z.a == a && z.b == b && math.Abs(dt-z.lastDt) <= 1e-12*math.Abs(dt) {
		return
	}
	n, _ := a.Dims()
	_, m := b.Dims()

	aug := mat.NewDense(n+m, n+m, nil)
	aug.Slice(0, n, 0, n).(*mat.Dense).Scale(dt, a)
	aug.Slice(0, n, n, n+m).(*mat.Dense).Scale(dt, b)

	var e mat.Dense
	e.Exp(aug)

	z.ad = mat.DenseCopyOf(e.Slice(0, n, 0, n))
	z.bd = mat.DenseCopyOf(e.Slice(0, n, n, n+m))
	z.a, z.b = a, b
	z.lastDt = dt
}
