package laplace

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/ctrlkit/internal/lti"
)

// DefaultTalbotNodes keeps round-off below 1e-9 in float64.
const DefaultTalbotNodes = 32

// Talbot inverts F numerically at t > 0 with the fixed Talbot contour
// (Abate and Valkó) using m nodes. It returns NaN for t <= 0.
func Talbot(f func(s complex128) complex128, t float64, m int) float64 {
	if t <= 0 || m < 2 {
		return math.NaN()
	}
	r := 2 * float64(m) / (5 * t)

	sum := 0.5 * real(f(complex(r, 0))) * math.Exp(r*t)
	for k := 1; k < m; k++ {
		theta := float64(k) * math.Pi / float64(m)
		cot := 1 / math.Tan(theta)
		s := complex(r*theta*cot, r*theta)
		sigma := theta + (theta*cot-1)*cot
		sum += real(cmplx.Exp(s*complex(t, 0)) * f(s) * complex(1, sigma))
	}
	return r / float64(m) * sum
}

// TalbotTF samples the inverse transform of tf on times. Times at or below
// zero yield NaN.
func TalbotTF(tf lti.TransferFunction, times []float64, m int) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = Talbot(tf.Eval, t, m)
	}
	return out
}
