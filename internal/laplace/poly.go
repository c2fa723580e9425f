package laplace

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/ctrlkit/internal/lti"
)

// cpoly is a complex polynomial, highest power first.
type cpoly []complex128

func fromReal(p lti.Poly) cpoly {
	out := make(cpoly, len(p))
	for i, c := range p {
		out[i] = complex(c, 0)
	}
	return out
}

func (p cpoly) mul(q cpoly) cpoly {
	out := make(cpoly, len(p)+len(q)-1)
	for i, a := range p {
		for j, b := range q {
			out[i+j] += a * b
		}
	}
	return out
}

func (p cpoly) add(q cpoly) cpoly {
	n := max(len(p), len(q))
	out := make(cpoly, n)
	for i := range p {
		out[n-len(p)+i] += p[i]
	}
	for i := range q {
		out[n-len(q)+i] += q[i]
	}
	return out
}

func (p cpoly) scale(k complex128) cpoly {
	out := make(cpoly, len(p))
	for i, c := range p {
		out[i] = c * k
	}
	return out
}

// factor returns (s - root)^power.
func factor(root complex128, power int) cpoly {
	out := cpoly{1}
	for i := 0; i < power; i++ {
		out = out.mul(cpoly{1, -root})
	}
	return out
}

// taylor returns the coefficients of p(at + u) in ascending powers of u,
// by repeated synthetic division by (s - at).
func (p cpoly) taylor(at complex128) []complex128 {
	work := append(cpoly(nil), p...)
	n := len(work) - 1
	out := make([]complex128, n+1)
	for k := 0; k <= n; k++ {
		var acc complex128
		for i := 0; i <= n-k; i++ {
			acc = acc*at + work[i]
			work[i] = acc
		}
		out[k] = work[n-k]
	}
	return out
}

// real drops imaginary parts that are negligible against the largest
// coefficient. ok is false when some coefficient is genuinely complex.
func (p cpoly) real() (lti.Poly, bool) {
	scale := 0.0
	for _, c := range p {
		scale = math.Max(scale, cmplx.Abs(c))
	}
	out := make(lti.Poly, len(p))
	for i, c := range p {
		if math.Abs(imag(c)) > 1e-9*math.Max(scale, 1e-300) {
			return nil, false
		}
		out[i] = cleanReal(real(c), scale)
	}
	return out, true
}

// seriesDiv returns the first n coefficients of a(u)/b(u), both given in
// ascending powers with b[0] != 0.
func seriesDiv(a, b []complex128, n int) []complex128 {
	q := make([]complex128, n)
	for k := 0; k < n; k++ {
		var v complex128
		if k < len(a) {
			v = a[k]
		}
		for j := 1; j <= k && j < len(b); j++ {
			v -= b[j] * q[k-j]
		}
		q[k] = v / b[0]
	}
	return q
}

func cleanReal(v, scale float64) float64 {
	if math.Abs(v) <= 1e-12*scale {
		return 0
	}
	return v
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

type poleGroup struct {
	pole    complex128
	members []int
}

func poleTolerance(p complex128) float64 {
	return 1e-4 * math.Max(1, cmplx.Abs(p))
}

// groupPoles clusters numerically coincident poles. A repeated root comes
// back from the eigen solver as a small cloud around the true value; the
// cluster mean recovers it.
func groupPoles(poles []complex128) []poleGroup {
	var groups []poleGroup
	for i, p := range poles {
		placed := false
		for g := range groups {
			if cmplx.Abs(p-groups[g].pole) <= poleTolerance(groups[g].pole) {
				groups[g].members = append(groups[g].members, i)
				var sum complex128
				for _, m := range groups[g].members {
					sum += poles[m]
				}
				groups[g].pole = sum / complex(float64(len(groups[g].members)), 0)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, poleGroup{pole: p, members: []int{i}})
		}
	}
	for g := range groups {
		p := groups[g].pole
		re, im := real(p), imag(p)
		if math.Abs(im) <= poleTolerance(p) {
			im = 0
		}
		if math.Abs(re) <= 1e-10*math.Max(1, cmplx.Abs(p)) {
			re = 0
		}
		groups[g].pole = complex(re, im)
	}
	return groups
}
