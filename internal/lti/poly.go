package lti

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Poly holds polynomial coefficients, highest power first.
type Poly []float64

// Trim drops leading zero coefficients, keeping at least one.
func (p Poly) Trim() Poly {
	i := 0
	for i < len(p)-1 && p[i] == 0 {
		i++
	}
	out := make(Poly, len(p)-i)
	copy(out, p[i:])
	return out
}

func (p Poly) Degree() int {
	t := p.Trim()
	if len(t) == 1 && t[0] == 0 {
		return -1
	}
	return len(t) - 1
}

func (p Poly) IsZero() bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

func (p Poly) Eval(x float64) float64 {
	sum := 0.0
	for _, c := range p {
		sum = sum*x + c
	}
	return sum
}

func (p Poly) EvalComplex(s complex128) complex128 {
	var sum complex128
	for _, c := range p {
		sum = sum*s + complex(c, 0)
	}
	return sum
}

func (p Poly) Scale(k float64) Poly {
	out := make(Poly, len(p))
	for i, c := range p {
		out[i] = c * k
	}
	return out
}

func (p Poly) Add(q Poly) Poly {
	n := max(len(p), len(q))
	out := make(Poly, n)
	for i := range p {
		out[n-len(p)+i] += p[i]
	}
	for i := range q {
		out[n-len(q)+i] += q[i]
	}
	return out.Trim()
}

func (p Poly) Mul(q Poly) Poly {
	if len(p) == 0 || len(q) == 0 {
		return Poly{0}
	}
	out := make(Poly, len(p)+len(q)-1)
	for i, a := range p {
		for j, b := range q {
			out[i+j] += a * b
		}
	}
	return out.Trim()
}

// Roots returns the zeros of p as eigenvalues of its companion matrix,
// sorted by real then imaginary part.
func (p Poly) Roots() ([]complex128, error) {
	t := p.Trim()
	n := len(t) - 1
	if n < 1 {
		return nil, nil
	}

	// trailing zero coefficients are roots at the origin
	zeros := 0
	for n-zeros > 0 && t[n-zeros] == 0 {
		zeros++
	}
	t = t[:len(t)-zeros]
	n = len(t) - 1

	roots := make([]complex128, 0, n+zeros)
	for i := 0; i < zeros; i++ {
		roots = append(roots, 0)
	}

	switch {
	case n == 1:
		roots = append(roots, complex(-t[1]/t[0], 0))
	case n > 1:
		companion := mat.NewDense(n, n, nil)
		for j := 0; j < n; j++ {
			companion.Set(0, j, -t[j+1]/t[0])
		}
		for i := 1; i < n; i++ {
			companion.Set(i, i-1, 1)
		}
		var eig mat.Eigen
		if ok := eig.Factorize(companion, mat.EigenNone); !ok {
			return nil, fmt.Errorf("lti: eigen decomposition failed for %v", p)
		}
		roots = append(roots, eig.Values(nil)...)
	}

	slices.SortFunc(roots, func(a, b complex128) int {
		if c := cmp.Compare(real(a), real(b)); c != 0 {
			return c
		}
		return cmp.Compare(imag(a), imag(b))
	})
	return roots, nil
}

// String renders p in the variable s, e.g. "1.6e-09 s^2 + 5e-06 s + 0.36".
func (p Poly) String() string {
	t := p.Trim()
	n := len(t) - 1
	var sb strings.Builder
	for i, c := range t {
		if c == 0 && n > 0 {
			continue
		}
		pow := n - i
		mag := math.Abs(c)
		switch {
		case sb.Len() == 0 && c < 0:
			sb.WriteString("-")
		case sb.Len() > 0 && c < 0:
			sb.WriteString(" - ")
		case sb.Len() > 0:
			sb.WriteString(" + ")
		}
		if mag != 1 || pow == 0 {
			sb.WriteString(formatCoef(mag))
			if pow > 0 {
				sb.WriteString(" ")
			}
		}
		switch {
		case pow == 1:
			sb.WriteString("s")
		case pow > 1:
			fmt.Fprintf(&sb, "s^%d", pow)
		}
	}
	if sb.Len() == 0 {
		return "0"
	}
	return sb.String()
}

func formatCoef(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
