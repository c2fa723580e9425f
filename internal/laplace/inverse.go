package laplace

import (
	"cmp"
	"fmt"
	"math"
	"math/cmplx"
	"slices"
	"strings"

	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/response"
)

// Expansion is the inverse transform of a proper rational function:
// Impulse*δ(t) plus a sum of terms. Conjugate poles appear as separate terms.
type Expansion struct {
	Impulse float64
	Terms   []Term
}

// Inverse expands tf in partial fractions. Each pole p of multiplicity m
// contributes m terms whose coefficients come from the Taylor series of
// the remaining factors around p.
func Inverse(tf lti.TransferFunction) (Expansion, error) {
	if !tf.IsProper() {
		return Expansion{}, fmt.Errorf("inverse transform of %s/%s: %w", tf.Num, tf.Den, lti.ErrImproper)
	}
	num := tf.Num.Trim()
	den := tf.Den.Trim()

	var exp Expansion
	if num.IsZero() {
		return exp, nil
	}

	if num.Degree() == den.Degree() {
		k := num[0] / den[0]
		exp.Impulse = k
		rem := make(lti.Poly, len(den)-1)
		for i := 1; i < len(den); i++ {
			rem[i-1] = num[i] - k*den[i]
		}
		num = rem.Trim()
		if num.IsZero() || den.Degree() == 0 {
			return exp, nil
		}
	}

	roots, err := den.Roots()
	if err != nil {
		return Expansion{}, err
	}
	groups := groupPoles(roots)
	n := fromReal(num)

	for j, g := range groups {
		mult := len(g.members)
		rest := cpoly{complex(den[0], 0)}
		for h, o := range groups {
			if h != j {
				rest = rest.mul(factor(o.pole, len(o.members)))
			}
		}
		q := seriesDiv(n.taylor(g.pole), rest.taylor(g.pole), mult)
		for r := 0; r < mult; r++ {
			// q[r] multiplies 1/(s-p)^(mult-r)
			power := mult - r - 1
			exp.Terms = append(exp.Terms, Term{
				Coef:  q[r] / complex(factorial(power), 0),
				Power: power,
				Pole:  g.pole,
			})
		}
	}

	scale := 0.0
	for _, tm := range exp.Terms {
		scale = math.Max(scale, cmplx.Abs(tm.Coef))
	}
	exp.Terms = slices.DeleteFunc(exp.Terms, func(tm Term) bool {
		return cmplx.Abs(tm.Coef) <= 1e-10*scale
	})
	slices.SortFunc(exp.Terms, func(a, b Term) int {
		if c := cmp.Compare(real(b.Pole), real(a.Pole)); c != 0 {
			return c
		}
		if c := cmp.Compare(imag(b.Pole), imag(a.Pole)); c != 0 {
			return c
		}
		return cmp.Compare(b.Power, a.Power)
	})
	return exp, nil
}

// Eval returns the regular part of the expansion at t. The impulse is not
// included. Negative times give 0.
func (e Expansion) Eval(t float64) float64 {
	if t < 0 {
		return 0
	}
	var sum complex128
	for _, tm := range e.Terms {
		sum += tm.Eval(t)
	}
	return real(sum)
}

// Sample evaluates the expansion on times.
func (e Expansion) Sample(name string, times []float64) (response.Sampled, error) {
	amp := make([]float64, len(times))
	for i, t := range times {
		amp[i] = e.Eval(t)
	}
	return response.New(name, times, amp)
}

// String renders the expansion as a real expression in t, folding each
// conjugate pair into cos and sin terms.
func (e Expansion) String() string {
	scale := math.Abs(e.Impulse)
	for _, tm := range e.Terms {
		scale = math.Max(scale, 2*cmplx.Abs(tm.Coef))
	}
	tiny := func(v float64) bool { return math.Abs(v) <= 1e-9*scale }

	type piece struct {
		value   float64
		factors []string
	}
	var pieces []piece

	if e.Impulse != 0 {
		pieces = append(pieces, piece{e.Impulse, []string{"δ(t)"}})
	}

	for _, tm := range e.Terms {
		sigma, omega := real(tm.Pole), imag(tm.Pole)
		if omega < -poleTolerance(tm.Pole) {
			continue
		}
		base := powerOfT(tm.Power)
		if x := expOf(sigma); x != "" {
			base = append(base, x)
		}

		if math.Abs(omega) <= poleTolerance(tm.Pole) {
			if c := real(tm.Coef); !tiny(c) {
				pieces = append(pieces, piece{c, base})
			}
			continue
		}

		a := 2 * real(tm.Coef)
		b := -2 * imag(tm.Coef)
		arg := scaledT(omega)
		switch {
		case !tiny(a) && !tiny(b):
			sign := "+"
			if b < 0 {
				sign = "-"
			}
			inner := fmt.Sprintf("(%s %s %s)",
				join(a, []string{"cos(" + arg + ")"}),
				sign,
				join(math.Abs(b), []string{"sin(" + arg + ")"}))
			pieces = append(pieces, piece{1, append(base, inner)})
		case !tiny(a):
			pieces = append(pieces, piece{a, append(base, "cos("+arg+")")})
		case !tiny(b):
			pieces = append(pieces, piece{b, append(base, "sin("+arg+")")})
		}
	}

	if len(pieces) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, p := range pieces {
		switch {
		case i == 0 && p.value < 0:
			sb.WriteString("-")
		case i > 0 && p.value < 0:
			sb.WriteString(" - ")
		case i > 0:
			sb.WriteString(" + ")
		}
		sb.WriteString(join(math.Abs(p.value), p.factors))
	}
	return sb.String()
}

func join(mag float64, factors []string) string {
	if len(factors) == 0 {
		return formatNumber(mag)
	}
	if s := formatNumber(mag); s != "1" {
		return s + "*" + strings.Join(factors, "*")
	}
	return strings.Join(factors, "*")
}

func powerOfT(n int) []string {
	switch {
	case n == 0:
		return nil
	case n == 1:
		return []string{"t"}
	default:
		return []string{fmt.Sprintf("t^%d", n)}
	}
}

func expOf(rate float64) string {
	if rate == 0 {
		return ""
	}
	return "exp(" + scaledT(rate) + ")"
}

func scaledT(k float64) string {
	switch s := formatNumber(k); s {
	case "1":
		return "t"
	case "-1":
		return "-t"
	default:
		return s + "*t"
	}
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
