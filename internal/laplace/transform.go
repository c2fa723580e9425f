// Package laplace converts between time-domain exponential sums and
// rational functions of s. Forward transforms are exact, inverse
// transforms use partial fractions, and Talbot's contour method gives an
// independent numeric check.
package laplace

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/san-kum/ctrlkit/internal/lti"
)

var (
	ErrNotReal       = errors.New("laplace: complex terms do not form conjugate pairs")
	ErrNegativePower = errors.New("laplace: power of t must be non-negative")
)

// Term is Coef * t^Power * exp(Pole*t).
type Term struct {
	Coef  complex128
	Power int
	Pole  complex128
}

// Exp is the real term a*exp(rate*t).
func Exp(a, rate float64) Term {
	return Term{Coef: complex(a, 0), Pole: complex(rate, 0)}
}

// Eval returns the complex value of the term at t.
func (tm Term) Eval(t float64) complex128 {
	v := tm.Coef * cmplx.Exp(tm.Pole*complex(t, 0))
	for i := 0; i < tm.Power; i++ {
		v *= complex(t, 0)
	}
	return v
}

// Transform returns the Laplace transform of the sum of terms over a common
// denominator. t^n exp(pt) maps to n!/(s-p)^(n+1).
func Transform(terms ...Term) (lti.TransferFunction, error) {
	if len(terms) == 0 {
		return lti.Gain(0), nil
	}

	poles := make([]complex128, len(terms))
	for i, tm := range terms {
		if tm.Power < 0 {
			return lti.TransferFunction{}, fmt.Errorf("%w: got %d", ErrNegativePower, tm.Power)
		}
		poles[i] = tm.Pole
	}
	groups := groupPoles(poles)

	order := make([]int, len(groups))
	owner := make([]int, len(terms))
	for g, grp := range groups {
		for _, i := range grp.members {
			owner[i] = g
			order[g] = max(order[g], terms[i].Power+1)
		}
	}

	den := cpoly{1}
	for g, grp := range groups {
		den = den.mul(factor(grp.pole, order[g]))
	}

	num := cpoly{0}
	for i, tm := range terms {
		g := owner[i]
		part := cpoly{tm.Coef * complex(factorial(tm.Power), 0)}
		for h, grp := range groups {
			if h == g {
				part = part.mul(factor(grp.pole, order[h]-tm.Power-1))
				continue
			}
			part = part.mul(factor(grp.pole, order[h]))
		}
		num = num.add(part)
	}

	rn, ok := num.real()
	if !ok {
		return lti.TransferFunction{}, ErrNotReal
	}
	rd, ok := den.real()
	if !ok {
		return lti.TransferFunction{}, ErrNotReal
	}
	return lti.NewTF(rn, rd)
}
