// Package lti implements the single-input single-output linear
// time-invariant layer: transfer functions, state-space realizations,
// block algebra and time-domain simulation.
package lti

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrZeroDenominator = errors.New("lti: denominator is zero")
	ErrImproper        = errors.New("lti: transfer function is improper (numerator degree exceeds denominator)")
	ErrDimension       = errors.New("lti: state-space dimensions are inconsistent")
)

// TransferFunction is Num(s)/Den(s).
type TransferFunction struct {
	Num Poly
	Den Poly
}

func NewTF(num, den []float64) (TransferFunction, error) {
	d := Poly(den).Trim()
	if d.IsZero() {
		return TransferFunction{}, ErrZeroDenominator
	}
	n := Poly(num).Trim()
	if len(num) == 0 {
		n = Poly{0}
	}
	return TransferFunction{Num: n, Den: d}, nil
}

// MustTF panics on an invalid denominator. Intended for literals.
func MustTF(num, den []float64) TransferFunction {
	tf, err := NewTF(num, den)
	if err != nil {
		panic(err)
	}
	return tf
}

// Gain is the static transfer function k.
func Gain(k float64) TransferFunction {
	return TransferFunction{Num: Poly{k}, Den: Poly{1}}
}

func (tf TransferFunction) Eval(s complex128) complex128 {
	return tf.Num.EvalComplex(s) / tf.Den.EvalComplex(s)
}

// DCGain is the value at s = 0. A pole at the origin gives ±Inf.
func (tf TransferFunction) DCGain() float64 {
	n := tf.Num.Eval(0)
	d := tf.Den.Eval(0)
	if d == 0 {
		if n == 0 {
			return math.NaN()
		}
		return math.Copysign(math.Inf(1), n)
	}
	return n / d
}

func (tf TransferFunction) Order() int {
	return tf.Den.Degree()
}

func (tf TransferFunction) IsProper() bool {
	return tf.Num.Degree() <= tf.Den.Degree()
}

func (tf TransferFunction) Series(other TransferFunction) TransferFunction {
	return TransferFunction{Num: tf.Num.Mul(other.Num), Den: tf.Den.Mul(other.Den)}
}

func (tf TransferFunction) Parallel(other TransferFunction) TransferFunction {
	return TransferFunction{
		Num: tf.Num.Mul(other.Den).Add(other.Num.Mul(tf.Den)),
		Den: tf.Den.Mul(other.Den),
	}
}

func (tf TransferFunction) Scale(k float64) TransferFunction {
	return TransferFunction{Num: tf.Num.Scale(k).Trim(), Den: tf.Den}
}

// Feedback closes the loop around tf with h in the return path. sign is -1
// for negative feedback and +1 for positive feedback.
func (tf TransferFunction) Feedback(h TransferFunction, sign int) TransferFunction {
	loop := tf.Num.Mul(h.Num)
	if sign < 0 {
		loop = loop.Scale(-1)
	}
	return TransferFunction{
		Num: tf.Num.Mul(h.Den),
		Den: tf.Den.Mul(h.Den).Add(loop.Scale(-1)),
	}
}

// UnityFeedback is tf/(1 + tf).
func (tf TransferFunction) UnityFeedback() TransferFunction {
	return tf.Feedback(Gain(1), -1)
}

func (tf TransferFunction) Poles() ([]complex128, error) {
	return tf.Den.Roots()
}

func (tf TransferFunction) Zeros() ([]complex128, error) {
	return tf.Num.Roots()
}

// Monic scales numerator and denominator so the leading denominator
// coefficient is 1.
func (tf TransferFunction) Monic() TransferFunction {
	lead := tf.Den[0]
	return TransferFunction{Num: tf.Num.Scale(1 / lead), Den: tf.Den.Scale(1 / lead)}
}

// String renders the fraction on three lines with centred numerator and
// denominator.
func (tf TransferFunction) String() string {
	num := tf.Num.String()
	den := tf.Den.String()
	width := max(len(num), len(den)) + 2
	center := func(s string) string {
		pad := (width - len(s)) / 2
		return strings.Repeat(" ", pad) + s
	}
	return fmt.Sprintf("%s\n%s\n%s", center(num), strings.Repeat("-", width), center(den))
}
