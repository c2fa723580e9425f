package laplace

import (
	"fmt"
	"strings"
)

// Pair is one line of a transform table.
type Pair struct {
	Time    string
	Laplace string
}

func (p Pair) String() string {
	return p.Time + " <-> " + p.Laplace
}

// Symbolic renders coef * t^power * exp(-rate*t) and its transform
// coef * power! / (s + rate)^(power+1) for symbolic parameters. An empty
// rate drops the exponential; an empty coef means 1.
func Symbolic(coef, rate string, power int) (Pair, error) {
	if power < 0 {
		return Pair{}, fmt.Errorf("%w: got %d", ErrNegativePower, power)
	}
	coef = strings.TrimSpace(coef)
	rate = strings.TrimSpace(rate)

	var factors []string
	if coef != "" && coef != "1" {
		factors = append(factors, group(coef))
	}
	factors = append(factors, powerOfT(power)...)
	if rate != "" {
		factors = append(factors, "exp(-"+group(rate)+"*t)")
	}
	timeExpr := "1"
	if len(factors) > 0 {
		timeExpr = strings.Join(factors, "*")
	}

	num := "1"
	if coef != "" && coef != "1" {
		num = group(coef)
	}
	if f := factorial(power); f != 1 {
		if num == "1" {
			num = fmt.Sprintf("%g", f)
		} else {
			num = fmt.Sprintf("%g*%s", f, num)
		}
	}

	den := "s"
	if rate != "" {
		den = "(s + " + rate + ")"
	}
	if power > 0 {
		den = fmt.Sprintf("%s^%d", den, power+1)
	}

	return Pair{Time: timeExpr, Laplace: num + "/" + den}, nil
}

// group parenthesizes compound expressions so they bind as one factor.
func group(expr string) string {
	if strings.ContainsAny(expr, "+-*/ ") {
		return "(" + expr + ")"
	}
	return expr
}
