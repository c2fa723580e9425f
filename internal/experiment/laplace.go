package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/export"
	"github.com/san-kum/ctrlkit/internal/laplace"
	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/response"
)

// runLaplace renders the table pair for A*exp(-a*t), transforms the
// numeric instance and checks it with Talbot inversion.
func runLaplace(ctx context.Context, cfg *config.Config, log logr.Logger) (*Report, error) {
	rep := newReport("hw1-laplace", cfg)
	lc := cfg.Laplace

	table := rep.Section("Transform table")
	for power := 0; power <= 1; power++ {
		pair, err := laplace.Symbolic(lc.Coef, lc.Rate, power)
		if err != nil {
			return nil, err
		}
		table.Line("%s", pair)
	}

	term := laplace.Exp(lc.Amplitude, -lc.Decay)
	tf, err := laplace.Transform(term)
	if err != nil {
		return nil, err
	}
	numeric := rep.Section("Numeric instance")
	numeric.Add("f(t)", "%s", laplace.Expansion{Terms: []laplace.Term{term}})
	numeric.Line("F(s) =")
	numeric.Line("%s", tf)

	times, err := transformGrid(tf, cfg.Simulation.Samples)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exact := make([]float64, len(times))
	for i, t := range times {
		exact[i] = real(term.Eval(t))
	}
	maxErr := talbotCheck(rep, numeric, tf, times, exact, lc.TalbotNodes)
	rep.Metrics["talbot_max_error"] = maxErr

	curve, err := response.New("f(t)", times, exact)
	if err != nil {
		return nil, err
	}
	rep.AddResponse(curve)
	fig := export.NewFigure("laplace", "f(t) = "+numeric.Rows[0].Value, "t [s]", "f(t)")
	fig.AddLine("f(t)", curve, export.Blue)
	rep.AddFigure(fig)

	rep.Summary = fmt.Sprintf("L{%s} = %s/%s", numeric.Rows[0].Value, tf.Num, tf.Den)
	log.V(1).Info("transformed", "num", tf.Num.String(), "den", tf.Den.String(), "talbotError", maxErr)
	return rep, nil
}

// runInverse expands the configured F(s) in partial fractions.
func runInverse(ctx context.Context, cfg *config.Config, log logr.Logger) (*Report, error) {
	rep := newReport("hw1-inverse", cfg)
	tf, err := lti.NewTF(cfg.Laplace.Num, cfg.Laplace.Den)
	if err != nil {
		return nil, err
	}
	exp, err := laplace.Inverse(tf)
	if err != nil {
		return nil, err
	}

	sec := rep.Section("Inverse transform")
	sec.Line("F(s) =")
	sec.Line("%s", tf)
	sec.Add("f(t)", "%s", exp)
	if poles, err := tf.Poles(); err == nil {
		sec.Add("poles", "%s", formatRoots(poles))
	}
	if exp.Impulse != 0 {
		rep.Note("f(t) contains an impulse of weight %.4g at t=0, not shown on the curve", exp.Impulse)
	}

	times, err := transformGrid(tf, cfg.Simulation.Samples)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	curve, err := exp.Sample("f(t)", times)
	if err != nil {
		return nil, err
	}
	// the impulse carries no value for t > 0
	strict := tf.Parallel(lti.Gain(-exp.Impulse))
	rep.Metrics["talbot_max_error"] = talbotCheck(rep, sec, strict, times, curve.Amplitude, cfg.Laplace.TalbotNodes)

	rep.AddResponse(curve)
	fig := export.NewFigure("inverse", "f(t) = "+exp.String(), "t [s]", "f(t)")
	fig.AddLine("f(t)", curve, export.Blue)
	rep.AddFigure(fig)

	rep.Summary = "f(t) = " + exp.String()
	log.V(1).Info("inverted", "terms", len(exp.Terms), "impulse", exp.Impulse)
	return rep, nil
}

func transformGrid(tf lti.TransferFunction, samples int) ([]float64, error) {
	poles, err := tf.Poles()
	if err != nil {
		return nil, err
	}
	return lti.DefaultTimeGrid(poles, samples), nil
}

// talbotCheck compares the closed form against numeric inversion on the
// positive part of the grid and returns the largest absolute difference.
// Unstable functions are skipped.
func talbotCheck(rep *Report, sec *Section, tf lti.TransferFunction, times, exact []float64, nodes int) float64 {
	if poles, err := tf.Poles(); err == nil {
		for _, p := range poles {
			if real(p) > 1e-9 {
				rep.Note("numeric inversion skipped: pole %.4g in the right half plane", real(p))
				return math.NaN()
			}
		}
	}
	var probe []float64
	var want []float64
	stride := max(1, len(times)/20)
	for i := stride; i < len(times); i += stride {
		probe = append(probe, times[i])
		want = append(want, exact[i])
	}
	got := laplace.TalbotTF(tf, probe, nodes)
	maxErr := 0.0
	for i := range got {
		maxErr = math.Max(maxErr, math.Abs(got[i]-want[i]))
	}
	sec.Add("Talbot check", "max |error| %.2e over %d points (M=%d)", maxErr, len(probe), nodes)
	return maxErr
}
