package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/analysis"
	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/dynamo"
	"github.com/san-kum/ctrlkit/internal/export"
	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/metrics"
)

const (
	portraitWidth  = 56
	portraitHeight = 18
)

// runStateSpace converts the configured realization to a transfer function
// and simulates its unit step response.
func runStateSpace(ctx context.Context, cfg *config.Config, log logr.Logger) (*Report, error) {
	rep := newReport("hw2-ss2tf", cfg)
	ssc := cfg.StateSpace
	sys, err := lti.NewSSFromRows(ssc.A, ssc.B, ssc.C, ssc.D)
	if err != nil {
		return nil, err
	}
	tf := sys.TF()

	sec := rep.Section("State space to transfer function")
	sec.Add("states", "%d", sys.StateDim())
	sec.Line("G(s) =")
	sec.Line("%s", tf)
	rep.Summary = fmt.Sprintf("G(s) = %s / %s", tf.Num, tf.Den)

	if err := StepAnalysis(ctx, rep, cfg, tf, log); err != nil {
		return nil, err
	}

	if sys.StateDim() >= 2 {
		times := rep.Responses[len(rep.Responses)-1].Time
		u := make([]float64, len(times))
		for i := range u {
			u[i] = 1
		}
		opts := lti.DefaultSimOptions()
		opts.Method = cfg.Simulation.Method
		traj, err := lti.Trajectory(ctx, sys, make(dynamo.State, sys.StateDim()), times, u, opts)
		if err != nil {
			rep.Note("phase portrait: %v", err)
			return rep, nil
		}
		portrait, err := analysis.NewPhasePortrait(traj, 0, 1)
		if err != nil {
			rep.Note("phase portrait: %v", err)
			return rep, nil
		}
		ps := rep.Section("Phase portrait (x1, x2)")
		ps.Line("%s", portrait.ASCII(portraitWidth, portraitHeight))
	}
	return rep, nil
}

// StepAnalysis adds poles, zeros and the unit step response of tf to rep.
func StepAnalysis(ctx context.Context, rep *Report, cfg *config.Config, tf lti.TransferFunction, log logr.Logger) error {
	sec := rep.Section("Step response")
	poles, err := tf.Poles()
	if err != nil {
		return err
	}
	zeros, err := tf.Zeros()
	if err != nil {
		return err
	}
	sec.Add("poles", "%s", formatRoots(poles))
	sec.Add("zeros", "%s", formatRoots(zeros))

	stable := true
	for _, p := range poles {
		if real(p) >= 0 {
			stable = false
		}
	}
	dc := tf.DCGain()
	if stable {
		sec.Add("DC gain", "%.4g", dc)
	} else {
		sec.Add("DC gain", "none (not asymptotically stable)")
	}

	opts := lti.DefaultSimOptions()
	opts.Method = cfg.Simulation.Method
	opts.Name = "step"
	opts.Logger = log
	step, err := tf.Step(ctx, lti.DefaultTimeGrid(poles, cfg.Simulation.Samples), opts)
	if err != nil {
		return err
	}
	rep.AddResponse(step)

	mopts := cfg.MetricsOptions()
	if stable && !math.IsNaN(dc) && !math.IsInf(dc, 0) {
		mopts.FinalValue = dc
	}
	m, err := metrics.Analyze(step, mopts)
	if err != nil {
		rep.Note("step metrics: %v", err)
	}
	rep.Record("step", m)
	addMetrics(sec, m, 1, "s")

	fig := export.NewFigure("step", "Unit step response", "t [s]", "y(t)")
	fig.AddLine("y(t)", step, export.Blue)
	if stable {
		fig.AddHLine(fmt.Sprintf("DC gain (%.4g)", dc), dc, export.Gray)
	}
	rep.AddFigure(fig)
	rep.AddFigure(poleZeroMap(poles, zeros))
	return nil
}

// poleZeroMap plots poles as crosses and zeros as rings in the s-plane.
func poleZeroMap(poles, zeros []complex128) *export.Figure {
	fig := export.NewFigure("pzmap", "Pole-zero map", "Re(s)", "Im(s)")
	px, py := splitRoots(poles)
	zx, zy := splitRoots(zeros)
	fig.AddMarkers("poles", px, py, export.Cross, export.Red).
		AddMarkers("zeros", zx, zy, export.Ring, export.Blue).
		AddHLine("", 0, export.Gray).
		AddVLine("", 0, export.Gray)
	return fig
}

func splitRoots(roots []complex128) (re, im []float64) {
	for _, r := range roots {
		re = append(re, real(r))
		im = append(im, imag(r))
	}
	return re, im
}
