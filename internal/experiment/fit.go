package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/analysis"
	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/export"
	"github.com/san-kum/ctrlkit/internal/fit"
	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/metrics"
	"github.com/san-kum/ctrlkit/internal/response"
)

// runFit analyzes every configured system independently; a failure in one
// system becomes a note and the others still run.
func runFit(ctx context.Context, cfg *config.Config, log logr.Logger) (*Report, error) {
	rep := newReport("hw2-fit", cfg)
	for _, sys := range cfg.Analysis.Systems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := FitSystem(ctx, rep, cfg, sys, true, log); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			rep.Note("system %s: %v", sys.Name, err)
			log.Error(err, "system failed", "system", sys.Name)
		}
	}
	if len(rep.Responses) == 0 {
		return nil, fmt.Errorf("no system could be analyzed: %v", rep.Notes)
	}
	return rep, nil
}

// LoadSystem reads sys.Data, or synthesizes a step response of the
// configured transfer function when no data file is set.
func LoadSystem(ctx context.Context, cfg *config.Config, sys config.SystemConfig) (response.Sampled, error) {
	if sys.Data != "" {
		return response.LoadCSV(sys.Data, response.DefaultLoadOptions())
	}
	tf, err := sys.TF()
	if err != nil {
		return response.Sampled{}, err
	}
	ss, err := tf.StateSpace()
	if err != nil {
		return response.Sampled{}, err
	}
	t := response.Linspace(0, sys.Duration, sys.Samples)
	u := make([]float64, len(t))
	for i, tm := range t {
		if tm >= sys.ReferenceTime {
			u[i] = sys.StepAmplitude
		}
	}
	opts := lti.DefaultSimOptions()
	opts.Method = cfg.Simulation.Method
	opts.Name = "system " + sys.Name
	return lti.ForcedResponse(ctx, ss, t, u, opts)
}

// FitSystem adds the metrics of one system to rep and, when identify is
// set, estimates, validates and refines a low-order model of it.
func FitSystem(ctx context.Context, rep *Report, cfg *config.Config, sys config.SystemConfig, identify bool, log logr.Logger) error {
	log = log.WithValues("system", sys.Name)
	data, err := LoadSystem(ctx, cfg, sys)
	if err != nil {
		return err
	}
	data.Name = "system " + sys.Name
	rep.AddResponse(data)

	opts := sys.MetricsOptions(cfg.MetricsOptions())
	m, err := metrics.Analyze(data, opts)
	if err != nil {
		rep.Note("system %s metrics: %v", sys.Name, err)
		log.V(1).Info("metrics incomplete", "err", err.Error())
	}
	rep.Record(sys.Name, m)

	sec := rep.Section("System " + sys.Name)
	if sys.Data != "" {
		sec.Add("data", "%s (%d samples)", sys.Data, data.Len())
	} else {
		sec.Add("data", "synthesized from %s/%s (%d samples)", lti.Poly(sys.Num), lti.Poly(sys.Den), data.Len())
	}
	sec.Add("trailing window", "%.0f%%", 100*opts.TrailingFraction)
	addMetrics(sec, m, 1, "s")

	fig := export.NewFigure("system_"+fileSafe(sys.Name), "System "+sys.Name+" step response", "t [s]", "y(t)")
	fig.AddPoints("data", data, export.Blue)
	if !math.IsNaN(m.SteadyState) {
		fig.AddHLine(fmt.Sprintf("steady state (%.4g)", m.SteadyState), m.SteadyState, export.Gray)
	}
	rep.AddFigure(fig)

	if !identify {
		if rep.Summary == "" {
			rep.Summary = fmt.Sprintf("%s: final %.4g, overshoot %s", sys.Name, m.SteadyState, formatValue(m.OvershootPercent, 1, "%"))
		}
		return nil
	}

	model, err := fit.Identify(data, m, sys.StepAmplitude, sys.ReferenceTime)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	describeModel(sec, model)

	fitOpts := fit.DefaultOptions()
	fitOpts.StepAmplitude = sys.StepAmplitude
	fitOpts.Method = cfg.Simulation.Method
	fitOpts.Logger = log

	v, err := fit.Validate(ctx, data, model, fitOpts)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	sec.Add("estimate fit", "RMSE %.4g, R² %.4f", v.RMSE, v.R2)
	rep.Metrics[key(sys.Name, "rmse")] = v.RMSE
	rep.Metrics[key(sys.Name, "r2")] = v.R2

	best, overlay := model, v
	if cfg.Analysis.RefineSteps > 1 {
		refined, rv, err := fit.Refine(ctx, data, model, cfg.Analysis.RefineSpan, cfg.Analysis.RefineSteps, fitOpts)
		if err != nil {
			rep.Note("system %s refine: %v", sys.Name, err)
		} else if rv.RMSE < v.RMSE {
			best, overlay = refined, rv
			sec.Add("refined model", "%s", refined.Describe())
			sec.Add("refined fit", "RMSE %.4g, R² %.4f", rv.RMSE, rv.R2)
			rep.Metrics[key(sys.Name, "refined_rmse")] = rv.RMSE
		}
	}
	sec.Line("G_%s(s) =", sys.Name)
	sec.Line("%s", best.TF())

	if so, ok := model.(fit.SecondOrder); ok {
		wd := so.DampedFrequency() / (2 * math.Pi)
		if hz, err := analysis.DominantFrequency(data, m.SteadyState); err == nil {
			sec.Add("damped frequency", "%.4g Hz (spectrum), %.4g Hz (model)", hz, wd)
			rep.Metrics[key(sys.Name, "dominant_frequency")] = hz
		} else {
			rep.Note("system %s spectrum: %v", sys.Name, err)
		}
	}

	overlay.Overlay.Name = "model " + sys.Name
	rep.AddResponse(overlay.Overlay)
	fig.AddLine(best.Describe(), overlay.Overlay, export.Red)

	if rep.Summary == "" {
		rep.Summary = fmt.Sprintf("%s: %s", sys.Name, best.Describe())
	} else {
		rep.Summary += fmt.Sprintf("; %s: %s", sys.Name, best.Describe())
	}
	return nil
}

func describeModel(sec *Section, model fit.Model) {
	sec.Add("model", "%s", model.Describe())
	switch mdl := model.(type) {
	case fit.FirstOrder:
		sec.Add("Ts ≈ 4τ", "%.4g s", mdl.SettlingApprox())
		sec.Add("Tr ≈ 2.2τ", "%.4g s", mdl.RiseApprox())
	case fit.SecondOrder:
		sec.Add("Ts ≈ 4/(ζωn)", "%.4g s", mdl.SettlingApprox())
		sec.Add("Tp ≈ π/ωd", "%.4g s", mdl.PeakTimeApprox())
		sec.Add("%OS (model)", "%.4g%%", mdl.OvershootApprox())
	}
}

func fileSafe(name string) string {
	out := []rune(name)
	for i, r := range out {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			out[i] = '_'
		}
	}
	return string(out)
}
