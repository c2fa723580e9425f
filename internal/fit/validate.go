package fit

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/optim"
	"github.com/san-kum/ctrlkit/internal/response"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Options struct {
	// StepAmplitude is the size of the input step that produced the data.
	StepAmplitude float64
	Method        string
	Logger        logr.Logger
}

func DefaultOptions() Options {
	return Options{
		StepAmplitude: 1,
		Method:        lti.MethodZOH,
		Logger:        logr.Discard(),
	}
}

// Validation compares a model against measured data.
type Validation struct {
	Model   Model
	RMSE    float64
	R2      float64
	Overlay response.Sampled
}

// Simulate returns the model step response on a uniform grid spanning data
// with the same number of samples, offset by the first measured value.
// The step is applied at the model's dead time on the data's time axis.
func Simulate(ctx context.Context, data response.Sampled, model Model, opts Options) (response.Sampled, error) {
	if err := data.Validate(); err != nil {
		return response.Sampled{}, err
	}
	sys, err := model.TF().StateSpace()
	if err != nil {
		return response.Sampled{}, err
	}

	grid := response.Linspace(data.Start(), data.End(), data.Len())
	onset := model.DeadTime()
	u := make([]float64, len(grid))
	for i, t := range grid {
		if t >= onset-1e-12 {
			u[i] = opts.StepAmplitude
		}
	}

	simOpts := lti.DefaultSimOptions()
	simOpts.Method = opts.Method
	simOpts.Name = "model"
	simOpts.Logger = opts.Logger
	resp, err := lti.ForcedResponse(ctx, sys, grid, u, simOpts)
	if err != nil {
		return response.Sampled{}, err
	}
	offset := data.Amplitude[0]
	for i := range resp.Amplitude {
		resp.Amplitude[i] += offset
	}
	return resp, nil
}

// Validate simulates model and scores it against data.
func Validate(ctx context.Context, data response.Sampled, model Model, opts Options) (Validation, error) {
	overlay, err := Simulate(ctx, data, model, opts)
	if err != nil {
		return Validation{}, err
	}

	est := make([]float64, data.Len())
	for i, t := range data.Time {
		est[i] = overlay.At(t)
	}
	v := Validation{
		Model:   model,
		RMSE:    floats.Distance(est, data.Amplitude, 2) / math.Sqrt(float64(data.Len())),
		R2:      stat.RSquaredFrom(est, data.Amplitude, nil),
		Overlay: overlay,
	}
	opts.Logger.V(1).Info("validated model", "model", model.Describe(), "rmse", v.RMSE, "r2", v.R2)
	return v, nil
}

// Refine grid-searches each parameter of model over value*(1±span) in
// steps points, minimizing RMSE against data.
func Refine(ctx context.Context, data response.Sampled, model Tunable, span float64, steps int, opts Options) (Tunable, Validation, error) {
	params := model.Params()
	names := make([]string, 0, len(params))
	ranges := make([][]float64, 0, len(params))
	for _, name := range []string{"gain", "tau", "zeta", "wn"} {
		if v, ok := params[name]; ok {
			names = append(names, name)
			ranges = append(ranges, optim.Around(v, span, steps))
		}
	}

	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return nil, Validation{}, err
	}
	res, err := search.Search(ctx, func(ctx context.Context, p map[string]float64) (float64, error) {
		candidate := model.WithParams(p)
		v, err := Validate(ctx, data, candidate, opts)
		if err != nil {
			return math.NaN(), err
		}
		return v.RMSE, nil
	})
	if err != nil {
		return nil, Validation{}, fmt.Errorf("refine %s: %w", model.Describe(), err)
	}

	best := model.WithParams(res.Params)
	v, err := Validate(ctx, data, best, opts)
	if err != nil {
		return nil, Validation{}, err
	}
	opts.Logger.Info("refined model", "model", best.Describe(), "rmse", v.RMSE, "evaluations", res.Evaluations, "failures", res.Failures)
	return best, v, nil
}
