package lti

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/dynamo"
	"github.com/san-kum/ctrlkit/internal/integrators"
	"github.com/san-kum/ctrlkit/internal/response"
	"github.com/san-kum/ctrlkit/internal/sim"
)

const (
	MethodZOH   = "zoh"
	MethodRK4   = "rk4"
	MethodEuler = "euler"

	DefaultSamples = 1000
)

type SimOptions struct {
	Method string
	Name   string
	Logger logr.Logger
}

func DefaultSimOptions() SimOptions {
	return SimOptions{
		Method: MethodZOH,
		Name:   "simulated",
		Logger: logr.Discard(),
	}
}

// Methods lists the supported integration methods.
func Methods() []string {
	return []string{MethodZOH, MethodRK4, MethodEuler}
}

func newIntegrator(method string) (dynamo.Integrator, error) {
	switch method {
	case "", MethodZOH:
		return integrators.NewZOH(), nil
	case MethodRK4:
		return integrators.NewRK4(), nil
	case MethodEuler:
		return integrators.NewEuler(), nil
	default:
		return nil, fmt.Errorf("lti: unknown simulation method %q (available: %v)", method, Methods())
	}
}

// ForcedResponse simulates sys from rest with input u sampled on t. The
// input is held constant between samples.
func ForcedResponse(ctx context.Context, sys *StateSpace, t, u []float64, opts SimOptions) (response.Sampled, error) {
	if len(t) != len(u) {
		return response.Sampled{}, fmt.Errorf("%d times, %d inputs: %w", len(t), len(u), dynamo.ErrDimensionMismatch)
	}

	n := sys.StateDim()
	y := make([]float64, len(t))

	if n == 0 {
		for i := range u {
			y[i] = sys.Output(nil, u[i])
		}
		return response.New(opts.Name, t, y)
	}

	result, err := Trajectory(ctx, sys, make(dynamo.State, n), t, u, opts)
	if err != nil {
		return response.Sampled{}, err
	}

	for i, x := range result.States {
		y[i] = sys.Output(x, u[i])
	}
	opts.Logger.V(1).Info("simulated response", "name", opts.Name, "method", opts.Method, "states", n, "samples", len(t))
	return response.New(opts.Name, t, y)
}

// Trajectory integrates sys from x0 under input u and returns the state
// history on t.
func Trajectory(ctx context.Context, sys *StateSpace, x0 dynamo.State, t, u []float64, opts SimOptions) (*dynamo.Result, error) {
	if len(t) != len(u) {
		return nil, fmt.Errorf("%d times, %d inputs: %w", len(t), len(u), dynamo.ErrDimensionMismatch)
	}
	if sys.StateDim() == 0 {
		return nil, fmt.Errorf("%w: static gain has no states", ErrDimension)
	}
	integ, err := newIntegrator(opts.Method)
	if err != nil {
		return nil, err
	}
	return sim.New(sys, integ).Run(ctx, x0, t, dynamo.SampledInput(u), sim.DefaultConfig())
}

// StepResponse is the unit step response of sys on t.
func StepResponse(ctx context.Context, sys *StateSpace, t []float64, opts SimOptions) (response.Sampled, error) {
	u := make([]float64, len(t))
	for i := range u {
		u[i] = 1
	}
	return ForcedResponse(ctx, sys, t, u, opts)
}

// Step realizes tf and returns its unit step response. A nil grid selects
// DefaultTimeGrid.
func (tf TransferFunction) Step(ctx context.Context, t []float64, opts SimOptions) (response.Sampled, error) {
	sys, err := tf.StateSpace()
	if err != nil {
		return response.Sampled{}, err
	}
	if t == nil {
		poles, err := tf.Poles()
		if err != nil {
			return response.Sampled{}, err
		}
		t = DefaultTimeGrid(poles, DefaultSamples)
	}
	return StepResponse(ctx, sys, t, opts)
}

// DefaultTimeGrid spans seven time constants of the slowest stable pole,
// with enough samples to resolve the fastest pole.
func DefaultTimeGrid(poles []complex128, samples int) []float64 {
	slowest := math.Inf(1)
	fastest := 0.0
	for _, p := range poles {
		if re := -real(p); re > 1e-12 {
			slowest = math.Min(slowest, re)
		}
		fastest = math.Max(fastest, cmplx.Abs(p))
	}

	horizon := 10.0
	if !math.IsInf(slowest, 1) {
		horizon = 7 / slowest
	}
	if fastest > 0 {
		needed := int(math.Ceil(horizon*fastest*10)) + 1
		samples = min(max(samples, needed), 100000)
	}
	return response.Linspace(0, horizon, samples)
}
