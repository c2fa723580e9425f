package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/ctrlkit/internal/dynamo"
)

type Config struct {
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{ValidateState: true}
}

type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
}

func New(dyn dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
	}
}

// Run integrates the system over the given time grid. The grid may be
// non-uniform; the input is held constant across each interval.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, times []float64, input dynamo.Input, cfg Config) (*dynamo.Result, error) {
	if err := validateGrid(times); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("initial state has %d entries, system has %d: %w", len(x0), s.dyn.StateDim(), dynamo.ErrDimensionMismatch)
	}

	result := &dynamo.Result{
		States: make([]dynamo.State, 0, len(times)),
		Times:  make([]float64, 0, len(times)),
	}

	x := x0.Clone()
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, times[0])

	for i := 0; i < len(times)-1; i++ {
		select {
		case <-ctx.Done():
			return result, &dynamo.SimulationError{Step: i, Time: times[i], State: x, Err: fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())}
		default:
		}

		t := times[i]
		dt := times[i+1] - t
		u := input.At(i, t)

		newX := s.integrator.Step(s.dyn, x, u, t, dt)
		if cfg.ValidateState && !newX.IsValid() {
			return result, &dynamo.SimulationError{Step: i, Time: t, State: x, Err: dynamo.ErrUnstable}
		}

		x = newX
		result.StepsTaken++
		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, times[i+1])
	}

	return result, nil
}

func validateGrid(times []float64) error {
	if len(times) < 2 {
		return dynamo.ErrTimeGrid
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return fmt.Errorf("sample %d (t=%g) after t=%g: %w", i, times[i], times[i-1], dynamo.ErrTimeGrid)
		}
	}
	return nil
}
