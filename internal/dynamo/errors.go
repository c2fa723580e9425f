package dynamo

import (
	"errors"
	"fmt"
)

var (
	ErrUnstable          = errors.New("dynamo: state diverged (NaN or Inf)")
	ErrContextCanceled   = errors.New("dynamo: simulation canceled")
	ErrDimensionMismatch = errors.New("dynamo: state, input and grid dimensions disagree")
	ErrTimeGrid          = errors.New("dynamo: time grid needs at least 2 strictly increasing samples")
)

// SimulationError records where on the time grid a run stopped. State is
// the last valid state before the failing step.
type SimulationError struct {
	Step  int
	Time  float64
	State State
	Err   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%g): %v", e.Step, e.Time, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}
