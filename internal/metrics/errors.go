package metrics

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData matches every InsufficientDataError.
	ErrInsufficientData = errors.New("metrics: insufficient data")

	// ErrThresholdNotReached matches every ThresholdNotReachedError.
	ErrThresholdNotReached = errors.New("metrics: threshold not reached")

	// ErrInvalidOption indicates a fraction or band outside its valid range.
	ErrInvalidOption = errors.New("metrics: invalid option")
)

// InsufficientDataError reports a computation window with too few samples.
type InsufficientDataError struct {
	Metric string
	Need   int
	Have   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("metrics: %s needs at least %d samples, window has %d", e.Metric, e.Need, e.Have)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// ThresholdNotReachedError reports an amplitude level that no sample crosses,
// i.e. the curve does not contain a completed transient.
type ThresholdNotReachedError struct {
	Metric    string
	Threshold float64
	Direction Direction
}

func (e *ThresholdNotReachedError) Error() string {
	return fmt.Sprintf("metrics: %s threshold %.6g never reached (%s response)", e.Metric, e.Threshold, e.Direction)
}

func (e *ThresholdNotReachedError) Is(target error) bool {
	return target == ErrThresholdNotReached
}
