package metrics

import (
	"fmt"
	"math"
)

const (
	DefaultTrailingFraction  = 0.10
	DefaultSettlingBand      = 0.02
	DefaultRiseLow           = 0.10
	DefaultRiseHigh          = 0.90
	DefaultTimeConstantLevel = 0.632
)

type Options struct {
	// TrailingFraction of samples averaged into the steady-state value.
	TrailingFraction float64
	SettlingBand     float64
	RiseLow          float64
	RiseHigh         float64
	// TimeConstantLevel is the fraction of the step reached after one tau.
	TimeConstantLevel float64
	// ReferenceTime is the step instant settling time is measured from.
	// NaN means the first sample time.
	ReferenceTime float64
	// FinalValue overrides the trailing-window estimate when not NaN.
	FinalValue float64
}

func DefaultOptions() Options {
	return Options{
		TrailingFraction:  DefaultTrailingFraction,
		SettlingBand:      DefaultSettlingBand,
		RiseLow:           DefaultRiseLow,
		RiseHigh:          DefaultRiseHigh,
		TimeConstantLevel: DefaultTimeConstantLevel,
		ReferenceTime:     math.NaN(),
		FinalValue:        math.NaN(),
	}
}

func (o Options) Validate() error {
	if !(o.TrailingFraction > 0 && o.TrailingFraction <= 1) {
		return fmt.Errorf("trailing fraction %g not in (0, 1]: %w", o.TrailingFraction, ErrInvalidOption)
	}
	if !(o.SettlingBand >= 0) {
		return fmt.Errorf("settling band %g must be non-negative: %w", o.SettlingBand, ErrInvalidOption)
	}
	if !(o.RiseLow >= 0 && o.RiseLow < o.RiseHigh) {
		return fmt.Errorf("rise thresholds %g/%g must satisfy 0 <= low < high: %w", o.RiseLow, o.RiseHigh, ErrInvalidOption)
	}
	if !(o.TimeConstantLevel > 0) {
		return fmt.Errorf("time constant level %g must be positive: %w", o.TimeConstantLevel, ErrInvalidOption)
	}
	return nil
}
