// Package metrics extracts step-response performance indicators from a
// sampled curve: steady-state value, time constant, rise time, settling
// time, peak and percent overshoot.
//
// Every function is pure. A metric that cannot be computed is reported as
// NaN by [Analyze] together with the error explaining why; metrics that do
// not depend on it are still filled in.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/ctrlkit/internal/response"
	"gonum.org/v1/gonum/stat"
)

// Metrics is the flat record derived from one sampled response.
type Metrics struct {
	Start            float64   `json:"start"`
	SteadyState      float64   `json:"steady_state_value"`
	TimeConstant     float64   `json:"time_constant"`
	RiseTime         float64   `json:"rise_time"`
	SettlingTime     float64   `json:"settling_time"`
	PeakValue        float64   `json:"peak_value"`
	PeakTime         float64   `json:"peak_time"`
	OvershootPercent float64   `json:"overshoot_percent"`
	Direction        Direction `json:"direction"`
}

// Names lists the metric keys in report order.
var Names = []string{
	"steady_state_value",
	"time_constant",
	"rise_time",
	"settling_time",
	"peak_value",
	"peak_time",
	"overshoot_percent",
}

// Values returns the metrics keyed by Names.
func (m Metrics) Values() map[string]float64 {
	return map[string]float64{
		"steady_state_value": m.SteadyState,
		"time_constant":      m.TimeConstant,
		"rise_time":          m.RiseTime,
		"settling_time":      m.SettlingTime,
		"peak_value":         m.PeakValue,
		"peak_time":          m.PeakTime,
		"overshoot_percent":  m.OvershootPercent,
	}
}

func undefined(start float64) Metrics {
	nan := math.NaN()
	return Metrics{
		Start:            start,
		SteadyState:      nan,
		TimeConstant:     nan,
		RiseTime:         nan,
		SettlingTime:     nan,
		PeakValue:        nan,
		PeakTime:         nan,
		OvershootPercent: nan,
	}
}

// Analyze computes every metric of resp. The returned error joins the
// failures of individual metrics; the corresponding fields are NaN.
func Analyze(resp response.Sampled, opts Options) (Metrics, error) {
	if err := resp.Validate(); err != nil {
		if errors.Is(err, response.ErrTooFewSamples) {
			return undefined(math.NaN()), &InsufficientDataError{Metric: "response", Need: 2, Have: len(resp.Time)}
		}
		return undefined(math.NaN()), err
	}
	if err := opts.Validate(); err != nil {
		return undefined(resp.Amplitude[0]), err
	}

	m := undefined(resp.Amplitude[0])

	final := opts.FinalValue
	if math.IsNaN(final) {
		var err error
		final, err = SteadyState(resp, opts.TrailingFraction)
		if err != nil {
			return m, err
		}
	}
	m.SteadyState = final
	m.Direction = DirectionOf(m.Start, final)

	var errs []error

	if tau, err := TimeConstant(resp, final, opts.TimeConstantLevel); err != nil {
		errs = append(errs, err)
	} else {
		m.TimeConstant = tau
	}

	if tr, err := RiseTime(resp, final, opts.RiseLow, opts.RiseHigh); err != nil {
		errs = append(errs, err)
	} else {
		m.RiseTime = tr
	}

	reference := opts.ReferenceTime
	if math.IsNaN(reference) {
		reference = resp.Start()
	}
	m.SettlingTime = SettlingTime(resp, final, opts.SettlingBand, reference)

	m.PeakValue, m.PeakTime = Peak(resp, final)
	m.OvershootPercent = Overshoot(m.Start, final, m.PeakValue)

	return m, errors.Join(errs...)
}

// SteadyState averages the last floor(n*fraction) samples.
func SteadyState(resp response.Sampled, fraction float64) (float64, error) {
	if !(fraction > 0 && fraction <= 1) {
		return math.NaN(), fmt.Errorf("trailing fraction %g not in (0, 1]: %w", fraction, ErrInvalidOption)
	}
	n := len(resp.Amplitude)
	count := int(float64(n)*fraction + 1e-9)
	if count < 1 {
		return math.NaN(), &InsufficientDataError{Metric: "steady_state_value", Need: 1, Have: count}
	}
	return stat.Mean(resp.Amplitude[n-count:], nil), nil
}

// TimeConstant is the time of the first sample reaching level of the way
// from the first sample to final.
func TimeConstant(resp response.Sampled, final, level float64) (float64, error) {
	start := resp.Amplitude[0]
	dir := DirectionOf(start, final)
	threshold := Level(start, final, level)

	idx, ok := FirstCrossing(resp.Amplitude, threshold, dir)
	if !ok {
		return math.NaN(), &ThresholdNotReachedError{Metric: "time_constant", Threshold: threshold, Direction: dir}
	}
	return resp.Time[idx], nil
}

// RiseTime is the time between the first crossings of the low and high
// fractions of the step.
func RiseTime(resp response.Sampled, final, low, high float64) (float64, error) {
	start := resp.Amplitude[0]
	dir := DirectionOf(start, final)

	lowLevel := Level(start, final, low)
	iLow, ok := FirstCrossing(resp.Amplitude, lowLevel, dir)
	if !ok {
		return math.NaN(), &ThresholdNotReachedError{Metric: "rise_time", Threshold: lowLevel, Direction: dir}
	}

	highLevel := Level(start, final, high)
	iHigh, ok := FirstCrossing(resp.Amplitude, highLevel, dir)
	if !ok {
		return math.NaN(), &ThresholdNotReachedError{Metric: "rise_time", Threshold: highLevel, Direction: dir}
	}

	return resp.Time[iHigh] - resp.Time[iLow], nil
}

// SettlingTime is measured from reference to the last sample outside
// band*|final-start| around final. A curve that never leaves the band, or
// whose last excursion precedes reference, is settled: 0. A reference outside
// the sampled window is undefined: NaN.
func SettlingTime(resp response.Sampled, final, band, reference float64) float64 {
	if !resp.Contains(reference) {
		return math.NaN()
	}
	start := resp.Amplitude[0]
	tol := band * math.Abs(final-start)

	idx, ok := LastOutsideBand(resp.Amplitude, final, tol)
	if !ok {
		return 0
	}
	return math.Max(0, resp.Time[idx]-reference)
}

// Peak returns the extreme sample in the step direction.
func Peak(resp response.Sampled, final float64) (value, time float64) {
	dir := DirectionOf(resp.Amplitude[0], final)
	idx := Extremum(resp.Amplitude, dir)
	return resp.Amplitude[idx], resp.Time[idx]
}

// Overshoot returns how far peak passes final, as a percentage of the step.
// A peak that stays short of final, or a zero-size step, gives 0.
func Overshoot(start, final, peak float64) float64 {
	step := math.Abs(final - start)
	if step == 0 {
		return 0
	}
	switch DirectionOf(start, final) {
	case Rising:
		if peak > final {
			return 100 * (peak - final) / step
		}
	case Falling:
		if peak < final {
			return 100 * (final - peak) / step
		}
	}
	return 0
}
