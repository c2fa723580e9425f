// Package response holds sampled time/amplitude curves: measured step data
// loaded from delimited files and simulated responses from the lti layer.
package response

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrLengthMismatch = errors.New("response: time and amplitude lengths differ")
	ErrTooFewSamples  = errors.New("response: at least 2 samples required")
	ErrNotIncreasing  = errors.New("response: time must be strictly increasing")
	ErrNonFinite      = errors.New("response: NaN or Inf sample")
)

// Sampled is an immutable (time, amplitude) curve. Callers must not mutate
// the slices after construction.
type Sampled struct {
	Name      string
	Time      []float64
	Amplitude []float64
}

func New(name string, time, amplitude []float64) (Sampled, error) {
	s := Sampled{Name: name, Time: time, Amplitude: amplitude}
	if err := s.Validate(); err != nil {
		return Sampled{}, err
	}
	return s, nil
}

func (s Sampled) Validate() error {
	if len(s.Time) != len(s.Amplitude) {
		return fmt.Errorf("%d times, %d amplitudes: %w", len(s.Time), len(s.Amplitude), ErrLengthMismatch)
	}
	if len(s.Time) < 2 {
		return fmt.Errorf("got %d: %w", len(s.Time), ErrTooFewSamples)
	}
	for i := range s.Time {
		if !finite(s.Time[i]) || !finite(s.Amplitude[i]) {
			return fmt.Errorf("sample %d: %w", i, ErrNonFinite)
		}
		if i > 0 && s.Time[i] <= s.Time[i-1] {
			return fmt.Errorf("sample %d (t=%g) after t=%g: %w", i, s.Time[i], s.Time[i-1], ErrNotIncreasing)
		}
	}
	return nil
}

func (s Sampled) Len() int { return len(s.Time) }

func (s Sampled) Start() float64 { return s.Time[0] }

func (s Sampled) End() float64 { return s.Time[len(s.Time)-1] }

func (s Sampled) Duration() float64 { return s.End() - s.Start() }

// Contains reports whether t lies inside the sampled window.
func (s Sampled) Contains(t float64) bool {
	return t >= s.Start() && t <= s.End()
}

// Shift returns a copy with offset added to every amplitude.
func (s Sampled) Shift(offset float64) Sampled {
	amp := make([]float64, len(s.Amplitude))
	for i, v := range s.Amplitude {
		amp[i] = v + offset
	}
	return Sampled{Name: s.Name, Time: s.Time, Amplitude: amp}
}

// Scale returns a copy with time and amplitude multiplied by the given factors.
func (s Sampled) Scale(timeFactor, ampFactor float64) Sampled {
	t := make([]float64, len(s.Time))
	amp := make([]float64, len(s.Amplitude))
	for i := range s.Time {
		t[i] = s.Time[i] * timeFactor
		amp[i] = s.Amplitude[i] * ampFactor
	}
	return Sampled{Name: s.Name, Time: t, Amplitude: amp}
}

// Slice returns samples [from, to).
func (s Sampled) Slice(from, to int) (Sampled, error) {
	if from < 0 || to > s.Len() || from > to {
		return Sampled{}, fmt.Errorf("response: slice [%d:%d] out of range for %d samples", from, to, s.Len())
	}
	return New(s.Name, s.Time[from:to], s.Amplitude[from:to])
}

// At linearly interpolates the amplitude at t, clamping outside the window.
func (s Sampled) At(t float64) float64 {
	n := s.Len()
	if t <= s.Time[0] {
		return s.Amplitude[0]
	}
	if t >= s.Time[n-1] {
		return s.Amplitude[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if s.Time[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	frac := (t - s.Time[lo]) / (s.Time[hi] - s.Time[lo])
	return s.Amplitude[lo] + frac*(s.Amplitude[hi]-s.Amplitude[lo])
}

// Resample interpolates the curve onto n uniformly spaced times.
func (s Sampled) Resample(n int) (Sampled, error) {
	times := Linspace(s.Start(), s.End(), n)
	amp := make([]float64, len(times))
	for i, t := range times {
		amp[i] = s.At(t)
	}
	return New(s.Name, times, amp)
}

// Linspace returns n evenly spaced values over [a, b], endpoints included.
func Linspace(a, b float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{a}
	}
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
