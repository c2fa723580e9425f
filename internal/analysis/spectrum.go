package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/ctrlkit/internal/response"
)

var ErrNoOscillation = errors.New("analysis: no oscillation above the DC bin")

const (
	// DefaultPoints is the resampling size before zero padding.
	DefaultPoints = 1024
	// PadFactor zero-pads the record to refine the frequency grid.
	PadFactor = 8
)

type Spectrum struct {
	Freq      []float64 // Hz
	Magnitude []float64
}

// PowerSpectrum resamples resp to points uniform samples, subtracts offset
// and returns the one-sided magnitude spectrum of the zero-padded record.
func PowerSpectrum(resp response.Sampled, offset float64, points int) (Spectrum, error) {
	if err := resp.Validate(); err != nil {
		return Spectrum{}, err
	}
	if points < 4 {
		return Spectrum{}, fmt.Errorf("analysis: need at least 4 points, got %d", points)
	}
	uniform, err := resp.Resample(points)
	if err != nil {
		return Spectrum{}, err
	}
	dt := uniform.Duration() / float64(points-1)

	padded := make([]float64, points*PadFactor)
	for i, v := range uniform.Amplitude {
		padded[i] = v - offset
	}

	coeffs := fft.FFTReal(padded)
	n := len(padded)
	spec := Spectrum{
		Freq:      make([]float64, n/2),
		Magnitude: make([]float64, n/2),
	}
	for k := range spec.Freq {
		spec.Freq[k] = float64(k) / (float64(n) * dt)
		spec.Magnitude[k] = cmplx.Abs(coeffs[k])
	}
	return spec, nil
}

// Peak returns the frequency of the largest magnitude above DC, refined by
// parabolic interpolation between neighbouring bins.
func (s Spectrum) Peak() (float64, error) {
	best := -1
	for k := 1; k < len(s.Magnitude)-1; k++ {
		m := s.Magnitude[k]
		if m > s.Magnitude[k-1] && m >= s.Magnitude[k+1] && (best < 0 || m > s.Magnitude[best]) {
			best = k
		}
	}
	if best < 0 {
		return math.NaN(), ErrNoOscillation
	}

	a, b, c := s.Magnitude[best-1], s.Magnitude[best], s.Magnitude[best+1]
	shift := 0.0
	if den := a - 2*b + c; den != 0 {
		shift = 0.5 * (a - c) / den
	}
	step := s.Freq[1] - s.Freq[0]
	return s.Freq[best] + shift*step, nil
}

// DominantFrequency returns the strongest oscillation frequency of resp
// around final, in Hz.
func DominantFrequency(resp response.Sampled, final float64) (float64, error) {
	spec, err := PowerSpectrum(resp, final, DefaultPoints)
	if err != nil {
		return math.NaN(), err
	}
	return spec.Peak()
}
