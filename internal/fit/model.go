// Package fit estimates low-order transfer functions from step-response
// metrics and validates them against the measured curve.
package fit

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/metrics"
	"github.com/san-kum/ctrlkit/internal/response"
)

var (
	ErrNoOvershoot         = errors.New("fit: response has no overshoot, second-order estimate undefined")
	ErrMetricUnavailable   = errors.New("fit: required metric is undefined")
	ErrNonPositiveEstimate = errors.New("fit: estimated time parameter is not positive")
)

// Model is an estimated plant.
type Model interface {
	TF() lti.TransferFunction
	Describe() string
	// DeadTime is the instant the input step is applied, on the data's
	// time axis.
	DeadTime() float64
}

// Tunable models expose their parameters to Refine.
type Tunable interface {
	Model
	Params() map[string]float64
	WithParams(map[string]float64) Tunable
}

// FirstOrder is Gain/(Tau s + 1) delayed by Delay.
type FirstOrder struct {
	Gain  float64
	Tau   float64
	Delay float64
}

func (m FirstOrder) TF() lti.TransferFunction {
	return lti.MustTF([]float64{m.Gain}, []float64{m.Tau, 1})
}

func (m FirstOrder) DeadTime() float64 { return m.Delay }

// SettlingApprox is the 2% settling time, about four time constants.
func (m FirstOrder) SettlingApprox() float64 { return 4 * m.Tau }

// RiseApprox is the 10-90% rise time, about 2.2 time constants.
func (m FirstOrder) RiseApprox() float64 { return 2.2 * m.Tau }

func (m FirstOrder) Describe() string {
	return fmt.Sprintf("first order: K=%.4g tau=%.4g s (Ts~%.4g s, Tr~%.4g s)", m.Gain, m.Tau, m.SettlingApprox(), m.RiseApprox())
}

func (m FirstOrder) Params() map[string]float64 {
	return map[string]float64{"gain": m.Gain, "tau": m.Tau}
}

func (m FirstOrder) WithParams(p map[string]float64) Tunable {
	out := m
	if v, ok := p["gain"]; ok {
		out.Gain = v
	}
	if v, ok := p["tau"]; ok {
		out.Tau = v
	}
	return out
}

// SecondOrder is Gain*Wn^2/(s^2 + 2 Zeta Wn s + Wn^2) delayed by Delay.
type SecondOrder struct {
	Gain  float64
	Zeta  float64
	Wn    float64
	Delay float64
}

func (m SecondOrder) TF() lti.TransferFunction {
	w2 := m.Wn * m.Wn
	return lti.MustTF([]float64{m.Gain * w2}, []float64{1, 2 * m.Zeta * m.Wn, w2})
}

func (m SecondOrder) DeadTime() float64 { return m.Delay }

func (m SecondOrder) DampedFrequency() float64 {
	return m.Wn * math.Sqrt(1-m.Zeta*m.Zeta)
}

// SettlingApprox is the 2% settling time, 4/(Zeta Wn).
func (m SecondOrder) SettlingApprox() float64 { return 4 / (m.Zeta * m.Wn) }

func (m SecondOrder) PeakTimeApprox() float64 { return math.Pi / m.DampedFrequency() }

func (m SecondOrder) OvershootApprox() float64 {
	return 100 * math.Exp(-m.Zeta*math.Pi/math.Sqrt(1-m.Zeta*m.Zeta))
}

func (m SecondOrder) Describe() string {
	return fmt.Sprintf("second order: K=%.4g zeta=%.4g wn=%.4g rad/s (wd=%.4g rad/s, Ts~%.4g s)",
		m.Gain, m.Zeta, m.Wn, m.DampedFrequency(), m.SettlingApprox())
}

func (m SecondOrder) Params() map[string]float64 {
	return map[string]float64{"gain": m.Gain, "zeta": m.Zeta, "wn": m.Wn}
}

func (m SecondOrder) WithParams(p map[string]float64) Tunable {
	out := m
	if v, ok := p["gain"]; ok {
		out.Gain = v
	}
	if v, ok := p["zeta"]; ok {
		out.Zeta = v
	}
	if v, ok := p["wn"]; ok {
		out.Wn = v
	}
	return out
}

func available(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s", ErrMetricUnavailable, name)
	}
	return nil
}

// EstimateFirstOrder reads the gain from the step size and tau from the
// 63.2% crossing measured after reference.
func EstimateFirstOrder(m metrics.Metrics, stepAmplitude, reference float64) (FirstOrder, error) {
	if err := available("steady_state_value", m.SteadyState); err != nil {
		return FirstOrder{}, err
	}
	if err := available("time_constant", m.TimeConstant); err != nil {
		return FirstOrder{}, err
	}
	tau := m.TimeConstant - reference
	if tau <= 0 {
		return FirstOrder{}, fmt.Errorf("%w: tau=%g", ErrNonPositiveEstimate, tau)
	}
	return FirstOrder{
		Gain:  (m.SteadyState - m.Start) / stepAmplitude,
		Tau:   tau,
		Delay: reference,
	}, nil
}

// EstimateSecondOrder derives damping from the percent overshoot and the
// natural frequency from the peak time.
func EstimateSecondOrder(m metrics.Metrics, stepAmplitude, reference float64) (SecondOrder, error) {
	if err := available("steady_state_value", m.SteadyState); err != nil {
		return SecondOrder{}, err
	}
	if err := available("overshoot_percent", m.OvershootPercent); err != nil {
		return SecondOrder{}, err
	}
	if m.OvershootPercent <= 0 {
		return SecondOrder{}, ErrNoOvershoot
	}
	if err := available("peak_time", m.PeakTime); err != nil {
		return SecondOrder{}, err
	}

	os := m.OvershootPercent / 100
	lnOS := math.Log(os)
	zeta := -lnOS / math.Sqrt(math.Pi*math.Pi+lnOS*lnOS)

	tp := m.PeakTime - reference
	if tp <= 0 {
		return SecondOrder{}, fmt.Errorf("%w: peak time %g", ErrNonPositiveEstimate, tp)
	}
	wn := math.Pi / (tp * math.Sqrt(1-zeta*zeta))

	return SecondOrder{
		Gain:  (m.SteadyState - m.Start) / stepAmplitude,
		Zeta:  zeta,
		Wn:    wn,
		Delay: reference,
	}, nil
}

// MinOvershootPercent separates a genuine overshoot from a monotone tail
// that ends slightly above its trailing-window mean.
const MinOvershootPercent = 0.5

// Oscillates reports whether resp overshoots by more than
// MinOvershootPercent and then comes back through the steady-state value.
// A monotone curve whose trailing mean lags its last samples peaks at the
// end of the window and never returns.
func Oscillates(resp response.Sampled, m metrics.Metrics) bool {
	if math.IsNaN(m.SteadyState) || !(m.OvershootPercent > MinOvershootPercent) {
		return false
	}
	dir := metrics.DirectionOf(m.Start, m.SteadyState)
	back := metrics.Falling
	if dir == metrics.Falling {
		back = metrics.Rising
	}
	peak := metrics.Extremum(resp.Amplitude, dir)
	_, ok := metrics.FirstCrossing(resp.Amplitude[peak+1:], m.SteadyState, back)
	return ok
}

// Identify picks a second-order model when resp oscillates about its
// steady state and a first-order model otherwise.
func Identify(resp response.Sampled, m metrics.Metrics, stepAmplitude, reference float64) (Tunable, error) {
	if Oscillates(resp, m) {
		so, err := EstimateSecondOrder(m, stepAmplitude, reference)
		if err != nil {
			return nil, err
		}
		return so, nil
	}
	fo, err := EstimateFirstOrder(m, stepAmplitude, reference)
	if err != nil {
		return nil, err
	}
	return fo, nil
}
