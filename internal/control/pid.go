package control

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlkit/internal/lti"
)

// DefaultFilter is the derivative filter bandwidth N used when none is set.
const DefaultFilter = 100.0

// Controller maps the tracking error to the plant input.
type Controller interface {
	TF() (lti.TransferFunction, error)
	String() string
}

// PID is Kp + Ki/s + Kd N s/(s + N).
type PID struct {
	Kp float64
	Ki float64
	Kd float64
	// N is the derivative filter bandwidth in rad/s. Zero selects
	// DefaultFilter.
	N float64
}

// Proportional is the static controller k.
func Proportional(k float64) PID {
	return PID{Kp: k}
}

func (p PID) filter() float64 {
	if p.N == 0 {
		return DefaultFilter
	}
	return p.N
}

func (p PID) TF() (lti.TransferFunction, error) {
	for name, v := range map[string]float64{"Kp": p.Kp, "Ki": p.Ki, "Kd": p.Kd, "N": p.N} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return lti.TransferFunction{}, fmt.Errorf("control: %s is %v", name, v)
		}
	}
	n := p.filter()
	if p.Kd != 0 && n < 0 {
		return lti.TransferFunction{}, fmt.Errorf("control: derivative filter %g must be positive", n)
	}

	switch {
	case p.Ki == 0 && p.Kd == 0:
		return lti.Gain(p.Kp), nil
	case p.Kd == 0:
		return lti.NewTF([]float64{p.Kp, p.Ki}, []float64{1, 0})
	case p.Ki == 0:
		return lti.NewTF([]float64{p.Kp + p.Kd*n, p.Kp * n}, []float64{1, n})
	default:
		return lti.NewTF(
			[]float64{p.Kp + p.Kd*n, p.Kp*n + p.Ki, p.Ki * n},
			[]float64{1, n, 0},
		)
	}
}

func (p PID) String() string {
	switch {
	case p.Ki == 0 && p.Kd == 0:
		return fmt.Sprintf("P(Kp=%.4g)", p.Kp)
	case p.Kd == 0:
		return fmt.Sprintf("PI(Kp=%.4g, Ki=%.4g)", p.Kp, p.Ki)
	default:
		return fmt.Sprintf("PID(Kp=%.4g, Ki=%.4g, Kd=%.4g, N=%.4g)", p.Kp, p.Ki, p.Kd, p.filter())
	}
}

// Params returns the tunable gains.
func (p PID) Params() map[string]float64 {
	return map[string]float64{
		"Kp": p.Kp,
		"Ki": p.Ki,
		"Kd": p.Kd,
		"N":  p.filter(),
	}
}

// SetParam adjusts one gain by name. Unknown names are an error.
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "N":
		p.N = value
	default:
		return fmt.Errorf("control: unknown PID parameter %q", name)
	}
	return nil
}

// ClosedLoop is c*plant under unity negative feedback.
func ClosedLoop(c Controller, plant lti.TransferFunction) (lti.TransferFunction, error) {
	ctf, err := c.TF()
	if err != nil {
		return lti.TransferFunction{}, err
	}
	return ctf.Series(plant).UnityFeedback(), nil
}

// SteadyStateError is the unit-step tracking error 1/(1+Kp) of the loop
// c*plant, where Kp is its DC gain. A loop with an integrator returns 0.
func SteadyStateError(c Controller, plant lti.TransferFunction) (float64, error) {
	ctf, err := c.TF()
	if err != nil {
		return math.NaN(), err
	}
	kp := ctf.Series(plant).DCGain()
	if math.IsInf(kp, 0) {
		return 0, nil
	}
	return 1 / (1 + kp), nil
}
