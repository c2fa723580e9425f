// Package converter models the small-signal control-to-output behaviour of
// an inverting buck-boost DC-DC converter and runs the open- and
// closed-loop step study around its operating point.
package converter

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/ctrlkit/internal/control"
	"github.com/san-kum/ctrlkit/internal/lti"
)

var (
	ErrInvalidParams = errors.New("converter: invalid circuit parameters")
	ErrInvalidTarget = errors.New("converter: target error must be in (0, 1)")
	ErrNoDCGain      = errors.New("converter: plant has no finite non-zero DC gain")
)

// Params describes the power stage.
type Params struct {
	Vi float64 `yaml:"vi" json:"vi"` // input voltage [V]
	L  float64 `yaml:"l" json:"l"`   // inductance [H]
	C  float64 `yaml:"c" json:"c"`   // capacitance [F]
	Ro float64 `yaml:"ro" json:"ro"` // load resistance [Ω]
	D  float64 `yaml:"d" json:"d"`   // steady-state duty cycle
}

func DefaultParams() Params {
	return Params{
		Vi: 24,
		L:  20e-6,
		C:  80e-6,
		Ro: 4,
		D:  0.4,
	}
}

func (p Params) Validate() error {
	for name, v := range map[string]float64{"vi": p.Vi, "l": p.L, "c": p.C, "ro": p.Ro} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%g must be positive", ErrInvalidParams, name, v)
		}
	}
	if !(p.D > 0 && p.D < 1) {
		return fmt.Errorf("%w: duty cycle %g not in (0, 1)", ErrInvalidParams, p.D)
	}
	return nil
}

// OperatingPoint is the steady-state output voltage -Vi*D/(1-D).
func (p Params) OperatingPoint() float64 {
	return -p.Vi * p.D / (1 - p.D)
}

// Plant is the control-to-output transfer function
// Gvd(s) = -Vi / (LC s^2 + (L/Ro) s + (1-D)^2).
func (p Params) Plant() (lti.TransferFunction, error) {
	if err := p.Validate(); err != nil {
		return lti.TransferFunction{}, err
	}
	return lti.NewTF(
		[]float64{-p.Vi},
		[]float64{p.L * p.C, p.L / p.Ro, (1 - p.D) * (1 - p.D)},
	)
}

// NaturalFrequency is 1/sqrt(LC) scaled by (1-D), in rad/s.
func (p Params) NaturalFrequency() float64 {
	return (1 - p.D) / math.Sqrt(p.L*p.C)
}

// Design is a proportional controller sized for a steady-state error.
type Design struct {
	TargetError float64
	DesiredKp   float64
	K           float64
	PlantDC     float64
}

func (d Design) Controller() control.PID {
	return control.Proportional(d.K)
}

// DesignProportional sizes K so that the loop's position constant K*G(0)
// equals 1/targetError - 1. A negative plant DC gain gives a negative K,
// keeping the loop gain positive.
func DesignProportional(plant lti.TransferFunction, targetError float64) (Design, error) {
	if !(targetError > 0 && targetError < 1) {
		return Design{}, fmt.Errorf("%w: got %g", ErrInvalidTarget, targetError)
	}
	dc := plant.DCGain()
	if dc == 0 || math.IsNaN(dc) || math.IsInf(dc, 0) {
		return Design{}, fmt.Errorf("%w: G(0)=%g", ErrNoDCGain, dc)
	}
	kp := 1/targetError - 1
	return Design{
		TargetError: targetError,
		DesiredKp:   kp,
		K:           kp / dc,
		PlantDC:     dc,
	}, nil
}
