package converter

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/control"
	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/metrics"
	"github.com/san-kum/ctrlkit/internal/response"
	"gonum.org/v1/gonum/stat"
)

// Study is the open- and closed-loop step experiment.
type Study struct {
	Params Params `yaml:"params"`
	// StepTime is when the duty-cycle or reference step is applied [s].
	StepTime float64 `yaml:"step_time"`
	Duration float64 `yaml:"duration"`
	Samples  int     `yaml:"samples"`
	// DutyStep perturbs the duty cycle in the open-loop run.
	DutyStep float64 `yaml:"duty_step"`
	// RefStep raises the voltage reference in the closed-loop run [V].
	RefStep     float64 `yaml:"ref_step"`
	TargetError float64 `yaml:"target_error"`
	// TrailingSamples are averaged into the closed-loop final value.
	TrailingSamples int    `yaml:"trailing_samples"`
	Method          string `yaml:"method"`

	Logger logr.Logger `yaml:"-"`
}

func DefaultStudy() Study {
	return Study{
		Params:          DefaultParams(),
		StepTime:        1e-3,
		Duration:        20e-3,
		Samples:         10000,
		DutyStep:        0.05,
		RefStep:         1.0,
		TargetError:     0.10,
		TrailingSamples: 500,
		Method:          lti.MethodZOH,
		Logger:          logr.Discard(),
	}
}

func (s Study) Validate() error {
	if err := s.Params.Validate(); err != nil {
		return err
	}
	if !(s.Duration > 0) {
		return fmt.Errorf("converter: duration %g must be positive", s.Duration)
	}
	if !(s.StepTime >= 0 && s.StepTime < s.Duration) {
		return fmt.Errorf("converter: step time %g outside [0, %g)", s.StepTime, s.Duration)
	}
	if s.Samples < 2 {
		return fmt.Errorf("converter: need at least 2 samples, got %d", s.Samples)
	}
	if s.TrailingSamples < 1 || s.TrailingSamples > s.Samples {
		return fmt.Errorf("converter: trailing samples %d not in [1, %d]", s.TrailingSamples, s.Samples)
	}
	if s.RefStep == 0 {
		return fmt.Errorf("converter: reference step must be non-zero")
	}
	return nil
}

// Report collects the results of one study.
type Report struct {
	Plant  lti.TransferFunction
	Closed lti.TransferFunction
	Design Design
	// K is the proportional gain and AchievedKp the resulting K*G(0).
	K          float64
	AchievedKp float64

	OperatingPoint float64
	OpenLoop       response.Sampled
	ClosedLoop     response.Sampled

	OpenLoopFinal   float64
	ClosedLoopFinal float64
	Desired         float64

	SteadyStateError        float64
	SteadyStateErrorPercent float64

	Metrics         metrics.Metrics
	OpenLoopMetrics metrics.Metrics
	// Notes lists metrics that could not be computed.
	Notes []string
}

func (s Study) logger() logr.Logger {
	if s.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return s.Logger
}

// Run designs the controller and simulates both loops.
func (s Study) Run(ctx context.Context) (*Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log := s.logger().WithName("converter")

	plant, err := s.Params.Plant()
	if err != nil {
		return nil, err
	}
	design, err := DesignProportional(plant, s.TargetError)
	if err != nil {
		return nil, err
	}
	closed, err := control.ClosedLoop(design.Controller(), plant)
	if err != nil {
		return nil, err
	}
	log.Info("designed proportional controller", "k", design.K, "kp", design.DesiredKp, "plantDC", design.PlantDC)

	vo := s.Params.OperatingPoint()
	t := response.Linspace(0, s.Duration, s.Samples)

	openLoop, err := s.simulate(ctx, plant, t, s.DutyStep, vo, "open-loop")
	if err != nil {
		return nil, fmt.Errorf("open loop: %w", err)
	}
	closedLoop, err := s.simulate(ctx, closed, t, s.RefStep, vo, "closed-loop")
	if err != nil {
		return nil, fmt.Errorf("closed loop: %w", err)
	}

	rep := &Report{
		Plant:          plant,
		Closed:         closed,
		Design:         design,
		K:              design.K,
		AchievedKp:     design.K * design.PlantDC,
		OperatingPoint: vo,
		OpenLoop:       openLoop,
		ClosedLoop:     closedLoop,
		OpenLoopFinal:  vo + s.DutyStep*design.PlantDC,
		Desired:        vo + s.RefStep,
	}

	tail := closedLoop.Amplitude[len(closedLoop.Amplitude)-s.TrailingSamples:]
	rep.ClosedLoopFinal = stat.Mean(tail, nil)
	rep.SteadyStateError = rep.Desired - rep.ClosedLoopFinal
	rep.SteadyStateErrorPercent = 100 * rep.SteadyStateError / s.RefStep

	opts := metrics.DefaultOptions()
	opts.ReferenceTime = s.StepTime

	opts.FinalValue = rep.ClosedLoopFinal
	rep.Metrics, err = metrics.Analyze(closedLoop, opts)
	if err != nil {
		rep.Notes = append(rep.Notes, fmt.Sprintf("closed loop: %v", err))
		log.V(1).Info("closed-loop metrics incomplete", "err", err.Error())
	}

	opts.FinalValue = rep.OpenLoopFinal
	rep.OpenLoopMetrics, err = metrics.Analyze(openLoop, opts)
	if err != nil {
		rep.Notes = append(rep.Notes, fmt.Sprintf("open loop: %v", err))
		log.V(1).Info("open-loop metrics incomplete", "err", err.Error())
	}

	log.Info("study complete",
		"closedFinal", rep.ClosedLoopFinal,
		"ess", rep.SteadyStateError,
		"overshoot", rep.Metrics.OvershootPercent,
		"settling", rep.Metrics.SettlingTime)
	return rep, nil
}

// simulate applies a step of size amp at StepTime and offsets the output
// by the operating point.
func (s Study) simulate(ctx context.Context, tf lti.TransferFunction, t []float64, amp, offset float64, name string) (response.Sampled, error) {
	sys, err := tf.StateSpace()
	if err != nil {
		return response.Sampled{}, err
	}
	u := make([]float64, len(t))
	for i, tm := range t {
		if tm >= s.StepTime {
			u[i] = amp
		}
	}
	opts := lti.DefaultSimOptions()
	opts.Method = s.Method
	opts.Name = name
	opts.Logger = s.logger()
	resp, err := lti.ForcedResponse(ctx, sys, t, u, opts)
	if err != nil {
		return response.Sampled{}, err
	}
	for i := range resp.Amplitude {
		resp.Amplitude[i] += offset
	}
	return resp, nil
}

// Microseconds converts seconds for display. NaN passes through.
func Microseconds(seconds float64) float64 {
	return seconds * 1e6
}
