// Package automation runs scripted batches of exercises and parameter
// sweeps of the converter study from a YAML file.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/converter"
	"github.com/san-kum/ctrlkit/internal/experiment"
	"github.com/san-kum/ctrlkit/internal/storage"
	"gopkg.in/yaml.v3"
)

var ErrUnknownParam = errors.New("automation: unknown sweep parameter")

// Batch is a scripted sequence of exercises and sweeps.
type Batch struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Steps       []Step  `yaml:"steps"`
	Sweeps      []Sweep `yaml:"sweeps"`
}

// Step runs one exercise, optionally with a preset, and stores the result
// when Save is set.
type Step struct {
	Exercise string `yaml:"exercise"`
	Preset   string `yaml:"preset"`
	Save     bool   `yaml:"save"`
}

// Sweep varies one converter parameter over [Min, Max] in Steps points.
type Sweep struct {
	Param string  `yaml:"param"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Steps int     `yaml:"steps"`
}

func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(batch.Steps) == 0 && len(batch.Sweeps) == 0 {
		return nil, fmt.Errorf("%s: batch has no steps or sweeps", path)
	}
	return &batch, nil
}

type StepResult struct {
	Step   Step
	Report *experiment.Report
	RunID  string
	Err    error
}

// RunBatch executes every step in order. A failing step is recorded in its
// result and the batch continues; the returned error joins all failures.
// store may be nil when no step saves.
func RunBatch(ctx context.Context, batch *Batch, base *config.Config, registry *experiment.Registry, store *storage.Store, log logr.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(batch.Steps))
	var errs []error

	for i, step := range batch.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		log.Info("running step", "step", i+1, "of", len(batch.Steps), "exercise", step.Exercise, "preset", step.Preset)

		res := StepResult{Step: step}
		res.Report, res.Err = experiment.New(step.Exercise, step.Preset, base, log).Run(ctx, registry)
		if res.Err == nil && step.Save {
			if store == nil {
				res.Err = fmt.Errorf("no store configured")
			} else {
				res.RunID, res.Err = store.Save(res.Report.Run())
			}
		}
		if res.Err != nil {
			res.Err = fmt.Errorf("step %d (%s): %w", i+1, step.Exercise, res.Err)
			errs = append(errs, res.Err)
			log.Error(res.Err, "step failed")
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// SweepPoint is the converter study outcome at one parameter value.
type SweepPoint struct {
	Value                   float64
	K                       float64
	ClosedLoopFinal         float64
	SteadyStateErrorPercent float64
	OvershootPercent        float64
	SettlingTime            float64
	Err                     error
}

// RunSweep re-runs study with sweep.Param set to each value in turn.
func RunSweep(ctx context.Context, sweep Sweep, study converter.Study, log logr.Logger) ([]SweepPoint, error) {
	if sweep.Steps < 2 {
		return nil, fmt.Errorf("automation: sweep needs at least 2 steps, got %d", sweep.Steps)
	}
	if err := setParam(&study, sweep.Param, sweep.Min); err != nil {
		return nil, err
	}

	points := make([]SweepPoint, 0, sweep.Steps)
	delta := (sweep.Max - sweep.Min) / float64(sweep.Steps-1)
	for i := 0; i < sweep.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return points, err
		}
		value := sweep.Min + float64(i)*delta
		_ = setParam(&study, sweep.Param, value)

		pt := SweepPoint{Value: value}
		rep, err := study.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return points, err
			}
			pt.Err = err
		} else {
			pt.K = rep.K
			pt.ClosedLoopFinal = rep.ClosedLoopFinal
			pt.SteadyStateErrorPercent = rep.SteadyStateErrorPercent
			pt.OvershootPercent = rep.Metrics.OvershootPercent
			pt.SettlingTime = rep.Metrics.SettlingTime
		}
		points = append(points, pt)
		log.V(1).Info("sweep point", "param", sweep.Param, "value", value, "err", pt.Err)
	}
	return points, nil
}

// SweepParams lists the converter parameters a sweep may vary.
var SweepParams = []string{"vi", "l", "c", "ro", "d", "target_error", "ref_step"}

func setParam(s *converter.Study, name string, v float64) error {
	switch name {
	case "vi":
		s.Params.Vi = v
	case "l":
		s.Params.L = v
	case "c":
		s.Params.C = v
	case "ro":
		s.Params.Ro = v
	case "d":
		s.Params.D = v
	case "target_error":
		s.TargetError = v
	case "ref_step":
		s.RefStep = v
	default:
		return fmt.Errorf("%w: %q (available: %v)", ErrUnknownParam, name, SweepParams)
	}
	return nil
}
