package experiment

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/lti"
)

// AnalyzeSystem reports the step metrics of one measured response outside
// of the hw2-fit exercise. With identify set the report also carries the
// fitted model and its overlay.
func AnalyzeSystem(ctx context.Context, cfg *config.Config, sys config.SystemConfig, identify bool, log logr.Logger) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	name := "metrics"
	if identify {
		name = "fit"
	}
	rep := newReport(name, cfg)
	if err := FitSystem(ctx, rep, cfg, sys, identify, logger(log)); err != nil {
		return nil, fmt.Errorf("system %s: %w", sys.Name, err)
	}
	return rep, nil
}

// AnalyzeTF reports the poles, zeros and unit step response of tf under the
// given report name.
func AnalyzeTF(ctx context.Context, name string, cfg *config.Config, tf lti.TransferFunction, log logr.Logger) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rep := newReport(name, cfg)
	sec := rep.Section("Transfer function")
	sec.Line("G(s) =")
	sec.Line("%s", tf)
	rep.Summary = fmt.Sprintf("G(s) = %s / %s", tf.Num, tf.Den)

	if err := StepAnalysis(ctx, rep, cfg, tf, logger(log)); err != nil {
		return nil, err
	}
	return rep, nil
}

func logger(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}
	return log
}
