// Package experiment runs the course exercises. Each exercise reads its
// parameters from a config.Config and returns a Report that the CLI renders,
// plots and stores.
package experiment

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/config"
)

// Experiment is one exercise run with an optional preset layered onto a
// base configuration.
type Experiment struct {
	Exercise string
	Preset   string
	cfg      *config.Config
	log      logr.Logger
}

func New(exercise, preset string, base *config.Config, log logr.Logger) *Experiment {
	return &Experiment{Exercise: exercise, Preset: preset, cfg: base, log: log}
}

// Config returns the configuration the experiment runs with: a copy of the
// base with the preset applied. The base is never modified.
func (e *Experiment) Config() (*config.Config, error) {
	cfg := e.cfg.Clone()
	if e.Preset != "" && !cfg.Apply(e.Exercise, e.Preset) {
		return nil, &config.UnknownPresetError{Exercise: e.Exercise, Preset: e.Preset}
	}
	return cfg, nil
}

func (e *Experiment) Run(ctx context.Context, registry *Registry) (*Report, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	rep, err := registry.Run(ctx, e.Exercise, cfg, e.log)
	if err != nil {
		return nil, err
	}
	rep.Preset = e.Preset
	return rep, nil
}
