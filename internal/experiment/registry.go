package experiment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/config"
)

var ErrUnknownExercise = errors.New("experiment: unknown exercise")

// Runner executes one exercise against a validated configuration.
type Runner func(ctx context.Context, cfg *config.Config, log logr.Logger) (*Report, error)

type Exercise struct {
	Name        string
	Description string
	Run         Runner
}

type Registry struct {
	exercises map[string]Exercise
}

func NewRegistry() *Registry {
	r := &Registry{exercises: make(map[string]Exercise)}

	r.Register(Exercise{Name: "hw1-laplace", Description: "Laplace transform of A*exp(-a*t), symbolic and numeric", Run: runLaplace})
	r.Register(Exercise{Name: "hw1-inverse", Description: "inverse Laplace transform by partial fractions", Run: runInverse})
	r.Register(Exercise{Name: "hw2-fit", Description: "step-response metrics and model fitting for systems A and B", Run: runFit})
	r.Register(Exercise{Name: "hw2-ss2tf", Description: "state space to transfer function, poles, zeros and step response", Run: runStateSpace})
	r.Register(Exercise{Name: "dcdc", Description: "buck-boost converter open loop vs proportional closed loop", Run: runConverter})

	return r
}

// Register adds or replaces an exercise.
func (r *Registry) Register(e Exercise) {
	r.exercises[e.Name] = e
}

func (r *Registry) Get(name string) (Exercise, error) {
	e, ok := r.exercises[name]
	if !ok {
		return Exercise{}, fmt.Errorf("%w: %s (available: %v)", ErrUnknownExercise, name, r.Names())
	}
	return e, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.exercises))
	for name := range r.exercises {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) List() []Exercise {
	out := make([]Exercise, 0, len(r.exercises))
	for _, name := range r.Names() {
		out = append(out, r.exercises[name])
	}
	return out
}

// Run validates cfg and executes the named exercise.
func (r *Registry) Run(ctx context.Context, name string, cfg *config.Config, log logr.Logger) (*Report, error) {
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	log = log.WithValues("exercise", name)
	log.V(1).Info("running exercise", "method", cfg.Simulation.Method)

	rep, err := e.Run(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	log.V(1).Info("exercise finished", "sections", len(rep.Sections), "notes", len(rep.Notes))
	return rep, nil
}
