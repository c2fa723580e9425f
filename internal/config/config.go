package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/natefinch/atomic"
	"github.com/san-kum/ctrlkit/internal/converter"
	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/metrics"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTalbotNodes = 32
	DefaultRefineSpan  = 0.2
	DefaultRefineSteps = 5
	DefaultPlotWidth   = 72
	DefaultPlotHeight  = 16
	DefaultSVGWidth    = 960
	DefaultSVGHeight   = 560
)

type Config struct {
	Metrics    MetricsConfig    `yaml:"metrics"`
	Simulation SimulationConfig `yaml:"simulation"`
	Laplace    LaplaceConfig    `yaml:"laplace"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	StateSpace StateSpaceConfig `yaml:"state_space"`
	Converter  converter.Study  `yaml:"converter"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
}

type MetricsConfig struct {
	TrailingFraction  float64 `yaml:"trailing_fraction"`
	SettlingBand      float64 `yaml:"settling_band"`
	RiseLow           float64 `yaml:"rise_low"`
	RiseHigh          float64 `yaml:"rise_high"`
	TimeConstantLevel float64 `yaml:"time_constant_level"`
}

type SimulationConfig struct {
	Method  string `yaml:"method"`
	Samples int    `yaml:"samples"`
}

// LaplaceConfig drives the transform exercises.
type LaplaceConfig struct {
	// Coef and Rate name the symbols of coef*exp(-rate*t).
	Coef string `yaml:"coef"`
	Rate string `yaml:"rate"`
	// Amplitude and Decay give a numeric instance of the same pair.
	Amplitude float64 `yaml:"amplitude"`
	Decay     float64 `yaml:"decay"`
	// Num and Den define the function inverted by hw1-inverse.
	Num         []float64 `yaml:"num"`
	Den         []float64 `yaml:"den"`
	TalbotNodes int       `yaml:"talbot_nodes"`
}

// SystemConfig is one measured step response and its reference model.
type SystemConfig struct {
	Name string `yaml:"name"`
	// Data is a CSV of time,amplitude. Empty synthesizes the curve from
	// the reference model.
	Data             string    `yaml:"data,omitempty"`
	Num              []float64 `yaml:"num"`
	Den              []float64 `yaml:"den"`
	TrailingFraction float64   `yaml:"trailing_fraction"`
	StepAmplitude    float64   `yaml:"step_amplitude"`
	ReferenceTime    float64   `yaml:"reference_time"`
	Duration         float64   `yaml:"duration"`
	Samples          int       `yaml:"samples"`
}

type AnalysisConfig struct {
	Systems     []SystemConfig `yaml:"systems"`
	RefineSpan  float64        `yaml:"refine_span"`
	RefineSteps int            `yaml:"refine_steps"`
}

type StateSpaceConfig struct {
	A [][]float64 `yaml:"a"`
	B []float64   `yaml:"b"`
	C []float64   `yaml:"c"`
	D float64     `yaml:"d"`
}

type OutputConfig struct {
	// Dir receives figures. Empty places them in the stored run's directory.
	Dir string `yaml:"dir"`
	PNG bool   `yaml:"png"`
	SVG bool   `yaml:"svg"`
	// SVGWidth and SVGHeight are in pixels.
	SVGWidth  int `yaml:"svg_width"`
	SVGHeight int `yaml:"svg_height"`
	// PlotWidth and PlotHeight size terminal plots in characters.
	PlotWidth  int `yaml:"plot_width"`
	PlotHeight int `yaml:"plot_height"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			TrailingFraction:  metrics.DefaultTrailingFraction,
			SettlingBand:      metrics.DefaultSettlingBand,
			RiseLow:           metrics.DefaultRiseLow,
			RiseHigh:          metrics.DefaultRiseHigh,
			TimeConstantLevel: metrics.DefaultTimeConstantLevel,
		},
		Simulation: SimulationConfig{
			Method:  lti.MethodZOH,
			Samples: lti.DefaultSamples,
		},
		Laplace: LaplaceConfig{
			Coef:        "A",
			Rate:        "a",
			Amplitude:   1,
			Decay:       2,
			Num:         []float64{1},
			Den:         []float64{1, 6, 9},
			TalbotNodes: DefaultTalbotNodes,
		},
		Analysis: AnalysisConfig{
			Systems:     []SystemConfig{systemA(), systemB()},
			RefineSpan:  DefaultRefineSpan,
			RefineSteps: DefaultRefineSteps,
		},
		StateSpace: StateSpaceConfig{
			A: [][]float64{{0, 1}, {-5, -2}},
			B: []float64{0, 2},
			C: []float64{0, 1},
			D: 0,
		},
		Converter: converter.DefaultStudy(),
		Output: OutputConfig{
			PNG:        true,
			SVG:        false,
			SVGWidth:   DefaultSVGWidth,
			SVGHeight:  DefaultSVGHeight,
			PlotWidth:  DefaultPlotWidth,
			PlotHeight: DefaultPlotHeight,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

func systemA() SystemConfig {
	return SystemConfig{
		Name:             "A",
		Num:              []float64{36.21},
		Den:              []float64{7.4, 1},
		TrailingFraction: 0.3,
		StepAmplitude:    1,
		Duration:         80,
		Samples:          161,
	}
}

func systemB() SystemConfig {
	return SystemConfig{
		Name:             "B",
		Num:              []float64{13.46},
		Den:              []float64{1, 0.61, 4.486},
		TrailingFraction: 0.1,
		StepAmplitude:    1,
		Duration:         20,
		Samples:          201,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, replacing path atomically.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// MetricsOptions converts the metrics section, leaving reference time and
// final value unset.
func (c *Config) MetricsOptions() metrics.Options {
	opts := metrics.DefaultOptions()
	opts.TrailingFraction = c.Metrics.TrailingFraction
	opts.SettlingBand = c.Metrics.SettlingBand
	opts.RiseLow = c.Metrics.RiseLow
	opts.RiseHigh = c.Metrics.RiseHigh
	opts.TimeConstantLevel = c.Metrics.TimeConstantLevel
	return opts
}

// Options for one system inherit the metrics section and override the
// trailing window and reference time.
func (s SystemConfig) MetricsOptions(base metrics.Options) metrics.Options {
	if s.TrailingFraction > 0 {
		base.TrailingFraction = s.TrailingFraction
	}
	base.ReferenceTime = s.ReferenceTime
	return base
}

func (s SystemConfig) TF() (lti.TransferFunction, error) {
	return lti.NewTF(s.Num, s.Den)
}

func (c *Config) Validate() error {
	if err := c.MetricsOptions().Validate(); err != nil {
		return err
	}
	known := false
	for _, m := range lti.Methods() {
		if c.Simulation.Method == m {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("config: unknown simulation method %q", c.Simulation.Method)
	}
	if c.Simulation.Samples < 2 {
		return fmt.Errorf("config: simulation samples %d must be at least 2", c.Simulation.Samples)
	}
	for _, s := range c.Analysis.Systems {
		if s.Name == "" {
			return fmt.Errorf("config: analysis system without a name")
		}
		if s.Data == "" && (s.Duration <= 0 || s.Samples < 2) {
			return fmt.Errorf("config: system %s needs data or a positive duration and samples", s.Name)
		}
		if math.IsNaN(s.StepAmplitude) || s.StepAmplitude == 0 {
			return fmt.Errorf("config: system %s step amplitude must be non-zero", s.Name)
		}
	}
	if err := c.Converter.Validate(); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Laplace.Num = slices.Clone(c.Laplace.Num)
	out.Laplace.Den = slices.Clone(c.Laplace.Den)
	out.Analysis.Systems = make([]SystemConfig, len(c.Analysis.Systems))
	for i, s := range c.Analysis.Systems {
		s.Num = slices.Clone(s.Num)
		s.Den = slices.Clone(s.Den)
		out.Analysis.Systems[i] = s
	}
	out.StateSpace.A = make([][]float64, len(c.StateSpace.A))
	for i, row := range c.StateSpace.A {
		out.StateSpace.A[i] = slices.Clone(row)
	}
	out.StateSpace.B = slices.Clone(c.StateSpace.B)
	out.StateSpace.C = slices.Clone(c.StateSpace.C)
	return &out
}
