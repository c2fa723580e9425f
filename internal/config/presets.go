package config

import (
	"fmt"
	"sort"
)

type UnknownPresetError struct {
	Exercise string
	Preset   string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("config: unknown preset %q for %s (available: %v)", e.Preset, e.Exercise, ListPresets(e.Exercise))
}

// Preset adjusts the default configuration for one scenario.
type Preset struct {
	Description string
	Apply       func(*Config)
}

var Presets = map[string]map[string]Preset{
	"dcdc": {
		"buck-boost": {
			Description: "24 V in, D=0.4, 4 Ω load (Vo = -16 V)",
			Apply:       func(*Config) {},
		},
		"light-load": {
			Description: "16 Ω load, less damping",
			Apply: func(c *Config) {
				c.Converter.Params.Ro = 16
				c.Converter.Duration = 40e-3
				c.Converter.Samples = 20000
			},
		},
		"high-duty": {
			Description: "D=0.6 (Vo = -36 V), lower plant bandwidth",
			Apply: func(c *Config) {
				c.Converter.Params.D = 0.6
			},
		},
		"tight": {
			Description: "2% steady-state error target",
			Apply: func(c *Config) {
				c.Converter.TargetError = 0.02
			},
		},
	},
	"hw2-fit": {
		"hw2-a": {
			Description: "first-order system A only",
			Apply: func(c *Config) {
				c.Analysis.Systems = []SystemConfig{systemA()}
			},
		},
		"hw2-b": {
			Description: "underdamped system B only",
			Apply: func(c *Config) {
				c.Analysis.Systems = []SystemConfig{systemB()}
			},
		},
		"dense": {
			Description: "both systems sampled ten times finer",
			Apply: func(c *Config) {
				for i := range c.Analysis.Systems {
					c.Analysis.Systems[i].Samples = (c.Analysis.Systems[i].Samples-1)*10 + 1
				}
			},
		},
	},
	"hw1-inverse": {
		"repeated": {
			Description: "1/(s+3)^2",
			Apply: func(c *Config) {
				c.Laplace.Num = []float64{1}
				c.Laplace.Den = []float64{1, 6, 9}
			},
		},
		"oscillatory": {
			Description: "(s+1)/(s^2+2s+5)",
			Apply: func(c *Config) {
				c.Laplace.Num = []float64{1, 1}
				c.Laplace.Den = []float64{1, 2, 5}
			},
		},
	},
}

// GetPreset returns the default configuration with the named preset
// applied, or nil when the exercise or preset is unknown.
func GetPreset(exercise, preset string) *Config {
	exercisePresets, ok := Presets[exercise]
	if !ok {
		return nil
	}
	p, ok := exercisePresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.Apply(cfg)
	return cfg
}

// Apply layers a preset onto an existing configuration.
func (c *Config) Apply(exercise, preset string) bool {
	p, ok := Presets[exercise][preset]
	if !ok {
		return false
	}
	p.Apply(c)
	return true
}

func ListPresets(exercise string) []string {
	exercisePresets, ok := Presets[exercise]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(exercisePresets))
	for name := range exercisePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
