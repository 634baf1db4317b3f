package config

import (
	"sort"

	"github.com/san-kum/pendulab/internal/experiment"
)

// One hundred small-angle periods of the default pendulum.
const longRun = 141.9

func stepSweep() []experiment.SweepSpec {
	return []experiment.SweepSpec{
		{Scheme: experiment.Euler, Dts: []float64{1e-3, 3e-4, 1e-4, 3e-5, 1e-5, 3e-6}},
		{Scheme: experiment.Midpoint, Dts: []float64{0.1, 6e-2, 2e-2, 1e-2, 6e-3, 2e-3, 1e-3, 3e-4, 1e-4, 3e-5, 1e-5}},
		{Scheme: experiment.RK4, Dts: []float64{0.2, 0.1, 6e-2, 2e-2, 1e-2, 6e-3, 2e-3, 1e-3, 6e-4, 2e-4, 1e-4, 6e-5, 2e-5}},
	}
}

var presets = map[string]func() *Config{
	"approx": func() *Config {
		cfg := DefaultConfig()
		cfg.Grid = GridConfig{End: longRun, Points: 10001}
		return cfg
	},
	"exact": func() *Config {
		cfg := DefaultConfig()
		cfg.Pendulum.SmallAngle = false
		cfg.Grid = GridConfig{End: longRun, Points: 10001}
		return cfg
	},
	"symplectic": func() *Config {
		cfg := DefaultConfig()
		cfg.Grid = GridConfig{End: longRun, Points: 10001}
		cfg.Solvers = []experiment.SolverSpec{
			{Scheme: experiment.Midpoint, Dt: 6e-5},
			{Scheme: experiment.RK4, Dt: 9e-3},
			{Scheme: experiment.VelocityVerlet, Dt: 6e-5},
			{Scheme: experiment.StormerVerlet, Dt: 6e-5},
			{Scheme: experiment.ReferenceOracle},
		}
		return cfg
	},
	"steps": func() *Config {
		cfg := DefaultConfig()
		cfg.Grid = GridConfig{End: 20, Points: 101}
		cfg.Sweep = stepSweep()
		return cfg
	},
	"check": func() *Config {
		cfg := DefaultConfig()
		cfg.Solvers = []experiment.SolverSpec{{Scheme: experiment.RK4, Dt: 9e-3}}
		return cfg
	},
}

// GetPreset returns a fresh copy of a named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
