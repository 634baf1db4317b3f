package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/experiment"
	"github.com/san-kum/pendulab/internal/oracle"
	"github.com/san-kum/pendulab/internal/physics"
)

const (
	DefaultTheta       = math.Pi / 2
	DefaultEnd         = 10.0
	DefaultPoints      = 1001
	DefaultParallelism = 1
)

type Config struct {
	Pendulum    PendulumConfig          `yaml:"pendulum"`
	Grid        GridConfig              `yaml:"grid"`
	Reference   ToleranceConfig         `yaml:"reference"`
	Oracle      ToleranceConfig         `yaml:"oracle"`
	Solvers     []experiment.SolverSpec `yaml:"solvers,omitempty"`
	Sweep       []experiment.SweepSpec  `yaml:"sweep,omitempty"`
	Parallelism int                     `yaml:"parallelism"`
}

type PendulumConfig struct {
	Length     float64 `yaml:"length"`
	Gravity    float64 `yaml:"gravity"`
	Theta0     float64 `yaml:"theta0"`
	Omega0     float64 `yaml:"omega0"`
	SmallAngle bool    `yaml:"small_angle"`
}

// GridConfig describes Points evenly spaced report times from 0 to End.
type GridConfig struct {
	End    float64 `yaml:"end"`
	Points int     `yaml:"points"`
}

type ToleranceConfig struct {
	AbsTol float64 `yaml:"abs_tol"`
	RelTol float64 `yaml:"rel_tol"`
}

func DefaultConfig() *Config {
	precise, loose := oracle.Precise(), oracle.DefaultConfig()
	return &Config{
		Pendulum: PendulumConfig{
			Length:     physics.DefaultLength,
			Gravity:    physics.DefaultGravity,
			Theta0:     DefaultTheta,
			SmallAngle: true,
		},
		Grid:      GridConfig{End: DefaultEnd, Points: DefaultPoints},
		Reference: ToleranceConfig{AbsTol: precise.AbsTol, RelTol: precise.RelTol},
		Oracle:    ToleranceConfig{AbsTol: loose.AbsTol, RelTol: loose.RelTol},
		Solvers: []experiment.SolverSpec{
			{Scheme: experiment.Midpoint, Dt: 1e-4},
			{Scheme: experiment.RK4, Dt: 9e-3},
			{Scheme: experiment.VelocityVerlet, Dt: 4e-4},
		},
		Sweep:       stepSweep(),
		Parallelism: DefaultParallelism,
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

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Params() physics.Params {
	return physics.Params{
		Length:     c.Pendulum.Length,
		Gravity:    c.Pendulum.Gravity,
		Theta0:     c.Pendulum.Theta0,
		Omega0:     c.Pendulum.Omega0,
		SmallAngle: c.Pendulum.SmallAngle,
	}
}

func (c *Config) Times() []float64 {
	return dynamo.Linspace(0, c.Grid.End, c.Grid.Points)
}

// ReferenceOracle is the oracle configuration for the trusted reference.
func (c *Config) ReferenceOracle() oracle.Config {
	cfg := oracle.Precise()
	cfg.AbsTol, cfg.RelTol = c.Reference.AbsTol, c.Reference.RelTol
	return cfg
}

// SolverOracle is the oracle configuration for a "reference" solver entry.
func (c *Config) SolverOracle() oracle.Config {
	cfg := oracle.DefaultConfig()
	cfg.AbsTol, cfg.RelTol = c.Oracle.AbsTol, c.Oracle.RelTol
	return cfg
}

func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("pendulum: %w", err)
	}
	if c.Grid.Points < 1 {
		return fmt.Errorf("grid: %w: need at least one point, got %d", dynamo.ErrInvalidTimes, c.Grid.Points)
	}
	if c.Grid.Points > 1 && (!(c.Grid.End > 0) || math.IsInf(c.Grid.End, 0)) {
		return fmt.Errorf("grid: %w: end must be positive and finite, got %v", dynamo.ErrInvalidTimes, c.Grid.End)
	}
	if err := c.ReferenceOracle().Validate(); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if err := c.SolverOracle().Validate(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	for i, s := range c.Solvers {
		if s.Scheme == experiment.ReferenceOracle {
			continue
		}
		if err := dynamo.ValidateStep(s.Dt); err != nil {
			return fmt.Errorf("solvers[%d] %s: %w", i, s.Scheme, err)
		}
	}
	for i, s := range c.Sweep {
		if !s.Scheme.FixedStep() {
			return fmt.Errorf("sweep[%d]: %w: %s has no step size", i, dynamo.ErrInvalidStep, s.Scheme)
		}
		if len(s.Dts) == 0 {
			return fmt.Errorf("sweep[%d] %s: %w: empty step list", i, s.Scheme, dynamo.ErrInvalidStep)
		}
		for _, dt := range s.Dts {
			if err := dynamo.ValidateStep(dt); err != nil {
				return fmt.Errorf("sweep[%d] %s: %w", i, s.Scheme, err)
			}
		}
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1, got %d", dynamo.ErrParameterBounds, c.Parallelism)
	}
	return nil
}
