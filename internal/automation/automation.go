// Package automation runs scripted sequences of studies from a YAML
// scenario file.
package automation

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendulab/internal/config"
	"github.com/san-kum/pendulab/internal/experiment"
	"github.com/san-kum/pendulab/internal/physics"
	"github.com/san-kum/pendulab/internal/storage"
)

const (
	ModeCompare = "compare"
	ModeSweep   = "sweep"
)

// Scenario defines a scripted sequence of studies.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is a single study. Config is overlaid onto the preset (or the
// defaults) with the same rules as a config file.
type Step struct {
	Name   string    `yaml:"name"`
	Mode   string    `yaml:"mode"`
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
	Save   bool      `yaml:"save"`
}

// StepResult holds the outcome of one step; only the field matching the
// step's mode is set.
type StepResult struct {
	Name  string
	Mode  string
	Runs  []experiment.Run
	Sweep []experiment.SweepResult
	RunID string
}

// LoadScenario loads a scenario from a YAML file and checks every step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}
	for i, step := range scenario.Steps {
		if _, err := step.Resolve(); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.label(), err)
		}
	}
	return &scenario, nil
}

// Resolve builds the effective configuration of the step.
func (s Step) Resolve() (*config.Config, error) {
	switch s.Mode {
	case ModeCompare, ModeSweep:
	default:
		return nil, fmt.Errorf("unknown mode %q (want %s or %s)", s.Mode, ModeCompare, ModeSweep)
	}

	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s Step) label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Preset != "":
		return s.Preset
	}
	return s.Mode
}

// NewStudy builds the study described by cfg.
func NewStudy(cfg *config.Config, logger *zap.Logger) (*experiment.Study, error) {
	pend, err := physics.New(cfg.Params())
	if err != nil {
		return nil, err
	}
	return experiment.New(pend, cfg.Times(),
		experiment.WithLogger(logger),
		experiment.WithOracle(cfg.SolverOracle()),
		experiment.WithReferenceOracle(cfg.ReferenceOracle()),
		experiment.WithParallelism(cfg.Parallelism),
	)
}

// Runner executes scenarios. A nil Store disables archiving even for steps
// that ask for it.
type Runner struct {
	Logger *zap.Logger
	Store  *storage.Store
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the results of the steps that completed.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]StepResult, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Info("running step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("name", step.label()),
			zap.String("mode", step.Mode))

		res, err := r.runStep(ctx, step, logger)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.label(), err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, logger *zap.Logger) (StepResult, error) {
	cfg, err := step.Resolve()
	if err != nil {
		return StepResult{}, err
	}
	study, err := NewStudy(cfg, logger.With(zap.String("step", step.label())))
	if err != nil {
		return StepResult{}, err
	}
	ref, _, err := study.Reference(ctx)
	if err != nil {
		return StepResult{}, err
	}

	res := StepResult{Name: step.label(), Mode: step.Mode}
	if step.Mode == ModeSweep {
		res.Sweep, err = study.Sweep(ctx, cfg.Sweep, ref)
	} else {
		res.Runs, err = study.Compare(ctx, cfg.Solvers, ref)
	}
	if err != nil {
		return StepResult{}, err
	}

	if step.Save && r.Store != nil {
		if err := r.Store.Init(); err != nil {
			return StepResult{}, err
		}
		if step.Mode == ModeSweep {
			res.RunID, err = r.Store.SaveSweep(step.Preset, cfg, res.Sweep)
		} else {
			res.RunID, err = r.Store.SaveCompare(step.Preset, cfg, res.Runs)
		}
		if err != nil {
			return StepResult{}, fmt.Errorf("archive: %w", err)
		}
		logger.Info("run archived", zap.String("id", res.RunID))
	}
	return res, nil
}
