package experiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pendulab/internal/analysis"
	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/integrators"
	"github.com/san-kum/pendulab/internal/metrics"
	"github.com/san-kum/pendulab/internal/oracle"
	"github.com/san-kum/pendulab/internal/physics"
)

// SolverSpec selects one solver for a single-dt comparison. Dt is ignored
// for the reference oracle.
type SolverSpec struct {
	Scheme Scheme  `yaml:"scheme" json:"scheme"`
	Dt     float64 `yaml:"dt,omitempty" json:"dt,omitempty"`
}

// SweepSpec selects one fixed-step solver and the step sizes to sweep.
type SweepSpec struct {
	Scheme Scheme    `yaml:"scheme" json:"scheme"`
	Dts    []float64 `yaml:"dts" json:"dts"`
}

// Run is the outcome of one solver in a single-dt comparison.
type Run struct {
	Scheme     Scheme
	Dt         float64
	Trajectory dynamo.Trajectory
	AngleError []float64
	Energy     []float64
	MaxError   float64
	Elapsed    time.Duration
	Drift      metrics.Drift
	Diverged   bool
}

// SweepResult is the outcome of one solver in a step-size sweep. Costs and
// MaxErrors are aligned with Dts. Order is NaN when no slope can be fitted.
type SweepResult struct {
	Scheme    Scheme
	Dts       []float64
	Costs     []time.Duration
	MaxErrors []float64
	Order     float64
}

// Study runs solvers for one pendulum over one report grid.
type Study struct {
	sys         *physics.Pendulum
	times       []float64
	logger      *zap.Logger
	solverCfg   oracle.Config
	refCfg      oracle.Config
	parallelism int
}

type Option func(*Study)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Study) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOracle sets the tolerances of the reference oracle when it is run as
// one of the compared solvers.
func WithOracle(cfg oracle.Config) Option {
	return func(s *Study) { s.solverCfg = cfg }
}

// WithReferenceOracle sets the tolerances of the trusted reference used for
// the nonlinear pendulum.
func WithReferenceOracle(cfg oracle.Config) Option {
	return func(s *Study) { s.refCfg = cfg }
}

// WithParallelism bounds the number of solver sweeps running at once.
func WithParallelism(n int) Option {
	return func(s *Study) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New builds a study. The report grid must start at zero, where the
// pendulum's initial state is anchored.
func New(sys *physics.Pendulum, times []float64, opts ...Option) (*Study, error) {
	if sys == nil {
		return nil, fmt.Errorf("%w: nil pendulum", dynamo.ErrParameterBounds)
	}
	if err := dynamo.ValidateTimes(times); err != nil {
		return nil, err
	}
	if times[0] != 0 {
		return nil, fmt.Errorf("%w: grid must start at 0, got %v", dynamo.ErrInvalidTimes, times[0])
	}

	s := &Study{
		sys:         sys,
		times:       append([]float64(nil), times...),
		logger:      zap.NewNop(),
		solverCfg:   oracle.DefaultConfig(),
		refCfg:      oracle.Precise(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.solverCfg.Validate(); err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	if err := s.refCfg.Validate(); err != nil {
		return nil, fmt.Errorf("reference oracle: %w", err)
	}
	return s, nil
}

func (s *Study) System() *physics.Pendulum { return s.sys }

func (s *Study) Times() []float64 {
	return append([]float64(nil), s.times...)
}

// Reference builds the trusted trajectory: the closed form for the
// linearized pendulum and the precise oracle otherwise.
func (s *Study) Reference(ctx context.Context) (dynamo.Trajectory, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	ref, err := oracle.For(s.sys.SmallAngle(), s.refCfg)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	tr, err := ref.Trajectory(s.sys, s.sys.InitialState(), s.times)
	elapsed := time.Since(start)
	if err != nil {
		return nil, 0, fmt.Errorf("reference: %w", err)
	}

	fields := []zap.Field{
		zap.String("kind", referenceKind(ref)),
		zap.Any("params", s.sys.GetParams()),
		zap.Int("points", len(tr)),
		zap.Duration("elapsed", elapsed),
	}
	if dp, ok := ref.(*oracle.DormandPrince); ok {
		st := dp.Stats()
		fields = append(fields, zap.Int("accepted", st.Accepted), zap.Int("rejected", st.Rejected))
	}
	s.logger.Debug("reference built", fields...)

	return tr, elapsed, nil
}

func referenceKind(ref dynamo.Reference) string {
	if _, ok := ref.(oracle.Analytical); ok {
		return "analytical"
	}
	return "dormand_prince"
}

// Compare runs every solver once with its own dt and scores it against ref.
// Runs are sequential so that their wall-clock timings are comparable.
func (s *Study) Compare(ctx context.Context, specs []SolverSpec, ref dynamo.Trajectory) ([]Run, error) {
	if err := s.checkReference(ref); err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if err := s.checkSolverSpec(spec); err != nil {
			return nil, err
		}
	}

	runs := make([]Run, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run, err := s.run(spec, ref)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *Study) run(spec SolverSpec, ref dynamo.Trajectory) (Run, error) {
	integ, err := spec.Scheme.Integrator(spec.Dt, s.solverCfg)
	if err != nil {
		return Run{}, err
	}

	start := time.Now()
	tr, err := integ.Trajectory(s.sys, s.sys.InitialState(), s.times)
	elapsed := time.Since(start)
	if err != nil {
		return Run{}, fmt.Errorf("%s: %w", spec.Scheme, err)
	}

	angleErr, err := metrics.AngleError(tr, ref)
	if err != nil {
		return Run{}, err
	}
	energy, drift := metrics.TrajectoryEnergy(s.sys, tr, s.times)

	run := Run{
		Scheme:     spec.Scheme,
		Dt:         spec.Dt,
		Trajectory: tr,
		AngleError: angleErr,
		Energy:     energy,
		MaxError:   metrics.MaxAbs(angleErr),
		Elapsed:    elapsed,
		Drift:      drift,
		Diverged:   metrics.Diverged(tr, metrics.DefaultDivergenceLimit),
	}
	if spec.Scheme == ReferenceOracle {
		run.Dt = 0
	}

	s.logger.Info("solver run",
		zap.String("scheme", spec.Scheme.String()),
		zap.Float64("dt", run.Dt),
		zap.Duration("elapsed", elapsed),
		zap.Float64("max_error", run.MaxError),
		zap.Float64("energy_drift", run.Drift.Max))
	if run.Diverged {
		s.logger.Warn("solver diverged", zap.String("scheme", spec.Scheme.String()), zap.Float64("dt", run.Dt))
	}

	return run, nil
}

// Sweep runs every solver over its list of step sizes and fits the
// empirical convergence order. With parallelism above one, independent
// sweeps run concurrently; results keep the order of specs.
func (s *Study) Sweep(ctx context.Context, specs []SweepSpec, ref dynamo.Trajectory) ([]SweepResult, error) {
	if err := s.checkReference(ref); err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if !spec.Scheme.FixedStep() {
			return nil, fmt.Errorf("%w: %s cannot be swept over step sizes", dynamo.ErrInvalidStep, spec.Scheme)
		}
		if len(spec.Dts) == 0 {
			return nil, fmt.Errorf("%w: %s has no step sizes", dynamo.ErrInvalidStep, spec.Scheme)
		}
		for _, dt := range spec.Dts {
			if err := dynamo.ValidateStep(dt); err != nil {
				return nil, fmt.Errorf("%s: %w", spec.Scheme, err)
			}
		}
	}

	results := make([]SweepResult, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.sweep(spec, ref)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Study) sweep(spec SweepSpec, ref dynamo.Trajectory) (SweepResult, error) {
	stepper, err := spec.Scheme.Stepper()
	if err != nil {
		return SweepResult{}, err
	}

	costs, maxErrs, err := integrators.NewSolver(s.sys, stepper).ReturnError(s.times, spec.Dts, ref)
	if err != nil {
		return SweepResult{}, fmt.Errorf("%s: %w", spec.Scheme, err)
	}

	order, err := analysis.EmpiricalOrder(spec.Dts, maxErrs)
	if err != nil {
		order = math.NaN()
		s.logger.Warn("convergence order unavailable", zap.String("scheme", spec.Scheme.String()), zap.Error(err))
	}

	for i, dt := range spec.Dts {
		s.logger.Info("solver run",
			zap.String("scheme", spec.Scheme.String()),
			zap.Float64("dt", dt),
			zap.Duration("elapsed", costs[i]),
			zap.Float64("max_error", maxErrs[i]))
	}

	return SweepResult{
		Scheme:    spec.Scheme,
		Dts:       append([]float64(nil), spec.Dts...),
		Costs:     costs,
		MaxErrors: maxErrs,
		Order:     order,
	}, nil
}

func (s *Study) checkReference(ref dynamo.Trajectory) error {
	if len(ref) != len(s.times) {
		return fmt.Errorf("%w: reference has %d rows for %d report times", dynamo.ErrDimensionMismatch, len(ref), len(s.times))
	}
	return nil
}

func (s *Study) checkSolverSpec(spec SolverSpec) error {
	if !spec.Scheme.valid() {
		return fmt.Errorf("%w: %d", dynamo.ErrUnknownScheme, int(spec.Scheme))
	}
	if spec.Scheme == ReferenceOracle {
		return nil
	}
	if err := dynamo.ValidateStep(spec.Dt); err != nil {
		return fmt.Errorf("%s: %w", spec.Scheme, err)
	}
	return nil
}
