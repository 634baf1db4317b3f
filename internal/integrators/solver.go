package integrators

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/metrics"
)

// stepSlack absorbs round-off when dt divides a report interval, so that
// an interval of exactly n steps is not given a vanishing extra sub-step.
const stepSlack = 1e-9

// Solver binds a system to a fixed-step scheme and produces trajectories
// sampled exactly on a report grid.
type Solver struct {
	sys     dynamo.System
	stepper dynamo.Stepper
}

func NewSolver(sys dynamo.System, stepper dynamo.Stepper) *Solver {
	return &Solver{sys: sys, stepper: stepper}
}

func (s *Solver) System() dynamo.System { return s.sys }

// FixedStep binds a stepper to one step size, giving it the same
// dynamo.Integrator contract as the reference oracles.
type FixedStep struct {
	Stepper dynamo.Stepper
	Dt      float64
}

func (f FixedStep) Trajectory(sys dynamo.System, x0 dynamo.State, times []float64) (dynamo.Trajectory, error) {
	return NewSolver(sys, f.Stepper).Solve(x0, times, f.Dt)
}

// Solve integrates from times[0] to the last report time with internal step
// dt. Each report interval is covered by full steps of dt followed by one
// shortened sub-step landing exactly on the next report time. The returned
// trajectory has one row per report time and row 0 is a copy of x0.
//
// Divergence is not an error: non-finite states are returned as computed.
func (s *Solver) Solve(x0 dynamo.State, times []float64, dt float64) (dynamo.Trajectory, error) {
	if err := dynamo.CheckState(x0); err != nil {
		return nil, err
	}
	if err := dynamo.ValidateTimes(times); err != nil {
		return nil, err
	}
	if err := dynamo.ValidateStep(dt); err != nil {
		return nil, err
	}

	if r, ok := s.stepper.(dynamo.Resetter); ok {
		r.Reset()
	}

	tr := make(dynamo.Trajectory, len(times))
	tr[0] = x0.Clone()

	x := x0.Clone()
	for i := 1; i < len(times); i++ {
		t0 := times[i-1]
		span := times[i] - t0
		n := subSteps(span, dt)

		for k := 0; k < n-1; k++ {
			x = s.stepper.Step(s.sys, x, t0+float64(k)*dt, dt)
		}
		last := float64(n - 1)
		x = s.stepper.Step(s.sys, x, t0+last*dt, span-last*dt)

		tr[i] = x
	}

	return tr, nil
}

func subSteps(span, dt float64) int {
	n := int(math.Ceil(span/dt - stepSlack))
	if n < 1 {
		n = 1
	}
	return n
}

// ReturnError runs Solve from the system's initial state once per step size
// and reports the wall-clock cost and the maximum absolute angle error
// against ref for each, aligned with dts.
func (s *Solver) ReturnError(times, dts []float64, ref dynamo.Trajectory) ([]time.Duration, []float64, error) {
	if len(ref) != len(times) {
		return nil, nil, fmt.Errorf("%w: reference has %d rows for %d report times", dynamo.ErrDimensionMismatch, len(ref), len(times))
	}

	x0 := s.sys.InitialState()
	costs := make([]time.Duration, 0, len(dts))
	maxErrs := make([]float64, 0, len(dts))

	for _, dt := range dts {
		start := time.Now()
		tr, err := s.Solve(x0, times, dt)
		elapsed := time.Since(start)
		if err != nil {
			return nil, nil, fmt.Errorf("dt=%g: %w", dt, err)
		}

		angleErr, err := metrics.AngleError(tr, ref)
		if err != nil {
			return nil, nil, err
		}

		costs = append(costs, elapsed)
		maxErrs = append(maxErrs, metrics.MaxAbs(angleErr))
	}

	return costs, maxErrs, nil
}
