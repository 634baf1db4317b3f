// Package optim searches solver settings against an accuracy target.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/experiment"
)

// Calibration is the outcome of a step search for one scheme. When Found
// is false, Dt and MaxError describe the finest step tried.
type Calibration struct {
	Scheme   experiment.Scheme
	Target   float64
	Dt       float64
	MaxError float64
	Elapsed  time.Duration
	Tried    int
	Found    bool
}

// StepSearch walks a grid of candidate step sizes from coarse to fine and
// stops at the first one whose max error meets the target.
type StepSearch struct {
	dts []float64
}

func NewStepSearch(dts []float64) (*StepSearch, error) {
	if len(dts) == 0 {
		return nil, fmt.Errorf("%w: no candidate step sizes", dynamo.ErrInvalidStep)
	}
	for _, dt := range dts {
		if err := dynamo.ValidateStep(dt); err != nil {
			return nil, err
		}
	}

	sorted := append([]float64(nil), dts...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	uniq := sorted[:1]
	for _, dt := range sorted[1:] {
		if dt != uniq[len(uniq)-1] {
			uniq = append(uniq, dt)
		}
	}
	return &StepSearch{dts: uniq}, nil
}

// LogGrid returns n step sizes evenly spaced in log from coarse to fine.
func LogGrid(coarse, fine float64, n int) ([]float64, error) {
	if err := dynamo.ValidateStep(coarse); err != nil {
		return nil, err
	}
	if err := dynamo.ValidateStep(fine); err != nil {
		return nil, err
	}
	if n < 2 || fine >= coarse {
		return nil, fmt.Errorf("%w: need fine < coarse and at least 2 points", dynamo.ErrInvalidStep)
	}
	return floats.LogSpan(make([]float64, n), coarse, fine), nil
}

// Steps returns the candidates in search order.
func (g *StepSearch) Steps() []float64 {
	return append([]float64(nil), g.dts...)
}

// Search calibrates every scheme against ref. Diverged runs never meet the
// target.
func (g *StepSearch) Search(ctx context.Context, study *experiment.Study, schemes []experiment.Scheme, ref dynamo.Trajectory, target float64) ([]Calibration, error) {
	if !(target > 0) || math.IsInf(target, 0) {
		return nil, fmt.Errorf("%w: target must be positive and finite, got %v", dynamo.ErrParameterBounds, target)
	}
	for _, s := range schemes {
		if !s.FixedStep() {
			return nil, fmt.Errorf("%w: %s has no step size to calibrate", dynamo.ErrInvalidStep, s)
		}
	}

	out := make([]Calibration, 0, len(schemes))
	for _, s := range schemes {
		cal, err := g.search(ctx, study, s, ref, target)
		if err != nil {
			return nil, err
		}
		out = append(out, cal)
	}
	return out, nil
}

func (g *StepSearch) search(ctx context.Context, study *experiment.Study, s experiment.Scheme, ref dynamo.Trajectory, target float64) (Calibration, error) {
	cal := Calibration{Scheme: s, Target: target}
	for _, dt := range g.dts {
		runs, err := study.Compare(ctx, []experiment.SolverSpec{{Scheme: s, Dt: dt}}, ref)
		if err != nil {
			return Calibration{}, err
		}
		r := runs[0]

		cal.Tried++
		cal.Dt, cal.MaxError, cal.Elapsed = dt, r.MaxError, r.Elapsed
		if !r.Diverged && r.MaxError <= target {
			cal.Found = true
			return cal, nil
		}
	}
	return cal, nil
}
