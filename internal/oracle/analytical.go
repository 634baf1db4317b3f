package oracle

import (
	"fmt"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// closedForm is implemented by systems that can evaluate their exact
// solution from their own initial state.
type closedForm interface {
	dynamo.System
	Analytical(times []float64) (dynamo.Trajectory, error)
}

// Analytical serves the closed-form solution through the Reference contract.
type Analytical struct{}

func NewAnalytical() Analytical { return Analytical{} }

func (Analytical) Trajectory(sys dynamo.System, x0 dynamo.State, times []float64) (dynamo.Trajectory, error) {
	cf, ok := sys.(closedForm)
	if !ok {
		return nil, fmt.Errorf("%w: %T has no closed-form solution", dynamo.ErrSmallAngleRequired, sys)
	}
	if err := dynamo.CheckState(x0); err != nil {
		return nil, err
	}
	if err := dynamo.ValidateTimes(times); err != nil {
		return nil, err
	}

	init := cf.InitialState()
	if len(init) != len(x0) || init[0] != x0[0] || init[1] != x0[1] {
		return nil, fmt.Errorf("%w: closed form starts from %v, not %v", dynamo.ErrInvalidState, []float64(init), []float64(x0))
	}
	if times[0] != 0 {
		return nil, fmt.Errorf("%w: closed form is anchored at t=0, grid starts at %v", dynamo.ErrInvalidTimes, times[0])
	}

	return cf.Analytical(times)
}

// For picks the analytical oracle when the pendulum is linearized and a
// Dormand-Prince solver with cfg otherwise.
func For(smallAngle bool, cfg Config) (dynamo.Reference, error) {
	if smallAngle {
		return NewAnalytical(), nil
	}
	dp, err := NewDormandPrince(cfg)
	if err != nil {
		return nil, err
	}
	return dp, nil
}
