package dynamo

import (
	"fmt"
	"math"
)

// StateDim is the only state dimension supported: angle and angular velocity.
const StateDim = 2

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CheckState reports whether x is a finite two-element state.
func CheckState(x State) error {
	if len(x) != StateDim {
		return fmt.Errorf("%w: expected %d components, got %d", ErrInvalidState, StateDim, len(x))
	}
	if !x.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidState, []float64(x))
	}
	return nil
}

// Trajectory holds one state per report time.
type Trajectory []State

func (tr Trajectory) Len() int { return len(tr) }

// Column extracts component i of every state, e.g. Column(0) for the angles.
func (tr Trajectory) Column(i int) []float64 {
	col := make([]float64, len(tr))
	for k, x := range tr {
		if i < len(x) {
			col[k] = x[i]
		}
	}
	return col
}

// Angles is shorthand for Column(0).
func (tr Trajectory) Angles() []float64 { return tr.Column(0) }

func (tr Trajectory) Clone() Trajectory {
	c := make(Trajectory, len(tr))
	for i, x := range tr {
		c[i] = x.Clone()
	}
	return c
}

// System is a time-invariant or time-varying vector field dX/dt = f(X, t).
// t is passed for compatibility with general-purpose solvers even when unused.
type System interface {
	Derive(x State, t float64) State
	InitialState() State
}

// Accelerator is implemented by systems whose acceleration depends on the
// position only. The Verlet family uses it to skip the velocity slot.
type Accelerator interface {
	Accelerate(theta, t float64) float64
}

// Hamiltonian is implemented by systems with a conserved mechanical energy.
// EnergySeries is the batch form of Energy over a whole trajectory.
type Hamiltonian interface {
	Energy(x State) float64
	EnergySeries(tr Trajectory) []float64
}

// Stepper advances a state by one fixed step dt from time t.
type Stepper interface {
	Step(sys System, x State, t, dt float64) State
}

// Resetter is implemented by steppers that carry history between steps.
type Resetter interface {
	Reset()
}

// Integrator produces a trajectory sampled at arbitrary report times.
type Integrator interface {
	Trajectory(sys System, x0 State, times []float64) (Trajectory, error)
}

// Reference is an Integrator whose output is trusted as ground truth.
type Reference interface {
	Integrator
}

// StepError wraps a failure with the step and time at which it happened.
type StepError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
