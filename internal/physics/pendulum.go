package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/pendulab/internal/dynamo"
)

const (
	DefaultLength  = 0.5
	DefaultGravity = 9.81
)

// Params describes one physical scenario. Angles are in radians.
type Params struct {
	Length     float64
	Gravity    float64
	Theta0     float64
	Omega0     float64
	SmallAngle bool
}

// Validate checks the parameter bounds.
func (p Params) Validate() error {
	if !(p.Length > 0) || math.IsInf(p.Length, 0) {
		return fmt.Errorf("%w: length must be positive, got %v", dynamo.ErrParameterBounds, p.Length)
	}
	if !(p.Gravity > 0) || math.IsInf(p.Gravity, 0) {
		return fmt.Errorf("%w: gravity must be positive, got %v", dynamo.ErrParameterBounds, p.Gravity)
	}
	if math.IsNaN(p.Theta0) || math.IsInf(p.Theta0, 0) {
		return fmt.Errorf("%w: theta0 must be finite, got %v", dynamo.ErrParameterBounds, p.Theta0)
	}
	if math.IsNaN(p.Omega0) || math.IsInf(p.Omega0, 0) {
		return fmt.Errorf("%w: omega0 must be finite, got %v", dynamo.ErrParameterBounds, p.Omega0)
	}
	return nil
}

// Pendulum is an undamped planar pendulum, optionally linearized.
// It is immutable once built.
type Pendulum struct {
	p  Params
	w2 float64 // g/L
}

func New(p Params) (*Pendulum, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Pendulum{p: p, w2: p.Gravity / p.Length}, nil
}

func (p *Pendulum) Params() Params { return p.p }

func (p *Pendulum) SmallAngle() bool { return p.p.SmallAngle }

func (p *Pendulum) InitialState() dynamo.State {
	return dynamo.State{p.p.Theta0, p.p.Omega0}
}

// NaturalFrequency returns sqrt(g/L) in rad/s.
func (p *Pendulum) NaturalFrequency() float64 {
	return math.Sqrt(p.w2)
}

// Period returns the small-oscillation period 2π·sqrt(L/g).
func (p *Pendulum) Period() float64 {
	return 2 * math.Pi / p.NaturalFrequency()
}

func (p *Pendulum) Accelerate(theta, t float64) float64 {
	if p.p.SmallAngle {
		return -p.w2 * theta
	}
	return -p.w2 * math.Sin(theta)
}

func (p *Pendulum) Derive(x dynamo.State, t float64) dynamo.State {
	theta := x[0]
	omega := x[1]
	return dynamo.State{omega, p.Accelerate(theta, t)}
}

// Analytical evaluates the closed-form small-angle solution at every
// report time.
func (p *Pendulum) Analytical(times []float64) (dynamo.Trajectory, error) {
	if !p.p.SmallAngle {
		return nil, fmt.Errorf("%w: build the pendulum with SmallAngle set or use a numerical reference", dynamo.ErrSmallAngleRequired)
	}

	w0 := p.NaturalFrequency()
	theta0, omega0 := p.p.Theta0, p.p.Omega0
	tr := make(dynamo.Trajectory, len(times))
	for i, t := range times {
		s, c := math.Sincos(w0 * t)
		tr[i] = dynamo.State{
			theta0*c + omega0/w0*s,
			-w0*theta0*s + omega0*c,
		}
	}
	return tr, nil
}

// Energy returns the mechanical energy per unit mass. The linearized model
// uses the harmonic potential ½gLθ², the full model gL(1 − cos θ); both
// are zero at the lowest point.
func (p *Pendulum) Energy(x dynamo.State) float64 {
	v := p.p.Length * x[1]
	ke := 0.5 * v * v
	if p.p.SmallAngle {
		return ke + 0.5*p.p.Gravity*p.p.Length*x[0]*x[0]
	}
	return ke - p.p.Gravity*p.p.Length*(math.Cos(x[0])-1.0)
}

// EnergySeries evaluates Energy for every state of a trajectory.
func (p *Pendulum) EnergySeries(tr dynamo.Trajectory) []float64 {
	out := make([]float64, len(tr))
	for i, x := range tr {
		out[i] = p.Energy(x)
	}
	return out
}

func (p *Pendulum) GetParams() map[string]float64 {
	small := 0.0
	if p.p.SmallAngle {
		small = 1.0
	}
	return map[string]float64{
		"length":      p.p.Length,
		"gravity":     p.p.Gravity,
		"theta0":      p.p.Theta0,
		"omega0":      p.p.Omega0,
		"small_angle": small,
	}
}
