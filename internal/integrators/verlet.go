package integrators

import "github.com/san-kum/pendulab/internal/dynamo"

// acceleration evaluates the position-dependent acceleration, falling back
// to the velocity slot of the full derivative for plain systems.
func acceleration(sys dynamo.System, theta, omega, t float64) float64 {
	if acc, ok := sys.(dynamo.Accelerator); ok {
		return acc.Accelerate(theta, t)
	}
	return sys.Derive(dynamo.State{theta, omega}, t)[1]
}

// VelocityVerlet is the symplectic position/velocity split scheme for
// systems whose acceleration depends on position only.
type VelocityVerlet struct{}

func NewVelocityVerlet() *VelocityVerlet {
	return &VelocityVerlet{}
}

func (v *VelocityVerlet) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	theta, omega := x[0], x[1]

	a := acceleration(sys, theta, omega, t)
	next := theta + omega*dt + 0.5*a*dt*dt
	aNext := acceleration(sys, next, omega, t+dt)

	return dynamo.State{next, omega + 0.5*dt*(a+aNext)}
}

// StormerVerlet advances the position with the two-term recurrence
//
//	θₙ₊₁ = θₙ + (h/hₙ₋₁)(θₙ − θₙ₋₁) + ½h(h + hₙ₋₁)·a(θₙ)
//
// which is 2θₙ − θₙ₋₁ + h²a(θₙ) at constant step. The recurrence is carried
// in leapfrog form: vₙ₊½ = vₙ₋½ + ½(h + hₙ₋₁)·a(θₙ) and θₙ₊₁ = θₙ + h·vₙ₊½,
// where vₙ₋½ = (θₙ − θₙ₋₁)/hₙ₋₁. Differencing the positions directly loses
// digits after a very short sub-step. The first step after a reset is a
// second-order Taylor start.
type StormerVerlet struct {
	curr   float64
	vHalf  float64
	prevDt float64
	primed bool
}

func NewStormerVerlet() *StormerVerlet {
	return &StormerVerlet{}
}

func (s *StormerVerlet) Reset() {
	s.primed = false
	s.curr, s.vHalf, s.prevDt = 0, 0, 0
}

func (s *StormerVerlet) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	theta, omega := x[0], x[1]
	a := acceleration(sys, theta, omega, t)

	var v float64
	// History only applies when continuing from the state this stepper produced.
	if s.primed && theta == s.curr {
		v = s.vHalf + 0.5*(dt+s.prevDt)*a
	} else {
		v = omega + 0.5*dt*a
	}
	next := theta + dt*v

	s.curr, s.vHalf, s.prevDt, s.primed = next, v, dt, true

	aNext := acceleration(sys, next, omega, t+dt)
	return dynamo.State{next, v + 0.5*dt*aNext}
}
