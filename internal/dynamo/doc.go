// Package dynamo provides the core contracts shared by the pendulum study.
//
// The package defines the types every other package speaks:
//
//   - [State]: the (angle, angular velocity) pair of a planar pendulum
//   - [Trajectory]: one [State] per report time
//   - [System]: a second-order mechanical system written as dX/dt = f(X, t)
//   - [Stepper]: a fixed-step integrator advancing a [State] by one step
//   - [Reference]: a trusted trajectory source (closed form or oracle)
//
// # Example
//
//	pend, _ := physics.New(physics.Params{Length: 0.5, Gravity: 9.81, Theta0: math.Pi / 2})
//	solver := integrators.NewSolver(pend, integrators.NewRK4())
//	tr, _ := solver.Solve(pend.InitialState(), dynamo.Linspace(0, 10, 1001), 9e-3)
//
// # Thread Safety
//
// Steppers may keep scratch buffers or step history and are NOT safe for
// concurrent use. Systems are immutable and may be shared freely.
package dynamo
