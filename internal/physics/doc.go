// Package physics provides the mechanical systems studied by pendulab.
//
// [Pendulum] implements [dynamo.System], [dynamo.Accelerator] and
// [dynamo.Hamiltonian]. The small-angle flag switches the dynamics, the
// energy functional and the availability of the closed-form solution
// together, so a trajectory is always diagnosed with the energy of the
// model that produced it.
//
// # Energy Conservation
//
//	pend, _ := physics.New(physics.Params{Length: 0.5, Gravity: 9.81, Theta0: 0.3})
//	energy := pend.EnergySeries(trajectory)
package physics
