// Package oracle produces the trusted trajectories that fixed-step schemes
// are measured against.
//
// [Analytical] evaluates the closed-form small-angle solution. [DormandPrince]
// is an adaptive embedded 5(4) Runge-Kutta solver for everything else; its
// [Precise] configuration is accurate to well below the errors being
// measured, so differences against it are attributed to the scheme under
// study.
//
//	dp, _ := oracle.NewDormandPrince(oracle.Precise())
//	ref, err := dp.Trajectory(pend, pend.InitialState(), times)
package oracle
