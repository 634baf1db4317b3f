// Package analysis characterizes solver output beyond pointwise error.
//
//   - [EmpiricalOrder]: convergence order from a step-size sweep
//   - [DominantFrequency] and [PowerSpectrum]: FFT of a uniformly sampled series
//   - [EstimatePeriod] and [Crossings]: interpolated threshold crossings
//   - [NewPhasePortrait]: (θ, ω) projection with an ASCII renderer
//
// # Convergence Order
//
// The slope of log(max error) against log(dt) should match the nominal
// order of the scheme while the error stays above round-off:
//
//	p, err := analysis.EmpiricalOrder(result.Dts, result.MaxErrors)
package analysis
