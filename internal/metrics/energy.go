package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// Drift summarizes how far a mechanical energy series wanders from its
// initial value.
type Drift struct {
	// Relative is |E − E₀|/|E₀| per sample (|E − E₀| when E₀ is zero).
	Relative []float64
	Max      float64
	Final    float64
	// Head and Tail are the maxima over the first and last tenth of the run.
	Head float64
	Tail float64
	// Growth is Tail/Head: close to 1 for bounded, oscillatory error and
	// large for secular drift.
	Growth float64
	// Trend is the least-squares slope of Relative against time.
	Trend float64
}

// TrajectoryEnergy evaluates the energy of every row of tr with the
// system's own energy functional and summarizes its drift.
func TrajectoryEnergy(h dynamo.Hamiltonian, tr dynamo.Trajectory, times []float64) ([]float64, Drift) {
	energy := h.EnergySeries(tr)
	return energy, EnergyDrift(energy, times)
}

// EnergyDrift computes the drift summary of energy sampled at times.
// times may be nil, in which case the sample index is used as abscissa.
func EnergyDrift(energy, times []float64) Drift {
	n := len(energy)
	if n == 0 {
		return Drift{Growth: 1}
	}

	e0 := energy[0]
	scale := math.Abs(e0)
	if scale == 0 {
		scale = 1
	}

	d := Drift{Relative: make([]float64, n)}
	for i, e := range energy {
		d.Relative[i] = math.Abs(e-e0) / scale
	}
	d.Max = MaxAbs(d.Relative)
	d.Final = d.Relative[n-1]

	w := n / 10
	if w < 1 {
		w = 1
	}
	d.Head = MaxAbs(d.Relative[:w])
	d.Tail = MaxAbs(d.Relative[n-w:])
	switch {
	case d.Head > 0:
		d.Growth = d.Tail / d.Head
	case d.Tail == 0:
		d.Growth = 1
	default:
		d.Growth = math.Inf(1)
	}

	if n >= 2 {
		x := times
		if len(x) != n {
			x = make([]float64, n)
			for i := range x {
				x[i] = float64(i)
			}
		}
		_, d.Trend = stat.LinearRegression(x, d.Relative, nil, false)
	}

	return d
}
