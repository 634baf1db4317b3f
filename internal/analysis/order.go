package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// EmpiricalOrder fits log(err) = a + p·log(dt) by least squares and returns
// p. Pairs with a non-positive or non-finite error are skipped: an error of
// zero carries no slope information and a diverged run is off the
// asymptotic regime. At least two usable pairs are required.
func EmpiricalOrder(dts, errs []float64) (float64, error) {
	if len(dts) != len(errs) {
		return 0, fmt.Errorf("%w: %d step sizes, %d errors", dynamo.ErrDimensionMismatch, len(dts), len(errs))
	}

	var lx, ly []float64
	for i := range dts {
		if !usable(dts[i]) || !usable(errs[i]) {
			continue
		}
		lx = append(lx, math.Log(dts[i]))
		ly = append(ly, math.Log(errs[i]))
	}
	if len(lx) < 2 {
		return 0, fmt.Errorf("%w: need at least two positive finite (dt, error) pairs, got %d", ErrInsufficientData, len(lx))
	}
	if distinct(lx) < 2 {
		return 0, fmt.Errorf("%w: all step sizes are equal", ErrInsufficientData)
	}

	_, p := stat.LinearRegression(lx, ly, nil, false)
	return p, nil
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
