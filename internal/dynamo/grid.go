package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Linspace returns n evenly spaced report times from start to end inclusive.
func Linspace(start, end float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, end)
}

// ValidateTimes checks that times is a non-empty, finite, strictly
// increasing report grid.
func ValidateTimes(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: empty grid", ErrInvalidTimes)
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: times[%d] = %v", ErrInvalidTimes, i, t)
		}
		if i > 0 && t <= times[i-1] {
			return fmt.Errorf("%w: times[%d] = %v does not exceed times[%d] = %v", ErrInvalidTimes, i, t, i-1, times[i-1])
		}
	}
	return nil
}

// ValidateStep checks that dt is a usable fixed step.
func ValidateStep(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: dt must be positive and finite, got %v", ErrInvalidStep, dt)
	}
	return nil
}
