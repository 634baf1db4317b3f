package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// AngleError returns |θ − θ_ref| for every report time.
func AngleError(tr, ref dynamo.Trajectory) ([]float64, error) {
	if len(tr) != len(ref) {
		return nil, fmt.Errorf("%w: trajectory has %d rows, reference %d", dynamo.ErrDimensionMismatch, len(tr), len(ref))
	}
	out := make([]float64, len(tr))
	for i := range tr {
		out[i] = math.Abs(tr[i][0] - ref[i][0])
	}
	return out, nil
}

// MaxAbs returns the largest magnitude in series. A NaN entry means the
// solution diverged and is reported as +Inf so it cannot hide behind
// NaN comparison semantics.
func MaxAbs(series []float64) float64 {
	maxVal := 0.0
	for _, v := range series {
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		maxVal = math.Max(maxVal, math.Abs(v))
	}
	return maxVal
}
