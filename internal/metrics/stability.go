package metrics

import (
	"math"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// DefaultDivergenceLimit flags trajectories whose angle or angular velocity
// leaves any physically meaningful range for a pendulum released from rest.
const DefaultDivergenceLimit = 1e6

// Diverged reports whether any state is non-finite or has a component
// whose magnitude exceeds limit.
func Diverged(tr dynamo.Trajectory, limit float64) bool {
	for _, x := range tr {
		if !x.IsValid() {
			return true
		}
		for _, v := range x {
			if math.Abs(v) > limit {
				return true
			}
		}
	}
	return false
}
