package integrators

import "github.com/san-kum/pendulab/internal/dynamo"

// Midpoint is the explicit midpoint method, second order.
type Midpoint struct {
	scratch dynamo.State
}

func NewMidpoint() *Midpoint {
	return &Midpoint{}
}

func (m *Midpoint) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	if len(m.scratch) != n {
		m.scratch = make(dynamo.State, n)
	}

	k1 := sys.Derive(x, t)
	for i := 0; i < n; i++ {
		m.scratch[i] = x[i] + 0.5*dt*k1[i]
	}
	k2 := sys.Derive(m.scratch, t+0.5*dt)

	result := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt*k2[i]
	}
	return result
}
