package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/pendulab/internal/dynamo"
)

var steppers = map[string]func() dynamo.Stepper{
	"euler":           func() dynamo.Stepper { return NewEuler() },
	"midpoint":        func() dynamo.Stepper { return NewMidpoint() },
	"rk4":             func() dynamo.Stepper { return NewRK4() },
	"velocity_verlet": func() dynamo.Stepper { return NewVelocityVerlet() },
	"stormer_verlet":  func() dynamo.Stepper { return NewStormerVerlet() },
}

// New returns a fresh stepper for a registered scheme name.
func New(name string) (dynamo.Stepper, error) {
	fn, ok := steppers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownScheme, name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(steppers))
	for name := range steppers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
