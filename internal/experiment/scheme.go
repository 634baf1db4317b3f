package experiment

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/integrators"
	"github.com/san-kum/pendulab/internal/oracle"
)

// Scheme names one way of producing a trajectory: a fixed-step scheme
// driven through integrators.Solver, or the adaptive reference oracle.
type Scheme int

const (
	Euler Scheme = iota
	Midpoint
	RK4
	VelocityVerlet
	StormerVerlet
	ReferenceOracle
)

var schemeNames = [...]string{
	Euler:           "euler",
	Midpoint:        "midpoint",
	RK4:             "rk4",
	VelocityVerlet:  "velocity_verlet",
	StormerVerlet:   "stormer_verlet",
	ReferenceOracle: "reference",
}

// Schemes lists every scheme in declaration order.
func Schemes() []Scheme {
	return []Scheme{Euler, Midpoint, RK4, VelocityVerlet, StormerVerlet, ReferenceOracle}
}

// ParseScheme accepts the canonical names plus a few common spellings.
func ParseScheme(name string) (Scheme, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch key {
	case "verlet":
		return VelocityVerlet, nil
	case "stormer", "störmer_verlet", "störmer":
		return StormerVerlet, nil
	case "rk45", "dopri", "dopri5", "odeint":
		return ReferenceOracle, nil
	}
	for s, n := range schemeNames {
		if n == key {
			return Scheme(s), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", dynamo.ErrUnknownScheme, name)
}

func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
	return schemeNames[s]
}

func (s Scheme) valid() bool {
	return s >= 0 && int(s) < len(schemeNames)
}

// Order is the nominal global order of accuracy. The reference oracle is
// fifth order with error control.
func (s Scheme) Order() int {
	switch s {
	case Euler:
		return 1
	case Midpoint, VelocityVerlet, StormerVerlet:
		return 2
	case RK4:
		return 4
	case ReferenceOracle:
		return 5
	}
	return 0
}

func (s Scheme) Symplectic() bool {
	return s == VelocityVerlet || s == StormerVerlet
}

// FixedStep reports whether the scheme takes a user supplied dt.
func (s Scheme) FixedStep() bool {
	return s.valid() && s != ReferenceOracle
}

// Stepper returns a fresh stepper for a fixed-step scheme.
func (s Scheme) Stepper() (dynamo.Stepper, error) {
	if !s.FixedStep() {
		return nil, fmt.Errorf("%w: %s has no fixed-step stepper", dynamo.ErrUnknownScheme, s)
	}
	return integrators.New(s.String())
}

// Integrator returns the trajectory producer of the scheme: a fresh
// fixed-step solver at dt, or the Dormand–Prince oracle with tolerances cfg
// for ReferenceOracle, which ignores dt.
func (s Scheme) Integrator(dt float64, cfg oracle.Config) (dynamo.Integrator, error) {
	if s == ReferenceOracle {
		dp, err := oracle.NewDormandPrince(cfg)
		if err != nil {
			return nil, err
		}
		return dp, nil
	}
	stepper, err := s.Stepper()
	if err != nil {
		return nil, err
	}
	return integrators.FixedStep{Stepper: stepper, Dt: dt}, nil
}

func (s Scheme) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", dynamo.ErrUnknownScheme, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Scheme) UnmarshalText(text []byte) error {
	parsed, err := ParseScheme(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Scheme) MarshalYAML() (interface{}, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", dynamo.ErrUnknownScheme, int(s))
	}
	return s.String(), nil
}

func (s *Scheme) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return fmt.Errorf("scheme at line %d: %w", value.Line, err)
	}
	return s.UnmarshalText([]byte(name))
}
