package oracle

import (
	"fmt"
	"math"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// Dormand-Prince 5(4) tableau
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

const (
	// odeint's default tolerance, sqrt of the float64 epsilon.
	defaultTol      = 1.49012e-8
	DefaultMaxSteps = 1_000_000
)

// Config holds the error controller settings. Zero InitialStep, MaxStep and
// MinStep select automatic values.
type Config struct {
	AbsTol      float64 `yaml:"abs_tol" json:"abs_tol"`
	RelTol      float64 `yaml:"rel_tol" json:"rel_tol"`
	InitialStep float64 `yaml:"initial_step,omitempty" json:"initial_step,omitempty"`
	MaxStep     float64 `yaml:"max_step,omitempty" json:"max_step,omitempty"`
	MinStep     float64 `yaml:"min_step,omitempty" json:"min_step,omitempty"`
	MaxSteps    int     `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`
}

func DefaultConfig() Config {
	return Config{AbsTol: defaultTol, RelTol: defaultTol, MaxSteps: DefaultMaxSteps}
}

// Precise is the configuration used for trusted reference trajectories.
func Precise() Config {
	return Config{AbsTol: 1e-12, RelTol: 1e-12, MaxSteps: 10 * DefaultMaxSteps}
}

func (c Config) Validate() error {
	if !(c.AbsTol > 0) || !(c.RelTol > 0) || math.IsInf(c.AbsTol, 0) || math.IsInf(c.RelTol, 0) {
		return fmt.Errorf("%w: tolerances must be positive, got abs=%v rel=%v", dynamo.ErrParameterBounds, c.AbsTol, c.RelTol)
	}
	if c.InitialStep < 0 || c.MaxStep < 0 || c.MinStep < 0 || c.MaxSteps < 0 {
		return fmt.Errorf("%w: step limits must not be negative", dynamo.ErrParameterBounds)
	}
	if c.MaxStep > 0 && c.MinStep > c.MaxStep {
		return fmt.Errorf("%w: min step %v exceeds max step %v", dynamo.ErrParameterBounds, c.MinStep, c.MaxStep)
	}
	return nil
}

// Stats counts the work done by the last Trajectory call.
type Stats struct {
	Accepted    int
	Rejected    int
	Evaluations int
}

// DormandPrince is an adaptive embedded RK5(4) solver with first-same-as-last
// stage reuse. Steps are clipped so that every report time is hit exactly.
// It is not safe for concurrent use.
type DormandPrince struct {
	cfg      Config
	safety   float64
	minScale float64
	maxScale float64
	stats    Stats
}

func NewDormandPrince(cfg Config) (*DormandPrince, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	return &DormandPrince{
		cfg:      cfg,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}, nil
}

func (d *DormandPrince) Config() Config { return d.cfg }

func (d *DormandPrince) Stats() Stats { return d.stats }

func (d *DormandPrince) Trajectory(sys dynamo.System, x0 dynamo.State, times []float64) (dynamo.Trajectory, error) {
	if err := dynamo.CheckState(x0); err != nil {
		return nil, err
	}
	if err := dynamo.ValidateTimes(times); err != nil {
		return nil, err
	}

	d.stats = Stats{}
	tr := make(dynamo.Trajectory, len(times))
	tr[0] = x0.Clone()
	if len(times) == 1 {
		return tr, nil
	}

	t := times[0]
	x := x0.Clone()
	k1 := sys.Derive(x, t)
	d.stats.Evaluations++

	h := d.cfg.InitialStep
	if h == 0 {
		h = d.initialStep(x, k1)
	}
	h = d.capStep(h)

	for i := 1; i < len(times); i++ {
		target := times[i]
		for t < target {
			if d.stats.Accepted+d.stats.Rejected >= d.cfg.MaxSteps {
				return nil, &dynamo.StepError{Step: d.stats.Accepted, Time: t, State: x.Clone(), Wrapped: dynamo.ErrTooManySteps}
			}

			hh, last := h, false
			if t+hh >= target {
				hh, last = target-t, true
			}
			if !last && hh < d.minStep(t) {
				return nil, &dynamo.StepError{Step: d.stats.Accepted, Time: t, State: x.Clone(), Wrapped: dynamo.ErrStepTooSmall}
			}

			xNew, k7, errNorm := d.attempt(sys, x, k1, t, hh)

			if errNorm <= 1 {
				d.stats.Accepted++
				if last {
					t = target
				} else {
					t += hh
				}
				x, k1 = xNew, k7

				factor := d.growth(errNorm)
				switch {
				case !last:
					h = hh * factor
				case factor < 1:
					h = math.Min(h, hh*factor)
				}
				h = d.capStep(h)
				continue
			}

			d.stats.Rejected++
			h = hh * math.Max(d.minScale, d.safety*math.Pow(errNorm, -0.2))
		}

		if !x.IsValid() {
			return nil, &dynamo.StepError{Step: d.stats.Accepted, Time: t, State: x.Clone(), Wrapped: dynamo.ErrUnstable}
		}
		tr[i] = x.Clone()
	}

	return tr, nil
}

// attempt takes one trial step of size h and returns the fifth-order
// solution, its derivative and the RMS of the scaled error estimate.
func (d *DormandPrince) attempt(sys dynamo.System, x, k1 dynamo.State, t, h float64) (dynamo.State, dynamo.State, float64) {
	n := len(x)
	tmp := make(dynamo.State, n)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*b21*k1[i]
	}
	k2 := sys.Derive(tmp, t+a2*h)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*(b31*k1[i]+b32*k2[i])
	}
	k3 := sys.Derive(tmp, t+a3*h)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := sys.Derive(tmp, t+a4*h)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := sys.Derive(tmp, t+a5*h)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := sys.Derive(tmp, t+h)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}
	k7 := sys.Derive(xNew, t+h)
	d.stats.Evaluations += 6

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		sc := d.cfg.AbsTol + d.cfg.RelTol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		sum += (errEst / sc) * (errEst / sc)
	}
	errNorm := math.Sqrt(sum / float64(n))
	if math.IsNaN(errNorm) {
		errNorm = math.Inf(1)
	}

	return xNew, k7, errNorm
}

func (d *DormandPrince) growth(errNorm float64) float64 {
	if errNorm == 0 {
		return d.maxScale
	}
	return math.Min(d.maxScale, math.Max(d.minScale, d.safety*math.Pow(errNorm, -0.2)))
}

// initialStep follows the usual two-norm heuristic: a step of one percent
// of |x|/|f|, falling back to 1e-6 when either is tiny.
func (d *DormandPrince) initialStep(x, f dynamo.State) float64 {
	d0, d1 := 0.0, 0.0
	for i := range x {
		sc := d.cfg.AbsTol + d.cfg.RelTol*math.Abs(x[i])
		d0 += (x[i] / sc) * (x[i] / sc)
		d1 += (f[i] / sc) * (f[i] / sc)
	}
	d0 = math.Sqrt(d0 / float64(len(x)))
	d1 = math.Sqrt(d1 / float64(len(x)))

	if d0 < 1e-5 || d1 < 1e-5 {
		return 1e-6
	}
	return 0.01 * d0 / d1
}

func (d *DormandPrince) capStep(h float64) float64 {
	if d.cfg.MaxStep > 0 && h > d.cfg.MaxStep {
		return d.cfg.MaxStep
	}
	return h
}

func (d *DormandPrince) minStep(t float64) float64 {
	if d.cfg.MinStep > 0 {
		return d.cfg.MinStep
	}
	return 16 * 0x1p-52 * math.Max(1, math.Abs(t))
}
