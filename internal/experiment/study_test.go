package experiment

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/oracle"
	"github.com/san-kum/pendulab/internal/physics"
)

func pendulum(small bool) *physics.Pendulum {
	p, err := physics.New(physics.Params{Length: 0.5, Gravity: 9.81, Theta0: math.Pi / 2, SmallAngle: small})
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Study", func() {
	var (
		ctx   context.Context
		times []float64
	)

	BeforeEach(func() {
		ctx = context.Background()
		times = dynamo.Linspace(0, 10, 1001)
	})

	Describe("New", func() {
		It("rejects a grid that does not start at zero", func() {
			_, err := New(pendulum(true), []float64{1, 2, 3})
			Expect(err).To(MatchError(dynamo.ErrInvalidTimes))
		})

		It("rejects malformed grids", func() {
			_, err := New(pendulum(true), []float64{0, 2, 1})
			Expect(err).To(MatchError(dynamo.ErrInvalidTimes))
			_, err = New(pendulum(true), nil)
			Expect(err).To(MatchError(dynamo.ErrInvalidTimes))
		})

		It("rejects a missing pendulum and bad tolerances", func() {
			_, err := New(nil, times)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
			_, err = New(pendulum(true), times, WithReferenceOracle(oracle.Config{}))
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("copies the grid", func() {
			grid := []float64{0, 1, 2}
			s, err := New(pendulum(true), grid)
			Expect(err).NotTo(HaveOccurred())
			grid[1] = 1.5
			Expect(s.Times()).To(Equal([]float64{0, 1, 2}))
		})
	})

	Describe("Reference", func() {
		It("uses the closed form for the linearized pendulum", func() {
			pend := pendulum(true)
			s, err := New(pend, times)
			Expect(err).NotTo(HaveOccurred())

			ref, _, err := s.Reference(ctx)
			Expect(err).NotTo(HaveOccurred())

			exact, _ := pend.Analytical(times)
			Expect(ref).To(Equal(exact))
		})

		It("integrates the nonlinear pendulum and logs the work", func() {
			core, logs := observer.New(zapcore.DebugLevel)
			s, err := New(pendulum(false), times, WithLogger(zap.New(core)))
			Expect(err).NotTo(HaveOccurred())

			ref, _, err := s.Reference(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref).To(HaveLen(len(times)))
			Expect(ref[0]).To(Equal(dynamo.State{math.Pi / 2, 0}))

			built := logs.FilterMessage("reference built").All()
			Expect(built).To(HaveLen(1))
			Expect(built[0].ContextMap()).To(HaveKeyWithValue("kind", "dormand_prince"))
		})

		It("honours cancellation", func() {
			s, _ := New(pendulum(false), times)
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, _, err := s.Reference(cancelled)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Compare", func() {
		It("meets the accuracy of the concrete scenario", func() {
			s, _ := New(pendulum(true), times)
			ref, _, _ := s.Reference(ctx)

			runs, err := s.Compare(ctx, []SolverSpec{{Scheme: RK4, Dt: 9e-3}}, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))

			run := runs[0]
			Expect(run.Trajectory).To(HaveLen(len(times)))
			Expect(run.AngleError).To(HaveLen(len(times)))
			Expect(run.Energy).To(HaveLen(len(times)))
			// RK4 at dt = 9e-3 measures 1.26e-6 rad over this scenario.
			Expect(run.MaxError).To(BeNumerically("<", 2e-6))
			Expect(run.Diverged).To(BeFalse())
			Expect(run.Elapsed).To(BeNumerically(">", 0))
		})

		It("keeps the order of the specs and logs every run", func() {
			core, logs := observer.New(zapcore.InfoLevel)
			s, _ := New(pendulum(true), times, WithLogger(zap.New(core)))
			ref, _, _ := s.Reference(ctx)

			specs := []SolverSpec{
				{Scheme: VelocityVerlet, Dt: 4e-4},
				{Scheme: Midpoint, Dt: 1e-4},
				{Scheme: ReferenceOracle, Dt: 123},
			}
			runs, err := s.Compare(ctx, specs, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(3))
			Expect(runs[0].Scheme).To(Equal(VelocityVerlet))
			Expect(runs[1].Scheme).To(Equal(Midpoint))
			Expect(runs[2].Scheme).To(Equal(ReferenceOracle))
			Expect(runs[2].Dt).To(BeZero())
			Expect(runs[2].MaxError).To(BeNumerically("<", 1e-5))

			entries := logs.FilterMessage("solver run").All()
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].ContextMap()).To(HaveKeyWithValue("scheme", "velocity_verlet"))
			Expect(entries[0].ContextMap()).To(HaveKey("max_error"))
		})

		It("ranks RK4 above smaller-step low-order schemes on the nonlinear pendulum", func() {
			s, _ := New(pendulum(false), times)
			ref, _, err := s.Reference(ctx)
			Expect(err).NotTo(HaveOccurred())

			runs, err := s.Compare(ctx, []SolverSpec{
				{Scheme: RK4, Dt: 9e-3},
				{Scheme: Midpoint, Dt: 1e-4},
				{Scheme: Euler, Dt: 1e-4},
			}, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs[0].MaxError).To(BeNumerically("<", runs[1].MaxError))
			Expect(runs[1].MaxError).To(BeNumerically("<", runs[2].MaxError))
		})

		It("bounds the energy error of the symplectic schemes", func() {
			s, _ := New(pendulum(false), times)
			ref, _, _ := s.Reference(ctx)

			runs, err := s.Compare(ctx, []SolverSpec{
				{Scheme: VelocityVerlet, Dt: 1e-2},
				{Scheme: StormerVerlet, Dt: 1e-2},
			}, ref)
			Expect(err).NotTo(HaveOccurred())
			for _, run := range runs {
				Expect(run.Drift.Growth).To(BeNumerically("<", 2), run.Scheme.String())
			}
		})

		It("rejects bad input before running anything", func() {
			core, logs := observer.New(zapcore.InfoLevel)
			s, _ := New(pendulum(true), times, WithLogger(zap.New(core)))
			ref, _, _ := s.Reference(ctx)

			_, err := s.Compare(ctx, []SolverSpec{{Scheme: RK4, Dt: 1e-2}, {Scheme: Euler, Dt: 0}}, ref)
			Expect(err).To(MatchError(dynamo.ErrInvalidStep))
			Expect(logs.Len()).To(BeZero())

			_, err = s.Compare(ctx, []SolverSpec{{Scheme: Scheme(42), Dt: 1e-2}}, ref)
			Expect(err).To(MatchError(dynamo.ErrUnknownScheme))

			_, err = s.Compare(ctx, []SolverSpec{{Scheme: RK4, Dt: 1e-2}}, ref[:10])
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("stops when the context is cancelled", func() {
			s, _ := New(pendulum(true), times)
			ref, _, _ := s.Reference(ctx)
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			runs, err := s.Compare(cancelled, []SolverSpec{{Scheme: RK4, Dt: 1e-2}}, ref)
			Expect(runs).To(BeNil())
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Sweep", func() {
		var (
			s   *Study
			ref dynamo.Trajectory
		)

		BeforeEach(func() {
			pend, err := physics.New(physics.Params{Length: 0.5, Gravity: 9.81, Theta0: 0.1, SmallAngle: true})
			Expect(err).NotTo(HaveOccurred())
			s, err = New(pend, dynamo.Linspace(0, 2, 21), WithParallelism(3))
			Expect(err).NotTo(HaveOccurred())
			ref, _, err = s.Reference(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("recovers the nominal orders in input order", func() {
			second := []float64{1e-2, 5e-3, 2.5e-3, 1.25e-3}
			specs := []SweepSpec{
				{Scheme: RK4, Dts: []float64{5e-2, 2.5e-2, 1.25e-2, 6.25e-3}},
				{Scheme: Euler, Dts: []float64{1e-3, 5e-4, 2.5e-4, 1.25e-4}},
				{Scheme: StormerVerlet, Dts: second},
				{Scheme: Midpoint, Dts: second},
				{Scheme: VelocityVerlet, Dts: second},
			}

			results, err := s.Sweep(ctx, specs, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(len(specs)))

			for i, res := range results {
				Expect(res.Scheme).To(Equal(specs[i].Scheme))
				Expect(res.Dts).To(Equal(specs[i].Dts))
				Expect(res.Costs).To(HaveLen(len(res.Dts)))
				Expect(res.MaxErrors).To(HaveLen(len(res.Dts)))
				Expect(res.Order).To(BeNumerically("~", float64(res.Scheme.Order()), 0.15), res.Scheme.String())
			}
		})

		It("rejects the reference oracle and empty step lists", func() {
			_, err := s.Sweep(ctx, []SweepSpec{{Scheme: ReferenceOracle, Dts: []float64{1e-2}}}, ref)
			Expect(err).To(MatchError(dynamo.ErrInvalidStep))

			_, err = s.Sweep(ctx, []SweepSpec{{Scheme: RK4}}, ref)
			Expect(err).To(MatchError(dynamo.ErrInvalidStep))

			_, err = s.Sweep(ctx, []SweepSpec{{Scheme: RK4, Dts: []float64{1e-2, -1}}}, ref)
			Expect(err).To(MatchError(dynamo.ErrInvalidStep))
		})

		It("reports NaN when a single step size leaves no slope", func() {
			results, err := s.Sweep(ctx, []SweepSpec{{Scheme: RK4, Dts: []float64{1e-2}}}, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(math.IsNaN(results[0].Order)).To(BeTrue())
		})

		It("stops when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Sweep(cancelled, []SweepSpec{{Scheme: RK4, Dts: []float64{1e-2}}}, ref)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
