package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/pendulab/internal/analysis"
	"github.com/san-kum/pendulab/internal/automation"
	"github.com/san-kum/pendulab/internal/experiment"
	"github.com/san-kum/pendulab/internal/optim"
	"github.com/san-kum/pendulab/internal/report"
	"github.com/san-kum/pendulab/internal/storage"
)

const (
	phaseWidth  = 60
	phaseHeight = 20
)

func runCompare(cmd *cobra.Command, args []string, opts *options) error {
	if err := loadOutputFlags(cmd, opts); err != nil {
		return err
	}
	if err := checkFormat(opts.format, formatTable, formatCSV, formatJSON); err != nil {
		return err
	}
	cfg, preset, err := resolveConfig(cmd, args, opts)
	if err != nil {
		return err
	}
	if len(cfg.Solvers) == 0 {
		return fmt.Errorf("no solvers configured")
	}

	study, err := automation.NewStudy(cfg, opts.logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ref, _, err := study.Reference(ctx)
	if err != nil {
		return err
	}
	runs, err := study.Compare(ctx, cfg.Solvers, ref)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case formatCSV:
		err = report.WriteRunsCSV(out, study.Times(), runs)
	case formatJSON:
		err = report.WriteJSON(out, report.NewCompareData(cfg.Params(), study.Times(), runs))
	default:
		err = writeCompareTable(out, runs, opts)
	}
	if err != nil {
		return err
	}

	if opts.svg != "" {
		if err := writeFigure(opts.svg, "log10 angle error vs time", report.ErrorSeries(study.Times(), runs)); err != nil {
			return err
		}
	}
	if opts.save {
		return archive(opts, func(st *storage.Store) (string, error) {
			return st.SaveCompare(preset, cfg, runs)
		})
	}
	return nil
}

func writeCompareTable(w io.Writer, runs []experiment.Run, opts *options) error {
	if err := report.WriteSummary(w, runs); err != nil {
		return err
	}
	if opts.plot {
		fmt.Fprintln(w)
		if err := report.PlotErrors(w, runs); err != nil {
			return err
		}
		if err := report.PlotEnergy(w, runs); err != nil {
			return err
		}
	}
	if opts.phase {
		for _, r := range runs {
			portrait, err := analysis.NewPhasePortrait(r.Trajectory, 0, 1)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\nphase portrait %s\n", report.Label(r.Scheme, r.Dt))
			fmt.Fprint(w, portrait.ASCII(phaseWidth, phaseHeight))
		}
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string, opts *options) error {
	if err := loadOutputFlags(cmd, opts); err != nil {
		return err
	}
	if err := checkFormat(opts.format, formatTable, formatCSV, formatJSON); err != nil {
		return err
	}
	cfg, preset, err := resolveConfig(cmd, args, opts)
	if err != nil {
		return err
	}
	if len(cfg.Sweep) == 0 {
		return fmt.Errorf("no sweep configured")
	}

	study, err := automation.NewStudy(cfg, opts.logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ref, _, err := study.Reference(ctx)
	if err != nil {
		return err
	}
	results, err := study.Sweep(ctx, cfg.Sweep, ref)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case formatCSV:
		err = report.WriteSweepCSV(out, results)
	case formatJSON:
		err = report.WriteJSON(out, report.NewSweepDocument(cfg.Params(), results))
	default:
		err = writeSweepTable(out, results, opts.plot)
	}
	if err != nil {
		return err
	}

	if opts.svg != "" {
		if err := writeFigure(opts.svg, "log10 max error vs log10 dt", report.SweepSeries(results)); err != nil {
			return err
		}
	}
	if opts.save {
		return archive(opts, func(st *storage.Store) (string, error) {
			return st.SaveSweep(preset, cfg, results)
		})
	}
	return nil
}

func writeSweepTable(w io.Writer, results []experiment.SweepResult, plot bool) error {
	if err := report.WriteSweepSummary(w, results); err != nil {
		return err
	}
	if !plot {
		return nil
	}
	for _, r := range results {
		logErr := make([]float64, len(r.MaxErrors))
		for i, e := range r.MaxErrors {
			logErr[i] = log10(e)
		}
		fmt.Fprintln(w)
		if err := report.Plot(w, fmt.Sprintf("log10 max error vs step index  %s", r.Scheme), logErr); err != nil {
			return err
		}
	}
	return nil
}

func runCalibrate(cmd *cobra.Command, args []string, opts *options) error {
	cfg, _, err := resolveConfig(cmd, args, opts)
	if err != nil {
		return err
	}

	schemes, err := calibrationSchemes(opts.schemes)
	if err != nil {
		return err
	}
	grid, err := optim.LogGrid(opts.coarse, opts.fine, opts.steps)
	if err != nil {
		return err
	}
	search, err := optim.NewStepSearch(grid)
	if err != nil {
		return err
	}

	// Calibration runs dozens of solves; per-run lines only show at debug.
	logger := opts.logger
	if !logger.Core().Enabled(zap.DebugLevel) && logger.Core().Enabled(zap.InfoLevel) {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	}
	study, err := automation.NewStudy(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ref, _, err := study.Reference(ctx)
	if err != nil {
		return err
	}
	cals, err := search.Search(ctx, study, schemes, ref, opts.target)
	if err != nil {
		return err
	}
	for _, c := range cals {
		if !c.Found {
			opts.logger.Warn("target not met on the candidate grid",
				zap.String("scheme", c.Scheme.String()),
				zap.Float64("finest_dt", c.Dt),
				zap.Float64("max_error", c.MaxError))
		}
	}
	return report.WriteCalibration(cmd.OutOrStdout(), cals)
}

func calibrationSchemes(names []string) ([]experiment.Scheme, error) {
	if len(names) == 0 {
		var all []experiment.Scheme
		for _, s := range experiment.Schemes() {
			if s.FixedStep() {
				all = append(all, s)
			}
		}
		return all, nil
	}

	schemes := make([]experiment.Scheme, 0, len(names))
	for _, name := range names {
		s, err := experiment.ParseScheme(name)
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, s)
	}
	return schemes, nil
}

func runReference(cmd *cobra.Command, args []string, opts *options) error {
	if err := loadOutputFlags(cmd, opts); err != nil {
		return err
	}
	if err := checkFormat(opts.format, formatTable, formatCSV); err != nil {
		return err
	}
	cfg, _, err := resolveConfig(cmd, args, opts)
	if err != nil {
		return err
	}
	study, err := automation.NewStudy(cfg, opts.logger)
	if err != nil {
		return err
	}

	ref, elapsed, err := study.Reference(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == formatCSV {
		return report.WriteTrajectoryCSV(out, study.Times(), ref)
	}

	if err := writeReferenceTable(out, study, ref.Angles(), elapsed, opts.logger); err != nil {
		return err
	}
	if opts.plot {
		fmt.Fprintln(out)
		if err := report.Plot(out, "θ (rad)", ref.Angles()); err != nil {
			return err
		}
	}
	if opts.phase {
		portrait, err := analysis.NewPhasePortrait(ref, 0, 1)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, portrait.ASCII(phaseWidth, phaseHeight))
	}
	return nil
}

// writeReferenceTable prints the measured period of the reference next to
// the small-angle period. Estimates that need more oscillations than the
// grid holds are reported as n/a.
func writeReferenceTable(w io.Writer, study *experiment.Study, angles []float64, elapsed time.Duration, logger *zap.Logger) error {
	times := study.Times()
	pend := study.System()

	kind := "dormand-prince"
	if pend.SmallAngle() {
		kind = "analytical"
	}

	period, err := analysis.EstimatePeriod(times, angles)
	if err != nil {
		logger.Debug("period estimate unavailable", zap.Error(err))
		period = nan()
	}
	freq, err := analysis.DominantFrequency(times, angles)
	if err != nil {
		logger.Debug("spectral estimate unavailable", zap.Error(err))
		freq = nan()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "reference\t%s\n", kind)
	fmt.Fprintf(tw, "points\t%d\n", len(times))
	fmt.Fprintf(tw, "elapsed\t%s\n", elapsed)
	fmt.Fprintf(tw, "small-angle period\t%.6f s\n", pend.Period())
	fmt.Fprintf(tw, "crossing period\t%s\n", seconds(period))
	fmt.Fprintf(tw, "spectral period\t%s\n", seconds(1/freq))
	return tw.Flush()
}

func listRuns(cmd *cobra.Command, opts *options) error {
	st := storage.New(opts.dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tPRESET\tTHETA0\tSMALL ANGLE\tPOINTS")
	for _, r := range runs {
		preset := r.Preset
		if preset == "" {
			preset = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%t\t%d\n", r.ID, r.Kind, preset, r.Params.Theta0, r.Params.SmallAngle, r.Points)
	}
	return tw.Flush()
}

func writeFigure(path, title string, series []report.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteSVG(f, title, series, report.DefaultSVGWidth, report.DefaultSVGHeight); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func archive(opts *options, save func(*storage.Store) (string, error)) error {
	st := storage.New(opts.dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	id, err := save(st)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	opts.logger.Info("run archived", zap.String("id", id), zap.String("dir", opts.dataDir))
	return nil
}

func log10(v float64) float64 {
	if !(v > 0) {
		return math.NaN()
	}
	return math.Log10(v)
}

func nan() float64 { return math.NaN() }

func seconds(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.6f s", v)
}

func runBatch(cmd *cobra.Command, args []string, opts *options) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	runner := &automation.Runner{Logger: opts.logger, Store: storage.New(opts.dataDir)}
	results, err := runner.RunScenario(cmd.Context(), scenario)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s\n", res.Name)
		if res.Mode == automation.ModeSweep {
			err = report.WriteSweepSummary(out, res.Sweep)
		} else {
			err = report.WriteSummary(out, res.Runs)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
