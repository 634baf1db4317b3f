package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/pendulab/internal/config"
	"github.com/san-kum/pendulab/internal/logging"
	"github.com/san-kum/pendulab/internal/physics"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// options holds every flag of the command tree.
type options struct {
	logLevel  string
	logFormat string
	dataDir   string

	configFile string
	length     float64
	gravity    float64
	theta      float64
	omega      float64
	smallAngle bool
	end        float64
	points     int

	format   string
	plot     bool
	phase    bool
	save     bool
	svg      string
	parallel int

	target  float64
	coarse  float64
	fine    float64
	steps   int
	schemes []string

	logger *zap.Logger
}

// main registers the pendulab commands and exits with status 1 when the
// selected command fails.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context) int {
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "pendulab",
		Short:         "fixed-step integrator study on the planar pendulum",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(opts.logLevel, opts.logFormat)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logger == nil {
				return nil
			}
			return logging.Sync(opts.logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", logging.FormatConsole, "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data", ".pendulab", "run archive directory")

	compareCmd := &cobra.Command{
		Use:   "compare [preset]",
		Short: "run every configured solver once and score it against the reference",
		Args:  cobra.MaximumNArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runCompare(cmd, args, opts) },
	}
	addStudyFlags(compareCmd, opts)
	addOutputFlags(compareCmd)
	compareCmd.Flags().Bool("phase", false, "draw the phase portrait of every run (table format)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "sweep step sizes and fit the empirical convergence order",
		Args:  cobra.MaximumNArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runSweep(cmd, args, opts) },
	}
	addStudyFlags(sweepCmd, opts)
	addOutputFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&opts.parallel, "parallel", config.DefaultParallelism, "solver sweeps running at once")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [preset]",
		Short: "find the largest step size meeting an error target",
		Args:  cobra.MaximumNArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runCalibrate(cmd, args, opts) },
	}
	addStudyFlags(calibrateCmd, opts)
	calibrateCmd.Flags().Float64Var(&opts.target, "target", 1e-6, "max angle error to meet (rad)")
	calibrateCmd.Flags().Float64Var(&opts.coarse, "coarse", 0.1, "largest candidate step")
	calibrateCmd.Flags().Float64Var(&opts.fine, "fine", 1e-5, "smallest candidate step")
	calibrateCmd.Flags().IntVar(&opts.steps, "steps", 17, "number of log-spaced candidates")
	calibrateCmd.Flags().StringSliceVar(&opts.schemes, "schemes", nil, "schemes to calibrate (default: all fixed-step schemes)")

	referenceCmd := &cobra.Command{
		Use:   "reference [preset]",
		Short: "build the reference trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runReference(cmd, args, opts) },
	}
	addStudyFlags(referenceCmd, opts)
	referenceCmd.Flags().String("format", formatCSV, "output format (table, csv)")
	referenceCmd.Flags().Bool("plot", false, "plot the angle (table format)")
	referenceCmd.Flags().Bool("phase", false, "draw the phase portrait (table format)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "presets:")
			for _, p := range config.ListPresets() {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list archived runs",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return listRuns(cmd, opts) },
	}

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted sequence of studies",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runBatch(cmd, args, opts) },
	}

	rootCmd.AddCommand(compareCmd, sweepCmd, calibrateCmd, referenceCmd, presetsCmd, runsCmd, batchCmd)
	return rootCmd
}

func addStudyFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVar(&opts.configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&opts.length, "length", physics.DefaultLength, "pendulum length (m)")
	cmd.Flags().Float64Var(&opts.gravity, "gravity", physics.DefaultGravity, "gravitational acceleration (m/s²)")
	cmd.Flags().Float64Var(&opts.theta, "theta", config.DefaultTheta, "initial angle (rad)")
	cmd.Flags().Float64Var(&opts.omega, "omega", 0, "initial angular velocity (rad/s)")
	cmd.Flags().BoolVar(&opts.smallAngle, "small-angle", true, "use the linearized pendulum")
	cmd.Flags().Float64Var(&opts.end, "end", config.DefaultEnd, "last report time (s)")
	cmd.Flags().IntVar(&opts.points, "points", config.DefaultPoints, "number of report times")
}

// addOutputFlags registers the output flags with storage owned by cmd.
// Commands disagree on the default format, so the values are copied into
// opts by loadOutputFlags once the command runs.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", formatTable, "output format (table, csv, json)")
	cmd.Flags().Bool("plot", false, "append terminal plots (table format)")
	cmd.Flags().Bool("save", false, "archive the results under --data")
	cmd.Flags().String("svg", "", "also draw the errors as an SVG figure at this path")
}

func loadOutputFlags(cmd *cobra.Command, opts *options) error {
	flags := cmd.Flags()
	var err error
	if opts.format, err = flags.GetString("format"); err != nil {
		return err
	}
	for name, dst := range map[string]*bool{"plot": &opts.plot, "phase": &opts.phase, "save": &opts.save} {
		if flags.Lookup(name) == nil {
			*dst = false
			continue
		}
		if *dst, err = flags.GetBool(name); err != nil {
			return err
		}
	}
	if flags.Lookup("svg") == nil {
		opts.svg = ""
		return nil
	}
	opts.svg, err = flags.GetString("svg")
	return err
}

// resolveConfig starts from the defaults or a preset, replaces them with
// --config when given, then applies the flags that were set explicitly.
func resolveConfig(cmd *cobra.Command, args []string, opts *options) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	preset := ""
	if len(args) == 1 {
		preset = args[0]
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
	}

	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("length") {
		cfg.Pendulum.Length = opts.length
	}
	if flags.Changed("gravity") {
		cfg.Pendulum.Gravity = opts.gravity
	}
	if flags.Changed("theta") {
		cfg.Pendulum.Theta0 = opts.theta
	}
	if flags.Changed("omega") {
		cfg.Pendulum.Omega0 = opts.omega
	}
	if flags.Changed("small-angle") {
		cfg.Pendulum.SmallAngle = opts.smallAngle
	}
	if flags.Changed("end") {
		cfg.Grid.End = opts.end
	}
	if flags.Changed("points") {
		cfg.Grid.Points = opts.points
	}
	if flags.Lookup("parallel") != nil && flags.Changed("parallel") {
		cfg.Parallelism = opts.parallel
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, preset, nil
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(allowed, ", "))
}
