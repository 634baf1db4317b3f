package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pendulab/internal/experiment"
	"github.com/san-kum/pendulab/internal/optim"
)

func title(w io.Writer, text string) error {
	r := lipgloss.NewRenderer(w)
	style := r.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	_, err := fmt.Fprintln(w, style.Render(text))
	return err
}

// WriteSummary prints one aligned row per run of a single-dt comparison.
func WriteSummary(w io.Writer, runs []experiment.Run) error {
	if err := title(w, "Single-step comparison"); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "scheme\tdt\tmax error\tenergy drift\tgrowth\telapsed")
	for _, r := range runs {
		dt := "adaptive"
		if r.Scheme.FixedStep() {
			dt = fmt.Sprintf("%.1e", r.Dt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Scheme, dt, sci(r.MaxError), sci(r.Drift.Max), fixed(r.Drift.Growth), r.Elapsed)
	}
	return tw.Flush()
}

// WriteSweepSummary prints the sweep grid followed by the fitted orders.
func WriteSweepSummary(w io.Writer, results []experiment.SweepResult) error {
	if err := title(w, "Step-size sweep"); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "scheme\tdt\tcost\tmax error")
	for _, r := range results {
		for i, dt := range r.Dts {
			fmt.Fprintf(tw, "%s\t%.1e\t%s\t%s\n", r.Scheme, dt, r.Costs[i], sci(r.MaxErrors[i]))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := title(w, "Empirical order"); err != nil {
		return err
	}
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "scheme\tfitted\tnominal")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Scheme, fixed(r.Order), r.Scheme.Order())
	}
	return tw.Flush()
}

func sci(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "diverged"
	}
	return fmt.Sprintf("%.3e", v)
}

func fixed(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 0):
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}

// WriteCalibration prints the largest step meeting the target per scheme.
func WriteCalibration(w io.Writer, cals []optim.Calibration) error {
	if len(cals) == 0 {
		return nil
	}
	if err := title(w, fmt.Sprintf("Largest step within %.1e", cals[0].Target)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "scheme\tdt\tmax error\ttried\telapsed")
	for _, c := range cals {
		dt := fmt.Sprintf("%.3e", c.Dt)
		if !c.Found {
			dt = "none"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.Scheme, dt, sci(c.MaxError), c.Tried, c.Elapsed)
	}
	return tw.Flush()
}
