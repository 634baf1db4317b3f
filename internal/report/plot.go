package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/experiment"
)

const (
	DefaultPlotHeight = 12
	DefaultPlotWidth  = 72
)

// Plot draws one or more series as a terminal line chart. Non-finite
// samples are left as gaps.
func Plot(w io.Writer, caption string, series ...[]float64) error {
	data := make([][]float64, 0, len(series))
	for _, s := range series {
		clean := make([]float64, len(s))
		finite := 0
		for i, v := range s {
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			if !math.IsNaN(v) {
				finite++
			}
			clean[i] = v
		}
		if finite == 0 {
			continue
		}
		data = append(data, clean)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: nothing finite to plot", dynamo.ErrDimensionMismatch)
	}

	chart := asciigraph.PlotMany(data,
		asciigraph.Height(DefaultPlotHeight),
		asciigraph.Width(DefaultPlotWidth),
		asciigraph.Caption(caption))
	_, err := fmt.Fprintln(w, chart)
	return err
}

// PlotErrors charts log10 of the angle error of every run, one chart per
// run so that curves of very different magnitude stay readable.
func PlotErrors(w io.Writer, runs []experiment.Run) error {
	for _, r := range runs {
		logErr := make([]float64, len(r.AngleError))
		for i, e := range r.AngleError {
			// The first sample is exact; clamp to keep the log finite.
			logErr[i] = math.Log10(math.Max(e, 1e-16))
		}
		caption := fmt.Sprintf("log10 |θ − θref|  %s", Label(r.Scheme, r.Dt))
		if err := Plot(w, caption, logErr); err != nil {
			return err
		}
	}
	return nil
}

// PlotEnergy charts the relative energy drift of every run.
func PlotEnergy(w io.Writer, runs []experiment.Run) error {
	labels := make([]string, 0, len(runs))
	series := make([][]float64, 0, len(runs))
	for _, r := range runs {
		labels = append(labels, Label(r.Scheme, r.Dt))
		series = append(series, r.Drift.Relative)
	}
	return Plot(w, "relative energy drift  "+strings.Join(labels, ", "), series...)
}
