package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/experiment"
	"github.com/san-kum/pendulab/internal/metrics"
	"github.com/san-kum/pendulab/internal/optim"
	"github.com/san-kum/pendulab/internal/physics"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

var fixtureTimes = []float64{0, 0.01}

func fixtureRuns() []experiment.Run {
	return []experiment.Run{
		{
			Scheme:     experiment.RK4,
			Dt:         0.009,
			Trajectory: dynamo.Trajectory{{1.5, 0}, {0.5, -2}},
			AngleError: []float64{0, 1.25e-6},
			Energy:     []float64{2, 2.5},
			MaxError:   1.25e-6,
			Elapsed:    12500 * time.Microsecond,
			Drift:      metrics.Drift{Relative: []float64{0, 0.25}, Max: 0.25, Growth: 1.5},
		},
		{
			Scheme:     experiment.ReferenceOracle,
			Trajectory: dynamo.Trajectory{{1.5, 0}, {0.25, -1}},
			AngleError: []float64{0, 3e-12},
			Energy:     []float64{2, 2},
			MaxError:   3e-12,
			Elapsed:    2 * time.Millisecond,
			Drift:      metrics.Drift{Relative: []float64{0, 0}, Max: 0, Growth: 1},
		},
	}
}

func fixtureSweep() []experiment.SweepResult {
	return []experiment.SweepResult{
		{
			Scheme:    experiment.Euler,
			Dts:       []float64{1e-3, 1e-4},
			Costs:     []time.Duration{time.Millisecond, 10 * time.Millisecond},
			MaxErrors: []float64{1e-2, 1e-3},
			Order:     1,
		},
		{
			Scheme:    experiment.RK4,
			Dts:       []float64{0.1},
			Costs:     []time.Duration{250 * time.Microsecond},
			MaxErrors: []float64{math.Inf(1)},
			Order:     math.NaN(),
		},
	}
}

func TestWriteRunsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRunsCSV(&buf, fixtureTimes, fixtureRuns()))
	newGoldie(t).Assert(t, "runs_csv", buf.Bytes())
}

func TestWriteRunsCSVRejectsShortRun(t *testing.T) {
	runs := fixtureRuns()
	runs[1].Energy = runs[1].Energy[:1]

	var buf bytes.Buffer
	err := WriteRunsCSV(&buf, fixtureTimes, runs)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
	assert.Zero(t, buf.Len())
}

func TestWriteTrajectoryCSV(t *testing.T) {
	var buf bytes.Buffer
	tr := dynamo.Trajectory{{0.1, 0}, {0.05, -0.5}}
	require.NoError(t, WriteTrajectoryCSV(&buf, fixtureTimes, tr))
	assert.Equal(t, "time,theta,omega\n0,0.1,0\n0.01,0.05,-0.5\n", buf.String())

	err := WriteTrajectoryCSV(&buf, []float64{0}, tr)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}

func TestWriteSweepCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSweepCSV(&buf, fixtureSweep()))
	newGoldie(t).Assert(t, "sweep_csv", buf.Bytes())
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, fixtureRuns()))
	newGoldie(t).Assert(t, "summary", buf.Bytes())
}

func TestWriteSweepSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSweepSummary(&buf, fixtureSweep()))
	newGoldie(t).Assert(t, "sweep_summary", buf.Bytes())
}

func TestSweepDocumentJSON(t *testing.T) {
	p := physics.Params{Length: 0.5, Gravity: 9.81, Theta0: 0.1, SmallAngle: true}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewSweepDocument(p, fixtureSweep())))
	newGoldie(t).Assert(t, "sweep_json", buf.Bytes())
}

func TestCompareDataJSON(t *testing.T) {
	p := physics.Params{Length: 0.5, Gravity: 9.81, Theta0: 1.5, SmallAngle: true}
	runs := fixtureRuns()
	runs[0].AngleError[1] = math.NaN()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewCompareData(p, fixtureTimes, runs)))

	var doc struct {
		Times []float64 `json:"times"`
		Runs  []struct {
			Scheme    string     `json:"scheme"`
			Dt        float64    `json:"dt"`
			ElapsedMs float64    `json:"elapsed_ms"`
			Theta     []float64  `json:"theta"`
			Error     []*float64 `json:"error"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, fixtureTimes, doc.Times)
	require.Len(t, doc.Runs, 2)
	assert.Equal(t, "rk4", doc.Runs[0].Scheme)
	assert.Equal(t, 0.009, doc.Runs[0].Dt)
	assert.Equal(t, 12.5, doc.Runs[0].ElapsedMs)
	assert.Equal(t, []float64{1.5, 0.5}, doc.Runs[0].Theta)
	assert.Nil(t, doc.Runs[0].Error[1])
	assert.Equal(t, "reference", doc.Runs[1].Scheme)
	assert.NotContains(t, buf.String(), "NaN")
}

func TestNumberJSON(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{1e-12, "1e-12"},
		{0, "0"},
		{math.NaN(), "null"},
		{math.Inf(1), "null"},
		{math.Inf(-1), "null"},
	}

	for _, tt := range tests {
		got, err := json.Marshal(Number(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}

	var back []Number
	require.NoError(t, json.Unmarshal([]byte(`[2.5, null]`), &back))
	require.Len(t, back, 2)
	assert.Equal(t, Number(2.5), back[0])
	assert.True(t, math.IsNaN(float64(back[1])))

	var bad Number
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &bad))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "rk4[0.009]", Label(experiment.RK4, 0.009))
	assert.Equal(t, "velocity_verlet[0.0004]", Label(experiment.VelocityVerlet, 4e-4))
	assert.Equal(t, "reference", Label(experiment.ReferenceOracle, 0))
}

func TestPlot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Plot(&buf, "angle", []float64{0, 1, 0, -1, 0}))
	assert.Contains(t, buf.String(), "angle")
	assert.Greater(t, strings.Count(buf.String(), "\n"), DefaultPlotHeight)

	err := Plot(&buf, "empty", []float64{math.NaN(), math.Inf(1)})
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}

func TestPlotRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlotErrors(&buf, fixtureRuns()))
	assert.Contains(t, buf.String(), "rk4[0.009]")
	assert.Contains(t, buf.String(), "reference")

	buf.Reset()
	require.NoError(t, PlotEnergy(&buf, fixtureRuns()))
	assert.Contains(t, buf.String(), "relative energy drift  rk4[0.009], reference")
}

func TestWriteCalibration(t *testing.T) {
	cals := []optim.Calibration{
		{Scheme: experiment.Euler, Target: 1e-5, Dt: 1e-4, MaxError: 1.66e-4, Tried: 13, Elapsed: 3 * time.Millisecond},
		{Scheme: experiment.RK4, Target: 1e-5, Dt: math.Pow(10, -1.5), MaxError: 2.43e-6, Tried: 3, Elapsed: 150 * time.Microsecond, Found: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCalibration(&buf, cals))
	newGoldie(t).Assert(t, "calibration", buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteCalibration(&buf, nil))
	assert.Zero(t, buf.Len())
}

func TestWriteSVG(t *testing.T) {
	series := []Series{
		{Name: "gap", X: []float64{0, 1, 2, 3}, Y: []float64{0, 1, math.NaN(), 2}},
		{Name: "a<b", X: []float64{1}, Y: []float64{math.Inf(1)}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, "errors & drift", series, 100, 100))
	svg := buf.String()

	assert.True(t, strings.HasPrefix(svg, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
	assert.Contains(t, svg, `d="M8.3,91.7 L36.1,50.0 M91.7,8.3"`)
	assert.Equal(t, 1, strings.Count(svg, "<path"))
	assert.Contains(t, svg, ">errors &amp; drift</text>")
	assert.Contains(t, svg, ">a&lt;b</text>")

	err := WriteSVG(&buf, "", []Series{{Name: "x", X: []float64{1}, Y: nil}}, 100, 100)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
	err = WriteSVG(&buf, "", series[1:], 100, 100)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}

func TestFigureSeries(t *testing.T) {
	errs := ErrorSeries(fixtureTimes, fixtureRuns())
	require.Len(t, errs, 2)
	assert.Equal(t, "rk4[0.009]", errs[0].Name)
	assert.True(t, math.IsNaN(errs[0].Y[0]))
	assert.InDelta(t, math.Log10(1.25e-6), errs[0].Y[1], 1e-12)

	sweep := SweepSeries(fixtureSweep())
	require.Len(t, sweep, 2)
	assert.InDelta(t, -3, sweep[0].X[0], 1e-12)
	assert.InDelta(t, -2, sweep[0].Y[0], 1e-12)
	assert.True(t, math.IsNaN(sweep[1].Y[0]))
}
