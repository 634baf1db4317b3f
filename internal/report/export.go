package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/experiment"
	"github.com/san-kum/pendulab/internal/physics"
)

// Number is a float64 that encodes NaN and ±Inf as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// UnmarshalJSON reads null back as NaN.
func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Number(f)
	return nil
}

func numbers(xs []float64) []Number {
	out := make([]Number, len(xs))
	for i, x := range xs {
		out[i] = Number(x)
	}
	return out
}

type ParamsData struct {
	Length     float64 `json:"length"`
	Gravity    float64 `json:"gravity"`
	Theta0     float64 `json:"theta0"`
	Omega0     float64 `json:"omega0"`
	SmallAngle bool    `json:"small_angle"`
}

func paramsData(p physics.Params) ParamsData {
	return ParamsData{Length: p.Length, Gravity: p.Gravity, Theta0: p.Theta0, Omega0: p.Omega0, SmallAngle: p.SmallAngle}
}

type RunData struct {
	Scheme      experiment.Scheme `json:"scheme"`
	Dt          float64           `json:"dt,omitempty"`
	MaxError    Number            `json:"max_error"`
	EnergyDrift Number            `json:"energy_drift"`
	DriftGrowth Number            `json:"drift_growth"`
	ElapsedMs   float64           `json:"elapsed_ms"`
	Diverged    bool              `json:"diverged"`
	Theta       []Number          `json:"theta"`
	Omega       []Number          `json:"omega"`
	Error       []Number          `json:"error"`
	Energy      []Number          `json:"energy"`
}

// CompareData is the JSON document of a single-dt comparison.
type CompareData struct {
	Params ParamsData `json:"params"`
	Times  []float64  `json:"times"`
	Runs   []RunData  `json:"runs"`
}

func NewCompareData(p physics.Params, times []float64, runs []experiment.Run) CompareData {
	doc := CompareData{Params: paramsData(p), Times: times, Runs: make([]RunData, len(runs))}
	for i, r := range runs {
		doc.Runs[i] = RunData{
			Scheme:      r.Scheme,
			Dt:          r.Dt,
			MaxError:    Number(r.MaxError),
			EnergyDrift: Number(r.Drift.Max),
			DriftGrowth: Number(r.Drift.Growth),
			ElapsedMs:   millis(r.Elapsed),
			Diverged:    r.Diverged,
			Theta:       numbers(r.Trajectory.Column(0)),
			Omega:       numbers(r.Trajectory.Column(1)),
			Error:       numbers(r.AngleError),
			Energy:      numbers(r.Energy),
		}
	}
	return doc
}

type SweepData struct {
	Scheme    experiment.Scheme `json:"scheme"`
	Order     Number            `json:"order"`
	Dts       []float64         `json:"dts"`
	CostsMs   []float64         `json:"costs_ms"`
	MaxErrors []Number          `json:"max_errors"`
}

// SweepDocument is the JSON document of a step-size sweep.
type SweepDocument struct {
	Params  ParamsData  `json:"params"`
	Results []SweepData `json:"results"`
}

func NewSweepDocument(p physics.Params, results []experiment.SweepResult) SweepDocument {
	doc := SweepDocument{Params: paramsData(p), Results: make([]SweepData, len(results))}
	for i, r := range results {
		costs := make([]float64, len(r.Costs))
		for k, c := range r.Costs {
			costs[k] = millis(c)
		}
		doc.Results[i] = SweepData{
			Scheme:    r.Scheme,
			Order:     Number(r.Order),
			Dts:       r.Dts,
			CostsMs:   costs,
			MaxErrors: numbers(r.MaxErrors),
		}
	}
	return doc
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Label names a run in column headers, e.g. "rk4[0.009]".
func Label(s experiment.Scheme, dt float64) string {
	if !s.FixedStep() {
		return s.String()
	}
	return fmt.Sprintf("%s[%s]", s, formatFloat(dt))
}

// WriteRunsCSV writes one row per report time with the angle, angle error
// and energy of every run.
func WriteRunsCSV(w io.Writer, times []float64, runs []experiment.Run) error {
	for _, r := range runs {
		if len(r.Trajectory) != len(times) || len(r.AngleError) != len(times) || len(r.Energy) != len(times) {
			return fmt.Errorf("%w: run %s has %d rows for %d report times", dynamo.ErrDimensionMismatch, Label(r.Scheme, r.Dt), len(r.Trajectory), len(times))
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"time"}
	for _, r := range runs {
		label := Label(r.Scheme, r.Dt)
		header = append(header, label+"_theta", label+"_error", label+"_energy")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, t := range times {
		row[0] = formatFloat(t)
		for k, r := range runs {
			row[1+3*k] = formatFloat(r.Trajectory[i][0])
			row[2+3*k] = formatFloat(r.AngleError[i])
			row[3+3*k] = formatFloat(r.Energy[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTrajectoryCSV writes a bare trajectory, e.g. the reference.
func WriteTrajectoryCSV(w io.Writer, times []float64, tr dynamo.Trajectory) error {
	if len(tr) != len(times) {
		return fmt.Errorf("%w: %d rows for %d report times", dynamo.ErrDimensionMismatch, len(tr), len(times))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "theta", "omega"}); err != nil {
		return err
	}
	for i, x := range tr {
		if err := cw.Write([]string{formatFloat(times[i]), formatFloat(x[0]), formatFloat(x[1])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSweepCSV writes one row per (scheme, dt) pair.
func WriteSweepCSV(w io.Writer, results []experiment.SweepResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"scheme", "dt", "cost_ms", "max_error"}); err != nil {
		return err
	}
	for _, r := range results {
		if len(r.Costs) != len(r.Dts) || len(r.MaxErrors) != len(r.Dts) {
			return fmt.Errorf("%w: sweep %s is ragged", dynamo.ErrDimensionMismatch, r.Scheme)
		}
		for i, dt := range r.Dts {
			rec := []string{
				r.Scheme.String(),
				formatFloat(dt),
				strconv.FormatFloat(millis(r.Costs[i]), 'f', 3, 64),
				formatFloat(r.MaxErrors[i]),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
