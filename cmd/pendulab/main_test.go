package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pendulab/internal/config"
	"github.com/san-kum/pendulab/internal/dynamo"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPresetsCommand(t *testing.T) {
	out, err := execute(t, "presets")
	require.NoError(t, err)
	for _, p := range config.ListPresets() {
		assert.Contains(t, out, "  "+p+"\n")
	}
}

func TestCompareCSV(t *testing.T) {
	figure := filepath.Join(t.TempDir(), "errors.svg")
	out, err := execute(t, "compare", "check", "--end", "1", "--points", "101", "--format", "csv", "--svg", figure)
	require.NoError(t, err)

	svg, err := os.ReadFile(figure)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "rk4[0.009]</text>")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 102)
	assert.Equal(t, "time,rk4[0.009]_theta,rk4[0.009]_error,rk4[0.009]_energy", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,"))
}

func TestCompareTable(t *testing.T) {
	out, err := execute(t, "compare", "--end", "1", "--points", "11", "--plot", "--phase")
	require.NoError(t, err)
	assert.Contains(t, out, "Single-step comparison")
	for _, name := range []string{"midpoint", "rk4", "velocity_verlet"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "relative energy drift")
	assert.Contains(t, out, "phase portrait rk4[0.009]")
}

func TestFormatDefaultsPerCommand(t *testing.T) {
	out, err := execute(t, "compare", "check", "--end", "0.05", "--points", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "Single-step comparison")
	assert.NotContains(t, out, "time,")

	out, err = execute(t, "reference", "--end", "0.1", "--points", "3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "time,theta,omega\n"))

	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grid: {end: 1, points: 11}
sweep:
  - scheme: rk4
    dts: [0.1, 0.05]
`), 0644))
	out, err = execute(t, "sweep", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Step-size sweep")

	root := newRootCmd()
	for _, name := range []string{"compare", "sweep", "reference"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		want := formatTable
		if name == "reference" {
			want = formatCSV
		}
		assert.Equal(t, want, sub.Flags().Lookup("format").DefValue, name)
	}
}

func TestSweepFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pendulum: {length: 0.5, gravity: 9.81, theta0: 0.1, small_angle: true}
grid: {end: 2, points: 21}
sweep:
  - scheme: midpoint
    dts: [0.01, 0.005, 0.0025]
  - scheme: rk4
    dts: [0.05, 0.025]
`), 0644))

	out, err := execute(t, "sweep", "--config", path, "--format", "json", "--parallel", "2")
	require.NoError(t, err)

	var doc struct {
		Params struct {
			Theta0 float64 `json:"theta0"`
		} `json:"params"`
		Results []struct {
			Scheme string  `json:"scheme"`
			Order  float64 `json:"order"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 0.1, doc.Params.Theta0)
	require.Len(t, doc.Results, 2)
	assert.Equal(t, "midpoint", doc.Results[0].Scheme)
	assert.InDelta(t, 2, doc.Results[0].Order, 0.3)
	assert.Equal(t, "rk4", doc.Results[1].Scheme)
	assert.InDelta(t, 4, doc.Results[1].Order, 0.5)
}

func TestFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, config.Save(path, config.GetPreset("check")))

	out, err := execute(t, "reference", "--config", path, "--theta", "0.2", "--end", "0.1", "--points", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "time,theta,omega", lines[0])
	assert.Equal(t, "0,0.2,0", lines[1])
}

func TestReferenceTable(t *testing.T) {
	out, err := execute(t, "reference", "--format", "table", "--end", "5", "--points", "501", "--plot", "--phase")
	require.NoError(t, err)
	assert.Contains(t, out, "reference           analytical")
	assert.Contains(t, out, "small-angle period  1.418")
	assert.Contains(t, out, "crossing period     1.418")
}

func TestCalibrateCommand(t *testing.T) {
	out, err := execute(t, "calibrate", "--schemes", "rk4,midpoint", "--end", "1", "--points", "11", "--target", "1e-4", "--steps", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Largest step within 1.0e-04")
	assert.Contains(t, out, "rk4")
	assert.Contains(t, out, "midpoint")

	_, err = execute(t, "calibrate", "--schemes", "reference")
	assert.ErrorIs(t, err, dynamo.ErrInvalidStep)
}

func TestSaveAndListRuns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")

	out, err := execute(t, "runs", "--data", dir)
	require.NoError(t, err)
	assert.Equal(t, "no runs found\n", out)

	_, err = execute(t, "compare", "check", "--end", "0.5", "--points", "6", "--format", "csv", "--save", "--data", dir)
	require.NoError(t, err)

	out, err = execute(t, "runs", "--data", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "compare_")
	assert.Contains(t, out, "check")
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"empty grid", []string{"compare", "--points=0"}, dynamo.ErrInvalidTimes},
		{"bad length", []string{"compare", "--length=-1"}, dynamo.ErrParameterBounds},
		{"missing config file", []string{"compare", "--config", "/does/not/exist.yaml"}, os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := execute(t, "compare", "nosuchpreset")
	assert.ErrorContains(t, err, "unknown preset")

	_, err = execute(t, "compare", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "compare", "--log-format", "xml")
	assert.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: smoke
steps:
  - name: short check
    mode: compare
    preset: check
    config:
      grid: {end: 0.5, points: 6}
  - name: short sweep
    mode: sweep
    config:
      grid: {end: 1, points: 11}
      sweep:
        - scheme: rk4
          dts: [0.1, 0.05]
`), 0644))

	out, err := execute(t, "batch", path, "--data", filepath.Join(dir, "archive"))
	require.NoError(t, err)
	assert.Contains(t, out, "== short check\nSingle-step comparison")
	assert.Contains(t, out, "== short sweep\nStep-size sweep")

	_, err = execute(t, "batch", filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunExitCode(t *testing.T) {
	args := os.Args
	t.Cleanup(func() { os.Args = args })

	os.Args = []string{"pendulab", "presets", "--log-level", "error"}
	assert.Equal(t, 0, run(context.Background()))

	os.Args = []string{"pendulab", "compare", "nosuchpreset", "--log-level", "error"}
	assert.Equal(t, 1, run(context.Background()))
}
