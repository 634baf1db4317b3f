// Package storage archives comparison and sweep results on disk, one
// directory per run.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/pendulab/internal/config"
	"github.com/san-kum/pendulab/internal/experiment"
	"github.com/san-kum/pendulab/internal/report"
)

const (
	KindCompare = "compare"
	KindSweep   = "sweep"

	metadataFile = "metadata.json"
	configFile   = "config.yaml"
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one archived run. Metrics holds the max error of
// every compared solver, or the fitted order of every swept one, keyed by
// report label.
type RunMetadata struct {
	ID        string                   `json:"id"`
	Kind      string                   `json:"kind"`
	Preset    string                   `json:"preset,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
	Params    report.ParamsData        `json:"params"`
	Points    int                      `json:"points"`
	End       float64                  `json:"end"`
	Metrics   map[string]report.Number `json:"metrics"`
}

// SaveCompare archives a single-dt comparison: metadata, the effective
// configuration and the per-time CSV.
func (s *Store) SaveCompare(preset string, cfg *config.Config, runs []experiment.Run) (string, error) {
	meta := s.metadata(KindCompare, preset, cfg)
	for _, r := range runs {
		meta.Metrics[report.Label(r.Scheme, r.Dt)] = report.Number(r.MaxError)
	}

	return s.save(meta, cfg, "runs.csv", func(w io.Writer) error {
		return report.WriteRunsCSV(w, cfg.Times(), runs)
	})
}

// SaveSweep archives a step-size sweep as CSV next to its JSON document.
func (s *Store) SaveSweep(preset string, cfg *config.Config, results []experiment.SweepResult) (string, error) {
	meta := s.metadata(KindSweep, preset, cfg)
	for _, r := range results {
		meta.Metrics[r.Scheme.String()] = report.Number(r.Order)
	}

	id, err := s.save(meta, cfg, "sweep.csv", func(w io.Writer) error {
		return report.WriteSweepCSV(w, results)
	})
	if err != nil {
		return "", err
	}

	doc := report.NewSweepDocument(cfg.Params(), results)
	if err := writeFile(filepath.Join(s.baseDir, id, "sweep.json"), func(w io.Writer) error {
		return report.WriteJSON(w, doc)
	}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) metadata(kind, preset string, cfg *config.Config) RunMetadata {
	return RunMetadata{
		Kind:      kind,
		Preset:    preset,
		Timestamp: s.now().UTC(),
		Params: report.ParamsData{
			Length:     cfg.Pendulum.Length,
			Gravity:    cfg.Pendulum.Gravity,
			Theta0:     cfg.Pendulum.Theta0,
			Omega0:     cfg.Pendulum.Omega0,
			SmallAngle: cfg.Pendulum.SmallAngle,
		},
		Points:  cfg.Grid.Points,
		End:     cfg.Grid.End,
		Metrics: make(map[string]report.Number),
	}
}

func (s *Store) save(meta RunMetadata, cfg *config.Config, dataName string, data func(io.Writer) error) (string, error) {
	runDir, id, err := s.makeRunDir(meta.Kind, meta.Timestamp)
	if err != nil {
		return "", err
	}
	meta.ID = id

	if err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		return report.WriteJSON(w, meta)
	}); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, dataName), data); err != nil {
		return "", err
	}
	return id, nil
}

// makeRunDir creates a fresh directory named after kind and ts, adding a
// counter when two runs share a timestamp.
func (s *Store) makeRunDir(kind string, ts time.Time) (string, string, error) {
	base := fmt.Sprintf("%s_%s", kind, ts.Format("20060102T150405.000"))
	for n := 1; n < 1000; n++ {
		id := base
		if n > 1 {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, id, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
	return "", "", fmt.Errorf("too many runs named %s", base)
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns the archived runs, oldest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// ConfigPath is the archived configuration of a run, suitable for
// config.Load to repeat it.
func (s *Store) ConfigPath(runID string) string {
	return filepath.Join(s.baseDir, runID, configFile)
}
