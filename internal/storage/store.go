package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

var trajectoryHeader = []string{"time", "x", "y", "z", "vx", "vy", "vz"}

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scene       string             `json:"scene"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	Gravity     [3]float64         `json:"gravity"`
	Restitution float64            `json:"restitution"`
	Sides       []string           `json:"sides,omitempty"`
	Contacts    int                `json:"contacts"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Trajectory is the ball path read back from a run.
type Trajectory struct {
	Times      []float64
	Positions  [][3]float64
	Velocities [][3]float64
}

// Heights returns the y coordinate of every position.
func (t *Trajectory) Heights() []float64 {
	out := make([]float64, len(t.Positions))
	for i, p := range t.Positions {
		out[i] = p[1]
	}
	return out
}

func newMetadata(id, scene string, cfg *config.Config, result *sim.Result) RunMetadata {
	return RunMetadata{
		ID:          id,
		Scene:       scene,
		Timestamp:   time.Now(),
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Steps:       result.StepsTaken,
		Gravity:     cfg.Gravity,
		Restitution: cfg.Ball.Restitution,
		Sides:       cfg.Panels.Sides,
		Contacts:    result.Contacts,
		EnergyDrift: result.EnergyDrift,
		Metrics:     finiteMetrics(result.Metrics),
	}
}

// finiteMetrics drops NaN and infinite values, which encoding/json rejects.
func finiteMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

// Save writes the run's metadata and trajectory and returns the run id.
func (s *Store) Save(scene string, cfg *config.Config, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", scene, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := newMetadata(runID, scene, cfg, result)

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), result); err != nil {
		return "", fmt.Errorf("write trajectory: %w", err)
	}
	return runID, nil
}

func writeTrajectory(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(trajectoryHeader); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for i := range result.Positions {
		row := []string{format(result.Times[i])}
		for _, v := range result.Positions[i] {
			row = append(row, format(v))
		}
		for _, v := range result.Velocities[i] {
			row = append(row, format(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the metadata of every readable run, newest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
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

// LoadTrajectory reads a run's trajectory.csv. Rows that do not parse are
// skipped.
func (s *Store) LoadTrajectory(runID string) (*Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := &Trajectory{}
	if len(records) < 2 {
		return tr, nil
	}

	for _, record := range records[1:] {
		if len(record) != len(trajectoryHeader) {
			continue
		}
		var vals [7]float64
		ok := true
		for j := range vals {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		tr.Times = append(tr.Times, vals[0])
		tr.Positions = append(tr.Positions, [3]float64{vals[1], vals[2], vals[3]})
		tr.Velocities = append(tr.Velocities, [3]float64{vals[4], vals[5], vals[6]})
	}

	return tr, nil
}
