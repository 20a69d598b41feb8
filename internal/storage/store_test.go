package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		Times:      []float64{0, 1.0 / 60},
		Positions:  [][3]float64{{0, 10, 1}, {0, 9.997275, 1}},
		Velocities: [][3]float64{{0, 0, 0}, {0, -0.1635, 0}},
		Metrics: map[string]float64{
			"energy": 1.5,
			"apex":   math.NaN(),
		},
		StepsTaken: 1,
		Contacts:   0,
	}
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return st, dir
}

func TestStoreSaveLoad(t *testing.T) {
	st, _ := newTestStore(t)
	cfg := config.GetPreset("chamber")

	runID, err := st.Save("chamber", cfg, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scene != "chamber" || meta.Seed != cfg.Seed || meta.Steps != 1 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if len(meta.Sides) != 5 {
		t.Errorf("expected 5 sides, got %v", meta.Sides)
	}
	if meta.Metrics["energy"] != 1.5 {
		t.Errorf("expected energy 1.5, got %f", meta.Metrics["energy"])
	}
	if _, ok := meta.Metrics["apex"]; ok {
		t.Error("NaN metric should not be stored")
	}

	tr, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("load trajectory failed: %v", err)
	}
	if len(tr.Times) != 2 || len(tr.Positions) != 2 || len(tr.Velocities) != 2 {
		t.Fatalf("expected 2 rows, got %d/%d/%d", len(tr.Times), len(tr.Positions), len(tr.Velocities))
	}
	if tr.Positions[1] != [3]float64{0, 9.997275, 1} {
		t.Errorf("position row = %v", tr.Positions[1])
	}
	if tr.Velocities[1][1] != -0.1635 {
		t.Errorf("velocity row = %v", tr.Velocities[1])
	}
	if h := tr.Heights(); h[0] != 10 {
		t.Errorf("heights = %v", h)
	}
}

func TestStoreList(t *testing.T) {
	st, _ := newTestStore(t)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	for _, name := range []string{"bounce", "dead"} {
		if _, err := st.Save(name, config.GetPreset(name), testResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Timestamp.Before(runs[1].Timestamp) {
		t.Error("runs not sorted newest first")
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	st, dir := newTestStore(t)

	runID, err := st.Save("bounce", config.DefaultConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{metadataFile, trajectoryFile} {
		if _, err := os.Stat(filepath.Join(dir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestLoadTrajectorySkipsBadRows(t *testing.T) {
	st, dir := newTestStore(t)
	runDir := filepath.Join(dir, "manual")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatal(err)
	}
	data := "time,x,y,z,vx,vy,vz\n0,0,1,0,0,0,0\nbad,0,1,0,0,0,0\n1,0,2\n2,0,3,0,0,0,0\n"
	if err := os.WriteFile(filepath.Join(runDir, trajectoryFile), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	tr, err := st.LoadTrajectory("manual")
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Times) != 2 || tr.Times[1] != 2 {
		t.Errorf("times = %v", tr.Times)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "bounce", config.DefaultConfig(), testResult()); err != nil {
		t.Fatal(err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Scene != "bounce" || len(got.Positions) != 2 || got.Dt != config.DefaultDt {
		t.Errorf("unexpected export %+v", got.RunMetadata)
	}
}
