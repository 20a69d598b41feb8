package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/storage"
)

const scenarioYAML = `name: settle
description: a dead drop then a soft bounce
steps:
  - preset: dead
    steps: 60
  - preset: bounce
    steps: 120
    seed: 3
    params:
      restitution: 0.9
      ball.restitution: 0.3
    save_as: soft
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "settle" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	cfg, err := sc.Steps[1].Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Ball.Restitution != 0.3 || cfg.Ground.Restitution != 0.9 {
		t.Errorf("specific override should win: ball %v ground %v", cfg.Ball.Restitution, cfg.Ground.Restitution)
	}
	if cfg.Steps != 120 || cfg.Seed != 3 {
		t.Errorf("steps %d seed %d", cfg.Steps, cfg.Seed)
	}

	if _, err := LoadScenario(writeScenario(t, "name: empty\n")); err == nil {
		t.Error("expected error for scenario without steps")
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		step ScenarioStep
	}{
		{"unknown preset", ScenarioStep{Preset: "moon"}},
		{"unknown param", ScenarioStep{Params: map[string]float64{"warp": 1}}},
		{"invalid value", ScenarioStep{Params: map[string]float64{"ball.radius": -1}}},
		{"missing file", ScenarioStep{Config: "/nonexistent/scene.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.step.Resolve(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunScenarioSavesNamedSteps(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	st := storage.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	results, err := RunScenario(context.Background(), sc, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RunID != "" || results[1].RunID == "" {
		t.Errorf("only the save_as step should be stored: %q %q", results[0].RunID, results[1].RunID)
	}
	if results[0].Result.StepsTaken != 60 || results[1].Result.StepsTaken != 120 {
		t.Errorf("steps taken %d and %d", results[0].Result.StepsTaken, results[1].Result.StepsTaken)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Scene != "soft" {
		t.Errorf("unexpected stored runs %+v", runs)
	}
}

func TestRunSweepApexGrowsWithRestitution(t *testing.T) {
	sweep := &ParameterSweep{
		Base:   config.DefaultConfig(),
		Param:  "restitution",
		Values: []float64{0.3, 0.6, 0.9},
		Steps:  180,
	}
	results, err := RunSweep(context.Background(), sweep, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Metrics["apex"] <= results[i-1].Metrics["apex"] {
			t.Errorf("apex did not grow: e=%v gives %v, e=%v gives %v",
				results[i-1].Value, results[i-1].Metrics["apex"], results[i].Value, results[i].Metrics["apex"])
		}
	}

	sweep.Param = "warp"
	if _, err := RunSweep(context.Background(), sweep, nil); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	mc := &MonteCarloConfig{
		Base:      config.GetPreset("chamber"),
		NumTrials: 3,
		Steps:     120,
		Seed:      11,
	}
	results, err := RunMonteCarlo(context.Background(), mc)
	if err != nil {
		t.Fatal(err)
	}
	stable, unstable := MonteCarloStats(results)
	if stable != 3 || unstable != 0 {
		t.Errorf("stable %d unstable %d", stable, unstable)
	}
	if results[2].Seed != 13 {
		t.Errorf("trial seeds not consecutive: %d", results[2].Seed)
	}

	if _, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{}); err == nil {
		t.Error("expected error for zero trials")
	}
}
