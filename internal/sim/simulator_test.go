package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/physics"
)

type countMetric struct {
	n int
}

func (c *countMetric) Name() string   { return "count" }
func (c *countMetric) Observe(Sample) { c.n++ }
func (c *countMetric) Value() float64 { return float64(c.n) }
func (c *countMetric) Reset()         { c.n = 0 }

func newTestSim(t *testing.T, cfg *config.Config) *Simulation {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	s := newTestSim(t, nil)
	pos, err := s.Position()
	if err != nil {
		t.Fatal(err)
	}
	if pos != [3]float64{0, 10, 1} {
		t.Errorf("initial position = %v, want (0, 10, 1)", pos)
	}
	if s.Dt() != config.DefaultDt {
		t.Errorf("dt = %v", s.Dt())
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ball.Radius = -1
	if _, err := New(cfg); !errors.Is(err, physics.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSimulationStep(t *testing.T) {
	s := newTestSim(t, nil)
	prev, _ := s.Position()
	for i := 0; i < 10; i++ {
		pos, err := s.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if pos[1] >= prev[1] {
			t.Fatalf("step %d: ball did not fall (%v -> %v)", i, prev[1], pos[1])
		}
		if pos[0] != 0 || pos[2] != 1 {
			t.Fatalf("step %d: ball drifted sideways to %v", i, pos)
		}
		prev = pos
	}
	v, _ := s.Velocity()
	want := -9.81 * 10 * config.DefaultDt
	if math.Abs(v[1]-want) > 1e-9 {
		t.Errorf("vy after 10 steps = %v, want %v", v[1], want)
	}
}

func TestSimulationReset(t *testing.T) {
	s := newTestSim(t, nil)
	for i := 0; i < 50; i++ {
		s.Step()
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	pos, _ := s.Position()
	if pos != [3]float64{0, 10, 1} {
		t.Errorf("position after reset = %v", pos)
	}
	if s.World().StepCount() != 0 {
		t.Errorf("step count after reset = %d", s.World().StepCount())
	}
}

func TestRunnerRun(t *testing.T) {
	r := NewRunner(newTestSim(t, nil))
	m := &countMetric{}
	r.AddMetric(m)
	calls := 0
	r.AddObserver(ObserverFunc(func(Sample) { calls++ }))

	result, err := r.Run(context.Background(), 120)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 120 {
		t.Errorf("steps taken = %d, want 120", result.StepsTaken)
	}
	if len(result.Times) != 121 || len(result.Positions) != 121 || len(result.Velocities) != 121 {
		t.Errorf("expected 121 samples, got %d/%d/%d", len(result.Times), len(result.Positions), len(result.Velocities))
	}
	if got := result.Times[120]; math.Abs(got-2) > 1e-9 {
		t.Errorf("final time = %v, want 2", got)
	}
	if calls != 121 {
		t.Errorf("observer called %d times, want 121", calls)
	}
	if result.Metrics["count"] != 121 {
		t.Errorf("count metric = %v, want 121", result.Metrics["count"])
	}
	if result.Final.Step != 120 {
		t.Errorf("final stats step = %d", result.Final.Step)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestRunnerCountsContacts(t *testing.T) {
	r := NewRunner(newTestSim(t, nil))
	result, err := r.Run(context.Background(), 240)
	if err != nil {
		t.Fatal(err)
	}
	if result.Contacts < 1 {
		t.Errorf("expected the ball to touch the ground, got %d contacts", result.Contacts)
	}
}

func TestRunnerInvalidSteps(t *testing.T) {
	r := NewRunner(newTestSim(t, nil))
	for _, steps := range []int{0, -1} {
		if _, err := r.Run(context.Background(), steps); err == nil {
			t.Errorf("expected error for %d steps", steps)
		}
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(newTestSim(t, nil))
	result, err := r.Run(ctx, 100)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.StepsTaken != 0 || len(result.Times) != 1 {
		t.Errorf("cancelled run took %d steps, %d samples", result.StepsTaken, len(result.Times))
	}
}

func TestRunWithCallback(t *testing.T) {
	s := newTestSim(t, nil)
	r := NewRunner(s)

	seen := 0
	err := r.RunWithCallback(context.Background(), 100, func(smp Sample) bool {
		seen++
		return smp.Step < 10
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 10 || s.World().StepCount() != 10 {
		t.Errorf("callback saw %d samples, world at step %d", seen, s.World().StepCount())
	}
}

func TestEnsemble(t *testing.T) {
	cfg := config.GetPreset("chamber")
	e := NewEnsemble(cfg, 3, 100, func() []Metric { return []Metric{&countMetric{}} })

	results, err := e.Run(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if len(r.Positions) != 11 {
			t.Errorf("run %d: %d samples", i, len(r.Positions))
		}
		if r.Metrics["count"] != 11 {
			t.Errorf("run %d: count metric = %v", i, r.Metrics["count"])
		}
	}
	if results[0].Velocities[0] == results[1].Velocities[0] {
		t.Error("different seeds launched the ball identically")
	}
}

func TestEnsembleRejectsBadRunCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		results, err := NewEnsemble(nil, n, 0, nil).Run(context.Background(), 5)
		if !errors.Is(err, physics.ErrInvalidConfig) || results != nil {
			t.Errorf("runs=%d: results %v, err %v", n, results, err)
		}
	}
}
