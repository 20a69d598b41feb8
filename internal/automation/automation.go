package automation

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/metrics"
	"github.com/san-kum/bouncer/internal/sim"
	"github.com/san-kum/bouncer/internal/storage"
)

// Scenario is a scripted list of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run: a preset or config file, then parameter
// overrides by name.
type ScenarioStep struct {
	Preset string             `yaml:"preset"`
	Config string             `yaml:"config"`
	Steps  int                `yaml:"steps"`
	Seed   *int64             `yaml:"seed"`
	Params map[string]float64 `yaml:"params"`
	SaveAs string             `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step. RunID is empty unless
// the run was stored.
type StepResult struct {
	Name   string
	RunID  string
	Result *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// Resolve turns the step into a validated config.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}

	if err := applyParams(cfg, s.Params); err != nil {
		return nil, err
	}
	if s.Steps > 0 {
		cfg.Steps = s.Steps
	}
	if s.Seed != nil {
		cfg.Seed = *s.Seed
	}
	if cfg.Steps <= 0 {
		cfg.Steps = config.DefaultSteps
	}
	return cfg, cfg.Validate()
}

func (s ScenarioStep) name() string {
	switch {
	case s.SaveAs != "":
		return s.SaveAs
	case s.Preset != "":
		return s.Preset
	case s.Config != "":
		return s.Config
	}
	return "bounce"
}

// applyParams sets combined names such as "restitution" before specific
// ones such as "ball.restitution", so the specific value wins.
func applyParams(cfg *config.Config, params map[string]float64) error {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		di, dj := strings.Contains(names[i], "."), strings.Contains(names[j], ".")
		if di != dj {
			return dj
		}
		return names[i] < names[j]
	})
	for _, k := range names {
		if err := cfg.SetParam(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

func runOnce(ctx context.Context, cfg *config.Config) (*sim.Result, error) {
	s, err := sim.New(cfg)
	if err != nil {
		return nil, err
	}
	r := sim.NewRunner(s)
	for _, m := range metrics.Default() {
		r.AddMetric(m)
	}
	return r.Run(ctx, cfg.Steps)
}

// RunScenario executes every step in order. Steps with SaveAs set are
// stored when st is non-nil. Progress lines go to log, which may be nil.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, log io.Writer) ([]StepResult, error) {
	if log == nil {
		log = io.Discard
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.name()
		fmt.Fprintf(log, "running step %d/%d: %s\n", i+1, len(scenario.Steps), name)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		result, err := runOnce(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Result: result}
		if st != nil && step.SaveAs != "" {
			if sr.RunID, err = st.Save(step.SaveAs, cfg, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep runs the base scene once per value of one parameter.
type ParameterSweep struct {
	Base   *config.Config
	Param  string
	Values []float64
	Steps  int
}

type SweepResult struct {
	Value   float64
	Metrics map[string]float64
	Errors  int
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, log io.Writer) ([]SweepResult, error) {
	if log == nil {
		log = io.Discard
	}
	base := sweep.Base
	if base == nil {
		base = config.DefaultConfig()
	}
	steps := sweep.Steps
	if steps <= 0 {
		steps = base.Steps
	}
	if steps <= 0 {
		steps = config.DefaultSteps
	}

	results := make([]SweepResult, 0, len(sweep.Values))
	for i, v := range sweep.Values {
		cfg := base.Clone()
		cfg.Steps = steps
		if err := cfg.SetParam(sweep.Param, v); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%v: %w", sweep.Param, v, err)
		}

		result, err := runOnce(ctx, cfg)
		if err != nil {
			return nil, err
		}
		results = append(results, SweepResult{Value: v, Metrics: result.Metrics, Errors: len(result.Errors)})

		fmt.Fprintf(log, "sweep %d/%d: %s=%.4f\n", i+1, len(sweep.Values), sweep.Param, v)
	}

	return results, nil
}

// MonteCarloConfig runs the same scene with NumTrials consecutive seeds.
// It only varies anything when the ball has a random launch speed.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	Steps     int
	Seed      int64
}

type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Metrics map[string]float64
	// Stable is false when any step was clamped, rolled back or left the
	// stability bound.
	Stable bool
}

func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig) ([]MonteCarloResult, error) {
	if mc.NumTrials <= 0 {
		return nil, fmt.Errorf("trials must be positive, got %d", mc.NumTrials)
	}
	base := mc.Base
	if base == nil {
		base = config.DefaultConfig()
	}
	steps := mc.Steps
	if steps <= 0 {
		steps = base.Steps
	}
	if steps <= 0 {
		steps = config.DefaultSteps
	}

	ens := sim.NewEnsemble(base, mc.NumTrials, mc.Seed, metrics.Default)
	runs, err := ens.Run(ctx, steps)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		results[i] = MonteCarloResult{
			TrialID: i,
			Seed:    mc.Seed + int64(i),
			Metrics: r.Metrics,
			Stable:  len(r.Errors) == 0 && r.Metrics["stability"] == 1,
		}
	}
	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
