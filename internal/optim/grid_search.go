package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/metrics"
	"github.com/san-kum/bouncer/internal/sim"
)

// Objective scores a finished run. Lower is better.
type Objective func(*sim.Result) float64

// GridSearch tries every combination of parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// MetricObjective minimises a named run metric. NaN scores as +Inf.
func MetricObjective(name string) Objective {
	return func(r *sim.Result) float64 {
		v, ok := r.Metrics[name]
		if !ok || math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}
}

// TargetObjective minimises the distance of a metric from target.
func TargetObjective(name string, target float64) Objective {
	m := MetricObjective(name)
	return func(r *sim.Result) float64 {
		return math.Abs(m(r) - target)
	}
}

// Search runs base once per grid point for steps steps and returns the
// best parameter set. Points whose config fails validation are skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, steps int, objective Objective) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	for _, name := range g.paramNames {
		if _, err := base.GetParam(name); err != nil {
			return nil, 0, err
		}
	}
	if steps <= 0 {
		steps = config.DefaultSteps
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, steps, objective, &best, &bestParams)
	if err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, best, fmt.Errorf("no grid point produced a finite score")
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	steps int,
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		cfg := base.Clone()
		for _, name := range g.paramNames {
			if err := cfg.SetParam(name, current[name]); err != nil {
				return err
			}
		}
		if cfg.Validate() != nil {
			return nil
		}

		s, err := sim.New(cfg)
		if err != nil {
			return nil
		}
		r := sim.NewRunner(s)
		for _, m := range metrics.Default() {
			r.AddMetric(m)
		}
		result, err := r.Run(ctx, steps)
		if err != nil {
			return err
		}

		val := objective(result)
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, steps, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
