package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/physics"
)

// MetricFactory returns fresh metric instances for one ensemble member.
// Metrics hold per-run state, so members never share them.
type MetricFactory func() []Metric

// Ensemble runs the same scene with consecutive seeds, one world per
// goroutine. Only the seed differs between members, which matters when the
// ball is launched with a random speed.
type Ensemble struct {
	base      *config.Config
	numRuns   int
	seedStart int64
	metrics   MetricFactory
}

func NewEnsemble(cfg *config.Config, numRuns int, seedStart int64, metrics MetricFactory) *Ensemble {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Ensemble{base: cfg.Clone(), numRuns: numRuns, seedStart: seedStart, metrics: metrics}
}

func (e *Ensemble) Run(ctx context.Context, steps int) ([]*Result, error) {
	if e.numRuns <= 0 {
		return nil, fmt.Errorf("%w: ensemble needs at least one run, got %d", physics.ErrInvalidConfig, e.numRuns)
	}
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfg := e.base.Clone()
			cfg.Seed = e.seedStart + int64(idx)

			s, err := New(cfg)
			if err != nil {
				errs[idx] = err
				return
			}
			r := NewRunner(s)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					r.AddMetric(m)
				}
			}
			results[idx], errs[idx] = r.Run(ctx, steps)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
