package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/bouncer/internal/physics"
)

// Runner drives a Simulation for a fixed number of steps, feeding every
// sample to its metrics and observers.
type Runner struct {
	sim       *Simulation
	metrics   []Metric
	observers []Observer
}

func NewRunner(s *Simulation) *Runner {
	return &Runner{
		sim:       s,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Simulation() *Simulation { return r.sim }

// Run advances the simulation steps times. The initial state is recorded
// as well, so a completed run holds steps+1 samples. Cancellation is
// checked between steps; a cancelled run returns what it has so far
// together with ctx.Err(). Rolled-back steps are collected in
// Result.Errors and do not stop the run.
func (r *Runner) Run(ctx context.Context, steps int) (*Result, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	result := &Result{
		Times:      make([]float64, 0, steps+1),
		Positions:  make([][3]float64, 0, steps+1),
		Velocities: make([][3]float64, 0, steps+1),
		Metrics:    make(map[string]float64),
		Errors:     make([]error, 0),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	// drop events left over from earlier manual stepping
	r.sim.World().DrainEvents()

	first, err := r.sim.Sample()
	if err != nil {
		return nil, err
	}
	r.record(result, first)
	initialEnergy := first.Energy()
	last := first

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			r.finish(result, initialEnergy, last)
			return result, ctx.Err()
		default:
		}

		s, err := r.sim.Advance()
		var stepErr *physics.StepError
		if errors.As(err, &stepErr) {
			result.Errors = append(result.Errors, err)
		} else if err != nil {
			r.finish(result, initialEnergy, last)
			return result, err
		}
		result.Contacts += s.Contacts
		result.StepsTaken++

		if !s.IsValid() {
			result.Errors = append(result.Errors, &physics.StepError{Step: s.Step, Time: s.Time, Wrapped: physics.ErrUnstable})
			break
		}
		r.record(result, s)
		last = s
	}

	r.finish(result, initialEnergy, last)
	return result, nil
}

func (r *Runner) record(result *Result, s Sample) {
	for _, m := range r.metrics {
		m.Observe(s)
	}
	for _, obs := range r.observers {
		obs.OnStep(s)
	}
	result.Times = append(result.Times, s.Time)
	result.Positions = append(result.Positions, [3]float64(s.Position))
	result.Velocities = append(result.Velocities, [3]float64(s.Velocity))
}

func (r *Runner) finish(result *Result, initialEnergy float64, last Sample) {
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(last.Energy()-initialEnergy) / math.Abs(initialEnergy)
	}
	result.Final = last.Stats
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// RunWithCallback steps until the callback returns false, the context is
// cancelled or maxSteps is reached. The callback sees the state after each
// step.
func (r *Runner) RunWithCallback(ctx context.Context, maxSteps int, callback func(Sample) bool) error {
	if maxSteps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", maxSteps)
	}
	for i := 0; i < maxSteps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s, err := r.sim.Advance()
		if err != nil {
			return err
		}
		if !callback(s) {
			return nil
		}
	}
	return nil
}
