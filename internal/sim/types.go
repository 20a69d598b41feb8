package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/bouncer/internal/physics"
)

// Sample is the tracked ball's state after one step, as seen by metrics
// and observers.
type Sample struct {
	Step      int
	Time      float64
	Position  mgl64.Vec3
	Velocity  mgl64.Vec3
	Kinetic   float64
	Potential float64
	// Contacts counts contact pairs that started during this step.
	Contacts int
	Stats    physics.StepStats
}

func (s Sample) Energy() float64 { return s.Kinetic + s.Potential }

func (s Sample) IsValid() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(s.Position[i]) || math.IsInf(s.Position[i], 0) {
			return false
		}
		if math.IsNaN(s.Velocity[i]) || math.IsInf(s.Velocity[i], 0) {
			return false
		}
	}
	return true
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Sample)

func (f ObserverFunc) OnStep(s Sample) { f(s) }

type Result struct {
	Times      []float64
	Positions  [][3]float64
	Velocities [][3]float64
	Metrics    map[string]float64
	Errors     []error

	StepsTaken  int
	Contacts    int
	EnergyDrift float64
	Final       physics.StepStats
}

// Heights returns the y coordinate of every recorded position.
func (r *Result) Heights() []float64 {
	out := make([]float64, len(r.Positions))
	for i, p := range r.Positions {
		out[i] = p[1]
	}
	return out
}

// MaxHeightAfter returns the highest y recorded at or after time t.
func (r *Result) MaxHeightAfter(t float64) float64 {
	best := math.Inf(-1)
	for i, ti := range r.Times {
		if ti >= t {
			best = math.Max(best, r.Positions[i][1])
		}
	}
	return best
}
