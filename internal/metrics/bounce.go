package metrics

import (
	"math"

	"github.com/san-kum/bouncer/internal/sim"
)

// Bounces counts contact pairs the ball started.
type Bounces struct {
	name  string
	count int
}

func NewBounces() *Bounces {
	return &Bounces{name: "bounces"}
}

func (b *Bounces) Name() string         { return b.name }
func (b *Bounces) Observe(s sim.Sample) { b.count += s.Contacts }
func (b *Bounces) Value() float64       { return float64(b.count) }
func (b *Bounces) Reset()               { b.count = 0 }

// Apex is the highest ball centre reached after the first contact, i.e. the
// rebound height. It reports NaN until the ball has touched something.
type Apex struct {
	name    string
	touched bool
	apex    float64
}

func NewApex() *Apex {
	return &Apex{name: "apex", apex: math.Inf(-1)}
}

func (a *Apex) Name() string { return a.name }

func (a *Apex) Observe(s sim.Sample) {
	if s.Contacts > 0 {
		a.touched = true
	}
	if a.touched {
		a.apex = math.Max(a.apex, s.Position.Y())
	}
}

func (a *Apex) Value() float64 {
	if !a.touched {
		return math.NaN()
	}
	return a.apex
}

func (a *Apex) Reset() {
	a.touched = false
	a.apex = math.Inf(-1)
}

// Default is the metric set the CLI attaches to every run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewEnergy(),
		NewEnergyDrift(),
		NewStability(1e3),
		NewBounces(),
		NewApex(),
	}
}
