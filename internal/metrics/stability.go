package metrics

import (
	"github.com/san-kum/bouncer/internal/sim"
)

// Stability is the fraction of steps in which the world needed no speed
// clamping or state rollback and the ball stayed within bound of the
// origin. 1 means every step was clean.
type Stability struct {
	name       string
	bound      float64
	violations int
	samples    int
}

func NewStability(bound float64) *Stability {
	return &Stability{
		name:  "stability",
		bound: bound,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(smp sim.Sample) {
	s.samples++
	if smp.Stats.Clamped > 0 || smp.Stats.Restored > 0 || !smp.IsValid() || smp.Position.Len() > s.bound {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
