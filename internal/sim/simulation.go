package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/physics"
	"github.com/san-kum/bouncer/internal/scene"
)

// Simulation owns one scene and reports the tracked ball after each step.
type Simulation struct {
	cfg   *config.Config
	scene *scene.Scene
}

// New builds the scene described by cfg. A nil cfg uses the defaults: the
// ground slab and a ball dropped from (0, 10, 1).
func New(cfg *config.Config) (*Simulation, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Simulation{cfg: cfg.Clone()}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards the current world and rebuilds the scene from the config.
func (s *Simulation) Reset() error {
	sc, err := scene.Build(s.cfg)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}
	s.scene = sc
	return nil
}

// Step advances the world once and returns the ball position. A step that
// had to roll back non-finite state still returns a position together with
// a *physics.StepError.
func (s *Simulation) Step() ([3]float64, error) {
	_, stepErr := s.scene.World.StepChecked()
	pos, err := s.Position()
	if err != nil {
		return pos, err
	}
	return pos, stepErr
}

// Advance steps once and returns the resulting sample with Contacts set to
// the number of contact pairs the ball started. A *physics.StepError is
// returned alongside a valid sample when non-finite state was rolled back.
func (s *Simulation) Advance() (Sample, error) {
	_, stepErr := s.scene.World.StepChecked()
	smp, err := s.Sample()
	if err != nil {
		return smp, err
	}
	smp.Contacts = s.ballContacts()
	return smp, stepErr
}

// ballContacts drains the world's events and counts the started pairs that
// involve the ball.
func (s *Simulation) ballContacts() int {
	ball := s.scene.BallCollider
	n := 0
	for _, ev := range s.scene.World.DrainEvents() {
		if ev.Kind == physics.ContactStarted && (ev.Collider1 == ball || ev.Collider2 == ball) {
			n++
		}
	}
	return n
}

func (s *Simulation) Position() ([3]float64, error) {
	st, err := s.scene.World.Body(s.scene.Ball)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64(st.Position), nil
}

func (s *Simulation) Velocity() ([3]float64, error) {
	st, err := s.scene.World.Body(s.scene.Ball)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64(st.LinearVelocity), nil
}

// Sample snapshots the ball and the last step's statistics. Contacts is
// left zero; only Advance drains events.
func (s *Simulation) Sample() (Sample, error) {
	w := s.scene.World
	st, err := w.Body(s.scene.Ball)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Step:      w.StepCount(),
		Time:      w.Time(),
		Position:  st.Position,
		Velocity:  st.LinearVelocity,
		Kinetic:   0.5 * st.Mass * st.LinearVelocity.LenSqr(),
		Potential: -st.Mass * w.Gravity().Dot(st.Position),
		Stats:     w.Stats(),
	}, nil
}

func (s *Simulation) World() *physics.World    { return s.scene.World }
func (s *Simulation) Scene() *scene.Scene      { return s.scene }
func (s *Simulation) Ball() physics.BodyHandle { return s.scene.Ball }
func (s *Simulation) Config() *config.Config   { return s.cfg.Clone() }
func (s *Simulation) Dt() float64              { return s.scene.World.Params().Dt }
func (s *Simulation) Gravity() mgl64.Vec3      { return s.scene.World.Gravity() }
