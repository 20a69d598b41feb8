package physics

import "github.com/go-gl/mathgl/mgl64"

// IntegrationParameters tune the step pipeline.
type IntegrationParameters struct {
	Dt               float64
	SolverIterations int

	// ContactMargin is the largest separation at which a pair still gets
	// a manifold.
	ContactMargin         float64
	Baumgarte             float64
	AllowedPenetration    float64
	MaxCorrectionVelocity float64
	RestitutionThreshold  float64
	MaxImpulse            float64
	MaxLinearVelocity     float64
	MaxAngularVelocity    float64

	AllowSleep           bool
	SleepEnergyThreshold float64
	SleepSteps           int

	// CCDThresholdFraction of a body's smallest dimension is the step
	// displacement above which swept tests run.
	CCDThresholdFraction float64
	WarmStart            bool
}

func DefaultIntegrationParameters() IntegrationParameters {
	return IntegrationParameters{
		Dt:                    1.0 / 60.0,
		SolverIterations:      8,
		ContactMargin:         0.02,
		Baumgarte:             0.2,
		AllowedPenetration:    0.005,
		MaxCorrectionVelocity: 5,
		RestitutionThreshold:  0.5,
		MaxImpulse:            1e6,
		MaxLinearVelocity:     500,
		MaxAngularVelocity:    100,
		AllowSleep:            true,
		SleepEnergyThreshold:  0.005,
		SleepSteps:            30,
		CCDThresholdFraction:  0.5,
		WarmStart:             true,
	}
}

// Validate accepts dt = 0, which turns Step into a no-op.
func (p IntegrationParameters) Validate() error {
	if p.Dt < 0 || !finite(p.Dt) {
		return invalidConfig("dt must be >= 0, got %v", p.Dt)
	}
	if p.SolverIterations < 1 {
		return invalidConfig("solver iterations must be >= 1, got %d", p.SolverIterations)
	}
	for name, v := range map[string]float64{
		"contact margin":          p.ContactMargin,
		"baumgarte":               p.Baumgarte,
		"allowed penetration":     p.AllowedPenetration,
		"max correction velocity": p.MaxCorrectionVelocity,
		"restitution threshold":   p.RestitutionThreshold,
		"max impulse":             p.MaxImpulse,
		"max linear velocity":     p.MaxLinearVelocity,
		"max angular velocity":    p.MaxAngularVelocity,
		"sleep energy threshold":  p.SleepEnergyThreshold,
		"ccd threshold fraction":  p.CCDThresholdFraction,
	} {
		if v < 0 || !finite(v) {
			return invalidConfig("%s must be >= 0, got %v", name, v)
		}
	}
	if p.Baumgarte > 1 {
		return invalidConfig("baumgarte must be <= 1, got %v", p.Baumgarte)
	}
	if p.SleepSteps < 0 {
		return invalidConfig("sleep steps must be >= 0, got %d", p.SleepSteps)
	}
	return nil
}

// StepStats summarises one call to Step.
type StepStats struct {
	Step      int
	Time      float64
	Pairs     int
	Manifolds int
	Contacts  int
	Islands   int
	Sleeping  int
	CCDHits   int
	// Clamped counts bodies whose speed was limited, Restored those whose
	// state went non-finite and was rolled back.
	Clamped  int
	Restored int
}

// World is a self-contained scene: the entity store plus gravity, tuning
// and the per-step subsystems. Worlds share nothing, so separate worlds may
// be stepped from separate goroutines.
type World struct {
	Store

	gravity mgl64.Vec3
	params  IntegrationParameters

	broad   *BroadPhase
	narrow  *NarrowPhase
	solver  *Solver
	islands *IslandManager

	manifolds []*ContactManifold
	stats     StepStats
	step      int
	time      float64
}

func NewWorld(gravity mgl64.Vec3, params IntegrationParameters) (*World, error) {
	if !finiteVec(gravity) {
		return nil, invalidConfig("non-finite gravity %v", gravity)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &World{
		gravity: gravity,
		params:  params,
		broad:   NewBroadPhase(),
		narrow:  NewNarrowPhase(),
		solver:  NewSolver(),
		islands: NewIslandManager(),
	}, nil
}

func (w *World) Params() IntegrationParameters { return w.params }

// SetParams swaps the tuning between steps.
func (w *World) SetParams(p IntegrationParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	w.params = p
	return nil
}

func (w *World) Gravity() mgl64.Vec3 { return w.gravity }

func (w *World) SetGravity(g mgl64.Vec3) error {
	if !finiteVec(g) {
		return invalidConfig("non-finite gravity %v", g)
	}
	w.gravity = g
	return nil
}

func (w *World) StepCount() int   { return w.step }
func (w *World) Time() float64    { return w.time }
func (w *World) Stats() StepStats { return w.stats }

// Manifolds returns the manifolds found by the last step. They are
// overwritten by the next step.
func (w *World) Manifolds() []*ContactManifold { return w.manifolds }

func (w *World) Islands() []Island { return w.islands.islands }

// DrainEvents returns and clears the contact events gathered since the
// last drain.
func (w *World) DrainEvents() []ContactEvent { return w.narrow.drainEvents() }

// Step advances the world by one Dt. With Dt = 0 nothing changes.
func (w *World) Step() StepStats {
	p := w.params
	dt := p.Dt
	if dt == 0 {
		return w.stats
	}

	w.syncColliders()
	integrateVelocities(&w.Store, w.gravity, dt)

	pairs := w.broad.update(&w.Store, dt, p.ContactMargin)
	w.manifolds = w.narrow.update(&w.Store, pairs, p.ContactMargin)

	w.islands.build(&w.Store, w.manifolds)
	w.islands.wake(&w.Store, w.manifolds)

	w.solver.solve(&w.Store, w.manifolds, p)
	integratePositions(&w.Store, dt)
	ccdHits := resolveCCD(&w.Store, p)
	clamped, restored := sanitize(&w.Store, p)
	w.syncColliders()

	w.islands.sleep(&w.Store, p)

	w.step++
	w.time += dt

	contacts := 0
	for _, m := range w.manifolds {
		contacts += len(m.Points)
	}
	w.stats = StepStats{
		Step:      w.step,
		Time:      w.time,
		Pairs:     len(pairs),
		Manifolds: len(w.manifolds),
		Contacts:  contacts,
		Islands:   len(w.islands.islands),
		Sleeping:  w.islands.sleepingBodies(),
		CCDHits:   ccdHits,
		Clamped:   clamped,
		Restored:  restored,
	}
	return w.stats
}

// RemoveBody removes a body and its colliders, then wakes every body that
// was touching them so nothing keeps sleeping on geometry that is gone.
func (w *World) RemoveBody(h BodyHandle) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	removed := append([]ColliderHandle(nil), b.colliders...)
	if err := w.Store.RemoveBody(h); err != nil {
		return err
	}
	w.dropManifolds(removed)
	return nil
}

// RemoveCollider removes a collider and wakes whatever was touching it.
func (w *World) RemoveCollider(h ColliderHandle) error {
	if err := w.Store.RemoveCollider(h); err != nil {
		return err
	}
	w.dropManifolds([]ColliderHandle{h})
	return nil
}

// dropManifolds wakes both sides of every cached manifold that references
// one of the removed colliders and drops those manifolds. The narrow
// phase cache keeps them so the next step still reports the contacts as
// stopped.
func (w *World) dropManifolds(removed []ColliderHandle) {
	if len(removed) == 0 {
		return
	}
	gone := make(map[ColliderHandle]bool, len(removed))
	for _, h := range removed {
		gone[h] = true
	}
	kept := w.manifolds[:0]
	for _, m := range w.manifolds {
		if gone[m.Collider1] || gone[m.Collider2] {
			w.wakeBody(m.Body1)
			w.wakeBody(m.Body2)
			continue
		}
		kept = append(kept, m)
	}
	w.manifolds = kept
}

// StepChecked runs Step and returns a StepError wrapping ErrUnstable when
// any body had to be restored from non-finite state.
func (w *World) StepChecked() (StepStats, error) {
	st := w.Step()
	if st.Restored > 0 {
		return st, &StepError{Step: st.Step, Time: st.Time, Wrapped: ErrUnstable}
	}
	return st, nil
}

func (w *World) syncColliders() {
	w.bodies.each(func(_ uint64, b *RigidBody) {
		w.syncBodyColliders(b)
	})
}

// KineticEnergy sums ½mv² + ½ωᵀIω over dynamic bodies.
func (w *World) KineticEnergy() float64 {
	e := 0.0
	w.bodies.each(func(_ uint64, b *RigidBody) {
		if b.kind != Dynamic {
			return
		}
		r := b.rotation.Mat4().Mat3()
		iw := r.Mul3(b.inertia).Mul3(r.Transpose())
		e += 0.5*b.mass*b.linVel.LenSqr() + 0.5*b.angVel.Dot(iw.Mul3x1(b.angVel))
	})
	return e
}

// PotentialEnergy is -Σ m·g·x over dynamic bodies, zero at the origin.
func (w *World) PotentialEnergy() float64 {
	e := 0.0
	w.bodies.each(func(_ uint64, b *RigidBody) {
		if b.kind == Dynamic {
			e -= b.mass * b.gravityScale * w.gravity.Dot(b.position)
		}
	})
	return e
}
