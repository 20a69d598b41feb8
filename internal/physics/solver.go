package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type pointConstraint struct {
	point *ContactPoint
	r1    mgl64.Vec3
	r2    mgl64.Vec3

	normalMass float64
	// velocity the normal constraint drives vn toward
	target float64

	tangents       [2]mgl64.Vec3
	tangentMass    [2]float64
	tangentImpulse [2]float64

	bias          float64
	pseudoImpulse float64
}

type contactConstraint struct {
	manifold *ContactManifold
	b1, b2   *RigidBody
	friction float64
	points   []pointConstraint
}

// Solver resolves contacts with sequential impulses. Overlap is removed by a
// separate pseudo-velocity pass (split impulse) that moves bodies without
// changing their real velocity, so position correction never adds energy to
// a bounce.
type Solver struct {
	constraints []contactConstraint
	// stands in for parentless colliders
	ground RigidBody
}

func NewSolver() *Solver {
	return &Solver{ground: RigidBody{kind: Fixed, rotation: mgl64.QuatIdent()}}
}

func (sv *Solver) bodyOf(s *Store, h BodyHandle) *RigidBody {
	if b, ok := s.bodies.get(uint64(h)); ok {
		return b
	}
	return &sv.ground
}

// prepare builds constraints for manifolds touching at least one awake
// dynamic body and applies the warm-start impulses.
func (sv *Solver) prepare(s *Store, manifolds []*ContactManifold, p IntegrationParameters) {
	sv.constraints = sv.constraints[:0]
	dt := p.Dt

	for _, m := range manifolds {
		b1, b2 := sv.bodyOf(s, m.Body1), sv.bodyOf(s, m.Body2)
		if !b1.isActive() && !b2.isActive() {
			continue
		}
		c1, ok1 := s.colliders.get(uint64(m.Collider1))
		c2, ok2 := s.colliders.get(uint64(m.Collider2))
		if !ok1 || !ok2 {
			continue
		}
		friction := combine(c1.desc.Friction, c2.desc.Friction, c1.desc.FrictionCombine, c2.desc.FrictionCombine)
		restitution := combine(c1.desc.Restitution, c2.desc.Restitution, c1.desc.RestitutionCombine, c2.desc.RestitutionCombine)

		n := m.Normal
		t1, t2 := tangentBasis(n)
		cc := contactConstraint{manifold: m, b1: b1, b2: b2, friction: friction}

		for i := range m.Points {
			cp := &m.Points[i]
			pc := pointConstraint{
				point:    cp,
				r1:       cp.Position.Sub(b1.position),
				r2:       cp.Position.Sub(b2.position),
				tangents: [2]mgl64.Vec3{t1, t2},
			}
			if k := b1.inverseMassAlong(pc.r1, n) + b2.inverseMassAlong(pc.r2, n); k > 0 {
				pc.normalMass = 1 / k
			}
			for j, t := range pc.tangents {
				if k := b1.inverseMassAlong(pc.r1, t) + b2.inverseMassAlong(pc.r2, t); k > 0 {
					pc.tangentMass[j] = 1 / k
				}
			}

			vn := b1.velocityAt(pc.r1).Sub(b2.velocityAt(pc.r2)).Dot(n)
			pc.target = contactTarget(vn, cp.Depth, restitution, dt, p.RestitutionThreshold)
			if cp.Depth > p.AllowedPenetration && dt > 0 {
				pc.bias = math.Min(p.Baumgarte/dt*(cp.Depth-p.AllowedPenetration), p.MaxCorrectionVelocity)
			}

			cc.points = append(cc.points, pc)
		}

		// targets above use the velocity before any impulse of this step
		for i := range cc.points {
			pc := &cc.points[i]
			cp := pc.point
			if !p.WarmStart {
				cp.NormalImpulse = 0
				cp.TangentImpulse = mgl64.Vec3{}
				continue
			}
			pc.tangentImpulse[0] = cp.TangentImpulse.Dot(t1)
			pc.tangentImpulse[1] = cp.TangentImpulse.Dot(t2)
			impulse := n.Mul(cp.NormalImpulse).
				Add(t1.Mul(pc.tangentImpulse[0])).
				Add(t2.Mul(pc.tangentImpulse[1]))
			b1.applyImpulse(impulse, pc.r1)
			b2.applyImpulse(impulse.Mul(-1), pc.r2)
		}
		sv.constraints = append(sv.constraints, cc)
	}
}

// contactTarget is the normal velocity a contact point should end the step
// with. An approaching point that will reach the surface within dt bounces
// with restitution e; otherwise an open gap may close by depth/dt and a
// touching point must stop approaching.
func contactTarget(vn, depth, e, dt, threshold float64) float64 {
	reaches := depth >= 0 || -vn*dt >= -depth
	if e > 0 && vn < -threshold && reaches {
		return -e * vn
	}
	if depth < 0 && dt > 0 {
		return depth / dt
	}
	return 0
}

// solveVelocities runs one iteration over every constraint. Friction goes
// first so the normal impulse has the last word on penetration.
func (sv *Solver) solveVelocities(maxImpulse float64) {
	for ci := range sv.constraints {
		cc := &sv.constraints[ci]
		b1, b2 := cc.b1, cc.b2
		n := cc.manifold.Normal

		for pi := range cc.points {
			pc := &cc.points[pi]

			if cc.friction > 0 {
				maxFriction := cc.friction * pc.point.NormalImpulse
				for j, t := range pc.tangents {
					dv := b1.velocityAt(pc.r1).Sub(b2.velocityAt(pc.r2))
					lambda := -dv.Dot(t) * pc.tangentMass[j]
					old := pc.tangentImpulse[j]
					pc.tangentImpulse[j] = mgl64.Clamp(old+lambda, -maxFriction, maxFriction)
					p := t.Mul(pc.tangentImpulse[j] - old)
					b1.applyImpulse(p, pc.r1)
					b2.applyImpulse(p.Mul(-1), pc.r2)
				}
			}

			dv := b1.velocityAt(pc.r1).Sub(b2.velocityAt(pc.r2))
			lambda := pc.normalMass * (pc.target - dv.Dot(n))
			old := pc.point.NormalImpulse
			pc.point.NormalImpulse = mgl64.Clamp(old+lambda, 0, maxImpulse)
			p := n.Mul(pc.point.NormalImpulse - old)
			b1.applyImpulse(p, pc.r1)
			b2.applyImpulse(p.Mul(-1), pc.r2)
		}
	}
}

// solvePositions runs one iteration of the pseudo-velocity pass.
func (sv *Solver) solvePositions(maxImpulse float64) {
	for ci := range sv.constraints {
		cc := &sv.constraints[ci]
		b1, b2 := cc.b1, cc.b2
		n := cc.manifold.Normal

		for pi := range cc.points {
			pc := &cc.points[pi]
			if pc.bias == 0 {
				continue
			}
			dv := b1.pseudoVelocityAt(pc.r1).Sub(b2.pseudoVelocityAt(pc.r2))
			lambda := pc.normalMass * (pc.bias - dv.Dot(n))
			old := pc.pseudoImpulse
			pc.pseudoImpulse = mgl64.Clamp(old+lambda, 0, maxImpulse)
			p := n.Mul(pc.pseudoImpulse - old)
			b1.applyPseudoImpulse(p, pc.r1)
			b2.applyPseudoImpulse(p.Mul(-1), pc.r2)
		}
	}
}

// storeImpulses writes the accumulated tangent impulses back to the
// manifolds so the next step can warm start from them.
func (sv *Solver) storeImpulses() {
	for ci := range sv.constraints {
		cc := &sv.constraints[ci]
		for pi := range cc.points {
			pc := &cc.points[pi]
			pc.point.TangentImpulse = pc.tangents[0].Mul(pc.tangentImpulse[0]).
				Add(pc.tangents[1].Mul(pc.tangentImpulse[1]))
		}
	}
}

func (sv *Solver) solve(s *Store, manifolds []*ContactManifold, p IntegrationParameters) {
	sv.prepare(s, manifolds, p)
	for i := 0; i < p.SolverIterations; i++ {
		sv.solveVelocities(p.MaxImpulse)
	}
	for i := 0; i < p.SolverIterations; i++ {
		sv.solvePositions(p.MaxImpulse)
	}
	sv.storeImpulses()
}
