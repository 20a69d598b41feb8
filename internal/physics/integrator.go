package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// integrateVelocities applies gravity, accumulated forces and damping to
// every awake dynamic body, then clears the force accumulators.
func integrateVelocities(s *Store, gravity mgl64.Vec3, dt float64) {
	s.bodies.each(func(_ uint64, b *RigidBody) {
		b.prevPosition = b.position
		b.prevRotation = b.rotation
		if !b.isActive() {
			b.force = mgl64.Vec3{}
			b.torque = mgl64.Vec3{}
			return
		}

		accel := gravity.Mul(b.gravityScale).Add(b.force.Mul(b.invMass))
		b.linVel = b.linVel.Add(accel.Mul(dt))
		b.angVel = b.angVel.Add(b.invInertiaWorld.Mul3x1(b.torque).Mul(dt))

		b.linVel = b.linVel.Mul(1 / (1 + dt*b.linearDamping))
		b.angVel = b.angVel.Mul(1 / (1 + dt*b.angularDamping))

		b.force = mgl64.Vec3{}
		b.torque = mgl64.Vec3{}
	})
}

// integratePositions advances awake dynamic and kinematic bodies by their
// solved velocity plus any pseudo velocity from position correction.
func integratePositions(s *Store, dt float64) {
	s.bodies.each(func(_ uint64, b *RigidBody) {
		switch {
		case b.kind == Kinematic:
		case b.isActive():
		default:
			return
		}
		v := b.linVel.Add(b.pseudoLin)
		w := b.angVel.Add(b.pseudoAng)
		b.pseudoLin = mgl64.Vec3{}
		b.pseudoAng = mgl64.Vec3{}

		b.position = b.position.Add(v.Mul(dt))
		b.rotation = integrateRotation(b.rotation, w, dt)
		b.updateWorldInertia()
	})
}

// integrateRotation applies the rotation ω·dt to q, q' = exp(½ω dt)·q.
func integrateRotation(q mgl64.Quat, w mgl64.Vec3, dt float64) mgl64.Quat {
	angle := w.Len() * dt
	if angle < 1e-12 {
		return q
	}
	axis := w.Normalize()
	half := angle / 2
	dq := mgl64.Quat{W: math.Cos(half), V: axis.Mul(math.Sin(half))}
	return dq.Mul(q).Normalize()
}

// sanitize rolls back bodies whose state went non-finite and limits
// runaway speeds. It returns how many bodies were speed-limited and how many
// were rolled back.
func sanitize(s *Store, p IntegrationParameters) (clamped, restored int) {
	s.bodies.each(func(_ uint64, b *RigidBody) {
		if b.kind == Fixed {
			return
		}
		if !finiteVec(b.position) || !finiteQuat(b.rotation) || !finiteVec(b.linVel) || !finiteVec(b.angVel) {
			b.position = b.prevPosition
			b.rotation = b.prevRotation
			b.linVel = mgl64.Vec3{}
			b.angVel = mgl64.Vec3{}
			b.updateWorldInertia()
			restored++
			return
		}
		limited := false
		if v := b.linVel.Len(); p.MaxLinearVelocity > 0 && v > p.MaxLinearVelocity {
			b.linVel = b.linVel.Mul(p.MaxLinearVelocity / v)
			limited = true
		}
		if w := b.angVel.Len(); p.MaxAngularVelocity > 0 && w > p.MaxAngularVelocity {
			b.angVel = b.angVel.Mul(p.MaxAngularVelocity / w)
			limited = true
		}
		if limited {
			clamped++
		}
	})
	return clamped, restored
}
