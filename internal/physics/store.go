package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Store owns every body, collider and joint of a world.
type Store struct {
	bodies    arena[RigidBody]
	colliders arena[Collider]
	joints    arena[Joint]
}

func (s *Store) InsertBody(d RigidBodyDesc) (BodyHandle, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	b := newRigidBody(d)
	b.recomputeMass(nil)
	return BodyHandle(s.bodies.insert(b)), nil
}

// InsertCollider inserts a parentless collider, fixed in place at its
// local offset.
func (s *Store) InsertCollider(d ColliderDesc) (ColliderHandle, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	c := Collider{desc: d}
	c.syncPose(mgl64.Vec3{}, mgl64.QuatIdent())
	return ColliderHandle(s.colliders.insert(c)), nil
}

// InsertColliderWithParent attaches a collider to a body and recomputes the
// body's mass and inertia.
func (s *Store) InsertColliderWithParent(d ColliderDesc, parent BodyHandle) (ColliderHandle, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	b, err := s.body(parent)
	if err != nil {
		return 0, fmt.Errorf("attach collider: %w", err)
	}
	c := Collider{desc: d, parent: parent}
	c.syncPose(b.position, b.rotation)
	h := ColliderHandle(s.colliders.insert(c))
	b.colliders = append(b.colliders, h)
	b.recomputeMass(&s.colliders)
	b.wake()
	return h, nil
}

func (s *Store) Body(h BodyHandle) (BodyState, error) {
	b, err := s.body(h)
	if err != nil {
		return BodyState{}, err
	}
	return b.state(), nil
}

func (s *Store) Collider(h ColliderHandle) (ColliderState, error) {
	c, ok := s.colliders.get(uint64(h))
	if !ok {
		return ColliderState{}, ErrInvalidHandle
	}
	return c.state(), nil
}

func (s *Store) Contains(h BodyHandle) bool {
	_, ok := s.bodies.get(uint64(h))
	return ok
}

// RemoveBody removes a body together with its colliders and any joint that
// references it. The handle is invalid afterwards, even once the slot is
// reused.
func (s *Store) RemoveBody(h BodyHandle) error {
	b, ok := s.bodies.remove(uint64(h))
	if !ok {
		return ErrInvalidHandle
	}
	for _, ch := range b.colliders {
		s.colliders.remove(uint64(ch))
	}
	s.removeJointsOf(h)
	return nil
}

// RemoveCollider detaches and removes a collider, updating its parent's
// mass properties.
func (s *Store) RemoveCollider(h ColliderHandle) error {
	c, ok := s.colliders.remove(uint64(h))
	if !ok {
		return ErrInvalidHandle
	}
	if !c.hasParent() {
		return nil
	}
	b, err := s.body(c.parent)
	if err != nil {
		// parent removal always takes its colliders with it
		panic(fmt.Sprintf("physics: collider %v outlived parent %v", h, c.parent))
	}
	for i, ch := range b.colliders {
		if ch == h {
			b.colliders = append(b.colliders[:i], b.colliders[i+1:]...)
			break
		}
	}
	b.recomputeMass(&s.colliders)
	b.wake()
	return nil
}

func (s *Store) NumBodies() int    { return s.bodies.len() }
func (s *Store) NumColliders() int { return s.colliders.len() }

// Bodies returns every live body handle in slot order.
func (s *Store) Bodies() []BodyHandle {
	out := make([]BodyHandle, 0, s.bodies.len())
	s.bodies.each(func(h uint64, _ *RigidBody) {
		out = append(out, BodyHandle(h))
	})
	return out
}

// Colliders returns every live collider handle in slot order.
func (s *Store) Colliders() []ColliderHandle {
	out := make([]ColliderHandle, 0, s.colliders.len())
	s.colliders.each(func(h uint64, _ *Collider) {
		out = append(out, ColliderHandle(h))
	})
	return out
}

func (s *Store) SetLinearVelocity(h BodyHandle, v mgl64.Vec3) error {
	b, err := s.body(h)
	if err != nil {
		return err
	}
	if !finiteVec(v) {
		return invalidConfig("non-finite velocity %v", v)
	}
	if b.kind == Fixed {
		return nil
	}
	b.linVel = v
	b.wake()
	return nil
}

func (s *Store) SetAngularVelocity(h BodyHandle, w mgl64.Vec3) error {
	b, err := s.body(h)
	if err != nil {
		return err
	}
	if !finiteVec(w) {
		return invalidConfig("non-finite angular velocity %v", w)
	}
	if b.kind == Fixed {
		return nil
	}
	b.angVel = w
	b.wake()
	return nil
}

// SetPosition teleports a body and its colliders.
func (s *Store) SetPosition(h BodyHandle, p mgl64.Vec3, q mgl64.Quat) error {
	b, err := s.body(h)
	if err != nil {
		return err
	}
	if !finiteVec(p) || !finiteQuat(q) || q.Len() < 1e-9 {
		return invalidConfig("non-finite transform")
	}
	b.position = p
	b.rotation = q.Normalize()
	b.prevPosition = b.position
	b.prevRotation = b.rotation
	b.updateWorldInertia()
	s.syncBodyColliders(b)
	b.wake()
	return nil
}

// ApplyImpulse changes the body's momentum instantly at its centre of mass.
func (s *Store) ApplyImpulse(h BodyHandle, impulse mgl64.Vec3) error {
	b, err := s.body(h)
	if err != nil {
		return err
	}
	if !finiteVec(impulse) {
		return invalidConfig("non-finite impulse %v", impulse)
	}
	if b.kind != Dynamic {
		return nil
	}
	b.wake()
	b.linVel = b.linVel.Add(impulse.Mul(b.invMass))
	return nil
}

// AddForce accumulates a force applied during the next step.
func (s *Store) AddForce(h BodyHandle, f mgl64.Vec3) error {
	b, err := s.body(h)
	if err != nil {
		return err
	}
	if !finiteVec(f) {
		return invalidConfig("non-finite force %v", f)
	}
	if b.kind != Dynamic {
		return nil
	}
	b.wake()
	b.force = b.force.Add(f)
	return nil
}

func (s *Store) AddTorque(h BodyHandle, t mgl64.Vec3) error {
	b, err := s.body(h)
	if err != nil {
		return err
	}
	if !finiteVec(t) {
		return invalidConfig("non-finite torque %v", t)
	}
	if b.kind != Dynamic {
		return nil
	}
	b.wake()
	b.torque = b.torque.Add(t)
	return nil
}

func (s *Store) body(h BodyHandle) (*RigidBody, error) {
	b, ok := s.bodies.get(uint64(h))
	if !ok {
		return nil, ErrInvalidHandle
	}
	return b, nil
}

func (s *Store) wakeBody(h BodyHandle) {
	if b, ok := s.bodies.get(uint64(h)); ok {
		b.wake()
	}
}

func (s *Store) syncBodyColliders(b *RigidBody) {
	for _, ch := range b.colliders {
		if c, ok := s.colliders.get(uint64(ch)); ok {
			c.syncPose(b.position, b.rotation)
		}
	}
}

// recomputeMass sums the mass and inertia of every attached collider about
// the body origin. Non-dynamic bodies get infinite mass.
func (b *RigidBody) recomputeMass(colliders *arena[Collider]) {
	mass := b.additionalMass
	var inertia mgl64.Mat3
	if colliders != nil {
		for _, ch := range b.colliders {
			c, ok := colliders.get(uint64(ch))
			if !ok {
				continue
			}
			m, principal := c.desc.Shape.MassProperties(c.desc.Density)
			if m == 0 {
				continue
			}
			r := c.desc.Rotation.Mat4().Mat3()
			ic := r.Mul3(mgl64.Diag3(principal)).Mul3(r.Transpose())
			d := c.desc.Position
			shift := mgl64.Ident3().Mul(d.Dot(d)).Sub(d.OuterProd3(d)).Mul(m)
			inertia = inertia.Add(ic.Add(shift))
			mass += m
		}
	}

	b.mass = mass
	b.inertia = inertia
	if b.kind != Dynamic {
		b.invMass = 0
		b.invInertiaLocal = mgl64.Mat3{}
		b.invInertiaWorld = mgl64.Mat3{}
		return
	}
	if mass <= 0 {
		b.mass = 1
		b.inertia = mgl64.Ident3()
	}
	b.invMass = 1 / b.mass
	if det := b.inertia.Det(); det > 1e-12 {
		b.invInertiaLocal = b.inertia.Inv()
	} else {
		b.invInertiaLocal = mgl64.Mat3{}
	}
	b.updateWorldInertia()
}
