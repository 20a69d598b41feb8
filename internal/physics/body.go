package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type MotionKind uint8

const (
	Fixed MotionKind = iota
	Dynamic
	Kinematic
)

func (k MotionKind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	default:
		return fmt.Sprintf("motion(%d)", uint8(k))
	}
}

// RigidBodyDesc describes a body to insert. Build one with DynamicBody,
// FixedBody or KinematicBody and refine it with the With* methods.
type RigidBodyDesc struct {
	Kind            MotionKind
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	LinearDamping   float64
	AngularDamping  float64
	GravityScale    float64
	// AdditionalMass is added on top of the mass derived from colliders.
	AdditionalMass float64
	CCD            bool
	Sleeping       bool
}

func newBodyDesc(kind MotionKind) RigidBodyDesc {
	return RigidBodyDesc{
		Kind:         kind,
		Rotation:     mgl64.QuatIdent(),
		GravityScale: 1,
	}
}

func DynamicBody() RigidBodyDesc   { return newBodyDesc(Dynamic) }
func FixedBody() RigidBodyDesc     { return newBodyDesc(Fixed) }
func KinematicBody() RigidBodyDesc { return newBodyDesc(Kinematic) }

func (d RigidBodyDesc) WithTranslation(p mgl64.Vec3) RigidBodyDesc {
	d.Position = p
	return d
}

func (d RigidBodyDesc) WithRotation(q mgl64.Quat) RigidBodyDesc {
	d.Rotation = q
	return d
}

func (d RigidBodyDesc) WithLinearVelocity(v mgl64.Vec3) RigidBodyDesc {
	d.LinearVelocity = v
	return d
}

func (d RigidBodyDesc) WithAngularVelocity(w mgl64.Vec3) RigidBodyDesc {
	d.AngularVelocity = w
	return d
}

func (d RigidBodyDesc) WithLinearDamping(c float64) RigidBodyDesc {
	d.LinearDamping = c
	return d
}

func (d RigidBodyDesc) WithAngularDamping(c float64) RigidBodyDesc {
	d.AngularDamping = c
	return d
}

func (d RigidBodyDesc) WithGravityScale(s float64) RigidBodyDesc {
	d.GravityScale = s
	return d
}

func (d RigidBodyDesc) WithAdditionalMass(m float64) RigidBodyDesc {
	d.AdditionalMass = m
	return d
}

func (d RigidBodyDesc) WithCCD(enabled bool) RigidBodyDesc {
	d.CCD = enabled
	return d
}

func (d RigidBodyDesc) Validate() error {
	switch d.Kind {
	case Fixed, Dynamic, Kinematic:
	default:
		return invalidConfig("unknown motion kind %v", d.Kind)
	}
	if !finiteVec(d.Position) || !finiteVec(d.LinearVelocity) || !finiteVec(d.AngularVelocity) {
		return invalidConfig("non-finite body state")
	}
	if !finiteQuat(d.Rotation) || d.Rotation.Len() < 1e-9 {
		return invalidConfig("invalid rotation %v", d.Rotation)
	}
	if d.AdditionalMass < 0 || !finite(d.AdditionalMass) {
		return invalidConfig("negative mass %v", d.AdditionalMass)
	}
	if d.LinearDamping < 0 || d.AngularDamping < 0 || !finite(d.LinearDamping) || !finite(d.AngularDamping) {
		return invalidConfig("negative damping")
	}
	if !finite(d.GravityScale) {
		return invalidConfig("non-finite gravity scale")
	}
	return nil
}

// RigidBody is the simulation state of one body. The centre of mass is the
// body origin; collider offsets enter the inertia tensor through the
// parallel-axis theorem.
type RigidBody struct {
	kind           MotionKind
	position       mgl64.Vec3
	rotation       mgl64.Quat
	linVel         mgl64.Vec3
	angVel         mgl64.Vec3
	force          mgl64.Vec3
	torque         mgl64.Vec3
	linearDamping  float64
	angularDamping float64
	gravityScale   float64
	additionalMass float64
	ccd            bool

	mass            float64
	invMass         float64
	inertia         mgl64.Mat3
	invInertiaLocal mgl64.Mat3
	invInertiaWorld mgl64.Mat3

	sleeping   bool
	quietSteps int

	// pseudo velocities from split-impulse position correction, cleared
	// every step
	pseudoLin mgl64.Vec3
	pseudoAng mgl64.Vec3

	prevPosition mgl64.Vec3
	prevRotation mgl64.Quat

	colliders []ColliderHandle
}

func newRigidBody(d RigidBodyDesc) RigidBody {
	b := RigidBody{
		kind:           d.Kind,
		position:       d.Position,
		rotation:       d.Rotation.Normalize(),
		linVel:         d.LinearVelocity,
		angVel:         d.AngularVelocity,
		linearDamping:  d.LinearDamping,
		angularDamping: d.AngularDamping,
		gravityScale:   d.GravityScale,
		additionalMass: d.AdditionalMass,
		ccd:            d.CCD,
		sleeping:       d.Sleeping && d.Kind == Dynamic,
	}
	if b.kind == Fixed {
		b.linVel = mgl64.Vec3{}
		b.angVel = mgl64.Vec3{}
	}
	b.prevPosition = b.position
	b.prevRotation = b.rotation
	return b
}

// isActive reports whether the body takes part in integration and solving.
func (b *RigidBody) isActive() bool {
	return b.kind == Dynamic && !b.sleeping
}

// isMoving reports whether the body can move this step at all.
func (b *RigidBody) isMoving() bool {
	switch b.kind {
	case Dynamic:
		return !b.sleeping
	case Kinematic:
		return b.linVel.LenSqr() > 0 || b.angVel.LenSqr() > 0
	default:
		return false
	}
}

func (b *RigidBody) wake() {
	if b.kind != Dynamic {
		return
	}
	b.sleeping = false
	b.quietSteps = 0
}

func (b *RigidBody) sleep() {
	b.sleeping = true
	b.linVel = mgl64.Vec3{}
	b.angVel = mgl64.Vec3{}
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}

// velocityAt returns the velocity of the body-fixed point at world offset r
// from the origin.
func (b *RigidBody) velocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return b.linVel.Add(b.angVel.Cross(r))
}

func (b *RigidBody) pseudoVelocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return b.pseudoLin.Add(b.pseudoAng.Cross(r))
}

func (b *RigidBody) applyImpulse(p, r mgl64.Vec3) {
	if b.invMass == 0 {
		return
	}
	b.linVel = b.linVel.Add(p.Mul(b.invMass))
	b.angVel = b.angVel.Add(b.invInertiaWorld.Mul3x1(r.Cross(p)))
}

func (b *RigidBody) applyPseudoImpulse(p, r mgl64.Vec3) {
	if b.invMass == 0 {
		return
	}
	b.pseudoLin = b.pseudoLin.Add(p.Mul(b.invMass))
	b.pseudoAng = b.pseudoAng.Add(b.invInertiaWorld.Mul3x1(r.Cross(p)))
}

// updateWorldInertia refreshes I⁻¹ in world space: R · I⁻¹_local · Rᵀ.
func (b *RigidBody) updateWorldInertia() {
	r := b.rotation.Mat4().Mat3()
	b.invInertiaWorld = r.Mul3(b.invInertiaLocal).Mul3(r.Transpose())
}

// inverseMassAlong is this body's share m⁻¹ + (I⁻¹(r×n))·(r×n) of a
// constraint's inverse effective mass along n at offset r.
func (b *RigidBody) inverseMassAlong(r, n mgl64.Vec3) float64 {
	if b.invMass == 0 {
		return 0
	}
	rn := r.Cross(n)
	return b.invMass + b.invInertiaWorld.Mul3x1(rn).Dot(rn)
}

// BodyState is a read-only snapshot of a body.
type BodyState struct {
	Kind            MotionKind
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Mass            float64
	Inertia         mgl64.Mat3
	Sleeping        bool
	CCD             bool
	Colliders       []ColliderHandle
}

func (b *RigidBody) state() BodyState {
	cs := make([]ColliderHandle, len(b.colliders))
	copy(cs, b.colliders)
	return BodyState{
		Kind:            b.kind,
		Position:        b.position,
		Rotation:        b.rotation,
		LinearVelocity:  b.linVel,
		AngularVelocity: b.angVel,
		Mass:            b.mass,
		Inertia:         b.inertia,
		Sleeping:        b.sleeping,
		CCD:             b.ccd,
		Colliders:       cs,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v mgl64.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

func finiteQuat(q mgl64.Quat) bool {
	return finite(q.W) && finiteVec(q.V)
}
