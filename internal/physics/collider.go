package physics

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncer/internal/geom"
)

// CombineRule decides how two colliders' coefficients are merged. When the
// two colliders disagree, the rule with the larger value wins.
type CombineRule uint8

const (
	CombineAverage CombineRule = iota
	CombineMin
	CombineMultiply
	CombineMax
)

func (r CombineRule) String() string {
	switch r {
	case CombineAverage:
		return "average"
	case CombineMin:
		return "min"
	case CombineMultiply:
		return "multiply"
	case CombineMax:
		return "max"
	default:
		return fmt.Sprintf("combine(%d)", uint8(r))
	}
}

// ParseCombineRule accepts the names printed by CombineRule.String. The
// empty string selects CombineAverage.
func ParseCombineRule(name string) (CombineRule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "average":
		return CombineAverage, nil
	case "min":
		return CombineMin, nil
	case "multiply":
		return CombineMultiply, nil
	case "max":
		return CombineMax, nil
	default:
		return 0, invalidConfig("unknown combine rule %q", name)
	}
}

func combine(a, b float64, ra, rb CombineRule) float64 {
	rule := ra
	if rb > rule {
		rule = rb
	}
	switch rule {
	case CombineMin:
		return math.Min(a, b)
	case CombineMultiply:
		return a * b
	case CombineMax:
		return math.Max(a, b)
	default:
		return (a + b) / 2
	}
}

const (
	DefaultFriction    = 0.5
	DefaultRestitution = 0.0
	DefaultDensity     = 1.0
)

// ColliderDesc describes a collider to insert.
type ColliderDesc struct {
	Shape              geom.Shape
	Position           mgl64.Vec3
	Rotation           mgl64.Quat
	Friction           float64
	Restitution        float64
	Density            float64
	FrictionCombine    CombineRule
	RestitutionCombine CombineRule
}

func newColliderDesc(s geom.Shape) ColliderDesc {
	return ColliderDesc{
		Shape:       s,
		Rotation:    mgl64.QuatIdent(),
		Friction:    DefaultFriction,
		Restitution: DefaultRestitution,
		Density:     DefaultDensity,
	}
}

func SphereCollider(radius float64) ColliderDesc {
	return newColliderDesc(geom.Sphere(radius))
}

func CuboidCollider(hx, hy, hz float64) ColliderDesc {
	return newColliderDesc(geom.Cuboid(hx, hy, hz))
}

func PlaneCollider(normal mgl64.Vec3) ColliderDesc {
	return newColliderDesc(geom.Plane(normal))
}

func (d ColliderDesc) WithTranslation(p mgl64.Vec3) ColliderDesc {
	d.Position = p
	return d
}

func (d ColliderDesc) WithRotation(q mgl64.Quat) ColliderDesc {
	d.Rotation = q
	return d
}

func (d ColliderDesc) WithFriction(f float64) ColliderDesc {
	d.Friction = f
	return d
}

func (d ColliderDesc) WithRestitution(e float64) ColliderDesc {
	d.Restitution = e
	return d
}

func (d ColliderDesc) WithDensity(rho float64) ColliderDesc {
	d.Density = rho
	return d
}

func (d ColliderDesc) WithFrictionCombine(r CombineRule) ColliderDesc {
	d.FrictionCombine = r
	return d
}

func (d ColliderDesc) WithRestitutionCombine(r CombineRule) ColliderDesc {
	d.RestitutionCombine = r
	return d
}

func (d ColliderDesc) Validate() error {
	if err := d.Shape.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !finiteVec(d.Position) || !finiteQuat(d.Rotation) || d.Rotation.Len() < 1e-9 {
		return invalidConfig("non-finite collider offset")
	}
	if d.Friction < 0 || !finite(d.Friction) {
		return invalidConfig("negative friction %v", d.Friction)
	}
	if d.Restitution < 0 || !finite(d.Restitution) {
		return invalidConfig("negative restitution %v", d.Restitution)
	}
	if d.Density < 0 || !finite(d.Density) {
		return invalidConfig("negative density %v", d.Density)
	}
	if d.FrictionCombine > CombineMax || d.RestitutionCombine > CombineMax {
		return invalidConfig("unknown combine rule")
	}
	return nil
}

// Collider is a shape attached to an optional parent body. Its world pose
// is always the parent pose composed with the local offset; parentless
// colliders keep their local offset as world pose.
type Collider struct {
	desc   ColliderDesc
	parent BodyHandle

	worldPos mgl64.Vec3
	worldRot mgl64.Quat
	aabb     geom.AABB
}

func (c *Collider) hasParent() bool { return !c.parent.IsZero() }

// syncPose recomputes the world pose from the parent transform.
func (c *Collider) syncPose(parentPos mgl64.Vec3, parentRot mgl64.Quat) {
	c.worldRot = parentRot.Mul(c.desc.Rotation).Normalize()
	c.worldPos = parentPos.Add(parentRot.Rotate(c.desc.Position))
	c.aabb = c.desc.Shape.AABB(c.worldPos, c.worldRot)
}

// ColliderState is a read-only snapshot of a collider.
type ColliderState struct {
	Shape       geom.Shape
	Parent      BodyHandle
	Position    mgl64.Vec3
	Rotation    mgl64.Quat
	Friction    float64
	Restitution float64
	Density     float64
	AABB        geom.AABB
}

func (c *Collider) state() ColliderState {
	return ColliderState{
		Shape:       c.desc.Shape,
		Parent:      c.parent,
		Position:    c.worldPos,
		Rotation:    c.worldRot,
		Friction:    c.desc.Friction,
		Restitution: c.desc.Restitution,
		Density:     c.desc.Density,
		AABB:        c.aabb,
	}
}
