package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ContactPoint is one point of a manifold. Depth is positive when the
// shapes overlap and negative while they are still apart within the contact
// margin.
type ContactPoint struct {
	Position mgl64.Vec3
	Depth    float64

	// accumulated impulses, carried between steps for warm starting
	NormalImpulse  float64
	TangentImpulse mgl64.Vec3
}

// ContactManifold describes how two colliders touch. Normal points from
// Collider2 toward Collider1.
type ContactManifold struct {
	Collider1 ColliderHandle
	Collider2 ColliderHandle
	Body1     BodyHandle
	Body2     BodyHandle
	Normal    mgl64.Vec3
	Points    []ContactPoint
}

// Depth is the deepest penetration over all points.
func (m *ContactManifold) Depth() float64 {
	d := math.Inf(-1)
	for _, p := range m.Points {
		d = math.Max(d, p.Depth)
	}
	return d
}

type pairKey struct {
	a, b ColliderHandle
}

func makePairKey(a, b ColliderHandle) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

type ContactEventKind uint8

const (
	ContactStarted ContactEventKind = iota
	ContactStopped
)

func (k ContactEventKind) String() string {
	if k == ContactStopped {
		return "stopped"
	}
	return "started"
}

// ContactEvent reports a pair that began or ceased touching. Removed is set
// when the pair stopped because one of its colliders was removed.
type ContactEvent struct {
	Kind      ContactEventKind
	Collider1 ColliderHandle
	Collider2 ColliderHandle
	Removed   bool
}

// tangentBasis returns two unit vectors orthogonal to n and each other.
func tangentBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	t1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(n.X()) > 0.9 {
		t1 = mgl64.Vec3{0, 1, 0}
	}
	t1 = t1.Sub(n.Mul(t1.Dot(n))).Normalize()
	t2 := n.Cross(t1).Normalize()
	return t1, t2
}
