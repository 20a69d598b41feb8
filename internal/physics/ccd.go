package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncer/internal/geom"
)

// sweptHit reports the fraction in [0, 1] of the segment p0→p1 at which a
// sphere of radius r first touches the target collider. Targets the sphere
// already overlaps at p0 are ignored so resting contacts do not pin a body.
func sweptHit(p0, p1 mgl64.Vec3, r float64, target *Collider) (float64, bool) {
	switch target.desc.Shape.Kind {
	case geom.KindPlane:
		return sweepPlane(p0, p1, r, target)
	case geom.KindSphere:
		return sweepSphere(p0, p1, r+target.desc.Shape.Radius, target.worldPos)
	case geom.KindCuboid:
		return sweepCuboid(p0, p1, r, target)
	}
	return 0, false
}

func sweepPlane(p0, p1 mgl64.Vec3, r float64, target *Collider) (float64, bool) {
	n := target.worldRot.Rotate(target.desc.Shape.Normal)
	d0 := p0.Sub(target.worldPos).Dot(n) - r
	d1 := p1.Sub(target.worldPos).Dot(n) - r
	if d0 < 0 || d1 >= 0 {
		return 0, false
	}
	return d0 / (d0 - d1), true
}

func sweepSphere(p0, p1 mgl64.Vec3, radius float64, center mgl64.Vec3) (float64, bool) {
	m := p0.Sub(center)
	c := m.LenSqr() - radius*radius
	if c <= 0 {
		return 0, false
	}
	d := p1.Sub(p0)
	a := d.LenSqr()
	if a < 1e-18 {
		return 0, false
	}
	b := m.Dot(d)
	if b >= 0 {
		return 0, false
	}
	disc := b*b - a*c
	if disc < 0 {
		return 0, false
	}
	t := (-b - math.Sqrt(disc)) / a
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// sweepCuboid runs a slab test against the cuboid inflated by r in its local
// frame. Rounded edges are treated as sharp, so hits near a corner come
// slightly early.
func sweepCuboid(p0, p1 mgl64.Vec3, r float64, target *Collider) (float64, bool) {
	inv := target.worldRot.Conjugate()
	a := inv.Rotate(p0.Sub(target.worldPos))
	b := inv.Rotate(p1.Sub(target.worldPos))
	h := target.desc.Shape.HalfExtents.Add(mgl64.Vec3{r, r, r})

	inside := true
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]) > h[i] {
			inside = false
			break
		}
	}
	if inside {
		return 0, false
	}

	d := b.Sub(a)
	tMin, tMax := 0.0, 1.0
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if math.Abs(a[i]) > h[i] {
				return 0, false
			}
			continue
		}
		t1 := (-h[i] - a[i]) / d[i]
		t2 := (h[i] - a[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// inscribedRadius is the largest sphere centred on the collider origin that
// fits inside the shape.
func inscribedRadius(s geom.Shape) float64 {
	switch s.Kind {
	case geom.KindSphere:
		return s.Radius
	case geom.KindCuboid:
		h := s.HalfExtents
		return math.Min(h[0], math.Min(h[1], h[2]))
	}
	return 0
}

// resolveCCD moves fast CCD-enabled bodies back to their first time of
// impact along this step's motion. The rest of the step is discarded; the
// velocity is kept so the next step's contacts can respond to it.
func resolveCCD(s *Store, p IntegrationParameters) int {
	hits := 0
	s.bodies.each(func(bh uint64, b *RigidBody) {
		if !b.ccd || !b.isActive() || len(b.colliders) == 0 {
			return
		}
		delta := b.position.Sub(b.prevPosition)
		dist := delta.Len()

		minDim := math.Inf(1)
		for _, ch := range b.colliders {
			if c, ok := s.colliders.get(uint64(ch)); ok {
				minDim = math.Min(minDim, c.desc.Shape.MinDimension())
			}
		}
		if math.IsInf(minDim, 0) || dist <= p.CCDThresholdFraction*minDim {
			return
		}

		toi := 1.0
		for _, ch := range b.colliders {
			c, ok := s.colliders.get(uint64(ch))
			if !ok {
				continue
			}
			r := inscribedRadius(c.desc.Shape)
			if r == 0 {
				continue
			}
			p0 := b.prevPosition.Add(b.prevRotation.Rotate(c.desc.Position))
			p1 := b.position.Add(b.rotation.Rotate(c.desc.Position))

			s.colliders.each(func(oh uint64, o *Collider) {
				if o.parent == BodyHandle(bh) {
					return
				}
				if t, hit := sweptHit(p0, p1, r, o); hit && t < toi {
					toi = t
				}
			})
		}
		if toi >= 1 {
			return
		}
		b.position = b.prevPosition.Add(delta.Mul(toi))
		hits++
	})
	return hits
}
