package physics

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncer/internal/geom"
)

type shapePose struct {
	shape geom.Shape
	pos   mgl64.Vec3
	rot   mgl64.Quat
}

// contactFn tests shape a against shape b. It returns a normal pointing from
// b toward a and the contact points found within margin.
type contactFn func(a, b shapePose, margin float64) (mgl64.Vec3, []ContactPoint, bool)

// contactTable is indexed by [kind of a][kind of b]. Plane-plane pairs have
// no entry and never touch.
var contactTable = [geom.NumKinds][geom.NumKinds]contactFn{
	geom.KindSphere: {
		geom.KindSphere: sphereSphere,
		geom.KindCuboid: sphereCuboid,
		geom.KindPlane:  spherePlane,
	},
	geom.KindCuboid: {
		geom.KindSphere: flipped(sphereCuboid),
		geom.KindCuboid: cuboidCuboid,
		geom.KindPlane:  cuboidPlane,
	},
	geom.KindPlane: {
		geom.KindSphere: flipped(spherePlane),
		geom.KindCuboid: flipped(cuboidPlane),
	},
}

func flipped(fn contactFn) contactFn {
	return func(a, b shapePose, margin float64) (mgl64.Vec3, []ContactPoint, bool) {
		n, pts, ok := fn(b, a, margin)
		return n.Mul(-1), pts, ok
	}
}

// NarrowPhase turns candidate pairs into manifolds and remembers last
// step's manifolds for warm starting and contact events.
type NarrowPhase struct {
	manifolds map[pairKey]*ContactManifold
	events    []ContactEvent
}

func NewNarrowPhase() *NarrowPhase {
	return &NarrowPhase{manifolds: make(map[pairKey]*ContactManifold)}
}

// warm-start matching tolerance between old and new contact points
const (
	warmStartDistance = 0.1
	warmStartAlign    = 0.9
)

// update runs the shape tests for every pair and keeps the ones separated
// by at most margin.
func (np *NarrowPhase) update(s *Store, pairs []ColliderPair, margin float64) []*ContactManifold {
	out := make([]*ContactManifold, 0, len(pairs))
	next := make(map[pairKey]*ContactManifold, len(pairs))

	for _, pair := range pairs {
		c1, ok1 := s.colliders.get(uint64(pair.A))
		c2, ok2 := s.colliders.get(uint64(pair.B))
		if !ok1 || !ok2 {
			continue
		}
		m := collide(pair.A, c1, pair.B, c2, margin)
		if m == nil {
			continue
		}
		key := makePairKey(pair.A, pair.B)
		if prev, ok := np.manifolds[key]; ok {
			warmStart(m, prev)
		} else {
			np.events = append(np.events, ContactEvent{Kind: ContactStarted, Collider1: pair.A, Collider2: pair.B})
		}
		next[key] = m
		out = append(out, m)
	}

	stopped := make([]pairKey, 0)
	for key := range np.manifolds {
		if _, ok := next[key]; !ok {
			stopped = append(stopped, key)
		}
	}
	sort.Slice(stopped, func(i, j int) bool {
		if stopped[i].a != stopped[j].a {
			return stopped[i].a < stopped[j].a
		}
		return stopped[i].b < stopped[j].b
	})
	for _, key := range stopped {
		_, live1 := s.colliders.get(uint64(key.a))
		_, live2 := s.colliders.get(uint64(key.b))
		np.events = append(np.events, ContactEvent{
			Kind:      ContactStopped,
			Collider1: key.a,
			Collider2: key.b,
			Removed:   !live1 || !live2,
		})
	}

	np.manifolds = next
	return out
}

func (np *NarrowPhase) drainEvents() []ContactEvent {
	ev := np.events
	np.events = nil
	return ev
}

func collide(h1 ColliderHandle, c1 *Collider, h2 ColliderHandle, c2 *Collider, margin float64) *ContactManifold {
	fn := contactTable[c1.desc.Shape.Kind][c2.desc.Shape.Kind]
	if fn == nil {
		return nil
	}
	a := shapePose{shape: c1.desc.Shape, pos: c1.worldPos, rot: c1.worldRot}
	b := shapePose{shape: c2.desc.Shape, pos: c2.worldPos, rot: c2.worldRot}
	n, pts, ok := fn(a, b, margin)
	if !ok {
		return nil
	}
	kept := pts[:0]
	for _, p := range pts {
		if p.Depth >= -margin {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &ContactManifold{
		Collider1: h1,
		Collider2: h2,
		Body1:     c1.parent,
		Body2:     c2.parent,
		Normal:    n,
		Points:    kept,
	}
}

func warmStart(m, prev *ContactManifold) {
	if m.Normal.Dot(prev.Normal) < warmStartAlign {
		return
	}
	for i := range m.Points {
		best := -1
		bestDist := warmStartDistance * warmStartDistance
		for j := range prev.Points {
			d := m.Points[i].Position.Sub(prev.Points[j].Position).LenSqr()
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 {
			m.Points[i].NormalImpulse = prev.Points[best].NormalImpulse
			m.Points[i].TangentImpulse = prev.Points[best].TangentImpulse
		}
	}
}

func sphereSphere(a, b shapePose, margin float64) (mgl64.Vec3, []ContactPoint, bool) {
	d := a.pos.Sub(b.pos)
	dist := d.Len()
	depth := a.shape.Radius + b.shape.Radius - dist
	if depth < -margin {
		return mgl64.Vec3{}, nil, false
	}
	n := mgl64.Vec3{0, 1, 0}
	if dist > 1e-9 {
		n = d.Mul(1 / dist)
	}
	pa := a.pos.Sub(n.Mul(a.shape.Radius))
	pb := b.pos.Add(n.Mul(b.shape.Radius))
	return n, []ContactPoint{{Position: pa.Add(pb).Mul(0.5), Depth: depth}}, true
}

func spherePlane(a, b shapePose, margin float64) (mgl64.Vec3, []ContactPoint, bool) {
	n := b.rot.Rotate(b.shape.Normal)
	dist := a.pos.Sub(b.pos).Dot(n)
	depth := a.shape.Radius - dist
	if depth < -margin {
		return mgl64.Vec3{}, nil, false
	}
	p := a.pos.Sub(n.Mul((a.shape.Radius + dist) / 2))
	return n, []ContactPoint{{Position: p, Depth: depth}}, true
}

func sphereCuboid(a, b shapePose, margin float64) (mgl64.Vec3, []ContactPoint, bool) {
	h := b.shape.HalfExtents
	local := b.rot.Conjugate().Rotate(a.pos.Sub(b.pos))

	var closest mgl64.Vec3
	inside := true
	for i := 0; i < 3; i++ {
		closest[i] = mgl64.Clamp(local[i], -h[i], h[i])
		if closest[i] != local[i] {
			inside = false
		}
	}

	var nLocal mgl64.Vec3
	var depth float64
	if inside {
		axis := 0
		minGap := math.Inf(1)
		for i := 0; i < 3; i++ {
			if gap := h[i] - math.Abs(local[i]); gap < minGap {
				axis, minGap = i, gap
			}
		}
		s := signOf(local[axis])
		nLocal[axis] = s
		closest[axis] = s * h[axis]
		depth = a.shape.Radius + minGap
	} else {
		d := local.Sub(closest)
		dist := d.Len()
		depth = a.shape.Radius - dist
		if depth < -margin {
			return mgl64.Vec3{}, nil, false
		}
		nLocal = d.Mul(1 / dist)
	}

	n := b.rot.Rotate(nLocal)
	onBox := b.pos.Add(b.rot.Rotate(closest))
	onSphere := a.pos.Sub(n.Mul(a.shape.Radius))
	return n, []ContactPoint{{Position: onBox.Add(onSphere).Mul(0.5), Depth: depth}}, true
}

func cuboidPlane(a, b shapePose, margin float64) (mgl64.Vec3, []ContactPoint, bool) {
	n := b.rot.Rotate(b.shape.Normal)
	var pts []ContactPoint
	for _, v := range a.shape.Vertices() {
		w := a.pos.Add(a.rot.Rotate(v))
		dist := w.Sub(b.pos).Dot(n)
		if dist <= margin {
			pts = append(pts, ContactPoint{Position: w.Sub(n.Mul(dist / 2)), Depth: -dist})
		}
	}
	if len(pts) == 0 {
		return mgl64.Vec3{}, nil, false
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Depth > pts[j].Depth })
	if len(pts) > 4 {
		pts = pts[:4]
	}
	return n, pts, true
}

type satAxis struct {
	kind    int // 0: face of a, 1: face of b, 2: edge-edge
	i, j    int
	overlap float64
	axis    mgl64.Vec3
}

func boxAxes(p shapePose) [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{
		p.rot.Rotate(mgl64.Vec3{1, 0, 0}),
		p.rot.Rotate(mgl64.Vec3{0, 1, 0}),
		p.rot.Rotate(mgl64.Vec3{0, 0, 1}),
	}
}

func projectedRadius(axes [3]mgl64.Vec3, h mgl64.Vec3, l mgl64.Vec3) float64 {
	return h[0]*math.Abs(axes[0].Dot(l)) + h[1]*math.Abs(axes[1].Dot(l)) + h[2]*math.Abs(axes[2].Dot(l))
}

// cuboidCuboid runs the separating axis test over the 15 candidate axes and
// builds the manifold from the axis of least overlap. Face axes are
// preferred over edge axes of similar overlap.
func cuboidCuboid(a, b shapePose, margin float64) (mgl64.Vec3, []ContactPoint, bool) {
	ua, ub := boxAxes(a), boxAxes(b)
	ha, hb := a.shape.HalfExtents, b.shape.HalfExtents
	t := a.pos.Sub(b.pos)

	overlap := func(l mgl64.Vec3) float64 {
		return projectedRadius(ua, ha, l) + projectedRadius(ub, hb, l) - math.Abs(t.Dot(l))
	}

	best := satAxis{overlap: math.Inf(1)}
	for i := 0; i < 3; i++ {
		o := overlap(ua[i])
		if o < -margin {
			return mgl64.Vec3{}, nil, false
		}
		if o < best.overlap {
			best = satAxis{kind: 0, i: i, overlap: o, axis: ua[i]}
		}
	}
	for j := 0; j < 3; j++ {
		o := overlap(ub[j])
		if o < -margin {
			return mgl64.Vec3{}, nil, false
		}
		if o < best.overlap {
			best = satAxis{kind: 1, j: j, overlap: o, axis: ub[j]}
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			l := ua[i].Cross(ub[j])
			ln := l.Len()
			if ln < 1e-6 {
				continue
			}
			l = l.Mul(1 / ln)
			o := overlap(l)
			if o < -margin {
				return mgl64.Vec3{}, nil, false
			}
			if o < best.overlap-(0.05*math.Abs(best.overlap)+1e-3) {
				best = satAxis{kind: 2, i: i, j: j, overlap: o, axis: l}
			}
		}
	}

	n := best.axis
	if t.Dot(n) < 0 {
		n = n.Mul(-1)
	}

	switch best.kind {
	case 0:
		return n, clipFaces(a, ua, best.i, n.Mul(-1), b, ub), true
	case 1:
		return n, clipFaces(b, ub, best.j, n, a, ua), true
	default:
		return n, []ContactPoint{edgeContact(a, ua, best.i, b, ub, best.j, n, best.overlap)}, true
	}
}

// clipFaces clips the incident face of inc against the side planes of the
// reference face of ref. refNormal is the outward normal of the reference
// face, pointing toward inc.
func clipFaces(ref shapePose, ur [3]mgl64.Vec3, axis int, refNormal mgl64.Vec3, inc shapePose, ui [3]mgl64.Vec3) []ContactPoint {
	hr, hi := ref.shape.HalfExtents, inc.shape.HalfExtents
	faceCenter := ref.pos.Add(ur[axis].Mul(signOf(ur[axis].Dot(refNormal)) * hr[axis]))

	incAxis := 0
	bestDot := -1.0
	for m := 0; m < 3; m++ {
		if d := math.Abs(ui[m].Dot(refNormal)); d > bestDot {
			incAxis, bestDot = m, d
		}
	}
	s := -signOf(ui[incAxis].Dot(refNormal))
	ic := inc.pos.Add(ui[incAxis].Mul(s * hi[incAxis]))
	p, q := (incAxis+1)%3, (incAxis+2)%3
	up, uq := ui[p].Mul(hi[p]), ui[q].Mul(hi[q])
	poly := []mgl64.Vec3{
		ic.Add(up).Add(uq),
		ic.Sub(up).Add(uq),
		ic.Sub(up).Sub(uq),
		ic.Add(up).Sub(uq),
	}

	for _, k := range []int{(axis + 1) % 3, (axis + 2) % 3} {
		off := ref.pos.Dot(ur[k])
		poly = clipPolygon(poly, ur[k], off+hr[k])
		poly = clipPolygon(poly, ur[k].Mul(-1), -off+hr[k])
	}

	pts := make([]ContactPoint, 0, len(poly))
	for _, v := range poly {
		depth := -v.Sub(faceCenter).Dot(refNormal)
		pts = append(pts, ContactPoint{Position: v.Add(refNormal.Mul(depth / 2)), Depth: depth})
	}
	if len(pts) > 4 {
		pts = reduceTo4Points(pts, refNormal)
	}
	return pts
}

// clipPolygon keeps the part of poly with v·n <= off (Sutherland-Hodgman).
func clipPolygon(poly []mgl64.Vec3, n mgl64.Vec3, off float64) []mgl64.Vec3 {
	if len(poly) == 0 {
		return poly
	}
	out := make([]mgl64.Vec3, 0, len(poly)+2)
	prev := poly[len(poly)-1]
	prevDist := prev.Dot(n) - off
	for _, cur := range poly {
		curDist := cur.Dot(n) - off
		if curDist <= 0 {
			if prevDist > 0 {
				out = append(out, lerpAt(prev, cur, prevDist, curDist))
			}
			out = append(out, cur)
		} else if prevDist <= 0 {
			out = append(out, lerpAt(prev, cur, prevDist, curDist))
		}
		prev, prevDist = cur, curDist
	}
	return out
}

func lerpAt(p1, p2 mgl64.Vec3, d1, d2 float64) mgl64.Vec3 {
	t := d1 / (d1 - d2)
	return p1.Add(p2.Sub(p1).Mul(t))
}

// reduceTo4Points keeps the extreme points along the tangent plane of n.
func reduceTo4Points(pts []ContactPoint, n mgl64.Vec3) []ContactPoint {
	t1, t2 := tangentBasis(n)
	idx := [4]int{}
	vals := [4]float64{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for i, p := range pts {
		x, y := p.Position.Dot(t1), p.Position.Dot(t2)
		if x < vals[0] {
			vals[0], idx[0] = x, i
		}
		if x > vals[1] {
			vals[1], idx[1] = x, i
		}
		if y < vals[2] {
			vals[2], idx[2] = y, i
		}
		if y > vals[3] {
			vals[3], idx[3] = y, i
		}
	}
	out := make([]ContactPoint, 0, 4)
	seen := make(map[int]bool, 4)
	for _, i := range idx {
		if !seen[i] {
			seen[i] = true
			out = append(out, pts[i])
		}
	}
	return out
}

// edgeContact finds the closest points between the edge of a along ua[i]
// and the edge of b along ub[j] that face each other across n.
func edgeContact(a shapePose, ua [3]mgl64.Vec3, i int, b shapePose, ub [3]mgl64.Vec3, j int, n mgl64.Vec3, depth float64) ContactPoint {
	ha, hb := a.shape.HalfExtents, b.shape.HalfExtents
	pa := a.pos
	for k := 0; k < 3; k++ {
		if k != i {
			pa = pa.Add(ua[k].Mul(signOf(-ua[k].Dot(n)) * ha[k]))
		}
	}
	pb := b.pos
	for k := 0; k < 3; k++ {
		if k != j {
			pb = pb.Add(ub[k].Mul(signOf(ub[k].Dot(n)) * hb[k]))
		}
	}

	d1, d2 := ua[i], ub[j]
	r := pa.Sub(pb)
	bb := d1.Dot(d2)
	c := d1.Dot(r)
	f := d2.Dot(r)
	denom := 1 - bb*bb
	var s float64
	if denom > 1e-9 {
		s = mgl64.Clamp((bb*f-c)/denom, -ha[i], ha[i])
	}
	tt := mgl64.Clamp(bb*s+f, -hb[j], hb[j])
	s = mgl64.Clamp(bb*tt-c, -ha[i], ha[i])

	ca := pa.Add(d1.Mul(s))
	cb := pb.Add(d2.Mul(tt))
	return ContactPoint{Position: ca.Add(cb).Mul(0.5), Depth: depth}
}

func signOf(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
