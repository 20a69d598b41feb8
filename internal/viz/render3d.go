package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/bouncer/internal/geom"
	"github.com/san-kum/bouncer/internal/physics"
)

// Large colliders such as the ground slab are cropped to this half extent
// so they do not swamp the view.
const maxDrawHalfExtent = 8.0

// Camera orbits Target at Distance, looking along its local -Z.
type Camera struct {
	Target   mgl64.Vec3
	Yaw      float64
	Pitch    float64
	Distance float64
	Zoom     float64
	Near     float64
}

func NewCamera() *Camera {
	return &Camera{
		Target:   mgl64.Vec3{0, 4, -2},
		Yaw:      0.6,
		Pitch:    -0.35,
		Distance: 30,
		Zoom:     1,
		Near:     0.1,
	}
}

// Orbit turns the camera around its target. Pitch stays short of the poles.
func (c *Camera) Orbit(yaw, pitch float64) {
	c.Yaw += yaw
	c.Pitch = math.Max(-1.5, math.Min(1.5, c.Pitch+pitch))
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) orientation() mgl64.Quat {
	return mgl64.QuatRotate(c.Yaw, mgl64.Vec3{0, 1, 0}).Mul(mgl64.QuatRotate(c.Pitch, mgl64.Vec3{1, 0, 0}))
}

// Project maps a world point to canvas dots. It returns the dot
// coordinates, the view depth and whether the point lands on the canvas.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	v := c.orientation().Inverse().Rotate(p.Sub(c.Target))
	depth := c.Distance - v.Z()
	if depth <= c.Near {
		return 0, 0, 0, false
	}
	scale := c.Distance / depth * c.Zoom
	pScale := 2 * float64(min(sw, sh)) / c.Distance
	sx := int(v.X()*scale*pScale) + sw/2
	sy := int(-v.Y()*scale*pScale) + sh/2
	return sx, sy, depth, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type Edge struct {
	Start, End mgl64.Vec3
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe               { return &Wireframe{Edges: make([]Edge, 0)} }
func (w *Wireframe) AddEdge(s, e mgl64.Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) AddPoint(p mgl64.Vec3)   { w.Edges = append(w.Edges, Edge{p, p}) }
func (w *Wireframe) Clear()                  { w.Edges = w.Edges[:0] }

// AddBox adds the twelve edges of an oriented box.
func (w *Wireframe) AddBox(center mgl64.Vec3, rot mgl64.Quat, half mgl64.Vec3) {
	var v [8]mgl64.Vec3
	for i := range v {
		local := mgl64.Vec3{half[0], half[1], half[2]}
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) == 0 {
				local[axis] = -local[axis]
			}
		}
		v[i] = center.Add(rot.Rotate(local))
	}
	for i := range v {
		for axis := 0; axis < 3; axis++ {
			if j := i | 1<<axis; j != i {
				w.AddEdge(v[i], v[j])
			}
		}
	}
}

// AddSphere adds three orthogonal great circles.
func (w *Wireframe) AddSphere(center mgl64.Vec3, rot mgl64.Quat, r float64) {
	const segments = 16
	axes := [3][2]mgl64.Vec3{
		{{1, 0, 0}, {0, 1, 0}},
		{{0, 1, 0}, {0, 0, 1}},
		{{0, 0, 1}, {1, 0, 0}},
	}
	for _, ax := range axes {
		u, v := rot.Rotate(ax[0]).Mul(r), rot.Rotate(ax[1]).Mul(r)
		prev := center.Add(u)
		for i := 1; i <= segments; i++ {
			a := 2 * math.Pi * float64(i) / segments
			p := center.Add(u.Mul(math.Cos(a))).Add(v.Mul(math.Sin(a)))
			w.AddEdge(prev, p)
			prev = p
		}
	}
}

// AddPlane adds a square grid patch of the plane through p with normal n.
func (w *Wireframe) AddPlane(p, n mgl64.Vec3) {
	const lines = 5
	t1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(n.X()) > 0.9 {
		t1 = mgl64.Vec3{0, 1, 0}
	}
	t1 = t1.Sub(n.Mul(t1.Dot(n))).Normalize()
	t2 := n.Cross(t1)
	h := maxDrawHalfExtent
	for i := 0; i < lines; i++ {
		s := -h + 2*h*float64(i)/float64(lines-1)
		w.AddEdge(p.Add(t1.Mul(s)).Add(t2.Mul(-h)), p.Add(t1.Mul(s)).Add(t2.Mul(h)))
		w.AddEdge(p.Add(t2.Mul(s)).Add(t1.Mul(-h)), p.Add(t2.Mul(s)).Add(t1.Mul(h)))
	}
}

// AddCollider adds the outline of one collider.
func (w *Wireframe) AddCollider(c physics.ColliderState) {
	switch c.Shape.Kind {
	case geom.KindSphere:
		w.AddSphere(c.Position, c.Rotation, c.Shape.Radius)
	case geom.KindCuboid:
		h := c.Shape.HalfExtents
		for i := range h {
			h[i] = math.Min(h[i], maxDrawHalfExtent)
		}
		w.AddBox(c.Position, c.Rotation, h)
	case geom.KindPlane:
		w.AddPlane(c.Position, c.Rotation.Rotate(c.Shape.Normal))
	}
}

// WorldWireframe outlines every collider in the world.
func WorldWireframe(world *physics.World) *Wireframe {
	w := NewWireframe()
	for _, h := range world.Colliders() {
		c, err := world.Collider(h)
		if err != nil {
			continue
		}
		w.AddCollider(c)
	}
	return w
}

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe far to near onto the canvas.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	cw, ch := c.DotsWide(), c.DotsHigh()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, cw, ch)
		x2, y2, d2, v2 := cam.Project(e.End, cw, ch)
		if (v1 || v2) && d1 > 0 && d2 > 0 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth > proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}
