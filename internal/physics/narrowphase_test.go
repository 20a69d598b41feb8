package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncer/internal/geom"
)

func pose(s geom.Shape, pos mgl64.Vec3) shapePose {
	return shapePose{shape: s, pos: pos, rot: mgl64.QuatIdent()}
}

func rotated(p shapePose, angle float64, axis mgl64.Vec3) shapePose {
	p.rot = mgl64.QuatRotate(angle, axis)
	return p
}

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestContactTable(t *testing.T) {
	up := mgl64.Vec3{0, 1, 0}

	tests := []struct {
		name       string
		a, b       shapePose
		wantOK     bool
		wantNormal mgl64.Vec3
		wantDepth  float64
		wantPoints int
	}{
		{
			name:       "sphere sphere overlap",
			a:          pose(geom.Sphere(1), mgl64.Vec3{1.5, 0, 0}),
			b:          pose(geom.Sphere(1), mgl64.Vec3{}),
			wantOK:     true,
			wantNormal: mgl64.Vec3{1, 0, 0},
			wantDepth:  0.5,
			wantPoints: 1,
		},
		{
			name:   "sphere sphere apart",
			a:      pose(geom.Sphere(1), mgl64.Vec3{3, 0, 0}),
			b:      pose(geom.Sphere(1), mgl64.Vec3{}),
			wantOK: false,
		},
		{
			name:       "sphere plane",
			a:          pose(geom.Sphere(0.5), mgl64.Vec3{0, 0.4, 0}),
			b:          pose(geom.Plane(up), mgl64.Vec3{}),
			wantOK:     true,
			wantNormal: up,
			wantDepth:  0.1,
			wantPoints: 1,
		},
		{
			name:       "plane sphere flipped",
			a:          pose(geom.Plane(up), mgl64.Vec3{}),
			b:          pose(geom.Sphere(0.5), mgl64.Vec3{0, 0.4, 0}),
			wantOK:     true,
			wantNormal: mgl64.Vec3{0, -1, 0},
			wantDepth:  0.1,
			wantPoints: 1,
		},
		{
			name:       "sphere on cuboid face",
			a:          pose(geom.Sphere(0.5), mgl64.Vec3{0, 1.4, 0}),
			b:          pose(geom.Cuboid(1, 1, 1), mgl64.Vec3{}),
			wantOK:     true,
			wantNormal: up,
			wantDepth:  0.1,
			wantPoints: 1,
		},
		{
			name:       "sphere centre inside cuboid",
			a:          pose(geom.Sphere(0.5), mgl64.Vec3{0, 0.9, 0}),
			b:          pose(geom.Cuboid(1, 1, 1), mgl64.Vec3{}),
			wantOK:     true,
			wantNormal: up,
			wantDepth:  0.6,
			wantPoints: 1,
		},
		{
			name:       "sphere within margin of cuboid",
			a:          pose(geom.Sphere(0.5), mgl64.Vec3{0, 1.51, 0}),
			b:          pose(geom.Cuboid(1, 1, 1), mgl64.Vec3{}),
			wantOK:     true,
			wantNormal: up,
			wantDepth:  -0.01,
			wantPoints: 1,
		},
		{
			name:       "cuboid resting on plane",
			a:          pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{0, 0.4, 0}),
			b:          pose(geom.Plane(up), mgl64.Vec3{}),
			wantOK:     true,
			wantNormal: up,
			wantDepth:  0.1,
			wantPoints: 4,
		},
		{
			name:       "cuboid face on cuboid",
			a:          pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{0, 0.9, 0}),
			b:          pose(geom.Cuboid(2, 0.5, 2), mgl64.Vec3{}),
			wantOK:     true,
			wantNormal: up,
			wantDepth:  0.1,
			wantPoints: 4,
		},
		{
			name:       "cuboid under cuboid",
			a:          pose(geom.Cuboid(2, 0.5, 2), mgl64.Vec3{}),
			b:          pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{0, 0.9, 0}),
			wantOK:     true,
			wantNormal: mgl64.Vec3{0, -1, 0},
			wantDepth:  0.1,
			wantPoints: 4,
		},
		{
			name: "crossed cuboid edges",
			a: rotated(pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{0, math.Sqrt2 - 0.05, 0}),
				math.Pi/4, mgl64.Vec3{0, 0, 1}),
			b: rotated(pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{}),
				math.Pi/4, mgl64.Vec3{1, 0, 0}),
			wantOK:     true,
			wantNormal: up,
			wantDepth:  0.05,
			wantPoints: 1,
		},
		{
			name:   "cuboids apart",
			a:      pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{0, 2, 0}),
			b:      pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{}),
			wantOK: false,
		},
	}

	const margin = 0.02
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := contactTable[tt.a.shape.Kind][tt.b.shape.Kind]
			if fn == nil {
				t.Fatalf("no entry for %v/%v", tt.a.shape.Kind, tt.b.shape.Kind)
			}
			n, pts, ok := fn(tt.a, tt.b, margin)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !vecNear(n, tt.wantNormal, 1e-6) {
				t.Errorf("normal = %v, want %v", n, tt.wantNormal)
			}
			if len(pts) != tt.wantPoints {
				t.Fatalf("got %d points, want %d", len(pts), tt.wantPoints)
			}
			for _, p := range pts {
				if math.Abs(p.Depth-tt.wantDepth) > 1e-6 {
					t.Errorf("depth = %v, want %v", p.Depth, tt.wantDepth)
				}
			}
		})
	}
}

func TestPlanePlaneNeverTouches(t *testing.T) {
	if contactTable[geom.KindPlane][geom.KindPlane] != nil {
		t.Error("plane-plane pairs should have no contact function")
	}
}

func TestEdgeContactPosition(t *testing.T) {
	a := rotated(pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{0, math.Sqrt2 - 0.05, 0}), math.Pi/4, mgl64.Vec3{0, 0, 1})
	b := rotated(pose(geom.Cuboid(0.5, 0.5, 0.5), mgl64.Vec3{}), math.Pi/4, mgl64.Vec3{1, 0, 0})

	_, pts, ok := cuboidCuboid(a, b, 0.02)
	if !ok || len(pts) != 1 {
		t.Fatalf("expected one edge contact, got %v %v", ok, pts)
	}
	want := mgl64.Vec3{0, math.Sqrt2/2 - 0.025, 0}
	if !vecNear(pts[0].Position, want, 1e-6) {
		t.Errorf("position = %v, want %v", pts[0].Position, want)
	}
}

func TestClipPolygon(t *testing.T) {
	square := []mgl64.Vec3{{2, 0, 2}, {-2, 0, 2}, {-2, 0, -2}, {2, 0, -2}}
	out := clipPolygon(square, mgl64.Vec3{1, 0, 0}, 0.5)
	if len(out) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(out))
	}
	for _, v := range out {
		if v.X() > 0.5+1e-12 {
			t.Errorf("vertex %v outside clip plane", v)
		}
	}
	if got := clipPolygon(square, mgl64.Vec3{1, 0, 0}, -3); len(got) != 0 {
		t.Errorf("expected everything clipped, got %v", got)
	}
}

func TestNarrowPhaseEventsAndWarmStart(t *testing.T) {
	var s Store
	ground, _ := s.InsertCollider(PlaneCollider(mgl64.Vec3{0, 1, 0}))
	body, _ := s.InsertBody(DynamicBody().WithTranslation(mgl64.Vec3{0, 0.45, 0}))
	ball, _ := s.InsertColliderWithParent(SphereCollider(0.5), body)

	np := NewNarrowPhase()
	pairs := []ColliderPair{{A: ground, B: ball}}

	ms := np.update(&s, pairs, 0.02)
	if len(ms) != 1 {
		t.Fatalf("expected one manifold, got %d", len(ms))
	}
	ev := np.drainEvents()
	if len(ev) != 1 || ev[0].Kind != ContactStarted {
		t.Fatalf("expected a started event, got %v", ev)
	}

	ms[0].Points[0].NormalImpulse = 3
	ms = np.update(&s, pairs, 0.02)
	if got := ms[0].Points[0].NormalImpulse; got != 3 {
		t.Errorf("warm start impulse = %v, want 3", got)
	}
	if ev := np.drainEvents(); len(ev) != 0 {
		t.Errorf("persisting contact produced events %v", ev)
	}

	if err := s.RemoveBody(body); err != nil {
		t.Fatal(err)
	}
	np.update(&s, nil, 0.02)
	ev = np.drainEvents()
	if len(ev) != 1 || ev[0].Kind != ContactStopped || !ev[0].Removed {
		t.Errorf("expected a removed stop event, got %v", ev)
	}
}
