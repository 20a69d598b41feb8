package physics

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestBroadPhasePairs(t *testing.T) {
	var s Store
	ground, _ := s.InsertBody(FixedBody())
	floor, _ := s.InsertColliderWithParent(CuboidCollider(10, 0.1, 10), ground)
	wall, _ := s.InsertColliderWithParent(CuboidCollider(0.1, 5, 10).WithTranslation(mgl64.Vec3{10, 5, 0}), ground)
	plane, _ := s.InsertCollider(PlaneCollider(mgl64.Vec3{0, 1, 0}))

	ballBody, _ := s.InsertBody(DynamicBody().WithTranslation(mgl64.Vec3{0, 0.5, 0}))
	ball, _ := s.InsertColliderWithParent(SphereCollider(0.5), ballBody)

	farBody, _ := s.InsertBody(DynamicBody().WithTranslation(mgl64.Vec3{0, 50, 0}))
	far, _ := s.InsertColliderWithParent(SphereCollider(0.5), farBody)

	bp := NewBroadPhase()
	pairs := bp.update(&s, 1.0/60.0, 0.02)

	want := map[ColliderPair]bool{
		orderedPair(floor, ball): true,
		orderedPair(plane, ball): true,
		orderedPair(plane, far):  true,
	}
	if len(pairs) != len(want) {
		t.Fatalf("got pairs %v, want %d pairs", pairs, len(want))
	}
	for _, p := range pairs {
		if !want[p] {
			t.Errorf("unexpected pair %v", p)
		}
		if p.A >= p.B {
			t.Errorf("pair %v not ordered", p)
		}
	}
	for _, p := range pairs {
		if p == orderedPair(floor, wall) {
			t.Error("fixed-fixed pair not pruned")
		}
	}
}

func orderedPair(a, b ColliderHandle) ColliderPair {
	if a > b {
		a, b = b, a
	}
	return ColliderPair{A: a, B: b}
}

func TestBroadPhaseSameBodyPruned(t *testing.T) {
	var s Store
	h, _ := s.InsertBody(DynamicBody())
	_, _ = s.InsertColliderWithParent(SphereCollider(0.5), h)
	_, _ = s.InsertColliderWithParent(SphereCollider(0.5).WithTranslation(mgl64.Vec3{0.5, 0, 0}), h)

	if pairs := NewBroadPhase().update(&s, 1.0/60.0, 0.02); len(pairs) != 0 {
		t.Errorf("colliders on one body paired: %v", pairs)
	}
}

func TestBroadPhaseVelocityPadding(t *testing.T) {
	var s Store
	ground, _ := s.InsertBody(FixedBody())
	_, _ = s.InsertColliderWithParent(CuboidCollider(5, 0.1, 5), ground)

	// 1 m above the floor, falling 120 m/s covers 2 m in one step
	h, _ := s.InsertBody(DynamicBody().
		WithTranslation(mgl64.Vec3{0, 1.6, 0}).
		WithLinearVelocity(mgl64.Vec3{0, -120, 0}))
	_, _ = s.InsertColliderWithParent(SphereCollider(0.5), h)

	if pairs := NewBroadPhase().update(&s, 1.0/60.0, 0.02); len(pairs) != 1 {
		t.Errorf("fast body not paired with floor: %v", pairs)
	}
	if pairs := NewBroadPhase().update(&s, 0, 0.02); len(pairs) != 0 {
		t.Errorf("unpadded boxes should not overlap: %v", pairs)
	}
}

// Every overlapping pair found by brute force must come out of the tree.
func TestBroadPhaseMatchesBruteForce(t *testing.T) {
	var s Store
	var handles []ColliderHandle
	for i := 0; i < 40; i++ {
		pos := mgl64.Vec3{float64(i%5) * 0.9, float64(i/5%4) * 0.9, float64(i/20) * 0.9}
		h, _ := s.InsertBody(DynamicBody().WithTranslation(pos))
		c, _ := s.InsertColliderWithParent(SphereCollider(0.5), h)
		handles = append(handles, c)
	}

	pairs := NewBroadPhase().update(&s, 1.0/60.0, 0.02)
	got := make(map[ColliderPair]bool, len(pairs))
	for _, p := range pairs {
		if got[p] {
			t.Errorf("duplicate pair %v", p)
		}
		got[p] = true
	}

	for i := range handles {
		for j := i + 1; j < len(handles); j++ {
			ci, _ := s.colliders.get(uint64(handles[i]))
			cj, _ := s.colliders.get(uint64(handles[j]))
			if !ci.aabb.Expand(0.02).Overlaps(cj.aabb.Expand(0.02)) {
				continue
			}
			if p := orderedPair(handles[i], handles[j]); !got[p] {
				t.Errorf("missing pair %v", p)
			}
		}
	}
}

func BenchmarkBroadPhase(b *testing.B) {
	for _, n := range []int{100, 1000} {
		b.Run(fmt.Sprintf("bodies=%d", n), func(b *testing.B) {
			var s Store
			for i := 0; i < n; i++ {
				pos := mgl64.Vec3{float64(i%10) * 1.1, float64(i/100) * 1.1, float64(i/10%10) * 1.1}
				h, _ := s.InsertBody(DynamicBody().WithTranslation(pos))
				_, _ = s.InsertColliderWithParent(SphereCollider(0.5), h)
			}
			bp := NewBroadPhase()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				bp.update(&s, 1.0/60.0, 0.02)
			}
		})
	}
}
