package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func Infinite() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{-inf, -inf, -inf},
		Max: mgl64.Vec3{inf, inf, inf},
	}
}

// Empty returns the identity element for Union.
func Empty() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) IsInfinite() bool {
	for i := 0; i < 3; i++ {
		if math.IsInf(b.Min[i], 0) || math.IsInf(b.Max[i], 0) {
			return true
		}
	}
	return false
}

func (b AABB) Overlaps(o AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

func (b AABB) Union(o AABB) AABB {
	var out AABB
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Min(b.Min[i], o.Min[i])
		out.Max[i] = math.Max(b.Max[i], o.Max[i])
	}
	return out
}

// Expand grows the box by margin on every side.
func (b AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// LongestAxis returns 0, 1 or 2 for x, y or z.
func (b AABB) LongestAxis() int {
	s := b.Size()
	axis := 0
	if s[1] > s[axis] {
		axis = 1
	}
	if s[2] > s[axis] {
		axis = 2
	}
	return axis
}

func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}
