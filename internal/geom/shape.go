package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidShape reports non-positive or non-finite shape dimensions.
var ErrInvalidShape = errors.New("geom: invalid shape")

type Kind uint8

const (
	KindSphere Kind = iota
	KindCuboid
	KindPlane

	numKinds
)

// NumKinds is the size of a per-kind dispatch table.
const NumKinds = int(numKinds)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindCuboid:
		return "cuboid"
	case KindPlane:
		return "plane"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type Shape struct {
	Kind        Kind
	Radius      float64
	HalfExtents mgl64.Vec3
	Normal      mgl64.Vec3
}

func Sphere(radius float64) Shape {
	return Shape{Kind: KindSphere, Radius: radius}
}

func Cuboid(hx, hy, hz float64) Shape {
	return Shape{Kind: KindCuboid, HalfExtents: mgl64.Vec3{hx, hy, hz}}
}

// Plane returns a half-space with the given outward normal. The normal is
// normalized; a zero normal is rejected by Validate.
func Plane(normal mgl64.Vec3) Shape {
	if l := normal.Len(); l > 0 {
		normal = normal.Mul(1 / l)
	}
	return Shape{Kind: KindPlane, Normal: normal}
}

func (s Shape) Validate() error {
	switch s.Kind {
	case KindSphere:
		if !finitePositive(s.Radius) {
			return fmt.Errorf("%w: sphere radius %v", ErrInvalidShape, s.Radius)
		}
	case KindCuboid:
		for i := 0; i < 3; i++ {
			if !finitePositive(s.HalfExtents[i]) {
				return fmt.Errorf("%w: cuboid half extents %v", ErrInvalidShape, s.HalfExtents)
			}
		}
	case KindPlane:
		l := s.Normal.Len()
		if math.IsNaN(l) || math.Abs(l-1) > 1e-6 {
			return fmt.Errorf("%w: plane normal %v", ErrInvalidShape, s.Normal)
		}
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidShape, s.Kind)
	}
	return nil
}

func (s Shape) Volume() float64 {
	switch s.Kind {
	case KindSphere:
		return 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius
	case KindCuboid:
		h := s.HalfExtents
		return 8 * h[0] * h[1] * h[2]
	default:
		return 0
	}
}

// MassProperties returns the mass and the principal moments of inertia about
// the shape's local origin for a uniform density. Planes are massless.
func (s Shape) MassProperties(density float64) (float64, mgl64.Vec3) {
	m := density * s.Volume()
	switch s.Kind {
	case KindSphere:
		i := 0.4 * m * s.Radius * s.Radius
		return m, mgl64.Vec3{i, i, i}
	case KindCuboid:
		x2 := s.HalfExtents[0] * s.HalfExtents[0]
		y2 := s.HalfExtents[1] * s.HalfExtents[1]
		z2 := s.HalfExtents[2] * s.HalfExtents[2]
		k := m / 3
		return m, mgl64.Vec3{k * (y2 + z2), k * (x2 + z2), k * (x2 + y2)}
	default:
		return 0, mgl64.Vec3{}
	}
}

// MinDimension is the smallest extent of the shape along any axis.
func (s Shape) MinDimension() float64 {
	switch s.Kind {
	case KindSphere:
		return 2 * s.Radius
	case KindCuboid:
		h := s.HalfExtents
		return 2 * math.Min(h[0], math.Min(h[1], h[2]))
	default:
		return math.Inf(1)
	}
}

// BoundingRadius is the radius of the smallest origin-centred sphere that
// contains the shape.
func (s Shape) BoundingRadius() float64 {
	switch s.Kind {
	case KindSphere:
		return s.Radius
	case KindCuboid:
		return s.HalfExtents.Len()
	default:
		return math.Inf(1)
	}
}

// AABB returns the world-space bounds of the shape placed at pos with
// orientation rot. Planes are unbounded.
func (s Shape) AABB(pos mgl64.Vec3, rot mgl64.Quat) AABB {
	switch s.Kind {
	case KindSphere:
		r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
		return AABB{Min: pos.Sub(r), Max: pos.Add(r)}
	case KindCuboid:
		m := rot.Mat4().Mat3()
		var ext mgl64.Vec3
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				ext[row] += math.Abs(m.At(row, col)) * s.HalfExtents[col]
			}
		}
		return AABB{Min: pos.Sub(ext), Max: pos.Add(ext)}
	default:
		return Infinite()
	}
}

// Vertices returns the eight corners of a cuboid in local space.
func (s Shape) Vertices() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	h := s.HalfExtents
	for i := 0; i < 8; i++ {
		out[i] = mgl64.Vec3{
			sign(i&1 != 0) * h[0],
			sign(i&2 != 0) * h[1],
			sign(i&4 != 0) * h[2],
		}
	}
	return out
}

func sign(neg bool) float64 {
	if neg {
		return -1
	}
	return 1
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
