package scene

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrInvalidSide = errors.New("scene: invalid side")

// Side names one wall of the chamber that encloses the ball.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
	SideTop
	SideBottom
	SideBack
)

var sideNames = [...]string{
	SideLeft:   "left",
	SideRight:  "right",
	SideTop:    "top",
	SideBottom: "bottom",
	SideBack:   "back",
}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

func Sides() []Side {
	return []Side{SideLeft, SideRight, SideTop, SideBottom, SideBack}
}

// ParseSide maps a case-insensitive side name to a Side. Unknown names are
// rejected; there is no fallback side.
func ParseSide(name string) (Side, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range sideNames {
		if s == n {
			return Side(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrInvalidSide, name, strings.Join(sideNames[:], ", "))
}

// Placement returns the centre and orientation of the panel on the given
// side of a cubic chamber with edge length size spanning x and y in
// [-size/2, size/2] and z in [-size, 0]. A panel's thin local z axis becomes
// the wall normal.
func Placement(side Side, size float64) (mgl64.Vec3, mgl64.Quat, error) {
	h := size / 2
	switch side {
	case SideRight:
		return mgl64.Vec3{h, 0, -h}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}), nil
	case SideLeft:
		return mgl64.Vec3{-h, 0, -h}, mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{0, 1, 0}), nil
	case SideBack:
		return mgl64.Vec3{0, 0, -size}, mgl64.QuatIdent(), nil
	case SideTop:
		return mgl64.Vec3{0, h, -h}, mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0}), nil
	case SideBottom:
		return mgl64.Vec3{0, -h, -h}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0}), nil
	default:
		return mgl64.Vec3{}, mgl64.Quat{}, fmt.Errorf("%w: %v", ErrInvalidSide, side)
	}
}
