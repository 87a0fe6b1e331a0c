// Package structure provides the voxel domain model for block-based
// spaceships: integer grid vectors, block orientations with their rotation
// matrices, mountpoint geometry, and the Structure container mutated by the
// grammar turtle and the hull builder.
package structure

import (
	"fmt"
	"math"
)

// Vec is an integer vector in grid coordinates.
type Vec struct {
	X, Y, Z int
}

// V constructs a Vec.
func V(x, y, z int) Vec {
	return Vec{X: x, Y: y, Z: z}
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v with every component multiplied by k.
func (v Vec) Scale(k int) Vec {
	return Vec{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Neg returns the opposite vector.
func (v Vec) Neg() Vec {
	return Vec{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// IsZero reports whether all components are zero.
func (v Vec) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// ToF converts to a float vector.
func (v Vec) ToF() VecF {
	return VecF{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func (v Vec) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// Cross returns the cross product a x b.
func Cross(a, b Vec) Vec {
	return Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Min returns the component-wise minimum of a and b.
func Min(a, b Vec) Vec {
	return Vec{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)}
}

// Max returns the component-wise maximum of a and b.
func Max(a, b Vec) Vec {
	return Vec{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
}

// VecF is a float vector, used for mountpoint extents and block colors.
type VecF struct {
	X, Y, Z float64
}

// VF constructs a VecF.
func VF(x, y, z float64) VecF {
	return VecF{X: x, Y: y, Z: z}
}

// Add returns v + o.
func (v VecF) Add(o VecF) VecF {
	return VecF{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v VecF) Sub(o VecF) VecF {
	return VecF{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v with every component multiplied by k.
func (v VecF) Scale(k float64) VecF {
	return VecF{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Floor returns v with every component rounded toward negative infinity.
func (v VecF) Floor() VecF {
	return VecF{X: math.Floor(v.X), Y: math.Floor(v.Y), Z: math.Floor(v.Z)}
}

// Veci truncates v to an integer vector.
func (v VecF) Veci() Vec {
	f := v.Floor()
	return Vec{X: int(f.X), Y: int(f.Y), Z: int(f.Z)}
}

// IsZero reports whether all components are zero.
func (v VecF) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Area returns the product of the non-zero absolute components, or 0 when
// every component is zero. For an axis-aligned face quad (one zero axis)
// this is the quad's surface area.
func (v VecF) Area() float64 {
	area := 1.0
	nonzero := false
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if c != 0 {
			area *= math.Abs(c)
			nonzero = true
		}
	}
	if !nonzero {
		return 0
	}
	return area
}

func (v VecF) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// MinF returns the component-wise minimum of a and b.
func MinF(a, b VecF) VecF {
	return VecF{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxF returns the component-wise maximum of a and b.
func MaxF(a, b VecF) VecF {
	return VecF{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
