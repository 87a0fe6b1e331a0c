package structure

import (
	"github.com/evoship/evoship/pkg/errors"
)

// Orientation identifies one of the six axis-aligned block directions.
type Orientation int

const (
	Forward Orientation = iota
	Backward
	Up
	Down
	Left
	Right
)

// Orientations lists all six directions in a stable order.
var Orientations = [6]Orientation{Forward, Backward, Up, Down, Left, Right}

var orientationVecs = [6]Vec{
	Forward:  {X: 0, Y: 0, Z: -1},
	Backward: {X: 0, Y: 0, Z: 1},
	Up:       {X: 0, Y: 1, Z: 0},
	Down:     {X: 0, Y: -1, Z: 0},
	Left:     {X: -1, Y: 0, Z: 0},
	Right:    {X: 1, Y: 0, Z: 0},
}

var orientationNames = [6]string{
	Forward:  "Forward",
	Backward: "Backward",
	Up:       "Up",
	Down:     "Down",
	Left:     "Left",
	Right:    "Right",
}

// Vec returns the unit vector for the orientation.
func (o Orientation) Vec() Vec {
	return orientationVecs[o]
}

// Opposite returns the reverse direction.
func (o Orientation) Opposite() Orientation {
	switch o {
	case Forward:
		return Backward
	case Backward:
		return Forward
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

func (o Orientation) String() string {
	if o < Forward || o > Right {
		return "Unknown"
	}
	return orientationNames[o]
}

// OrientationFromVec maps a unit axis vector back to its Orientation.
func OrientationFromVec(v Vec) (Orientation, error) {
	for _, o := range Orientations {
		if orientationVecs[o] == v {
			return o, nil
		}
	}
	return Forward, errors.WithFields(
		errors.New(errors.InvalidInput, "vector is not a unit axis direction"),
		errors.Fields{"vector": v.String()})
}

// RotationMatrix is the integer rotation built from a (forward, up) pair.
// Entries are always in {-1, 0, 1} so applying it to float vectors is exact.
type RotationMatrix [3][3]int

// RotationFrom builds the rotation that maps block-local directions into the
// grid frame for a block oriented with the given forward and up directions.
// A block in the canonical orientation (Forward, Up) gets the identity.
func RotationFrom(forward, up Orientation) RotationMatrix {
	f := forward.Vec()
	u := up.Vec()
	r := Cross(f, u)
	b := f.Neg()
	return RotationMatrix{
		{r.X, u.X, b.X},
		{r.Y, u.Y, b.Y},
		{r.Z, u.Z, b.Z},
	}
}

// Apply rotates an integer vector.
func (m RotationMatrix) Apply(v Vec) Vec {
	return Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// ApplyF rotates a float vector.
func (m RotationMatrix) ApplyF(v VecF) VecF {
	return VecF{
		X: float64(m[0][0])*v.X + float64(m[0][1])*v.Y + float64(m[0][2])*v.Z,
		Y: float64(m[1][0])*v.X + float64(m[1][1])*v.Y + float64(m[1][2])*v.Z,
		Z: float64(m[2][0])*v.X + float64(m[2][1])*v.Y + float64(m[2][2])*v.Z,
	}
}

// Axis selects a grid axis for whole-structure rotation.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// rotateQuarter rotates v by 90 degrees counterclockwise about the axis,
// looking down the positive axis direction.
func rotateQuarter(v Vec, axis Axis) Vec {
	switch axis {
	case AxisX:
		return Vec{X: v.X, Y: -v.Z, Z: v.Y}
	case AxisY:
		return Vec{X: v.Z, Y: v.Y, Z: -v.X}
	default:
		return Vec{X: -v.Y, Y: v.X, Z: v.Z}
	}
}

// RotateVec rotates v by k quarter turns about the axis.
func RotateVec(v Vec, axis Axis, k int) Vec {
	k = ((k % 4) + 4) % 4
	for i := 0; i < k; i++ {
		v = rotateQuarter(v, axis)
	}
	return v
}

// RotateOrientation rotates an orientation by k quarter turns about the axis.
// Axis-aligned unit vectors stay axis-aligned under quarter turns, so the
// lookup cannot fail.
func RotateOrientation(o Orientation, axis Axis, k int) Orientation {
	r, _ := OrientationFromVec(RotateVec(o.Vec(), axis, k))
	return r
}
