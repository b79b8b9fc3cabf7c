package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PoseLength is the number of scalars in a serialized pose: x y z rx ry rz theta.
const PoseLength = 7

// Pose is an end-effector position (meters, robot base frame) paired with an axis-angle orientation.
type Pose struct {
	Point       r3.Vector
	Orientation R4AA
}

// NewPose returns a pose at the given point and orientation.
func NewPose(pt r3.Vector, o R4AA) Pose {
	return Pose{Point: pt, Orientation: o}
}

// PoseFromFloats reads a 7 element (x y z rx ry rz theta) vector.
func PoseFromFloats(v []float64) (Pose, error) {
	if len(v) != PoseLength {
		return Pose{}, errors.Errorf("pose needs %d values, got %d", PoseLength, len(v))
	}
	return Pose{
		Point:       r3.Vector{X: v[0], Y: v[1], Z: v[2]},
		Orientation: R4AAFromFloats(v[3:]),
	}, nil
}

// Floats returns the pose as (x y z rx ry rz theta).
func (p Pose) Floats() []float64 {
	return append([]float64{p.Point.X, p.Point.Y, p.Point.Z}, p.Orientation.Floats()...)
}

// Translate returns the pose moved by the given offset with the orientation untouched.
func (p Pose) Translate(offset r3.Vector) Pose {
	return Pose{Point: p.Point.Add(offset), Orientation: p.Orientation}
}

func (p Pose) String() string {
	return fmt.Sprintf("[ %.4f, %.4f, %.4f, %.4f, %.4f, %.4f, %.4f]",
		p.Point.X, p.Point.Y, p.Point.Z, p.Orientation.RX, p.Orientation.RY, p.Orientation.RZ, p.Orientation.Theta)
}

// PoseAlmostEqual compares positions and axis-angle components within epsilon.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	af, bf := a.Floats(), b.Floats()
	for i := range af {
		d := af[i] - bf[i]
		if d > epsilon || d < -epsilon {
			return false
		}
	}
	return true
}
