package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Transform is a rigid transform between the planner's end-effector frame and a specific gripper.
type Transform struct {
	Translation r3.Vector
	Rotation    R4AA
}

// TransformFromFloats reads (tx ty tz rx ry rz theta).
func TransformFromFloats(v []float64) (Transform, error) {
	p, err := PoseFromFloats(v)
	if err != nil {
		return Transform{}, err
	}
	return Transform{Translation: p.Point, Rotation: p.Orientation}, nil
}

// RotationMatrix returns the 3x3 direction cosine matrix of the rotation.
func (t Transform) RotationMatrix() *mat.Dense {
	q := t.Rotation.ToQuat()
	return quatToDCM(q)
}

// Matrix returns the 4x4 homogeneous form of the transform.
func (t Transform) Matrix() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	rot := t.RotationMatrix()
	m.Slice(0, 3, 0, 3).(*mat.Dense).Copy(rot)
	m.Set(0, 3, t.Translation.X)
	m.Set(1, 3, t.Translation.Y)
	m.Set(2, 3, t.Translation.Z)
	m.Set(3, 3, 1)
	return m
}

func quatToDCM(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	})
}
