package spatialmath

import "github.com/golang/geo/r3"

// Plane is a support surface a*x + b*y + c*z + d = 0 stored as (a b c d).
type Plane [4]float64

// NewHorizontalPlane returns the upward facing plane whose offset places it at the given height.
func NewHorizontalPlane(height float64) Plane {
	return Plane{0, 0, 1, -height}
}

// Normal returns the plane normal.
func (p Plane) Normal() r3.Vector {
	return r3.Vector{X: p[0], Y: p[1], Z: p[2]}
}

// Offset returns the d coefficient.
func (p Plane) Offset() float64 {
	return p[3]
}

// Height is the z of the plane under the assumption of an upward normal.
func (p Plane) Height() float64 {
	return -p[3]
}
