// Package pointcloud defines the ordered, colored point cloud the grasp planner works on.
//
// Unlike a spatially indexed cloud, points keep their acquisition order and every point
// has a color at the same index. A cloud is owned by a single planning request.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Color is an 8 bit RGB triple.
type Color struct {
	R, G, B uint8
}

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// PointCloud is an ordered sequence of points (meters) with a parallel sequence of colors.
type PointCloud struct {
	points []r3.Vector
	colors []Color
}

// New returns an empty point cloud.
func New() *PointCloud {
	return &PointCloud{}
}

// NewFromPoints builds a cloud from parallel slices. The slices are copied.
func NewFromPoints(points []r3.Vector, colors []Color) (*PointCloud, error) {
	if len(points) != len(colors) {
		return nil, errors.Errorf("point cloud needs one color per point, got %d points and %d colors",
			len(points), len(colors))
	}
	return &PointCloud{
		points: append([]r3.Vector(nil), points...),
		colors: append([]Color(nil), colors...),
	}, nil
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	if cloud == nil {
		return 0
	}
	return len(cloud.points)
}

// Add appends a point and its color.
func (cloud *PointCloud) Add(p r3.Vector, c Color) {
	cloud.points = append(cloud.points, p)
	cloud.colors = append(cloud.colors, c)
}

// At returns the i-th point and its color.
func (cloud *PointCloud) At(i int) (r3.Vector, Color) {
	return cloud.points[i], cloud.colors[i]
}

// Points returns the points. The slice must not be modified.
func (cloud *PointCloud) Points() []r3.Vector {
	return cloud.points
}

// Colors returns the colors. The slice must not be modified.
func (cloud *PointCloud) Colors() []Color {
	return cloud.colors
}

// Clear drops every point.
func (cloud *PointCloud) Clear() {
	cloud.points = nil
	cloud.colors = nil
}

// Subset returns a new cloud holding the points at the given indices, in index order.
func (cloud *PointCloud) Subset(indices []int) *PointCloud {
	out := &PointCloud{
		points: make([]r3.Vector, 0, len(indices)),
		colors: make([]Color, 0, len(indices)),
	}
	for _, i := range indices {
		out.Add(cloud.points[i], cloud.colors[i])
	}
	return out
}

// Filter returns a new cloud with the points for which keep returns true.
func (cloud *PointCloud) Filter(keep func(p r3.Vector, c Color) bool) *PointCloud {
	out := New()
	for i, p := range cloud.points {
		if keep(p, cloud.colors[i]) {
			out.Add(p, cloud.colors[i])
		}
	}
	return out
}

// MetaData returns the bounding box of the cloud. An empty cloud has inverted infinite bounds.
func (cloud *PointCloud) MetaData() MetaData {
	meta := MetaData{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
		MinZ: math.Inf(1), MaxZ: math.Inf(-1),
	}
	for _, v := range cloud.points {
		meta.MinX = math.Min(meta.MinX, v.X)
		meta.MaxX = math.Max(meta.MaxX, v.X)
		meta.MinY = math.Min(meta.MinY, v.Y)
		meta.MaxY = math.Max(meta.MaxY, v.Y)
		meta.MinZ = math.Min(meta.MinZ, v.Z)
		meta.MaxZ = math.Max(meta.MaxZ, v.Z)
	}
	return meta
}
