// Package segmentation separates the object of interest from the rest of an acquired point cloud.
package segmentation

import (
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

const (
	unvisited = 0
	noise     = -1
)

// DBSCAN groups points by density. A point with at least minPts neighbors within radius
// (itself included) is a core point; clusters are grown from core points. Noise points
// belong to no cluster. Clusters are returned in discovery order, each holding the
// ascending indices of its members.
func DBSCAN(points []r3.Vector, radius float64, minPts int) [][]int {
	if len(points) == 0 {
		return nil
	}

	index := newRegionIndex(points)
	labels := make([]int, len(points)) // 0=unvisited, -1=noise, >0=clusterID
	clusterID := 0

	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		neighbors := index.regionQuery(points[i], radius)
		if len(neighbors) < minPts {
			labels[i] = noise
			continue
		}
		clusterID++
		expandCluster(index, points, labels, i, neighbors, clusterID, radius, minPts)
	}

	clusters := make([][]int, clusterID)
	for i, label := range labels {
		if label > 0 {
			clusters[label-1] = append(clusters[label-1], i)
		}
	}
	return clusters
}

func expandCluster(index *regionIndex, points []r3.Vector, labels []int,
	seed int, neighbors []int, clusterID int, radius float64, minPts int,
) {
	labels[seed] = clusterID
	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]
		if labels[idx] == noise {
			labels[idx] = clusterID // border point
		}
		if labels[idx] != unvisited {
			continue
		}
		labels[idx] = clusterID
		more := index.regionQuery(points[idx], radius)
		if len(more) >= minPts {
			neighbors = append(neighbors, more...)
		}
	}
}

// regionIndex answers fixed radius queries over a static set of points.
type regionIndex struct {
	tree *kdtree.Tree
}

func newRegionIndex(points []r3.Vector) *regionIndex {
	indexed := make(indexedPoints, len(points))
	for i, p := range points {
		indexed[i] = indexedPoint{Vector: p, index: i}
	}
	return &regionIndex{tree: kdtree.New(indexed, false)}
}

// regionQuery returns the sorted indices of every point within radius of p.
func (ri *regionIndex) regionQuery(p r3.Vector, radius float64) []int {
	keeper := kdtree.NewDistKeeper(radius * radius)
	ri.tree.NearestSet(keeper, indexedPoint{Vector: p, index: -1})
	out := make([]int, 0, len(keeper.Heap))
	for _, found := range keeper.Heap {
		// the keeper seeds its heap with a sentinel that carries no point
		if found.Comparable == nil {
			continue
		}
		out = append(out, found.Comparable.(indexedPoint).index)
	}
	sort.Ints(out)
	return out
}

// indexedPoint is a kd-tree point that remembers its position in the input slice.
// Distance is squared euclidean, as kdtree keepers expect.
type indexedPoint struct {
	r3.Vector
	index int
}

func coord(v r3.Vector, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return coord(p.Vector, d) - coord(c.(indexedPoint).Vector, d)
}

func (p indexedPoint) Dims() int { return 3 }

func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	diff := p.Sub(c.(indexedPoint).Vector)
	return diff.Dot(diff)
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int        { return axisPlane{Dim: d, points: p}.Pivot() }
func (p indexedPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// axisPlane sorts points along one dimension so the tree can pick a median pivot.
type axisPlane struct {
	kdtree.Dim
	points indexedPoints
}

func (p axisPlane) Len() int { return len(p.points) }
func (p axisPlane) Less(i, j int) bool {
	return coord(p.points[i].Vector, p.Dim) < coord(p.points[j].Vector, p.Dim)
}
func (p axisPlane) Swap(i, j int)  { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p axisPlane) Pivot() int     { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p axisPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
