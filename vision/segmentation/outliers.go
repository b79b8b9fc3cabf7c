package segmentation

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/graspplanner/pointcloud"
)

// ErrNoClusters is returned when clustering finds no dense region, so there is no object to keep.
var ErrNoClusters = errors.New("clustering found no clusters")

// FrontSlabMargin is how far behind the frontmost point a reconstructed point may lie and still be kept.
const FrontSlabMargin = 0.04

// LargestCluster returns the members of the biggest cluster. Equal sizes resolve to the
// cluster discovered first.
func LargestCluster(clusters [][]int) ([]int, error) {
	if len(clusters) == 0 {
		return nil, ErrNoClusters
	}
	largest := 0
	for i, c := range clusters {
		if len(c) > len(clusters[largest]) {
			largest = i
		}
	}
	return clusters[largest], nil
}

// RemoveOutliers keeps only the largest DBSCAN cluster of the cloud, colors included.
// It also returns the number of discarded points.
func RemoveOutliers(cloud *pointcloud.PointCloud, radius float64, minPts int) (*pointcloud.PointCloud, int, error) {
	clusters := DBSCAN(cloud.Points(), radius, minPts)
	members, err := LargestCluster(clusters)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "removing outliers from %d points", cloud.Size())
	}
	kept := cloud.Subset(members)
	return kept, cloud.Size() - kept.Size(), nil
}

// CropFrontSlab keeps the points whose x lies within margin of the largest x in the cloud.
// Reconstructed scenes put the object in front of the table and background, so the
// frontmost slab isolates it. Cropping its own output is a no-op.
func CropFrontSlab(cloud *pointcloud.PointCloud, margin float64) *pointcloud.PointCloud {
	if cloud.Size() == 0 {
		return pointcloud.New()
	}
	threshold := cloud.MetaData().MaxX - margin
	return cloud.Filter(func(p r3.Vector, _ pointcloud.Color) bool {
		return p.X >= threshold
	})
}
