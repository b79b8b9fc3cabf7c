package inject

import (
	"context"

	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/services/graspestimator"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/spatialmath"
)

// SuperquadricEstimator is an injected fitting engine.
type SuperquadricEstimator struct {
	superquadric.Estimator
	ComputeSuperqFunc func(ctx context.Context, cloud *pointcloud.PointCloud,
		objectClass string) ([]superquadric.Superquadric, error)
	ComputeMultipleSuperqFunc func(ctx context.Context, cloud *pointcloud.PointCloud) ([]superquadric.Superquadric, error)
}

// ComputeSuperq calls the injected ComputeSuperq or the real version.
func (e *SuperquadricEstimator) ComputeSuperq(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
	objectClass string,
) ([]superquadric.Superquadric, error) {
	if e.ComputeSuperqFunc == nil {
		return e.Estimator.ComputeSuperq(ctx, cloud, objectClass)
	}
	return e.ComputeSuperqFunc(ctx, cloud, objectClass)
}

// ComputeMultipleSuperq calls the injected ComputeMultipleSuperq or the real version.
func (e *SuperquadricEstimator) ComputeMultipleSuperq(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
) ([]superquadric.Superquadric, error) {
	if e.ComputeMultipleSuperqFunc == nil {
		return e.Estimator.ComputeMultipleSuperq(ctx, cloud)
	}
	return e.ComputeMultipleSuperqFunc(ctx, cloud)
}

// GraspEstimator is an injected grasp engine.
type GraspEstimator struct {
	graspestimator.Estimator
	ComputeGraspPosesFunc func(ctx context.Context, superqs []superquadric.Superquadric, plane spatialmath.Plane,
		hand string) (*graspestimator.GraspResult, error)
	RefinePoseCostFunc func(ctx context.Context, result *graspestimator.GraspResult) error
}

// ComputeGraspPoses calls the injected ComputeGraspPoses or the real version.
func (e *GraspEstimator) ComputeGraspPoses(
	ctx context.Context,
	superqs []superquadric.Superquadric,
	plane spatialmath.Plane,
	hand string,
) (*graspestimator.GraspResult, error) {
	if e.ComputeGraspPosesFunc == nil {
		return e.Estimator.ComputeGraspPoses(ctx, superqs, plane, hand)
	}
	return e.ComputeGraspPosesFunc(ctx, superqs, plane, hand)
}

// RefinePoseCost calls the injected RefinePoseCost or the real version.
func (e *GraspEstimator) RefinePoseCost(ctx context.Context, result *graspestimator.GraspResult) error {
	if e.RefinePoseCostFunc == nil {
		return e.Estimator.RefinePoseCost(ctx, result)
	}
	return e.RefinePoseCostFunc(ctx, result)
}
