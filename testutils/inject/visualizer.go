package inject

import (
	"context"

	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/services/graspestimator"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/services/visualizer"
)

// Visualizer is an injected visualizer.
type Visualizer struct {
	visualizer.Visualizer
	ResetFunc             func(ctx context.Context) error
	AddPointsFunc         func(ctx context.Context, cloud *pointcloud.PointCloud, downsampled bool) error
	AddSuperquadricsFunc  func(ctx context.Context, superqs []superquadric.Superquadric) error
	AddPosesFunc          func(ctx context.Context, results ...*graspestimator.GraspResult) error
	AddPlaneFunc          func(ctx context.Context, height float64) error
	HighlightBestPoseFunc func(ctx context.Context, hand, mode string, index int) error
}

// Reset calls the injected Reset or the real version.
func (v *Visualizer) Reset(ctx context.Context) error {
	if v.ResetFunc == nil {
		return v.Visualizer.Reset(ctx)
	}
	return v.ResetFunc(ctx)
}

// AddPoints calls the injected AddPoints or the real version.
func (v *Visualizer) AddPoints(ctx context.Context, cloud *pointcloud.PointCloud, downsampled bool) error {
	if v.AddPointsFunc == nil {
		return v.Visualizer.AddPoints(ctx, cloud, downsampled)
	}
	return v.AddPointsFunc(ctx, cloud, downsampled)
}

// AddSuperquadrics calls the injected AddSuperquadrics or the real version.
func (v *Visualizer) AddSuperquadrics(ctx context.Context, superqs []superquadric.Superquadric) error {
	if v.AddSuperquadricsFunc == nil {
		return v.Visualizer.AddSuperquadrics(ctx, superqs)
	}
	return v.AddSuperquadricsFunc(ctx, superqs)
}

// AddPoses calls the injected AddPoses or the real version.
func (v *Visualizer) AddPoses(ctx context.Context, results ...*graspestimator.GraspResult) error {
	if v.AddPosesFunc == nil {
		return v.Visualizer.AddPoses(ctx, results...)
	}
	return v.AddPosesFunc(ctx, results...)
}

// AddPlane calls the injected AddPlane or the real version.
func (v *Visualizer) AddPlane(ctx context.Context, height float64) error {
	if v.AddPlaneFunc == nil {
		return v.Visualizer.AddPlane(ctx, height)
	}
	return v.AddPlaneFunc(ctx, height)
}

// HighlightBestPose calls the injected HighlightBestPose or the real version.
func (v *Visualizer) HighlightBestPose(ctx context.Context, hand, mode string, index int) error {
	if v.HighlightBestPoseFunc == nil {
		return v.Visualizer.HighlightBestPose(ctx, hand, mode, index)
	}
	return v.HighlightBestPoseFunc(ctx, hand, mode, index)
}
