// Package visualizer receives the intermediate products of a planning run for display.
// Failures here never affect planning; callers log and move on.
package visualizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/services/graspestimator"
	"go.viam.com/graspplanner/services/superquadric"
)

// A Visualizer displays point clouds, fitted superquadrics and grasp candidates.
type Visualizer interface {
	// Reset clears everything shown for the previous run.
	Reset(ctx context.Context) error
	// AddPoints shows a cloud; downsampled marks the cloud the engine actually fitted.
	AddPoints(ctx context.Context, cloud *pointcloud.PointCloud, downsampled bool) error
	AddSuperquadrics(ctx context.Context, superqs []superquadric.Superquadric) error
	AddPoses(ctx context.Context, results ...*graspestimator.GraspResult) error
	AddPlane(ctx context.Context, height float64) error
	// HighlightBestPose marks the selected candidate; mode is the requested hand mode.
	HighlightBestPose(ctx context.Context, hand, mode string, index int) error
}

type logVisualizer struct {
	logger logging.Logger
}

// NewLogVisualizer returns a Visualizer that only logs what it is shown.
func NewLogVisualizer(logger logging.Logger) Visualizer {
	return &logVisualizer{logger: logger}
}

func (v *logVisualizer) Reset(ctx context.Context) error {
	v.logger.Debug("reset")
	return nil
}

func (v *logVisualizer) AddPoints(ctx context.Context, cloud *pointcloud.PointCloud, downsampled bool) error {
	v.logger.Debugw("points", "count", cloud.Size(), "downsampled", downsampled)
	return nil
}

func (v *logVisualizer) AddSuperquadrics(ctx context.Context, superqs []superquadric.Superquadric) error {
	for i, sq := range superqs {
		v.logger.Infow("superquadric", "index", i, "params", sq.Params)
	}
	return nil
}

func (v *logVisualizer) AddPoses(ctx context.Context, results ...*graspestimator.GraspResult) error {
	for _, res := range results {
		for i, p := range res.Poses {
			v.logger.Debugw("grasp candidate", "hand", res.Hand, "index", i, "pose", p.Pose().String(), "cost", p.Cost)
		}
	}
	return nil
}

func (v *logVisualizer) AddPlane(ctx context.Context, height float64) error {
	v.logger.Debugw("plane", "height", height)
	return nil
}

func (v *logVisualizer) HighlightBestPose(ctx context.Context, hand, mode string, index int) error {
	v.logger.Infow("best pose", "hand", hand, "mode", mode, "index", index)
	return nil
}

// snapshotVisualizer additionally writes every cloud it is shown to a PCD file.
type snapshotVisualizer struct {
	Visualizer
	dir     string
	counter int
}

// NewPCDSnapshotter returns a Visualizer that logs like NewLogVisualizer and also saves each
// cloud under dir as cloud_<n>.pcd (or cloud_<n>_downsampled.pcd).
func NewPCDSnapshotter(dir string, logger logging.Logger) (Visualizer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "creating snapshot directory %q", dir)
	}
	return &snapshotVisualizer{Visualizer: NewLogVisualizer(logger), dir: dir}, nil
}

func (v *snapshotVisualizer) Reset(ctx context.Context) error {
	v.counter = 0
	return v.Visualizer.Reset(ctx)
}

func (v *snapshotVisualizer) AddPoints(ctx context.Context, cloud *pointcloud.PointCloud, downsampled bool) (err error) {
	if err := v.Visualizer.AddPoints(ctx, cloud, downsampled); err != nil {
		return err
	}
	name := fmt.Sprintf("cloud_%d.pcd", v.counter)
	if downsampled {
		name = fmt.Sprintf("cloud_%d_downsampled.pcd", v.counter)
	}
	v.counter++

	//nolint:gosec
	f, err := os.Create(filepath.Join(v.dir, name))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return pointcloud.ToPCD(cloud, f)
}
