package visualizer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/services/graspestimator"
)

func TestLogVisualizer(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	vis := NewLogVisualizer(logger)
	ctx := context.Background()

	test.That(t, vis.Reset(ctx), test.ShouldBeNil)
	test.That(t, vis.AddPoses(ctx, &graspestimator.GraspResult{
		Hand:  graspestimator.HandRight,
		Poses: []graspestimator.GraspPose{{Cost: 1}},
	}), test.ShouldBeNil)
	test.That(t, vis.HighlightBestPose(ctx, "left", "both", 3), test.ShouldBeNil)

	entries := logs.FilterMessage("best pose").All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields["hand"], test.ShouldEqual, "left")
	test.That(t, fields["index"], test.ShouldEqual, int64(3))
}

func TestPCDSnapshotter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	vis, err := NewPCDSnapshotter(dir, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	cloud := pointcloud.New()
	cloud.Add(r3.Vector{X: -0.3, Y: 0.1, Z: 0.05}, pointcloud.Color{R: 255})
	cloud.Add(r3.Vector{X: -0.31, Y: 0.1, Z: 0.05}, pointcloud.Color{G: 255})

	ctx := context.Background()
	test.That(t, vis.AddPoints(ctx, cloud, false), test.ShouldBeNil)
	test.That(t, vis.AddPoints(ctx, cloud, true), test.ShouldBeNil)

	data, err := os.ReadFile(filepath.Join(dir, "cloud_0.pcd"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.HasPrefix(string(data), "VERSION .7\n"), test.ShouldBeTrue)
	test.That(t, string(data), test.ShouldContainSubstring, "POINTS 2\n")
	test.That(t, string(data), test.ShouldContainSubstring, "16711680\n")

	_, err = os.Stat(filepath.Join(dir, "cloud_1_downsampled.pcd"))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, vis.Reset(ctx), test.ShouldBeNil)
	test.That(t, vis.AddPoints(ctx, cloud, false), test.ShouldBeNil)
	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 2)
}
