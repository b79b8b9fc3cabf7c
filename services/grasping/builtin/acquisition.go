package builtin

import (
	"context"
	"image"
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/vision/segmentation"
)

const (
	lookCmd          = "look"
	lookWait         = "wait"
	getPointCloudCmd = "get_point_cloud"
	sfmPointsCmd     = "Points"

	// reconstructedObject is segmented by pixel window rather than by the point cloud service.
	reconstructedObject = "hanging_tool"
)

// Reconstructed points outside this workspace box are discarded.
const (
	sfmMaxX = -0.2
	sfmMinX = -0.6
	sfmMinZ = -0.2
)

// acquire fills req.Cloud, from the segmentation service or from stereo reconstruction.
func (p *Planner) acquire(ctx context.Context, req *GraspRequestContext) error {
	if req.Object == reconstructedObject {
		return p.acquireFromReconstruction(ctx, req)
	}
	return p.acquireFromSensor(ctx, req)
}

func (p *Planner) acquireFromSensor(ctx context.Context, req *GraspRequestContext) error {
	if req.Fixate {
		if err := p.lookAt(ctx, req); err != nil {
			return err
		}
	}

	req.Cloud.Clear()
	port := p.deps.PointCloud
	if !port.Connected(ctx) {
		return errors.Wrap(rpc.ErrNotConnected, "point cloud service")
	}
	reply, err := port.Write(ctx, rpc.NewBottle(getPointCloudCmd, req.Object))
	if err != nil {
		return errors.Wrap(err, "requesting point cloud")
	}
	content, ok := reply.List(0)
	if !ok {
		return errors.Wrapf(rpc.ErrMalformedReply, "point cloud reply: %s", reply.Text())
	}
	cloud, err := rpc.CloudFromBottle(content)
	if err != nil {
		return err
	}
	if cloud.Size() == 0 {
		return errors.Wrapf(superquadric.ErrEmptyPointCloud, "object %q", req.Object)
	}
	p.acquisitionLogger.Infow("received point cloud", req.keys("points", cloud.Size())...)

	filtered, err := p.removeOutliers(req, cloud)
	if err != nil {
		return err
	}
	req.Cloud = filtered
	return nil
}

func (p *Planner) lookAt(ctx context.Context, req *GraspRequestContext) error {
	port := p.deps.ActionRender
	if !port.Connected(ctx) {
		return errors.Wrap(rpc.ErrNotConnected, "action rendering service")
	}
	reply, err := port.Write(ctx, rpc.NewBottle(lookCmd, req.Object, lookWait))
	if err != nil {
		return errors.Wrap(err, "looking at object")
	}
	if !reply.IsVocab(0, rpc.AckToken) {
		return errors.Errorf("did not manage to look at %q: %s", req.Object, reply.Text())
	}
	return nil
}

// acquireFromReconstruction asks the SFM service for the 3D point behind every pixel of the
// configured window and colors each kept point from the current camera frame.
func (p *Planner) acquireFromReconstruction(ctx context.Context, req *GraspRequestContext) error {
	req.Cloud.Clear()
	port := p.deps.SFM
	if !port.Connected(ctx) {
		return errors.Wrap(rpc.ErrNotConnected, "reconstruction service")
	}
	if p.deps.Camera == nil {
		return errors.Wrap(rpc.ErrNotConnected, "camera")
	}

	win := p.cfg.PixelWindow
	cmd := rpc.NewBottle(sfmPointsCmd)
	var pixels []image.Point
	for u := win.UI; u < win.UF; u++ {
		for v := win.VI; v < win.VF; v++ {
			cmd = append(cmd, u, v)
			pixels = append(pixels, image.Point{X: u, Y: v})
		}
	}
	reply, err := port.Write(ctx, cmd)
	if err != nil {
		return errors.Wrap(err, "requesting reconstruction")
	}
	frame, err := p.deps.Camera.Read(ctx)
	if err != nil {
		return errors.Wrap(err, "reading camera frame")
	}

	cloud := pointcloud.New()
	for i := 0; i < reply.Size()/3 && i < len(pixels); i++ {
		x, okX := reply.Float(3 * i)
		y, okY := reply.Float(3*i + 1)
		z, okZ := reply.Float(3*i + 2)
		if !okX || !okY || !okZ {
			return errors.Wrapf(rpc.ErrMalformedReply, "reconstructed point %d", i)
		}
		pt := r3.Vector{X: x, Y: y, Z: z}
		if pt.Norm() == 0 || x > sfmMaxX || x < sfmMinX || z < sfmMinZ {
			continue
		}
		c := color.RGBAModel.Convert(frame.At(pixels[i].X, pixels[i].Y)).(color.RGBA)
		cloud.Add(pt, pointcloud.Color{R: c.R, G: c.G, B: c.B})
	}
	req.Cloud = segmentation.CropFrontSlab(cloud, segmentation.FrontSlabMargin)
	if req.Cloud.Size() == 0 {
		return errors.Wrap(superquadric.ErrEmptyPointCloud, "reconstruction")
	}
	p.acquisitionLogger.Infow("reconstructed point cloud", req.keys("points", req.Cloud.Size())...)
	return nil
}

// removeOutliers keeps the largest density cluster of cloud.
func (p *Planner) removeOutliers(req *GraspRequestContext, cloud *pointcloud.PointCloud) (*pointcloud.PointCloud, error) {
	start := p.deps.Clock.Now()
	filtered, removed, err := segmentation.RemoveOutliers(cloud, p.cfg.RadiusDBSCAN, p.cfg.PointsDBSCAN)
	if err != nil {
		return nil, errors.Wrap(err, "removing outliers")
	}
	p.acquisitionLogger.Infow("outliers removed", req.keys(
		"removed", removed,
		"kept", filtered.Size(),
		"elapsed", p.deps.Clock.Since(start),
	)...)
	return filtered, nil
}
