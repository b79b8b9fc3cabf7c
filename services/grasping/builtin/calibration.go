package builtin

import (
	"context"

	"github.com/golang/geo/r3"

	"go.viam.com/graspplanner/config"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/spatialmath"
)

const (
	calibLocationCmd = "get_location_nolook"
	calibOK          = "ok"
	calibPrefix      = "iol-"
)

// correctOffset applies the reaching calibration of hand to the position of pose. Any failure
// leaves pose unchanged.
func (p *Planner) correctOffset(ctx context.Context, req *GraspRequestContext, pose spatialmath.Pose, hand string) spatialmath.Pose {
	if p.cfg.Robot != config.RobotICub && p.cfg.Robot != config.RobotR1 {
		return pose
	}
	if !p.deps.ReachCalib.Connected(ctx) {
		return pose
	}
	cmd := rpc.NewBottle(calibLocationCmd, calibPrefix+hand, pose.Point.X, pose.Point.Y, pose.Point.Z, 0)
	reply, err := p.deps.ReachCalib.Write(ctx, cmd)
	if err != nil {
		p.dispatchLogger.Warnw("reaching calibration failed, continuing with unchanged pose", req.keys("error", err)...)
		return pose
	}
	if reply.Size() < 4 || !reply.IsVocab(0, calibOK) {
		p.dispatchLogger.Warnw("couldn't retrieve fixed pose, continuing with unchanged pose", req.keys("reply", reply.Text())...)
		return pose
	}
	x, okX := reply.Float(1)
	y, okY := reply.Float(2)
	z, okZ := reply.Float(3)
	if !okX || !okY || !okZ {
		p.dispatchLogger.Warnw("malformed fixed pose, continuing with unchanged pose", req.keys("reply", reply.Text())...)
		return pose
	}
	fixed := spatialmath.NewPose(r3.Vector{X: x, Y: y, Z: z}, pose.Orientation)
	p.dispatchLogger.Infow("pose fixed with calibration offsets", req.keys("from", pose.String(), "to", fixed.String())...)
	return fixed
}
