package builtin

import (
	"context"

	"go.viam.com/graspplanner/config"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/spatialmath"
)

const (
	tableGetCmd   = "get"
	tableArgument = "table"

	// tableClearance lifts the support plane above the measured table surface.
	tableClearance = 0.035
)

// resolveTable refreshes the support plane from the table calibration service when it is
// reachable. Failures keep the previous plane.
func (p *Planner) resolveTable(ctx context.Context, req *GraspRequestContext) {
	source := "default"
	if p.cfg.Robot != config.RobotICubSim && p.deps.TableCalib.Connected(ctx) {
		if height, ok := p.measureTable(ctx, req); ok {
			req.Plane = spatialmath.NewHorizontalPlane(height - tableClearance)
			source = "calibration"
		}
	}
	p.tableLogger.Infow("support plane", req.keys("source", source, "plane", req.Plane, "height", req.Plane.Height())...)
}

func (p *Planner) measureTable(ctx context.Context, req *GraspRequestContext) (float64, bool) {
	reply, err := p.deps.TableCalib.Write(ctx, rpc.NewBottle(tableGetCmd, tableArgument))
	if err != nil {
		p.tableLogger.Warnw("table calibration failed", req.keys("error", err)...)
		return 0, false
	}
	payload, ok := reply.List(0)
	if !ok || payload.Size() < 2 {
		p.tableLogger.Warnw("malformed table reply", req.keys("reply", reply.Text())...)
		return 0, false
	}
	height, ok := payload.Float(1)
	if !ok {
		p.tableLogger.Warnw("malformed table height", req.keys("reply", reply.Text())...)
		return 0, false
	}
	return height, true
}
