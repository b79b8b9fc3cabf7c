package builtin

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"go.viam.com/graspplanner/components/cartesian"
	"go.viam.com/graspplanner/config"
	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/services/graspestimator"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/services/visualizer"
)

// NewFromConfig connects a planner to the collaborators listed in cfg. Connections are lazy, so
// an unreachable collaborator only fails the operations that need it.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *Planner, err error) {
	var opened []rpc.Port
	defer func() {
		if err == nil {
			return
		}
		for _, port := range opened {
			err = multierr.Combine(err, port.Close(ctx))
		}
	}()
	open := func(suffix string, svc config.ServiceConfig) (rpc.Port, error) {
		port, err := rpc.NewGenericPort(fmt.Sprintf("/%s/%s", cfg.Name, suffix), svc.Address, svc.Resource)
		if err != nil {
			return nil, err
		}
		opened = append(opened, port)
		return port, nil
	}

	var deps Dependencies
	for _, p := range []struct {
		suffix string
		svc    config.ServiceConfig
		dst    *rpc.Port
	}{
		{"pointCloud:rpc", cfg.Services.PointCloud, &deps.PointCloud},
		{"actionRenderer:rpc", cfg.Services.ActionRender, &deps.ActionRender},
		{"reachingCalibration:rpc", cfg.Services.ReachCalib, &deps.ReachCalib},
		{"tableCalib:rpc", cfg.Services.TableCalib, &deps.TableCalib},
		{"sfm:rpc", cfg.Services.SFM, &deps.SFM},
	} {
		if *p.dst, err = open(p.suffix, p.svc); err != nil {
			return nil, err
		}
	}

	cameraPort, err := open("img:i", cfg.Services.Camera)
	if err != nil {
		return nil, err
	}
	deps.Camera = NewCameraClient(cameraPort)

	superqPort, err := open("superquadric:rpc", cfg.Services.Superquadric)
	if err != nil {
		return nil, err
	}
	deps.Superquadric = superquadric.NewClientFromPort(superqPort, cfg.Superquadric, logger.Sublogger("superquadric"))

	graspPort, err := open("grasp:rpc", cfg.Services.Grasp)
	if err != nil {
		return nil, err
	}
	deps.Grasp = graspestimator.NewClientFromPort(graspPort, cfg.GraspOptions(), logger.Sublogger("graspestimator"))

	if cfg.IsICub() {
		deps.Controllers = map[string]cartesian.Controller{}
		arms := map[string]config.ServiceConfig{
			config.HandRight: cfg.Services.CartesianRight,
			config.HandLeft:  cfg.Services.CartesianLeft,
		}
		for hand, svc := range arms {
			if cfg.ControlArms != config.HandBoth && cfg.ControlArms != hand {
				continue
			}
			port, err := open("cartesian_"+hand+":rpc", svc)
			if err != nil {
				return nil, err
			}
			deps.Controllers[hand] = cartesian.NewClientFromPort(hand, port, logger.Sublogger("cartesian"))
		}
	}

	if dir := cfg.Window.SnapshotDir; dir != "" {
		if deps.Visualizer, err = visualizer.NewPCDSnapshotter(dir, logger.Sublogger("visualizer")); err != nil {
			return nil, err
		}
	}
	planner, err := NewPlanner(cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	planner.owned = []rpc.Port{superqPort, graspPort}
	return planner, nil
}
