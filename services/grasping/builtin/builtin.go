// Package builtin implements the grasp planner: it acquires an object's point cloud, cleans it,
// has it fitted with superquadrics, generates grasp candidates per hand, checks them for
// reachability, picks the best hand and pose, and dispatches the grasp.
package builtin

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/graspplanner/components/cartesian"
	"go.viam.com/graspplanner/config"
	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/services/graspestimator"
	"go.viam.com/graspplanner/services/grasping"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/services/visualizer"
	"go.viam.com/graspplanner/spatialmath"
)

// Dependencies are the collaborators of a planner. Nil ports are treated as disconnected.
type Dependencies struct {
	// PointCloud serves segmented object clouds.
	PointCloud rpc.Port
	// ActionRender executes look, grasp, drop, home and hand actions and answers reachability
	// queries on platforms without a local solver.
	ActionRender rpc.Port
	// ReachCalib corrects reaching offsets.
	ReachCalib rpc.Port
	// TableCalib measures the table height.
	TableCalib rpc.Port
	// SFM reconstructs 3D points from image pixels.
	SFM rpc.Port
	// Camera provides the frame used to color reconstructed points.
	Camera ImageSource

	Superquadric superquadric.Estimator
	Grasp        graspestimator.Estimator
	// Controllers holds the cartesian controller of each arm, by hand. Only iCub platforms use them.
	Controllers map[string]cartesian.Controller
	Visualizer  visualizer.Visualizer
	Clock       clock.Clock
}

// HandContext is the static grasp configuration of one hand.
type HandContext struct {
	Transform spatialmath.Transform
	Approach  [4]float64
}

// Planner implements grasping.Service. Operations are admitted one at a time, in arrival order.
type Planner struct {
	cfg     *config.Config
	deps    Dependencies
	backend ReachabilityBackend
	hands   map[string]HandContext
	gate    *semaphore.Weighted
	// owned are ports of collaborators that have no Close of their own.
	owned []rpc.Port

	logger            logging.Logger
	acquisitionLogger logging.Logger
	fittingLogger     logging.Logger
	tableLogger       logging.Logger
	graspLogger       logging.Logger
	reachLogger       logging.Logger
	dispatchLogger    logging.Logger

	// guarded by gate
	singleSuperq bool
	plane        spatialmath.Plane
	last         *GraspRequestContext
}

var _ grasping.Service = (*Planner)(nil)

// NewPlanner returns a planner over the given collaborators.
func NewPlanner(cfg *config.Config, deps Dependencies, logger logging.Logger) (*Planner, error) {
	if deps.Superquadric == nil {
		return nil, errors.New("planner needs a superquadric estimator")
	}
	if deps.Grasp == nil {
		return nil, errors.New("planner needs a grasp estimator")
	}
	deps.PointCloud = orDisconnected(deps.PointCloud, "pointCloud")
	deps.ActionRender = orDisconnected(deps.ActionRender, "actionRenderer")
	deps.ReachCalib = orDisconnected(deps.ReachCalib, "reachingCalibration")
	deps.TableCalib = orDisconnected(deps.TableCalib, "tableCalib")
	deps.SFM = orDisconnected(deps.SFM, "sfm")
	if deps.Visualizer == nil {
		deps.Visualizer = visualizer.NewLogVisualizer(logger.Sublogger("visualizer"))
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	hands := map[string]HandContext{}
	for _, hand := range []string{grasping.HandRight, grasping.HandLeft} {
		trsfm, approach, err := cfg.HandContext(hand)
		if err != nil {
			return nil, errors.Wrapf(err, "%s hand context", hand)
		}
		hc := HandContext{Transform: trsfm}
		copy(hc.Approach[:], approach)
		hands[hand] = hc
		logger.Debugw("hand context loaded",
			"hand", hand,
			"transform", fmt.Sprintf("%v", mat.Formatted(trsfm.Matrix(), mat.Squeeze())),
			"approach", approach)
	}

	p := &Planner{
		cfg:               cfg,
		deps:              deps,
		hands:             hands,
		gate:              semaphore.NewWeighted(1),
		logger:            logger,
		acquisitionLogger: logger.Sublogger("acquisition"),
		fittingLogger:     logger.Sublogger("fitting"),
		tableLogger:       logger.Sublogger("table"),
		graspLogger:       logger.Sublogger("grasp"),
		reachLogger:       logger.Sublogger("reachability"),
		dispatchLogger:    logger.Sublogger("dispatch"),
		singleSuperq:      cfg.SingleSuperq,
		plane:             cfg.Plane(),
	}
	if cfg.IsICub() {
		p.backend = newLocalBackend(deps.Controllers)
	} else {
		p.backend = newRemoteBackend(deps.ActionRender)
	}
	return p, nil
}

func orDisconnected(port rpc.Port, name string) rpc.Port {
	if port == nil {
		return rpc.NewDisconnectedPort(name)
	}
	return port
}

// admit waits for the planner to be free. The returned func releases it.
func (p *Planner) admit(ctx context.Context) (func(), error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { p.gate.Release(1) }, nil
}

// Close closes every port and controller.
func (p *Planner) Close(ctx context.Context) error {
	var err error
	ports := []rpc.Port{p.deps.PointCloud, p.deps.ActionRender, p.deps.ReachCalib, p.deps.TableCalib, p.deps.SFM}
	for _, port := range append(ports, p.owned...) {
		err = multierr.Combine(err, port.Close(ctx))
	}
	if closer, ok := p.deps.Camera.(interface{ Close(context.Context) error }); ok {
		err = multierr.Combine(err, closer.Close(ctx))
	}
	for _, ctrl := range p.deps.Controllers {
		err = multierr.Combine(err, ctrl.Close(ctx))
	}
	return err
}
