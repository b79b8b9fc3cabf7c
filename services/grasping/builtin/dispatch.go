package builtin

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/graspplanner/components/cartesian"
	"go.viam.com/graspplanner/config"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/services/grasping"
	"go.viam.com/graspplanner/spatialmath"
)

const (
	graspCmd       = "grasp"
	cartesianKey   = "cartesian"
	approachKey    = "approach"
	dropCmd        = "drop"
	homeCmd        = "home"
	openHandCmd    = "hand"
	toolLift       = 0.02
	toolForward    = 0.08
	toolSideOffset = 0.15
)

// dispatch executes the selected grasp of req. There are no retries.
func (p *Planner) dispatch(ctx context.Context, req *GraspRequestContext) (bool, error) {
	if req == nil || req.Selection == nil {
		return false, grasping.ErrNoSelection
	}
	hand := req.Selection.Hand
	pose := req.Selection.Pose
	if p.cfg.Robot == config.RobotICubSim {
		if err := p.reachDirectly(ctx, req, hand, pose); err != nil {
			return false, err
		}
		return true, nil
	}
	return p.requestGrasp(ctx, req, hand, p.correctOffset(ctx, req, pose, hand))
}

// reachDirectly moves the hand's arm to an approach pose and then to pose, in the grasp
// controller context. The previous context is restored afterwards.
func (p *Planner) reachDirectly(ctx context.Context, req *GraspRequestContext, hand string, pose spatialmath.Pose) (err error) {
	ctrl, ok := p.deps.Controllers[hand]
	if !ok {
		return errors.Wrapf(rpc.ErrNotConnected, "no cartesian controller for %s hand", hand)
	}
	guard, err := cartesian.AcquireContext(ctx, ctrl)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, guard.Release(ctx))
	}()
	if err := cartesian.ConfigureForGrasp(ctx, ctrl); err != nil {
		return err
	}
	if previous, err := ctrl.GetPose(ctx); err == nil {
		p.dispatchLogger.Debugw("starting pose", req.keys("hand", hand, "pose", previous.String())...)
	}

	approach := p.hands[hand].Approach
	intermediate := pose.Translate(r3.Vector{X: approach[0], Y: approach[1], Z: approach[2]})
	p.dispatchLogger.Infow("reaching intermediate pose", req.keys("hand", hand, "pose", intermediate.String())...)
	if err := cartesian.MoveAndWait(ctx, ctrl, intermediate); err != nil {
		return errors.Wrap(err, "reaching intermediate pose")
	}
	p.dispatchLogger.Infow("reaching grasp pose", req.keys("hand", hand, "pose", pose.String())...)
	if err := cartesian.MoveAndWait(ctx, ctrl, pose); err != nil {
		return errors.Wrap(err, "reaching grasp pose")
	}
	return nil
}

// requestGrasp hands the grasp to the action rendering service. Only a bare ack is success.
func (p *Planner) requestGrasp(ctx context.Context, req *GraspRequestContext, hand string, pose spatialmath.Pose) (bool, error) {
	port := p.deps.ActionRender
	if !port.Connected(ctx) {
		return false, errors.Wrap(rpc.ErrNotConnected, "action rendering service")
	}
	approach := p.hands[hand].Approach
	cmd := rpc.NewBottle(
		graspCmd,
		append(rpc.NewBottle(cartesianKey), rpc.FloatsBottle(pose.Floats())...),
		rpc.NewBottle(approachKey, rpc.FloatsBottle(approach[:])),
		hand,
	)
	p.dispatchLogger.Infow("requesting grasp", req.keys("command", cmd.Text())...)
	reply, err := port.Write(ctx, cmd)
	if err != nil {
		return false, errors.Wrap(err, "requesting grasp")
	}
	if !reply.IsExactAck() {
		return false, errors.Errorf("grasp not acknowledged: %s", reply.Text())
	}
	return true, nil
}

// simpleAction sends a single token to the action rendering service.
func (p *Planner) simpleAction(ctx context.Context, token string) (bool, error) {
	port := p.deps.ActionRender
	if !port.Connected(ctx) {
		return false, errors.Wrap(rpc.ErrNotConnected, "action rendering service")
	}
	reply, err := port.Write(ctx, rpc.NewBottle(token))
	if err != nil {
		return false, errors.Wrap(err, token)
	}
	if !reply.IsVocab(0, rpc.AckToken) {
		return false, errors.Errorf("%s not acknowledged: %s", token, reply.Text())
	}
	return true, nil
}

// moveToolAside lifts the tool held by the right arm, brings it closer and moves it to the side
// of the hand that picked it.
func (p *Planner) moveToolAside(ctx context.Context, bestHand string) error {
	ctrl, ok := p.deps.Controllers[config.HandRight]
	if !ok {
		return errors.Wrap(rpc.ErrNotConnected, "no cartesian controller for right hand")
	}
	pose, err := ctrl.GetPose(ctx)
	if err != nil {
		return err
	}
	side := -toolSideOffset
	if bestHand == config.HandRight {
		side = toolSideOffset
	}
	for _, step := range []struct {
		name   string
		offset r3.Vector
	}{
		{"lifting tool", r3.Vector{Z: toolLift}},
		{"moving tool closer", r3.Vector{X: toolForward}},
		{"moving tool on the side", r3.Vector{Y: side}},
	} {
		pose = pose.Translate(step.offset)
		p.dispatchLogger.Infow(step.name, "pose", pose.String())
		if err := cartesian.MoveAndWait(ctx, ctrl, pose); err != nil {
			return errors.Wrap(err, step.name)
		}
	}
	return nil
}
