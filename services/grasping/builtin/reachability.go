package builtin

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/graspplanner/components/cartesian"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/spatialmath"
)

const (
	askCmd  = "ask"
	poseKey = "pose"
)

// ReachabilityBackend answers which pose a hand can actually reach when asked for desired.
type ReachabilityBackend interface {
	// Available fails when the backend cannot answer at all.
	Available(ctx context.Context) error
	Reach(ctx context.Context, hand string, desired spatialmath.Pose) (spatialmath.Pose, error)
}

// localBackend asks the arms' cartesian controllers, in a scratch controller context.
type localBackend struct {
	controllers map[string]cartesian.Controller
}

func newLocalBackend(controllers map[string]cartesian.Controller) *localBackend {
	return &localBackend{controllers: controllers}
}

func (b *localBackend) Available(ctx context.Context) error {
	return nil
}

func (b *localBackend) Reach(ctx context.Context, hand string, desired spatialmath.Pose) (hat spatialmath.Pose, err error) {
	ctrl, ok := b.controllers[hand]
	if !ok {
		return spatialmath.Pose{}, errors.Wrapf(rpc.ErrNotConnected, "no cartesian controller for %s hand", hand)
	}
	guard, err := cartesian.AcquireContext(ctx, ctrl)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	defer func() {
		err = multierr.Combine(err, guard.Release(ctx))
	}()
	if err := cartesian.ConfigureForGrasp(ctx, ctrl); err != nil {
		return spatialmath.Pose{}, err
	}
	return ctrl.AskForPose(ctx, desired)
}

// remoteBackend asks the action rendering service.
type remoteBackend struct {
	port rpc.Port
}

func newRemoteBackend(port rpc.Port) *remoteBackend {
	return &remoteBackend{port: port}
}

func (b *remoteBackend) Available(ctx context.Context) error {
	if !b.port.Connected(ctx) {
		return errors.Wrap(rpc.ErrNotConnected, "action rendering service")
	}
	return nil
}

func (b *remoteBackend) Reach(ctx context.Context, hand string, desired spatialmath.Pose) (spatialmath.Pose, error) {
	if err := b.Available(ctx); err != nil {
		return spatialmath.Pose{}, err
	}
	reply, err := b.port.Write(ctx, rpc.NewBottle(askCmd, rpc.FloatsBottle(desired.Floats()), hand))
	if err != nil {
		return spatialmath.Pose{}, err
	}
	if err := rpc.ExpectAck(reply); err != nil {
		return spatialmath.Pose{}, err
	}
	if reply.Size() < 3 {
		return spatialmath.Pose{}, errors.Wrapf(rpc.ErrMalformedReply, "ask reply too short: %s", reply.Text())
	}
	values, ok := reply.FindList(poseKey)
	if !ok {
		return spatialmath.Pose{}, errors.Wrapf(rpc.ErrMalformedReply, "ask reply has no pose: %s", reply.Text())
	}
	floats, ok := values.Floats()
	if !ok {
		return spatialmath.Pose{}, errors.Wrapf(rpc.ErrMalformedReply, "ask reply pose: %s", reply.Text())
	}
	hat, err := spatialmath.PoseFromFloats(floats)
	if err != nil {
		return spatialmath.Pose{}, errors.Wrap(rpc.ErrMalformedReply, err.Error())
	}
	return hat, nil
}

// refine fills the hat of every candidate and lets the engine rescore each hand.
func (p *Planner) refine(ctx context.Context, req *GraspRequestContext) error {
	if err := p.backend.Available(ctx); err != nil {
		return err
	}
	for _, res := range req.Results {
		reached := 0
		for i := range res.Poses {
			cand := &res.Poses[i]
			cand.Hat, cand.HatErr = nil, nil
			hat, err := p.backend.Reach(ctx, res.Hand, cand.Pose())
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				cand.HatErr = err
				p.reachLogger.Warnw("candidate not refined", req.keys("hand", res.Hand, "index", i, "error", err)...)
				continue
			}
			cand.Hat = &hat
			reached++
		}
		p.reachLogger.Infow("candidates refined", req.keys("hand", res.Hand, "refined", reached, "candidates", len(res.Poses))...)
		if err := p.deps.Grasp.RefinePoseCost(ctx, res); err != nil {
			return errors.Wrapf(err, "refining %s hand costs", res.Hand)
		}
	}
	p.visualized(req, "refined poses", p.deps.Visualizer.AddPoses(ctx, req.Results...))
	return nil
}
