package cartesian

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/spatialmath"
)

// Command names understood by a remote cartesian controller.
const (
	CmdStoreContext    = "store_context"
	CmdRestoreContext  = "restore_context"
	CmdDeleteContext   = "delete_context"
	CmdGetDOF          = "get_dof"
	CmdSetDOF          = "set_dof"
	CmdSetPosePriority = "set_pose_priority"
	CmdSetInTargetTol  = "set_in_target_tol"
	CmdAskForPose      = "ask_for_pose"
	CmdGoToPoseSync    = "go_to_pose_sync"
	CmdWaitMotionDone  = "wait_motion_done"
	CmdGetPose         = "get_pose"
)

// client implements Controller over a port to a remote cartesian controller.
type client struct {
	name   string
	port   rpc.Port
	logger logging.Logger
}

// NewClientFromPort constructs a Controller that talks to the remote controller behind port.
func NewClientFromPort(name string, port rpc.Port, logger logging.Logger) Controller {
	return &client{name: name, port: port, logger: logger}
}

// call writes cmd and returns the reply with the leading ack stripped.
func (c *client) call(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
	if !c.port.Connected(ctx) {
		return nil, errors.Wrapf(rpc.ErrNotConnected, "cartesian controller %q", c.name)
	}
	reply, err := c.port.Write(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := rpc.ExpectAck(reply); err != nil {
		op, _ := cmd.String(0)
		return nil, errors.Wrapf(err, "%s on %q", op, c.name)
	}
	return reply[1:], nil
}

func (c *client) StoreContext(ctx context.Context) (int, error) {
	reply, err := c.call(ctx, rpc.NewBottle(CmdStoreContext))
	if err != nil {
		return 0, err
	}
	id, ok := reply.Int(0)
	if !ok {
		return 0, errors.Wrapf(rpc.ErrMalformedReply, "%s: missing context id", CmdStoreContext)
	}
	return id, nil
}

func (c *client) RestoreContext(ctx context.Context, id int) error {
	_, err := c.call(ctx, rpc.NewBottle(CmdRestoreContext, id))
	return err
}

func (c *client) DeleteContext(ctx context.Context, id int) error {
	_, err := c.call(ctx, rpc.NewBottle(CmdDeleteContext, id))
	return err
}

func (c *client) GetDOF(ctx context.Context) ([]float64, error) {
	reply, err := c.call(ctx, rpc.NewBottle(CmdGetDOF))
	if err != nil {
		return nil, err
	}
	return floatsAt(reply, 0, CmdGetDOF)
}

func (c *client) SetDOF(ctx context.Context, dof []float64) ([]float64, error) {
	reply, err := c.call(ctx, rpc.NewBottle(CmdSetDOF, rpc.FloatsBottle(dof)))
	if err != nil {
		return nil, err
	}
	return floatsAt(reply, 0, CmdSetDOF)
}

func (c *client) SetPosePriority(ctx context.Context, priority string) error {
	_, err := c.call(ctx, rpc.NewBottle(CmdSetPosePriority, priority))
	return err
}

func (c *client) SetInTargetTol(ctx context.Context, tol float64) error {
	_, err := c.call(ctx, rpc.NewBottle(CmdSetInTargetTol, tol))
	return err
}

func (c *client) AskForPose(ctx context.Context, desired spatialmath.Pose) (spatialmath.Pose, error) {
	reply, err := c.call(ctx, rpc.NewBottle(CmdAskForPose, rpc.FloatsBottle(desired.Floats())))
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return poseAt(reply, 0, CmdAskForPose)
}

func (c *client) GoToPoseSync(ctx context.Context, pose spatialmath.Pose) error {
	_, err := c.call(ctx, rpc.NewBottle(CmdGoToPoseSync, rpc.FloatsBottle(pose.Floats())))
	return err
}

func (c *client) WaitMotionDone(ctx context.Context) error {
	_, err := c.call(ctx, rpc.NewBottle(CmdWaitMotionDone))
	return err
}

func (c *client) GetPose(ctx context.Context) (spatialmath.Pose, error) {
	reply, err := c.call(ctx, rpc.NewBottle(CmdGetPose))
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return poseAt(reply, 0, CmdGetPose)
}

func (c *client) Close(ctx context.Context) error {
	return c.port.Close(ctx)
}

func floatsAt(b rpc.Bottle, i int, op string) ([]float64, error) {
	list, ok := b.List(i)
	if !ok {
		return nil, errors.Wrapf(rpc.ErrMalformedReply, "%s: expected a list at %d", op, i)
	}
	floats, ok := list.Floats()
	if !ok {
		return nil, errors.Wrapf(rpc.ErrMalformedReply, "%s: non numeric values in %s", op, list.Text())
	}
	return floats, nil
}

func poseAt(b rpc.Bottle, i int, op string) (spatialmath.Pose, error) {
	floats, err := floatsAt(b, i, op)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	pose, err := spatialmath.PoseFromFloats(floats)
	if err != nil {
		return spatialmath.Pose{}, errors.Wrap(rpc.ErrMalformedReply, err.Error())
	}
	return pose, nil
}
