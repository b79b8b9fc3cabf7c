package graspestimator

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/spatialmath"
)

// Command names understood by a remote grasp engine.
const (
	CmdComputeGraspPoses = "compute_grasp_poses"
	CmdRefinePoseCost    = "refine_pose_cost"
)

// candidateLength is a pose followed by its cost.
const candidateLength = spatialmath.PoseLength + 1

// client implements Estimator over a port to a remote grasp engine.
type client struct {
	port    rpc.Port
	options Options
	logger  logging.Logger
}

// NewClientFromPort constructs an Estimator backed by the engine behind port.
func NewClientFromPort(port rpc.Port, options Options, logger logging.Logger) Estimator {
	return &client{port: port, options: options, logger: logger}
}

func (c *client) call(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
	if !c.port.Connected(ctx) {
		return nil, errors.Wrap(rpc.ErrNotConnected, "grasp engine")
	}
	reply, err := c.port.Write(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := rpc.ExpectAck(reply); err != nil {
		return nil, errors.Wrap(err, "grasp engine")
	}
	return reply, nil
}

func (c *client) ComputeGraspPoses(
	ctx context.Context,
	superqs []superquadric.Superquadric,
	plane spatialmath.Plane,
	hand string,
) (*GraspResult, error) {
	if len(superqs) == 0 {
		return nil, ErrEmptyShapeModel
	}
	models := make(rpc.Bottle, 0, len(superqs))
	for _, sq := range superqs {
		models = append(models, rpc.FloatsBottle(sq.Params))
	}
	reply, err := c.call(ctx, rpc.NewBottle(CmdComputeGraspPoses, hand,
		rpc.NewBottle("plane", rpc.FloatsBottle(plane[:])),
		rpc.NewBottle("superqs", models),
		c.optionsBottle(hand),
	))
	if err != nil {
		return nil, err
	}
	best, ok := reply.Int(1)
	list, listOK := reply.List(2)
	if !ok || !listOK {
		return nil, errors.Wrapf(rpc.ErrMalformedReply, "grasp engine replied %s", reply.Text())
	}
	result := &GraspResult{Hand: hand, BestIndex: best, Poses: make([]GraspPose, 0, list.Size())}
	for i := 0; i < list.Size(); i++ {
		cand, ok := list.List(i)
		if !ok {
			return nil, errors.Wrapf(rpc.ErrMalformedReply, "candidate %d is not a list", i)
		}
		v, ok := cand.Floats()
		if !ok || len(v) != candidateLength {
			return nil, errors.Wrapf(rpc.ErrMalformedReply, "candidate %d must be %d numbers: %s", i, candidateLength, cand.Text())
		}
		result.Poses = append(result.Poses, GraspPose{
			Position:    r3.Vector{X: v[0], Y: v[1], Z: v[2]},
			Orientation: spatialmath.R4AAFromFloats(v[3:7]),
			Cost:        v[7],
		})
	}
	if _, err := result.Best(); err != nil {
		return nil, errors.Wrapf(rpc.ErrMalformedReply, "best index %d out of %d candidates", best, len(result.Poses))
	}
	c.logger.Debugw("grasp candidates received", "hand", hand, "count", len(result.Poses), "best", best)
	return result, nil
}

func (c *client) RefinePoseCost(ctx context.Context, result *GraspResult) error {
	cands := make(rpc.Bottle, 0, len(result.Poses))
	for _, p := range result.Poses {
		hat := rpc.NewBottle()
		if p.Hat != nil {
			hat = rpc.FloatsBottle(p.Hat.Floats())
		}
		cands = append(cands, rpc.NewBottle(rpc.FloatsBottle(append(p.Pose().Floats(), p.Cost)), hat))
	}
	reply, err := c.call(ctx, rpc.NewBottle(CmdRefinePoseCost, result.Hand, cands))
	if err != nil {
		return err
	}
	best, ok := reply.Int(1)
	costsList, listOK := reply.List(2)
	if !ok || !listOK {
		return errors.Wrapf(rpc.ErrMalformedReply, "grasp engine replied %s", reply.Text())
	}
	costs, ok := costsList.Floats()
	if !ok || len(costs) != len(result.Poses) || best < 0 || best >= len(costs) {
		return errors.Wrapf(rpc.ErrMalformedReply, "refined costs do not match %d candidates: %s",
			len(result.Poses), reply.Text())
	}
	for i := range result.Poses {
		result.Poses[i].Cost = costs[i]
	}
	result.BestIndex = best
	return nil
}

func (c *client) optionsBottle(hand string) rpc.Bottle {
	o := c.options
	bounds, constr := o.Bounds(hand)
	return rpc.NewBottle("options",
		rpc.NewBottle("tol", o.Tol),
		rpc.NewBottle("constr_tol", o.ConstrTol),
		rpc.NewBottle("print_level", o.PrintLevel),
		rpc.NewBottle("max_superq", o.MaxSuperquadrics),
		rpc.NewBottle("displacement", rpc.FloatsBottle([]float64{o.Displacement.X, o.Displacement.Y, o.Displacement.Z})),
		rpc.NewBottle("hand", rpc.FloatsBottle(o.Hand)),
		rpc.NewBottle("bounds", matrixBottle(bounds)),
		rpc.NewBottle("bounds_constr", matrixBottle(constr)),
	)
}

// matrixBottle encodes a matrix row by row.
func matrixBottle(m *mat.Dense) rpc.Bottle {
	if m == nil {
		return rpc.NewBottle()
	}
	rows, _ := m.Dims()
	out := make(rpc.Bottle, 0, rows)
	for i := 0; i < rows; i++ {
		out = append(out, rpc.FloatsBottle(mat.Row(nil, i, m)))
	}
	return out
}
