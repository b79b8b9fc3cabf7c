package superquadric

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/rpc"
)

// Command names understood by a remote fitting engine.
const (
	CmdComputeSuperq         = "compute_superq"
	CmdComputeMultipleSuperq = "compute_multiple_superq"
)

// client implements Estimator over a port to a remote fitting engine.
type client struct {
	port    rpc.Port
	options Options
	logger  logging.Logger
}

// NewClientFromPort constructs an Estimator that forwards fitting requests, with the given
// options attached, to the engine behind port.
func NewClientFromPort(port rpc.Port, options Options, logger logging.Logger) Estimator {
	return &client{port: port, options: options, logger: logger}
}

func (c *client) ComputeSuperq(ctx context.Context, cloud *pointcloud.PointCloud, objectClass string) ([]Superquadric, error) {
	return c.compute(ctx, rpc.NewBottle(CmdComputeSuperq, objectClass, c.optionsBottle(), rpc.CloudBottle(cloud)))
}

func (c *client) ComputeMultipleSuperq(ctx context.Context, cloud *pointcloud.PointCloud) ([]Superquadric, error) {
	return c.compute(ctx, rpc.NewBottle(CmdComputeMultipleSuperq, DefaultObjectClass, c.optionsBottle(), rpc.CloudBottle(cloud)))
}

func (c *client) compute(ctx context.Context, cmd rpc.Bottle) ([]Superquadric, error) {
	if !c.port.Connected(ctx) {
		return nil, errors.Wrap(rpc.ErrNotConnected, "superquadric engine")
	}
	reply, err := c.port.Write(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := rpc.ExpectAck(reply); err != nil {
		return nil, errors.Wrap(err, "superquadric engine")
	}
	list, ok := reply.List(1)
	if !ok {
		return nil, errors.Wrapf(rpc.ErrMalformedReply, "superquadric engine replied %s", reply.Text())
	}
	superqs := make([]Superquadric, 0, list.Size())
	for i := 0; i < list.Size(); i++ {
		params, ok := list.List(i)
		if !ok {
			return nil, errors.Wrapf(rpc.ErrMalformedReply, "superquadric %d is not a list", i)
		}
		floats, ok := params.Floats()
		if !ok {
			return nil, errors.Wrapf(rpc.ErrMalformedReply, "superquadric %d has non numeric parameters", i)
		}
		sq, err := New(floats)
		if err != nil {
			return nil, errors.Wrap(rpc.ErrMalformedReply, err.Error())
		}
		superqs = append(superqs, sq)
	}
	c.logger.Debugw("superquadrics received", "count", len(superqs))
	return superqs, nil
}

func (c *client) optionsBottle() rpc.Bottle {
	o := c.options
	return rpc.NewBottle("options",
		rpc.NewBottle("tol", o.Tol),
		rpc.NewBottle("print_level", o.PrintLevel),
		rpc.NewBottle("optimizer_points", o.OptimizerPoints),
		rpc.NewBottle("random_sampling", o.RandomSampling),
		rpc.NewBottle("merge_model", o.MergeModel),
		rpc.NewBottle("minimum_points", o.MinimumPoints),
		rpc.NewBottle("fraction_pc", o.FractionPC),
		rpc.NewBottle("tol_threshold_axissuperq", o.TolThresholdAxis),
		rpc.NewBottle("threshold_section1", o.ThresholdSection1),
		rpc.NewBottle("threshold_section2", o.ThresholdSection2),
		rpc.NewBottle("max_superq", o.MaxSuperquadrics),
	)
}
