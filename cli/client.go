package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/services/grasping"
)

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// plannerClient is a connection to a running planner.
type plannerClient struct {
	conn *grpc.ClientConn
	svc  grasping.Service
}

func newPlannerClient(c *cli.Context) (*plannerClient, error) {
	logger := logging.NewBlankLogger("graspctl")
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("graspctl")
	}
	conn, err := grpc.NewClient(c.String(flagAddress), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to planner at %s", c.String(flagAddress))
	}
	return &plannerClient{conn: conn, svc: grasping.NewClientFromConn(conn, c.String(flagName), logger)}, nil
}

// withPlanner runs op against the planner and reports its outcome.
func withPlanner(c *cli.Context, op string, run func(ctx context.Context, svc grasping.Service) (bool, error)) (err error) {
	client, err := newPlannerClient(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, client.conn.Close())
	}()
	ok, err := run(c.Context, client.svc)
	if err != nil {
		return errors.Wrapf(err, "%s failed", op)
	}
	if !ok {
		return errors.Errorf("%s failed", op)
	}
	printf(c.App.Writer, "%s: ok", op)
	return nil
}

func firstArg(c *cli.Context, name string) (string, error) {
	if c.Args().Len() != 1 {
		return "", errors.Errorf("expected exactly one %s argument", name)
	}
	return c.Args().First(), nil
}

// ComputeAction computes a grasp for the object named by the first argument.
func ComputeAction(c *cli.Context) error {
	object, err := firstArg(c, "object")
	if err != nil {
		return err
	}
	hand := c.String(flagHand)
	if err := grasping.ValidateHand(hand); err != nil {
		return err
	}
	return withPlanner(c, "compute", func(ctx context.Context, svc grasping.Service) (bool, error) {
		return svc.ComputeSuperqAndPose(ctx, object, hand)
	})
}

// FromOffAction computes a grasp for the point cloud file named by the first argument. The path
// is read by the planner, not by graspctl.
func FromOffAction(c *cli.Context) error {
	path, err := firstArg(c, "path")
	if err != nil {
		return err
	}
	hand := c.String(flagHand)
	if err := grasping.ValidateHand(hand); err != nil {
		return err
	}
	return withPlanner(c, "from-off", func(ctx context.Context, svc grasping.Service) (bool, error) {
		return svc.FromOffFile(ctx, path, hand)
	})
}

// GraspAction executes the last computed grasp.
func GraspAction(c *cli.Context) error {
	return withPlanner(c, "grasp", func(ctx context.Context, svc grasping.Service) (bool, error) {
		return svc.Grasp(ctx)
	})
}

// DropAction releases the grasped object.
func DropAction(c *cli.Context) error {
	return withPlanner(c, "drop", func(ctx context.Context, svc grasping.Service) (bool, error) {
		return svc.Drop(ctx)
	})
}

// HomeAction brings the arms home.
func HomeAction(c *cli.Context) error {
	return withPlanner(c, "home", func(ctx context.Context, svc grasping.Service) (bool, error) {
		return svc.Home(ctx)
	})
}

// TakeToolAction moves a tool aside.
func TakeToolAction(c *cli.Context) error {
	return withPlanner(c, "take-tool", func(ctx context.Context, svc grasping.Service) (bool, error) {
		return svc.TakeTool(ctx)
	})
}

// OpenHandAction opens the hand.
func OpenHandAction(c *cli.Context) error {
	return withPlanner(c, "open-hand", func(ctx context.Context, svc grasping.Service) (bool, error) {
		return svc.OpenHand(ctx)
	})
}

// SingleSuperqAction switches single superquadric fitting on or off.
func SingleSuperqAction(c *cli.Context) error {
	value, err := firstArg(c, "on|off")
	if err != nil {
		return err
	}
	var on bool
	switch value {
	case "on":
		on = true
	case "off":
	default:
		return errors.Errorf("expected on or off, got %q", value)
	}
	return withPlanner(c, "single-superq", func(ctx context.Context, svc grasping.Service) (bool, error) {
		return svc.SetSingleSuperq(ctx, on)
	})
}

// SelectionAction prints the last computed grasp.
func SelectionAction(c *cli.Context) (err error) {
	client, err := newPlannerClient(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, client.conn.Close())
	}()
	sel, err := client.svc.LastSelection(c.Context)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "run %s: %s hand, candidate %d, cost %.4f", sel.RunID, sel.Hand, sel.Index, sel.Cost)
	printf(c.App.Writer, "pose %s", sel.Pose.String())
	return nil
}
