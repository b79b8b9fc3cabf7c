package grasping

import (
	"context"

	"github.com/pkg/errors"
	commonpb "go.viam.com/api/common/v1"
	genericpb "go.viam.com/api/service/generic/v1"
	"go.viam.com/utils/protoutils"
	"google.golang.org/grpc"

	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/spatialmath"
)

// client implements Service against a remote planner.
type client struct {
	name   string
	client genericpb.GenericServiceClient
	logger logging.Logger
}

// NewClientFromConn constructs a new Service talking to the planner resource name over conn.
func NewClientFromConn(conn grpc.ClientConnInterface, name string, logger logging.Logger) Service {
	return &client{
		name:   name,
		client: genericpb.NewGenericServiceClient(conn),
		logger: logger,
	}
}

func (c *client) do(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	command, err := protoutils.StructToStructPb(cmd)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.DoCommand(ctx, &commonpb.DoCommandRequest{Name: c.name, Command: command})
	if err != nil {
		return nil, err
	}
	return resp.GetResult().AsMap(), nil
}

func (c *client) run(ctx context.Context, cmd map[string]interface{}) (bool, error) {
	result, err := c.do(ctx, cmd)
	if err != nil {
		return false, err
	}
	return decodeOutcome(result)
}

func decodeOutcome(result map[string]interface{}) (bool, error) {
	ok, _ := result[resultOK].(bool)
	if msg, has := result[resultError].(string); has && msg != "" {
		return ok, errors.New(msg)
	}
	return ok, nil
}

func (c *client) ComputeSuperqAndPose(ctx context.Context, object, hand string) (bool, error) {
	return c.run(ctx, map[string]interface{}{CommandKey: CmdComputeSuperqAndPose, argObject: object, argHand: hand})
}

func (c *client) Grasp(ctx context.Context) (bool, error) {
	return c.run(ctx, map[string]interface{}{CommandKey: CmdGrasp})
}

func (c *client) Drop(ctx context.Context) (bool, error) {
	return c.run(ctx, map[string]interface{}{CommandKey: CmdDrop})
}

func (c *client) Home(ctx context.Context) (bool, error) {
	return c.run(ctx, map[string]interface{}{CommandKey: CmdHome})
}

func (c *client) TakeTool(ctx context.Context) (bool, error) {
	return c.run(ctx, map[string]interface{}{CommandKey: CmdTakeTool})
}

func (c *client) OpenHand(ctx context.Context) (bool, error) {
	return c.run(ctx, map[string]interface{}{CommandKey: CmdOpenHand})
}

func (c *client) SetSingleSuperq(ctx context.Context, on bool) (bool, error) {
	return c.run(ctx, map[string]interface{}{CommandKey: CmdSetSingleSuperq, argValue: on})
}

func (c *client) FromOffFile(ctx context.Context, path, hand string) (bool, error) {
	return c.run(ctx, map[string]interface{}{CommandKey: CmdFromOffFile, argPath: path, argHand: hand})
}

func (c *client) LastSelection(ctx context.Context) (Selection, error) {
	result, err := c.do(ctx, map[string]interface{}{CommandKey: CmdGetSelection})
	if err != nil {
		return Selection{}, err
	}
	if ok, err := decodeOutcome(result); !ok {
		if err == nil {
			err = ErrNoSelection
		}
		return Selection{}, err
	}
	raw, ok := result[resultSelection].(map[string]interface{})
	if !ok {
		return Selection{}, errors.New("reply has no selection")
	}
	sel := Selection{}
	sel.RunID, _ = raw["run_id"].(string)
	sel.Hand, _ = raw["hand"].(string)
	index, _ := raw["index"].(float64)
	sel.Index = int(index)
	sel.Cost, _ = raw["cost"].(float64)
	values, _ := raw["pose"].([]interface{})
	floats := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok := v.(float64)
		if !ok {
			return Selection{}, errors.Errorf("non numeric pose value %v", v)
		}
		floats = append(floats, f)
	}
	sel.Pose, err = spatialmath.PoseFromFloats(floats)
	if err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func (c *client) Close(ctx context.Context) error {
	return nil
}
