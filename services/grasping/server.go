package grasping

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	commonpb "go.viam.com/api/common/v1"
	genericpb "go.viam.com/api/service/generic/v1"
	"go.viam.com/utils/protoutils"

	"go.viam.com/graspplanner/logging"
)

// DoCommand keys and command names.
const (
	CommandKey = "command"

	CmdComputeSuperqAndPose = "compute_superq_and_pose"
	CmdGrasp                = "grasp"
	CmdDrop                 = "drop"
	CmdHome                 = "home"
	CmdTakeTool             = "take_tool"
	CmdOpenHand             = "open_hand"
	CmdSetSingleSuperq      = "set_single_superq"
	CmdFromOffFile          = "from_off_file"
	CmdGetSelection         = "get_selection"

	argObject = "object"
	argHand   = "hand"
	argPath   = "path"
	argValue  = "value"

	resultOK        = "ok"
	resultError     = "error"
	resultSelection = "selection"
)

// serviceServer implements the generic gRPC service for a grasp planner.
type serviceServer struct {
	genericpb.UnimplementedGenericServiceServer
	name   string
	svc    Service
	logger logging.Logger
}

// NewRPCServiceServer constructs a generic gRPC service server that answers DoCommand requests
// addressed to name with svc.
func NewRPCServiceServer(name string, svc Service, logger logging.Logger) genericpb.GenericServiceServer {
	return &serviceServer{name: name, svc: svc, logger: logger}
}

// DoCommand runs an operator command and returns its outcome.
func (s *serviceServer) DoCommand(ctx context.Context, req *commonpb.DoCommandRequest) (*commonpb.DoCommandResponse, error) {
	if req.Name != s.name {
		return nil, errors.Errorf("no resource named %q", req.Name)
	}
	result, err := DoCommand(ctx, s.svc, req.Command.AsMap())
	if err != nil {
		return nil, err
	}
	res, err := protoutils.StructToStructPb(result)
	if err != nil {
		return nil, err
	}
	return &commonpb.DoCommandResponse{Result: res}, nil
}

// DoCommand dispatches a command map to svc. Operation failures are reported in the result as
// ok=false plus an error string; only malformed commands return an error.
func DoCommand(ctx context.Context, svc Service, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, ok := cmd[CommandKey].(string)
	if !ok {
		return nil, errors.Errorf("missing %q string", CommandKey)
	}
	var (
		success bool
		err     error
	)
	switch name {
	case CmdComputeSuperqAndPose:
		object, hand, argErr := stringArgs(cmd, argObject, argHand)
		if argErr != nil {
			return nil, argErr
		}
		success, err = svc.ComputeSuperqAndPose(ctx, object, hand)
	case CmdFromOffFile:
		path, hand, argErr := stringArgs(cmd, argPath, argHand)
		if argErr != nil {
			return nil, argErr
		}
		success, err = svc.FromOffFile(ctx, path, hand)
	case CmdGrasp:
		success, err = svc.Grasp(ctx)
	case CmdDrop:
		success, err = svc.Drop(ctx)
	case CmdHome:
		success, err = svc.Home(ctx)
	case CmdTakeTool:
		success, err = svc.TakeTool(ctx)
	case CmdOpenHand:
		success, err = svc.OpenHand(ctx)
	case CmdSetSingleSuperq:
		on, argErr := onOffArg(cmd)
		if argErr != nil {
			return nil, argErr
		}
		success, err = svc.SetSingleSuperq(ctx, on)
	case CmdGetSelection:
		sel, selErr := svc.LastSelection(ctx)
		if selErr != nil {
			return outcome(false, selErr), nil
		}
		result := outcome(true, nil)
		result[resultSelection] = map[string]interface{}{
			"run_id": sel.RunID,
			"hand":   sel.Hand,
			"index":  sel.Index,
			"cost":   sel.Cost,
			"pose":   lo.ToAnySlice(sel.Pose.Floats()),
		}
		return result, nil
	default:
		return nil, errors.Errorf("unknown command %q", name)
	}
	return outcome(success, err), nil
}

func outcome(ok bool, err error) map[string]interface{} {
	result := map[string]interface{}{resultOK: ok}
	if err != nil {
		result[resultError] = err.Error()
	}
	return result
}

func stringArgs(cmd map[string]interface{}, first, second string) (string, string, error) {
	a, ok := cmd[first].(string)
	if !ok {
		return "", "", errors.Errorf("missing %q string", first)
	}
	b, ok := cmd[second].(string)
	if !ok {
		return "", "", errors.Errorf("missing %q string", second)
	}
	return a, b, nil
}

// onOffArg accepts a boolean or the strings "on" and "off".
func onOffArg(cmd map[string]interface{}) (bool, error) {
	switch v := cmd[argValue].(type) {
	case bool:
		return v, nil
	case string:
		return v == "on", nil
	default:
		return false, errors.Errorf("%q must be a boolean or on/off", argValue)
	}
}
