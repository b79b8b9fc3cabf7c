package builtin

import (
	"github.com/google/uuid"

	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/services/graspestimator"
	"go.viam.com/graspplanner/services/grasping"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/spatialmath"
)

// objectClasses are the object names that select a single superquadric of the same shape.
var objectClasses = map[string]bool{"box": true, "sphere": true, "cylinder": true}

// GraspRequestContext carries everything one planning request produces, stage by stage.
type GraspRequestContext struct {
	RunID       uuid.UUID
	Object      string
	ObjectClass string
	Mode        string
	// Fixate asks the action service to look at the object before its cloud is requested.
	Fixate bool

	Cloud     *pointcloud.PointCloud
	Superqs   []superquadric.Superquadric
	Plane     spatialmath.Plane
	Results   []*graspestimator.GraspResult
	Selection *grasping.Selection
}

func (p *Planner) newRequest(object, mode string) *GraspRequestContext {
	class := p.cfg.ObjectClass
	if objectClasses[object] {
		class = object
	}
	return &GraspRequestContext{
		RunID:       uuid.New(),
		Object:      object,
		ObjectClass: class,
		Mode:        mode,
		Cloud:       pointcloud.New(),
		Plane:       p.plane,
	}
}

// Hands returns the hands planned for, right before left.
func (req *GraspRequestContext) Hands() []string {
	if req.Mode == grasping.HandBoth {
		return []string{grasping.HandRight, grasping.HandLeft}
	}
	return []string{req.Mode}
}

// Result returns the candidates computed for hand, or nil.
func (req *GraspRequestContext) Result(hand string) *graspestimator.GraspResult {
	for _, res := range req.Results {
		if res.Hand == hand {
			return res
		}
	}
	return nil
}

// keys are the logging fields identifying the request.
func (req *GraspRequestContext) keys(keysAndValues ...interface{}) []interface{} {
	return append([]interface{}{"run_id", req.RunID.String(), "object", req.Object}, keysAndValues...)
}
