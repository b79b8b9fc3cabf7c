// Package cartesian defines the cartesian controller of a single arm: a kinematic solver that
// answers reachability queries and executes end-effector motions.
package cartesian

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/spatialmath"
)

const (
	// GraspJointCount is the number of joints (torso plus arm) the grasp configuration controls.
	GraspJointCount = 10
	// GraspFixedJoint is the joint kept disabled while grasping.
	GraspFixedJoint = 1
	// GraspPosePriority gives position precedence over orientation when solving.
	GraspPosePriority = "position"
	// GraspInTargetTol is the tolerance, in meters, used for grasp motions.
	GraspInTargetTol = 0.001
)

// A Controller is the cartesian interface of one arm. Its solver state is not safe for
// concurrent use; callers issue one query at a time.
type Controller interface {
	// StoreContext snapshots the current solver configuration and returns its id.
	StoreContext(ctx context.Context) (int, error)
	// RestoreContext reapplies a stored configuration.
	RestoreContext(ctx context.Context, id int) error
	// DeleteContext frees a stored configuration.
	DeleteContext(ctx context.Context, id int) error

	GetDOF(ctx context.Context) ([]float64, error)
	// SetDOF enables (1) or disables (0) each joint and returns the resulting configuration.
	SetDOF(ctx context.Context, dof []float64) ([]float64, error)
	SetPosePriority(ctx context.Context, priority string) error
	SetInTargetTol(ctx context.Context, tol float64) error

	// AskForPose solves for the desired pose without moving and returns the achievable pose.
	AskForPose(ctx context.Context, desired spatialmath.Pose) (spatialmath.Pose, error)
	// GoToPoseSync starts a motion toward the pose.
	GoToPoseSync(ctx context.Context, pose spatialmath.Pose) error
	// WaitMotionDone blocks until the current motion completes.
	WaitMotionDone(ctx context.Context) error
	// GetPose returns the current end-effector pose.
	GetPose(ctx context.Context) (spatialmath.Pose, error)

	Close(ctx context.Context) error
}

// GraspDOF returns the joint mask used for grasping: every joint enabled except GraspFixedJoint.
func GraspDOF() []float64 {
	dof := make([]float64, GraspJointCount)
	for i := range dof {
		dof[i] = 1
	}
	dof[GraspFixedJoint] = 0
	return dof
}

// ConfigureForGrasp switches the controller into the grasp configuration.
func ConfigureForGrasp(ctx context.Context, c Controller) error {
	if _, err := c.GetDOF(ctx); err != nil {
		return errors.Wrap(err, "reading dof")
	}
	if _, err := c.SetDOF(ctx, GraspDOF()); err != nil {
		return errors.Wrap(err, "setting dof")
	}
	if err := c.SetPosePriority(ctx, GraspPosePriority); err != nil {
		return errors.Wrap(err, "setting pose priority")
	}
	if err := c.SetInTargetTol(ctx, GraspInTargetTol); err != nil {
		return errors.Wrap(err, "setting in-target tolerance")
	}
	return nil
}

// MoveAndWait issues a synchronous motion and waits for it to complete.
func MoveAndWait(ctx context.Context, c Controller, pose spatialmath.Pose) error {
	if err := c.GoToPoseSync(ctx, pose); err != nil {
		return err
	}
	return c.WaitMotionDone(ctx)
}
