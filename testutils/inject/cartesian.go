package inject

import (
	"context"

	"go.viam.com/graspplanner/components/cartesian"
	"go.viam.com/graspplanner/spatialmath"
)

// Controller is an injected cartesian controller.
type Controller struct {
	cartesian.Controller
	StoreContextFunc    func(ctx context.Context) (int, error)
	RestoreContextFunc  func(ctx context.Context, id int) error
	DeleteContextFunc   func(ctx context.Context, id int) error
	GetDOFFunc          func(ctx context.Context) ([]float64, error)
	SetDOFFunc          func(ctx context.Context, dof []float64) ([]float64, error)
	SetPosePriorityFunc func(ctx context.Context, priority string) error
	SetInTargetTolFunc  func(ctx context.Context, tol float64) error
	AskForPoseFunc      func(ctx context.Context, desired spatialmath.Pose) (spatialmath.Pose, error)
	GoToPoseSyncFunc    func(ctx context.Context, pose spatialmath.Pose) error
	WaitMotionDoneFunc  func(ctx context.Context) error
	GetPoseFunc         func(ctx context.Context) (spatialmath.Pose, error)
	CloseFunc           func(ctx context.Context) error
}

// StoreContext calls the injected StoreContext or the real version.
func (c *Controller) StoreContext(ctx context.Context) (int, error) {
	if c.StoreContextFunc == nil {
		return c.Controller.StoreContext(ctx)
	}
	return c.StoreContextFunc(ctx)
}

// RestoreContext calls the injected RestoreContext or the real version.
func (c *Controller) RestoreContext(ctx context.Context, id int) error {
	if c.RestoreContextFunc == nil {
		return c.Controller.RestoreContext(ctx, id)
	}
	return c.RestoreContextFunc(ctx, id)
}

// DeleteContext calls the injected DeleteContext or the real version.
func (c *Controller) DeleteContext(ctx context.Context, id int) error {
	if c.DeleteContextFunc == nil {
		return c.Controller.DeleteContext(ctx, id)
	}
	return c.DeleteContextFunc(ctx, id)
}

// GetDOF calls the injected GetDOF or the real version.
func (c *Controller) GetDOF(ctx context.Context) ([]float64, error) {
	if c.GetDOFFunc == nil {
		return c.Controller.GetDOF(ctx)
	}
	return c.GetDOFFunc(ctx)
}

// SetDOF calls the injected SetDOF or the real version.
func (c *Controller) SetDOF(ctx context.Context, dof []float64) ([]float64, error) {
	if c.SetDOFFunc == nil {
		return c.Controller.SetDOF(ctx, dof)
	}
	return c.SetDOFFunc(ctx, dof)
}

// SetPosePriority calls the injected SetPosePriority or the real version.
func (c *Controller) SetPosePriority(ctx context.Context, priority string) error {
	if c.SetPosePriorityFunc == nil {
		return c.Controller.SetPosePriority(ctx, priority)
	}
	return c.SetPosePriorityFunc(ctx, priority)
}

// SetInTargetTol calls the injected SetInTargetTol or the real version.
func (c *Controller) SetInTargetTol(ctx context.Context, tol float64) error {
	if c.SetInTargetTolFunc == nil {
		return c.Controller.SetInTargetTol(ctx, tol)
	}
	return c.SetInTargetTolFunc(ctx, tol)
}

// AskForPose calls the injected AskForPose or the real version.
func (c *Controller) AskForPose(ctx context.Context, desired spatialmath.Pose) (spatialmath.Pose, error) {
	if c.AskForPoseFunc == nil {
		return c.Controller.AskForPose(ctx, desired)
	}
	return c.AskForPoseFunc(ctx, desired)
}

// GoToPoseSync calls the injected GoToPoseSync or the real version.
func (c *Controller) GoToPoseSync(ctx context.Context, pose spatialmath.Pose) error {
	if c.GoToPoseSyncFunc == nil {
		return c.Controller.GoToPoseSync(ctx, pose)
	}
	return c.GoToPoseSyncFunc(ctx, pose)
}

// WaitMotionDone calls the injected WaitMotionDone or the real version.
func (c *Controller) WaitMotionDone(ctx context.Context) error {
	if c.WaitMotionDoneFunc == nil {
		return c.Controller.WaitMotionDone(ctx)
	}
	return c.WaitMotionDoneFunc(ctx)
}

// GetPose calls the injected GetPose or the real version.
func (c *Controller) GetPose(ctx context.Context) (spatialmath.Pose, error) {
	if c.GetPoseFunc == nil {
		return c.Controller.GetPose(ctx)
	}
	return c.GetPoseFunc(ctx)
}

// Close calls the injected Close or the real version.
func (c *Controller) Close(ctx context.Context) error {
	if c.CloseFunc == nil {
		return c.Controller.Close(ctx)
	}
	return c.CloseFunc(ctx)
}
