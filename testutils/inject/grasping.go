package inject

import (
	"context"

	"go.viam.com/graspplanner/services/grasping"
)

// GraspingService is an injected grasp planner.
type GraspingService struct {
	grasping.Service
	ComputeSuperqAndPoseFunc func(ctx context.Context, object, hand string) (bool, error)
	GraspFunc                func(ctx context.Context) (bool, error)
	DropFunc                 func(ctx context.Context) (bool, error)
	HomeFunc                 func(ctx context.Context) (bool, error)
	TakeToolFunc             func(ctx context.Context) (bool, error)
	OpenHandFunc             func(ctx context.Context) (bool, error)
	SetSingleSuperqFunc      func(ctx context.Context, on bool) (bool, error)
	FromOffFileFunc          func(ctx context.Context, path, hand string) (bool, error)
	LastSelectionFunc        func(ctx context.Context) (grasping.Selection, error)
	CloseFunc                func(ctx context.Context) error
}

// ComputeSuperqAndPose calls the injected ComputeSuperqAndPose or the real version.
func (s *GraspingService) ComputeSuperqAndPose(ctx context.Context, object, hand string) (bool, error) {
	if s.ComputeSuperqAndPoseFunc == nil {
		return s.Service.ComputeSuperqAndPose(ctx, object, hand)
	}
	return s.ComputeSuperqAndPoseFunc(ctx, object, hand)
}

// Grasp calls the injected Grasp or the real version.
func (s *GraspingService) Grasp(ctx context.Context) (bool, error) {
	if s.GraspFunc == nil {
		return s.Service.Grasp(ctx)
	}
	return s.GraspFunc(ctx)
}

// Drop calls the injected Drop or the real version.
func (s *GraspingService) Drop(ctx context.Context) (bool, error) {
	if s.DropFunc == nil {
		return s.Service.Drop(ctx)
	}
	return s.DropFunc(ctx)
}

// Home calls the injected Home or the real version.
func (s *GraspingService) Home(ctx context.Context) (bool, error) {
	if s.HomeFunc == nil {
		return s.Service.Home(ctx)
	}
	return s.HomeFunc(ctx)
}

// TakeTool calls the injected TakeTool or the real version.
func (s *GraspingService) TakeTool(ctx context.Context) (bool, error) {
	if s.TakeToolFunc == nil {
		return s.Service.TakeTool(ctx)
	}
	return s.TakeToolFunc(ctx)
}

// OpenHand calls the injected OpenHand or the real version.
func (s *GraspingService) OpenHand(ctx context.Context) (bool, error) {
	if s.OpenHandFunc == nil {
		return s.Service.OpenHand(ctx)
	}
	return s.OpenHandFunc(ctx)
}

// SetSingleSuperq calls the injected SetSingleSuperq or the real version.
func (s *GraspingService) SetSingleSuperq(ctx context.Context, on bool) (bool, error) {
	if s.SetSingleSuperqFunc == nil {
		return s.Service.SetSingleSuperq(ctx, on)
	}
	return s.SetSingleSuperqFunc(ctx, on)
}

// FromOffFile calls the injected FromOffFile or the real version.
func (s *GraspingService) FromOffFile(ctx context.Context, path, hand string) (bool, error) {
	if s.FromOffFileFunc == nil {
		return s.Service.FromOffFile(ctx, path, hand)
	}
	return s.FromOffFileFunc(ctx, path, hand)
}

// LastSelection calls the injected LastSelection or the real version.
func (s *GraspingService) LastSelection(ctx context.Context) (grasping.Selection, error) {
	if s.LastSelectionFunc == nil {
		return s.Service.LastSelection(ctx)
	}
	return s.LastSelectionFunc(ctx)
}

// Close calls the injected Close or the real version.
func (s *GraspingService) Close(ctx context.Context) error {
	if s.CloseFunc == nil {
		return s.Service.Close(ctx)
	}
	return s.CloseFunc(ctx)
}
