// Package grasping defines the operator surface of the grasp planner: compute a grasp for an
// object, execute it, and drive the simple hand/arm actions around it.
package grasping

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/spatialmath"
)

// Hand modes.
const (
	HandRight = "right"
	HandLeft  = "left"
	HandBoth  = "both"
)

var (
	// ErrInvalidHand is returned for a hand argument other than right, left or both.
	ErrInvalidHand = errors.New("hand must be right, left or both")
	// ErrNoSelection is returned when executing before any grasp has been computed.
	ErrNoSelection = errors.New("no grasp pose has been computed")
)

// ValidateHand checks a hand mode argument.
func ValidateHand(hand string) error {
	switch hand {
	case HandRight, HandLeft, HandBoth:
		return nil
	default:
		return errors.Wrapf(ErrInvalidHand, "got %q", hand)
	}
}

// Selection is the hand and candidate chosen by the last successful computation.
type Selection struct {
	RunID string
	Hand  string
	Index int
	Cost  float64
	Pose  spatialmath.Pose
}

// Service plans and executes grasps. Every operation reports success as a boolean; the error
// carries the diagnostic when there is one. Operations are serialized.
type Service interface {
	// ComputeSuperqAndPose acquires the object's point cloud, fits it and picks a grasp for hand.
	ComputeSuperqAndPose(ctx context.Context, object, hand string) (bool, error)
	// Grasp executes the last selected grasp.
	Grasp(ctx context.Context) (bool, error)
	Drop(ctx context.Context) (bool, error)
	Home(ctx context.Context) (bool, error)
	// TakeTool lifts a grasped tool and moves it aside with the right arm.
	TakeTool(ctx context.Context) (bool, error)
	OpenHand(ctx context.Context) (bool, error)
	// SetSingleSuperq toggles fitting a single superquadric for objects of the default class.
	SetSingleSuperq(ctx context.Context, on bool) (bool, error)
	// FromOffFile is ComputeSuperqAndPose on a point cloud read from a file.
	FromOffFile(ctx context.Context, path, hand string) (bool, error)
	// LastSelection returns the current selection, or ErrNoSelection.
	LastSelection(ctx context.Context) (Selection, error)
	Close(ctx context.Context) error
}
