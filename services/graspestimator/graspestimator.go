// Package graspestimator defines grasp candidates and the interface to the engine that generates
// and scores them from fitted superquadrics.
package graspestimator

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/spatialmath"
)

// Hands the engine can plan for.
const (
	HandRight = "right"
	HandLeft  = "left"
)

// ErrEmptyShapeModel is returned when candidates are requested without any fitted superquadric.
var ErrEmptyShapeModel = errors.New("no superquadrics to compute grasp poses from")

// GraspPose is one grasp candidate. Hat is the pose the arm can actually achieve and stays nil
// until refinement succeeds; HatErr records why refinement failed for this candidate.
type GraspPose struct {
	Position    r3.Vector
	Orientation spatialmath.R4AA
	Cost        float64
	Hat         *spatialmath.Pose
	HatErr      error
}

// Pose returns the desired end-effector pose of the candidate.
func (g GraspPose) Pose() spatialmath.Pose {
	return spatialmath.NewPose(g.Position, g.Orientation)
}

// GraspResult holds the candidates for one hand and the engine's pick among them.
type GraspResult struct {
	Hand      string
	Poses     []GraspPose
	BestIndex int
}

// Best returns the candidate at BestIndex.
func (r *GraspResult) Best() (GraspPose, error) {
	if r == nil || r.BestIndex < 0 || r.BestIndex >= len(r.Poses) {
		return GraspPose{}, errors.New("grasp result has no valid best pose")
	}
	return r.Poses[r.BestIndex], nil
}

// Costs returns the cost of every candidate, in order.
func (r *GraspResult) Costs() []float64 {
	costs := make([]float64, len(r.Poses))
	for i, p := range r.Poses {
		costs[i] = p.Cost
	}
	return costs
}

// Options tune the grasp engine. Bound matrices hold one (min, max) row per variable.
type Options struct {
	Tol               float64
	ConstrTol         float64
	PrintLevel        int
	MaxSuperquadrics  int
	Displacement      r3.Vector
	Hand              []float64
	BoundsRight       *mat.Dense
	BoundsLeft        *mat.Dense
	BoundsConstrRight *mat.Dense
	BoundsConstrLeft  *mat.Dense
}

// Bounds returns the variable and constraint bounds for a hand.
func (o Options) Bounds(hand string) (*mat.Dense, *mat.Dense) {
	if hand == HandLeft {
		return o.BoundsLeft, o.BoundsConstrLeft
	}
	return o.BoundsRight, o.BoundsConstrRight
}

// An Estimator computes grasp candidates for one hand at a time.
type Estimator interface {
	// ComputeGraspPoses generates candidates for hand from the superquadrics, resting on plane.
	ComputeGraspPoses(ctx context.Context, superqs []superquadric.Superquadric, plane spatialmath.Plane,
		hand string) (*GraspResult, error)
	// RefinePoseCost rescores the candidates using their hat poses and may change BestIndex.
	RefinePoseCost(ctx context.Context, result *GraspResult) error
}
