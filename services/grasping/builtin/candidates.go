package builtin

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/services/graspestimator"
)

// generateCandidates computes grasp candidates for every requested hand, right first.
func (p *Planner) generateCandidates(ctx context.Context, req *GraspRequestContext) error {
	if len(req.Superqs) == 0 {
		return graspestimator.ErrEmptyShapeModel
	}
	req.Results = nil
	for _, hand := range req.Hands() {
		start := p.deps.Clock.Now()
		res, err := p.deps.Grasp.ComputeGraspPoses(ctx, req.Superqs, req.Plane, hand)
		if err != nil {
			return errors.Wrapf(err, "computing %s hand grasp poses", hand)
		}
		res.Hand = hand
		p.graspLogger.Infow("grasp poses computed", req.keys(
			"hand", hand,
			"candidates", len(res.Poses),
			"best", res.BestIndex,
			"elapsed", p.deps.Clock.Since(start),
		)...)
		req.Results = append(req.Results, res)
	}
	p.visualized(req, "poses", p.deps.Visualizer.AddPoses(ctx, req.Results...))
	p.visualized(req, "plane", p.deps.Visualizer.AddPlane(ctx, req.Plane.Height()))
	return nil
}
