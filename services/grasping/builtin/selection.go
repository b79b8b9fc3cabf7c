package builtin

import (
	"context"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/graspplanner/services/grasping"
)

// selectHand picks the hand and candidate to grasp with. With both hands planned, the hand whose
// best candidate costs less wins and a tie goes to the right hand.
func (p *Planner) selectHand(ctx context.Context, req *GraspRequestContext) error {
	if len(req.Results) == 0 {
		return errors.New("no grasp results to select from")
	}
	for _, res := range req.Results {
		if median, err := stats.Median(res.Costs()); err == nil {
			p.graspLogger.Debugw("candidate costs", req.keys("hand", res.Hand, "median", median)...)
		}
	}

	chosen := req.Results[0]
	if req.Mode == grasping.HandBoth {
		right, left := req.Result(grasping.HandRight), req.Result(grasping.HandLeft)
		rightBest, err := right.Best()
		if err != nil {
			return errors.Wrap(err, "right hand")
		}
		leftBest, err := left.Best()
		if err != nil {
			return errors.Wrap(err, "left hand")
		}
		chosen = right
		if leftBest.Cost < rightBest.Cost {
			chosen = left
		}
		p.graspLogger.Infow("hands compared", req.keys("right_cost", rightBest.Cost, "left_cost", leftBest.Cost)...)
	}

	best, err := chosen.Best()
	if err != nil {
		return errors.Wrapf(err, "%s hand", chosen.Hand)
	}
	req.Selection = &grasping.Selection{
		RunID: req.RunID.String(),
		Hand:  chosen.Hand,
		Index: chosen.BestIndex,
		Cost:  best.Cost,
		Pose:  best.Pose(),
	}
	p.graspLogger.Infow("best pose selected", req.keys(
		"hand", chosen.Hand,
		"index", chosen.BestIndex,
		"cost", best.Cost,
		"pose", best.Pose().String(),
	)...)
	p.visualized(req, "best pose", p.deps.Visualizer.HighlightBestPose(ctx, chosen.Hand, req.Mode, chosen.BestIndex))
	return nil
}

