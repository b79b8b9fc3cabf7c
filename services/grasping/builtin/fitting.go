package builtin

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/services/superquadric"
)

// fit has the cloud of req approximated by one superquadric, or by several when neither the
// single mode nor a specific object class applies.
func (p *Planner) fit(ctx context.Context, req *GraspRequestContext) error {
	if req.Cloud == nil || req.Cloud.Size() == 0 {
		return superquadric.ErrEmptyPointCloud
	}
	vis := p.deps.Visualizer
	p.visualized(req, "reset", vis.Reset(ctx))
	p.visualized(req, "points", vis.AddPoints(ctx, req.Cloud, false))

	start := p.deps.Clock.Now()
	var (
		superqs []superquadric.Superquadric
		err     error
	)
	if p.singleSuperq || req.ObjectClass != superquadric.DefaultObjectClass {
		superqs, err = p.deps.Superquadric.ComputeSuperq(ctx, req.Cloud, req.ObjectClass)
		if err != nil {
			return errors.Wrap(err, "fitting superquadric")
		}
		p.visualized(req, "downsampled points", vis.AddPoints(ctx, req.Cloud, true))
	} else {
		superqs, err = p.deps.Superquadric.ComputeMultipleSuperq(ctx, req.Cloud)
		if err != nil {
			return errors.Wrap(err, "fitting superquadrics")
		}
		p.visualized(req, "points", vis.AddPoints(ctx, req.Cloud, false))
	}
	p.fittingLogger.Infow("superquadrics fitted", req.keys(
		"class", req.ObjectClass,
		"count", len(superqs),
		"elapsed", p.deps.Clock.Since(start),
	)...)
	for i, sq := range superqs {
		p.fittingLogger.Debugw("superquadric", req.keys("index", i, "params", sq.Params)...)
	}
	req.Superqs = superqs
	p.visualized(req, "superquadrics", vis.AddSuperquadrics(ctx, superqs))
	return nil
}

// visualized logs a failed visualizer call. Rendering never fails a request.
func (p *Planner) visualized(req *GraspRequestContext, what string, err error) {
	if err != nil {
		p.logger.Warnw("visualizer failed", req.keys("what", what, "error", err)...)
	}
}
