package builtin

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/services/grasping"
	"go.viam.com/graspplanner/services/superquadric"
)

// ComputeSuperqAndPose looks at object, acquires its point cloud and plans a grasp with hand.
func (p *Planner) ComputeSuperqAndPose(ctx context.Context, object, hand string) (bool, error) {
	if err := grasping.ValidateHand(hand); err != nil {
		return false, err
	}
	release, err := p.admit(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	p.last = nil

	req := p.newRequest(object, hand)
	req.Fixate = true
	p.logger.Infow("computing grasp", req.keys("hand", hand, "class", req.ObjectClass)...)
	if err := p.acquire(ctx, req); err != nil {
		p.acquisitionLogger.Errorw("acquisition failed", req.keys("error", err)...)
		return false, err
	}
	if err := p.plan(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

// FromOffFile plans a grasp for the point cloud stored in an OFF file.
func (p *Planner) FromOffFile(ctx context.Context, path, hand string) (bool, error) {
	if err := grasping.ValidateHand(hand); err != nil {
		return false, err
	}
	release, err := p.admit(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	p.last = nil

	req := p.newRequest(path, hand)
	cloud, err := pointcloud.NewFromOFFFile(path)
	if err != nil {
		return false, err
	}
	if cloud.Size() == 0 {
		return false, errors.Wrapf(superquadric.ErrEmptyPointCloud, "file %q", path)
	}
	p.acquisitionLogger.Infow("read point cloud file", req.keys("points", cloud.Size())...)
	if req.Cloud, err = p.removeOutliers(req, cloud); err != nil {
		return false, err
	}
	if err := p.plan(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

// plan runs every stage after acquisition. The request becomes the one Grasp executes only when
// all of them succeed; its support plane is kept for the next request.
func (p *Planner) plan(ctx context.Context, req *GraspRequestContext) error {
	if err := p.fit(ctx, req); err != nil {
		return err
	}
	p.resolveTable(ctx, req)
	if err := p.generateCandidates(ctx, req); err != nil {
		return err
	}
	if err := p.refine(ctx, req); err != nil {
		return err
	}
	if err := p.selectHand(ctx, req); err != nil {
		return err
	}
	p.plane = req.Plane
	p.last = req
	return nil
}

// Grasp executes the last selected grasp.
func (p *Planner) Grasp(ctx context.Context) (bool, error) {
	release, err := p.admit(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	if p.last == nil {
		return false, grasping.ErrNoSelection
	}
	return p.dispatch(ctx, p.last)
}

// Drop asks the action service to release the object.
func (p *Planner) Drop(ctx context.Context) (bool, error) {
	return p.action(ctx, dropCmd)
}

// Home asks the action service to bring the arms home.
func (p *Planner) Home(ctx context.Context) (bool, error) {
	return p.action(ctx, homeCmd)
}

// OpenHand asks the action service to open the hand.
func (p *Planner) OpenHand(ctx context.Context) (bool, error) {
	return p.action(ctx, openHandCmd)
}

func (p *Planner) action(ctx context.Context, token string) (bool, error) {
	release, err := p.admit(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	return p.simpleAction(ctx, token)
}

// TakeTool moves a tool grasped with the right arm aside.
func (p *Planner) TakeTool(ctx context.Context) (bool, error) {
	release, err := p.admit(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	var bestHand string
	if p.last != nil && p.last.Selection != nil {
		bestHand = p.last.Selection.Hand
	}
	if err := p.moveToolAside(ctx, bestHand); err != nil {
		return false, err
	}
	return true, nil
}

// SetSingleSuperq toggles single superquadric fitting for the following requests.
func (p *Planner) SetSingleSuperq(ctx context.Context, on bool) (bool, error) {
	release, err := p.admit(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	p.singleSuperq = on
	p.logger.Infow("single superquadric fitting", "enabled", on)
	return true, nil
}

// LastSelection returns the selection of the last successful computation.
func (p *Planner) LastSelection(ctx context.Context) (grasping.Selection, error) {
	release, err := p.admit(ctx)
	if err != nil {
		return grasping.Selection{}, err
	}
	defer release()
	if p.last == nil || p.last.Selection == nil {
		return grasping.Selection{}, grasping.ErrNoSelection
	}
	return *p.last.Selection, nil
}
