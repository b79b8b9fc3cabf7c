// Package fake implements an in-memory cartesian controller.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/components/cartesian"
	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/spatialmath"
)

// Settings is the part of the solver state that contexts save and restore.
type Settings struct {
	DOF          []float64
	PosePriority string
	InTargetTol  float64
}

func (s Settings) clone() Settings {
	s.DOF = append([]float64(nil), s.DOF...)
	return s
}

// DefaultSettings is the configuration a fresh controller starts with.
func DefaultSettings() Settings {
	return Settings{
		DOF:          make([]float64, cartesian.GraspJointCount),
		PosePriority: "xyz",
		InTargetTol:  0.01,
	}
}

// Controller is a fake cartesian controller that reaches every pose exactly, unless Reach is set.
type Controller struct {
	mu       sync.Mutex
	name     string
	settings Settings
	contexts map[int]Settings
	nextID   int
	pose     spatialmath.Pose
	moves    []spatialmath.Pose
	logger   logging.Logger

	// Reach, if set, maps a desired pose to the achievable one.
	Reach func(desired spatialmath.Pose) (spatialmath.Pose, error)
}

// NewController returns a fake controller at the given initial pose.
func NewController(name string, initial spatialmath.Pose, logger logging.Logger) *Controller {
	return &Controller{
		name:     name,
		settings: DefaultSettings(),
		contexts: map[int]Settings{},
		pose:     initial,
		logger:   logger,
	}
}

// Settings returns the current solver configuration.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.clone()
}

// StoredContexts returns how many stored contexts have not been deleted.
func (c *Controller) StoredContexts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.contexts)
}

// Moves returns every pose commanded through GoToPoseSync, in order.
func (c *Controller) Moves() []spatialmath.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]spatialmath.Pose(nil), c.moves...)
}

func (c *Controller) StoreContext(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.contexts[id] = c.settings.clone()
	return id, nil
}

func (c *Controller) RestoreContext(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.contexts[id]
	if !ok {
		return errors.Errorf("%s: unknown context %d", c.name, id)
	}
	c.settings = s.clone()
	return nil
}

func (c *Controller) DeleteContext(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.contexts[id]; !ok {
		return errors.Errorf("%s: unknown context %d", c.name, id)
	}
	delete(c.contexts, id)
	return nil
}

func (c *Controller) GetDOF(ctx context.Context) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.settings.DOF...), nil
}

func (c *Controller) SetDOF(ctx context.Context, dof []float64) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(dof) != len(c.settings.DOF) {
		return nil, errors.Errorf("%s: expected %d dof values, got %d", c.name, len(c.settings.DOF), len(dof))
	}
	c.settings.DOF = append([]float64(nil), dof...)
	return append([]float64(nil), dof...), nil
}

func (c *Controller) SetPosePriority(ctx context.Context, priority string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if priority != "position" && priority != "orientation" && priority != "xyz" {
		return errors.Errorf("%s: unknown pose priority %q", c.name, priority)
	}
	c.settings.PosePriority = priority
	return nil
}

func (c *Controller) SetInTargetTol(ctx context.Context, tol float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.InTargetTol = tol
	return nil
}

func (c *Controller) AskForPose(ctx context.Context, desired spatialmath.Pose) (spatialmath.Pose, error) {
	if c.Reach != nil {
		return c.Reach(desired)
	}
	return desired, nil
}

func (c *Controller) GoToPoseSync(ctx context.Context, pose spatialmath.Pose) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Debugw("moving", "controller", c.name, "pose", pose.String())
	c.moves = append(c.moves, pose)
	c.pose = pose
	return nil
}

func (c *Controller) WaitMotionDone(ctx context.Context) error {
	return ctx.Err()
}

func (c *Controller) GetPose(ctx context.Context) (spatialmath.Pose, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pose, nil
}

func (c *Controller) Close(ctx context.Context) error {
	return nil
}
