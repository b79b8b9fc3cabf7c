package cartesian

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// A ContextGuard holds a stored solver configuration that must be put back. Callers defer
// Release right after a successful AcquireContext so every exit path restores the controller.
type ContextGuard struct {
	ctrl     Controller
	id       int
	released bool
}

// AcquireContext stores the controller's current configuration.
func AcquireContext(ctx context.Context, ctrl Controller) (*ContextGuard, error) {
	id, err := ctrl.StoreContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "storing controller context")
	}
	return &ContextGuard{ctrl: ctrl, id: id}, nil
}

// ID is the id of the stored configuration.
func (g *ContextGuard) ID() int {
	return g.id
}

// Release restores and deletes the stored configuration. Calling it more than once is a no-op.
// The delete is attempted even when the restore fails.
func (g *ContextGuard) Release(ctx context.Context) error {
	if g == nil || g.released {
		return nil
	}
	g.released = true
	return multierr.Combine(
		errors.Wrapf(g.ctrl.RestoreContext(ctx, g.id), "restoring controller context %d", g.id),
		errors.Wrapf(g.ctrl.DeleteContext(ctx, g.id), "deleting controller context %d", g.id),
	)
}
