// Package superquadric defines the shape models fitted to object point clouds and the interface
// to the engine that fits them.
package superquadric

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/graspplanner/pointcloud"
)

// ParamCount is the number of parameters describing one superquadric:
// dimensions (3), exponents (2), center (3) and orientation (3).
const ParamCount = 11

// DefaultObjectClass is the class for objects with no known shape prior.
const DefaultObjectClass = "default"

// ErrEmptyPointCloud is returned when fitting is requested on a cloud with no points.
var ErrEmptyPointCloud = errors.New("cannot fit a shape to an empty point cloud")

// Superquadric is one fitted shape primitive. Its parameters are opaque to the planner.
type Superquadric struct {
	Params []float64
}

// New returns a superquadric from its parameter vector.
func New(params []float64) (Superquadric, error) {
	if len(params) != ParamCount {
		return Superquadric{}, errors.Errorf("superquadric needs %d parameters, got %d", ParamCount, len(params))
	}
	return Superquadric{Params: append([]float64(nil), params...)}, nil
}

// Dimensions returns the semi-axes lengths.
func (s Superquadric) Dimensions() r3.Vector {
	return r3.Vector{X: s.Params[0], Y: s.Params[1], Z: s.Params[2]}
}

// Center returns the centroid in the robot base frame.
func (s Superquadric) Center() r3.Vector {
	return r3.Vector{X: s.Params[5], Y: s.Params[6], Z: s.Params[7]}
}

// Options tune the fitting engine.
type Options struct {
	Tol               float64 `json:"tol_superq"`
	PrintLevel        int     `json:"print_level_superq"`
	OptimizerPoints   int     `json:"optimizer_points"`
	RandomSampling    bool    `json:"random_sampling"`
	MergeModel        bool    `json:"merge_model"`
	MinimumPoints     int     `json:"minimum_points"`
	FractionPC        int     `json:"fraction_pc"`
	TolThresholdAxis  float64 `json:"tol_threshold_axissuperq"`
	ThresholdSection1 float64 `json:"threshold_section1"`
	ThresholdSection2 float64 `json:"threshold_section2"`
	MaxSuperquadrics  int     `json:"max_superq"`
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Tol:               1e-5,
		OptimizerPoints:   50,
		RandomSampling:    true,
		MergeModel:        true,
		MinimumPoints:     150,
		FractionPC:        8,
		TolThresholdAxis:  0.7,
		ThresholdSection1: 0.6,
		ThresholdSection2: 0.03,
		MaxSuperquadrics:  4,
	}
}

// An Estimator fits superquadrics to point clouds.
type Estimator interface {
	// ComputeSuperq fits a single superquadric, using objectClass as a shape prior.
	ComputeSuperq(ctx context.Context, cloud *pointcloud.PointCloud, objectClass string) ([]Superquadric, error)
	// ComputeMultipleSuperq splits the object into several superquadrics.
	ComputeMultipleSuperq(ctx context.Context, cloud *pointcloud.PointCloud) ([]Superquadric, error)
}
