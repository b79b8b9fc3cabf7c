// Package config defines the planner's configuration: robot platform, collaborator addresses
// and the tuning of every pipeline stage.
package config

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/graspplanner/services/graspestimator"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/spatialmath"
)

// Platforms the planner knows about.
const (
	RobotICub    = "icub"
	RobotICubSim = "icubSim"
	RobotR1      = "r1"
)

// Hand modes accepted by control_arms and by planning requests.
const (
	HandRight = graspestimator.HandRight
	HandLeft  = graspestimator.HandLeft
	HandBoth  = "both"
)

const (
	graspTransformLength = spatialmath.PoseLength
	approachLength       = 4
	handLength           = 11
	boundsRows           = 6
	boundsConstrRows     = 8
)

// Config is the full planner configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	Name        string `json:"name"`
	Robot       string `json:"robot" env:"GRASP_ROBOT"`
	Sim         bool   `json:"sim"`
	ControlArms string `json:"control_arms"`

	Window      Window      `json:"window"`
	PixelWindow PixelWindow `json:"pixel_window"`

	RadiusDBSCAN float64 `json:"radius_dbscan"`
	PointsDBSCAN int     `json:"points_dbscan"`

	ObjectClass  string               `json:"object_class"`
	SingleSuperq bool                 `json:"single_superq"`
	Superquadric superquadric.Options `json:"superquadric"`

	Grasp GraspConfig `json:"grasp"`

	PlaneTable          []float64 `json:"plane_table"`
	GraspTransformRight []float64 `json:"grasp_trsfm_right"`
	GraspTransformLeft  []float64 `json:"grasp_trsfm_left"`
	ApproachRight       []float64 `json:"approach_right"`
	ApproachLeft        []float64 `json:"approach_left"`

	Services Services `json:"services"`
}

// Window is the visualization window geometry. SnapshotDir, when set, saves every shown cloud.
type Window struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SnapshotDir string `json:"snapshot_dir" env:"GRASP_SNAPSHOT_DIR"`
}

// PixelWindow is the image region sent to the reconstruction service: u in [UI, UF), v in [VI, VF).
type PixelWindow struct {
	UI int `json:"u_i"`
	VI int `json:"v_i"`
	UF int `json:"u_f"`
	VF int `json:"v_f"`
}

// GraspConfig tunes the grasp engine. Bounds are flattened (min, max) pairs.
type GraspConfig struct {
	Tol               float64   `json:"tol_grasp"`
	PrintLevel        int       `json:"print_level_grasp"`
	ConstrTol         float64   `json:"constr_tol"`
	MaxSuperq         int       `json:"max_superq"`
	Displacement      []float64 `json:"displacement"`
	Hand              []float64 `json:"hand"`
	BoundsRight       []float64 `json:"bounds_right"`
	BoundsLeft        []float64 `json:"bounds_left"`
	BoundsConstrRight []float64 `json:"bounds_constr_right"`
	BoundsConstrLeft  []float64 `json:"bounds_constr_left"`
}

// ServiceConfig locates one collaborator: a generic service resource served at Address.
// An empty Address leaves the collaborator disconnected.
type ServiceConfig struct {
	Address  string `json:"address" env:"ADDRESS"`
	Resource string `json:"resource" env:"RESOURCE"`
}

// Services lists every collaborator of the planner.
type Services struct {
	PointCloud     ServiceConfig `json:"point_cloud" envPrefix:"GRASP_POINT_CLOUD_"`
	ActionRender   ServiceConfig `json:"action_render" envPrefix:"GRASP_ACTION_RENDER_"`
	ReachCalib     ServiceConfig `json:"reach_calib" envPrefix:"GRASP_REACH_CALIB_"`
	TableCalib     ServiceConfig `json:"table_calib" envPrefix:"GRASP_TABLE_CALIB_"`
	SFM            ServiceConfig `json:"sfm" envPrefix:"GRASP_SFM_"`
	Camera         ServiceConfig `json:"camera" envPrefix:"GRASP_CAMERA_"`
	Superquadric   ServiceConfig `json:"superquadric" envPrefix:"GRASP_SUPERQUADRIC_"`
	Grasp          ServiceConfig `json:"grasp" envPrefix:"GRASP_GRASP_"`
	CartesianRight ServiceConfig `json:"cartesian_right" envPrefix:"GRASP_CARTESIAN_RIGHT_"`
	CartesianLeft  ServiceConfig `json:"cartesian_left" envPrefix:"GRASP_CARTESIAN_LEFT_"`
}

// Default returns a configuration with every default that does not depend on the platform.
func Default() *Config {
	return &Config{
		Name:        "superquadric-lib-demo",
		ControlArms: HandBoth,
		Window:      Window{Width: 600, Height: 600},
		PixelWindow: PixelWindow{UI: 50, VI: 20, UF: 280, VF: 190},

		RadiusDBSCAN: 0.01,
		PointsDBSCAN: 10,

		ObjectClass:  superquadric.DefaultObjectClass,
		SingleSuperq: true,
		Superquadric: superquadric.DefaultOptions(),

		Grasp: GraspConfig{
			Tol:          1e-5,
			ConstrTol:    1e-4,
			MaxSuperq:    4,
			Displacement: []float64{0, 0, 0},
			Hand:         []float64{0.03, 0.06, 0.03, 1, 1, 0, 0, 0, 0, 0, 0},
			BoundsRight:  defaultBounds(),
			BoundsLeft:   defaultBounds(),
			BoundsConstrRight: []float64{
				-10000, 0, -10000, 0, -10000, 0, 0.001, 10, 0, 1, 0.00001, 10, 0.00001, 10, 0.00001, 10,
			},
			BoundsConstrLeft: []float64{
				-10000, 0, -10000, 0, -10000, 0, 0.01, 10, 0, 1, 0.00001, 10, 0.00001, 10, 0.00001, 10,
			},
		},

		PlaneTable: []float64{0, 0, 1, 0.20},
	}
}

func defaultBounds() []float64 {
	return []float64{-0.5, 0, -0.2, 0.2, -0.3, 0.3, -math.Pi, math.Pi, -math.Pi, math.Pi, -math.Pi, math.Pi}
}

// IsICub reports whether the platform has local cartesian solvers.
func (c *Config) IsICub() bool {
	return c.Robot == RobotICub || c.Robot == RobotICubSim
}

// applyPlatformDefaults fills the values whose defaults depend on the robot.
func (c *Config) applyPlatformDefaults() {
	if c.Robot == "" {
		c.Robot = RobotICub
		if c.Sim {
			c.Robot = RobotICubSim
		}
	}
	if c.Superquadric.MaxSuperquadrics == 0 {
		c.Superquadric.MaxSuperquadrics = c.Grasp.MaxSuperq
	}
	icub := c.IsICub()
	if c.GraspTransformRight == nil {
		c.GraspTransformRight = make([]float64, graspTransformLength)
		if icub {
			c.GraspTransformRight = []float64{-0.01, 0, 0, 0, 1, 0, -38.0 * math.Pi / 180.0}
		}
	}
	if c.GraspTransformLeft == nil {
		c.GraspTransformLeft = make([]float64, graspTransformLength)
		if icub {
			c.GraspTransformLeft = []float64{-0.01, 0, 0, 0, 1, 0, 38.0 * math.Pi / 180.0}
		}
	}
	if c.ApproachRight == nil {
		c.ApproachRight = make([]float64, approachLength)
		if icub {
			c.ApproachRight[0] = -0.05
		}
	}
	if c.ApproachLeft == nil {
		c.ApproachLeft = make([]float64, approachLength)
		if icub {
			c.ApproachLeft[0] = -0.05
		}
	}
	setDefaultResource(&c.Services.PointCloud, "point_cloud")
	setDefaultResource(&c.Services.ActionRender, "action_render")
	setDefaultResource(&c.Services.ReachCalib, "reach_calib")
	setDefaultResource(&c.Services.TableCalib, "table_calib")
	setDefaultResource(&c.Services.SFM, "sfm")
	setDefaultResource(&c.Services.Camera, "camera")
	setDefaultResource(&c.Services.Superquadric, "superquadric")
	setDefaultResource(&c.Services.Grasp, "grasp")
	setDefaultResource(&c.Services.CartesianRight, "cartesian_right")
	setDefaultResource(&c.Services.CartesianLeft, "cartesian_left")
}

func setDefaultResource(s *ServiceConfig, name string) {
	if s.Resource == "" {
		s.Resource = name
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if c.Robot == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "robot")
	}
	switch c.ControlArms {
	case HandRight, HandLeft, HandBoth:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("control_arms must be right, left or both, got %q", c.ControlArms))
	}
	pw := c.PixelWindow
	if pw.UI < 0 || pw.VI < 0 || pw.UF < pw.UI || pw.VF < pw.VI {
		return utils.NewConfigValidationError(path, errors.Errorf("invalid pixel_window %+v", pw))
	}
	if c.RadiusDBSCAN <= 0 {
		return utils.NewConfigValidationError(path, errors.New("radius_dbscan must be positive"))
	}
	if c.PointsDBSCAN < 1 {
		return utils.NewConfigValidationError(path, errors.New("points_dbscan must be at least 1"))
	}
	if c.ObjectClass == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "object_class")
	}
	for _, l := range []struct {
		name   string
		values []float64
		length int
	}{
		{"plane_table", c.PlaneTable, 4},
		{"grasp_trsfm_right", c.GraspTransformRight, graspTransformLength},
		{"grasp_trsfm_left", c.GraspTransformLeft, graspTransformLength},
		{"approach_right", c.ApproachRight, approachLength},
		{"approach_left", c.ApproachLeft, approachLength},
		{"grasp.displacement", c.Grasp.Displacement, 3},
		{"grasp.hand", c.Grasp.Hand, handLength},
		{"grasp.bounds_right", c.Grasp.BoundsRight, 2 * boundsRows},
		{"grasp.bounds_left", c.Grasp.BoundsLeft, 2 * boundsRows},
		{"grasp.bounds_constr_right", c.Grasp.BoundsConstrRight, 2 * boundsConstrRows},
		{"grasp.bounds_constr_left", c.Grasp.BoundsConstrLeft, 2 * boundsConstrRows},
	} {
		if len(l.values) != l.length {
			return utils.NewConfigValidationError(path,
				errors.Errorf("%s must have %d values, got %d", l.name, l.length, len(l.values)))
		}
	}
	return nil
}

// Plane returns the configured support plane.
func (c *Config) Plane() spatialmath.Plane {
	var p spatialmath.Plane
	copy(p[:], c.PlaneTable)
	return p
}

// GraspOptions converts the grasp section into engine options.
func (c *Config) GraspOptions() graspestimator.Options {
	g := c.Grasp
	return graspestimator.Options{
		Tol:               g.Tol,
		ConstrTol:         g.ConstrTol,
		PrintLevel:        g.PrintLevel,
		MaxSuperquadrics:  g.MaxSuperq,
		Displacement:      vector3(g.Displacement),
		Hand:              append([]float64(nil), g.Hand...),
		BoundsRight:       pairs(g.BoundsRight),
		BoundsLeft:        pairs(g.BoundsLeft),
		BoundsConstrRight: pairs(g.BoundsConstrRight),
		BoundsConstrLeft:  pairs(g.BoundsConstrLeft),
	}
}

// String summarizes the platform and collaborators for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("%s robot=%s arms=%s single_superq=%t object_class=%s",
		c.Name, c.Robot, c.ControlArms, c.SingleSuperq, c.ObjectClass)
}

// pairs lays flattened (min, max) pairs out as an n x 2 matrix.
func pairs(flat []float64) *mat.Dense {
	if len(flat) == 0 {
		return nil
	}
	return mat.NewDense(len(flat)/2, 2, append([]float64(nil), flat...))
}

func vector3(v []float64) r3.Vector {
	if len(v) != 3 {
		return r3.Vector{}
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// HandContext returns the grasp specific transform and approach vector of a hand.
func (c *Config) HandContext(hand string) (spatialmath.Transform, []float64, error) {
	trsfm, approach := c.GraspTransformRight, c.ApproachRight
	if hand == HandLeft {
		trsfm, approach = c.GraspTransformLeft, c.ApproachLeft
	}
	t, err := spatialmath.TransformFromFloats(trsfm)
	if err != nil {
		return spatialmath.Transform{}, nil, err
	}
	return t, append([]float64(nil), approach...), nil
}
