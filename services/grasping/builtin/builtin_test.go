package builtin

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"

	"go.viam.com/graspplanner/components/cartesian"
	"go.viam.com/graspplanner/components/cartesian/fake"
	"go.viam.com/graspplanner/config"
	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/pointcloud"
	"go.viam.com/graspplanner/rpc"
	"go.viam.com/graspplanner/services/graspestimator"
	"go.viam.com/graspplanner/services/grasping"
	"go.viam.com/graspplanner/services/superquadric"
	"go.viam.com/graspplanner/spatialmath"
	"go.viam.com/graspplanner/testutils/inject"
)

var testSuperq = superquadric.Superquadric{Params: []float64{0.03, 0.03, 0.05, 1, 1, -0.3, 0, 0.1, 0, 0, 0}}

type harness struct {
	planner    *Planner
	pointCloud *inject.Port
	action     *inject.Port
	reachCalib *inject.Port
	tableCalib *inject.Port
	sfm        *inject.Port
	right      *fake.Controller
	left       *fake.Controller
	logs       *observer.ObservedLogs

	mu       sync.Mutex
	costs    map[string][]float64
	fitted   []*pointcloud.PointCloud
	classes  []string
	multiple int
	planes   []spatialmath.Plane
	refined  []string
}

func disconnect(p *inject.Port) {
	p.ConnectedFunc = func(context.Context) bool { return false }
}

func newHarness(t *testing.T, cfgJSON string, camera ImageSource) *harness {
	t.Helper()
	logger, logs := logging.NewObservedTestLogger(t)
	cfg, err := config.FromReader("", strings.NewReader(cfgJSON), logger)
	test.That(t, err, test.ShouldBeNil)

	h := &harness{
		pointCloud: inject.NewPort("pointCloud"),
		action:     inject.NewPort("actionRenderer"),
		reachCalib: inject.NewPort("reachingCalibration"),
		tableCalib: inject.NewPort("tableCalib"),
		sfm:        inject.NewPort("sfm"),
		logs:       logs,
		costs:      map[string][]float64{grasping.HandRight: {0.4, 0.2}, grasping.HandLeft: {0.5, 0.3}},
	}
	h.pointCloud.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
		return rpc.NewBottle(rpc.CloudBottle(lineCloud(40))), nil
	}
	disconnect(h.reachCalib)
	disconnect(h.tableCalib)

	superq := &inject.SuperquadricEstimator{
		ComputeSuperqFunc: func(ctx context.Context, cloud *pointcloud.PointCloud, class string) ([]superquadric.Superquadric, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.fitted = append(h.fitted, cloud)
			h.classes = append(h.classes, class)
			return []superquadric.Superquadric{testSuperq}, nil
		},
		ComputeMultipleSuperqFunc: func(ctx context.Context, cloud *pointcloud.PointCloud) ([]superquadric.Superquadric, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.fitted = append(h.fitted, cloud)
			h.multiple++
			return []superquadric.Superquadric{testSuperq, testSuperq}, nil
		},
	}
	grasp := &inject.GraspEstimator{
		ComputeGraspPosesFunc: func(
			ctx context.Context, superqs []superquadric.Superquadric, plane spatialmath.Plane, hand string,
		) (*graspestimator.GraspResult, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.planes = append(h.planes, plane)
			return candidates(hand, h.costs[hand]), nil
		},
		RefinePoseCostFunc: func(ctx context.Context, result *graspestimator.GraspResult) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.refined = append(h.refined, result.Hand)
			return nil
		},
	}

	start := spatialmath.NewPose(r3.Vector{X: -0.3, Y: 0.1, Z: 0}, spatialmath.R4AA{Theta: math.Pi, RZ: 1})
	h.right = fake.NewController(grasping.HandRight, start, logger)
	h.left = fake.NewController(grasping.HandLeft, start, logger)

	h.planner, err = NewPlanner(cfg, Dependencies{
		PointCloud:   h.pointCloud,
		ActionRender: h.action,
		ReachCalib:   h.reachCalib,
		TableCalib:   h.tableCalib,
		SFM:          h.sfm,
		Camera:       camera,
		Superquadric: superq,
		Grasp:        grasp,
		Controllers: map[string]cartesian.Controller{
			grasping.HandRight: h.right,
			grasping.HandLeft:  h.left,
		},
		Clock: clock.NewMock(),
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	return h
}

// lineCloud is n points half a millimeter apart along x.
func lineCloud(n int) *pointcloud.PointCloud {
	cloud := pointcloud.New()
	for i := 0; i < n; i++ {
		cloud.Add(r3.Vector{X: -0.3 + 0.0005*float64(i), Y: 0, Z: 0.1}, pointcloud.Color{R: 200, G: 10, B: 10})
	}
	return cloud
}

// candidates returns one candidate per cost, the cheapest marked best.
func candidates(hand string, costs []float64) *graspestimator.GraspResult {
	side := 1.0
	if hand == grasping.HandLeft {
		side = -1.0
	}
	res := &graspestimator.GraspResult{Hand: hand}
	for i, cost := range costs {
		res.Poses = append(res.Poses, graspestimator.GraspPose{
			Position:    r3.Vector{X: -0.3, Y: side * 0.01 * float64(i), Z: 0.1},
			Orientation: spatialmath.R4AA{Theta: math.Pi / 2, RY: 1},
			Cost:        cost,
		})
		if cost < res.Poses[res.BestIndex].Cost {
			res.BestIndex = i
		}
	}
	return res
}

// writeOFF writes dense points packed around the origin and scattered points a meter away.
func writeOFF(t *testing.T, dense, scattered int) string {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < dense; i++ {
		fmt.Fprintf(&sb, "%f %f %f 255 0 0\n", float64(i%5)*0.002, float64((i/5)%5)*0.002, float64(i/25)*0.002)
	}
	for i := 0; i < scattered; i++ {
		fmt.Fprintf(&sb, "%f 1.0 1.0\n", 1+0.1*float64(i))
	}
	path := filepath.Join(t.TempDir(), "object.off")
	test.That(t, os.WriteFile(path, []byte(sb.String()), 0o600), test.ShouldBeNil)
	return path
}

func writesOf(p *inject.Port, name string) []rpc.Bottle {
	var out []rpc.Bottle
	for _, w := range p.Writes() {
		if w.IsVocab(0, name) {
			out = append(out, w)
		}
	}
	return out
}

func TestFromOffFileKeepsDenseCluster(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	path := writeOFF(t, 150, 50)

	ok, err := h.planner.FromOffFile(context.Background(), path, grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h.fitted, test.ShouldHaveLength, 1)
	test.That(t, h.fitted[0].Size(), test.ShouldEqual, 150)
	test.That(t, h.logs.FilterMessage("outliers removed").Len(), test.ShouldEqual, 1)

	// no fixation for files
	test.That(t, writesOf(h.action, lookCmd), test.ShouldBeEmpty)
}

func TestFromOffFileErrors(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	ctx := context.Background()

	ok, err := h.planner.FromOffFile(ctx, filepath.Join(t.TempDir(), "missing.off"), grasping.HandRight)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	ok, err = h.planner.FromOffFile(ctx, writeOFF(t, 150, 0), "middle")
	test.That(t, errors.Is(err, grasping.ErrInvalidHand), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)

	// only noise
	ok, err = h.planner.FromOffFile(ctx, writeOFF(t, 0, 20), grasping.HandRight)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.fitted, test.ShouldBeEmpty)
}

func TestTablePlane(t *testing.T) {
	ctx := context.Background()

	t.Run("calibrated height", func(t *testing.T) {
		h := newHarness(t, `{"robot": "icub"}`, nil)
		h.tableCalib.ConnectedFunc = func(context.Context) bool { return true }
		h.tableCalib.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
			return rpc.NewBottle(rpc.NewBottle("table", 0.10)), nil
		}

		ok, err := h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, h.tableCalib.Writes(), test.ShouldResemble, []rpc.Bottle{rpc.NewBottle("get", "table")})
		test.That(t, h.planes, test.ShouldHaveLength, 1)
		test.That(t, h.planes[0].Offset(), test.ShouldAlmostEqual, -0.065)
		test.That(t, h.planner.last.Plane.Offset(), test.ShouldAlmostEqual, -0.065)

		// the plane outlives the request
		disconnect(h.tableCalib)
		_, err = h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, h.planes[1].Offset(), test.ShouldAlmostEqual, -0.065)
	})

	t.Run("failed calibration keeps plane", func(t *testing.T) {
		for _, reply := range []rpc.Bottle{
			rpc.NewBottle("nack"),
			rpc.NewBottle(rpc.NewBottle("table")),
			rpc.NewBottle(rpc.NewBottle("table", "high")),
		} {
			h := newHarness(t, `{"robot": "icub"}`, nil)
			h.tableCalib.ConnectedFunc = func(context.Context) bool { return true }
			h.tableCalib.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
				return reply, nil
			}
			ok, err := h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, h.planes[0], test.ShouldResemble, spatialmath.Plane{0, 0, 1, 0.20})
		}
	})

	t.Run("simulation never calibrates", func(t *testing.T) {
		h := newHarness(t, `{"robot": "icubSim"}`, nil)
		h.tableCalib.ConnectedFunc = func(context.Context) bool { return true }
		_, err := h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, h.tableCalib.Writes(), test.ShouldBeEmpty)
	})
}

func TestHandSelection(t *testing.T) {
	for _, tc := range []struct {
		name      string
		right     []float64
		left      []float64
		wantHand  string
		wantIndex int
	}{
		{"left cheaper", []float64{5.0, 7.0}, []float64{4.0, 3.0}, grasping.HandLeft, 1},
		{"right cheaper", []float64{3.0, 4.0}, []float64{5.0}, grasping.HandRight, 0},
		{"tie goes right", []float64{2.0, 2.5}, []float64{2.0}, grasping.HandRight, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, `{"robot": "r1"}`, nil)
			h.costs = map[string][]float64{grasping.HandRight: tc.right, grasping.HandLeft: tc.left}

			ok, err := h.planner.FromOffFile(context.Background(), writeOFF(t, 150, 0), grasping.HandBoth)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, h.refined, test.ShouldResemble, []string{grasping.HandRight, grasping.HandLeft})

			sel, err := h.planner.LastSelection(context.Background())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, sel.Hand, test.ShouldEqual, tc.wantHand)
			test.That(t, sel.Index, test.ShouldEqual, tc.wantIndex)
			best, err := h.planner.last.Result(tc.wantHand).Best()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, sel.Cost, test.ShouldEqual, best.Cost)
			test.That(t, sel.Pose, test.ShouldResemble, best.Pose())
		})
	}
}

func TestSingleHandSelection(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	ok, err := h.planner.FromOffFile(context.Background(), writeOFF(t, 150, 0), grasping.HandLeft)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h.planner.last.Results, test.ShouldHaveLength, 1)

	sel, err := h.planner.LastSelection(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sel.Hand, test.ShouldEqual, grasping.HandLeft)
	test.That(t, sel.Index, test.ShouldEqual, 1)
	test.That(t, sel.RunID, test.ShouldEqual, h.planner.last.RunID.String())
}

func TestAcquisitionWithoutSensor(t *testing.T) {
	h := newHarness(t, `{"robot": "icub"}`, nil)
	disconnect(h.pointCloud)

	ok, err := h.planner.ComputeSuperqAndPose(context.Background(), "mug", grasping.HandRight)
	test.That(t, errors.Is(err, rpc.ErrNotConnected), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.fitted, test.ShouldBeEmpty)
	test.That(t, h.multiple, test.ShouldEqual, 0)
	test.That(t, h.planes, test.ShouldBeEmpty)
	test.That(t, h.pointCloud.Writes(), test.ShouldBeEmpty)

	_, err = h.planner.LastSelection(context.Background())
	test.That(t, errors.Is(err, grasping.ErrNoSelection), test.ShouldBeTrue)
}

func TestAcquisitionFixation(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, `{"robot": "icub"}`, nil)
	ok, err := h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, writesOf(h.action, lookCmd), test.ShouldResemble, []rpc.Bottle{rpc.NewBottle("look", "mug", "wait")})
	test.That(t, h.pointCloud.Writes(), test.ShouldResemble, []rpc.Bottle{rpc.NewBottle("get_point_cloud", "mug")})
	test.That(t, h.fitted[0].Size(), test.ShouldEqual, 40)

	h = newHarness(t, `{"robot": "icub"}`, nil)
	h.action.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
		return rpc.NewBottle("nack"), nil
	}
	ok, err = h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.pointCloud.Writes(), test.ShouldBeEmpty)

	h = newHarness(t, `{"robot": "icub"}`, nil)
	h.pointCloud.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
		return rpc.NewBottle(rpc.NewBottle()), nil
	}
	ok, err = h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
	test.That(t, errors.Is(err, superquadric.ErrEmptyPointCloud), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.fitted, test.ShouldBeEmpty)
}

func TestObjectClassAndSingleSuperq(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, `{"robot": "icub", "single_superq": false}`, nil)

	_, err := h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.multiple, test.ShouldEqual, 1)
	test.That(t, h.classes, test.ShouldBeEmpty)

	_, err = h.planner.ComputeSuperqAndPose(ctx, "box", grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.classes, test.ShouldResemble, []string{"box"})

	// the class does not stick to the next object
	ok, err := h.planner.SetSingleSuperq(ctx, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	_, err = h.planner.ComputeSuperqAndPose(ctx, "mug", grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.classes, test.ShouldResemble, []string{"box", superquadric.DefaultObjectClass})
	test.That(t, h.multiple, test.ShouldEqual, 1)
}

func TestLocalReachabilityRestoresContext(t *testing.T) {
	h := newHarness(t, `{"robot": "icub"}`, nil)
	var during []fake.Settings
	h.right.Reach = func(desired spatialmath.Pose) (spatialmath.Pose, error) {
		during = append(during, h.right.Settings())
		if desired.Point.Y > 0.005 {
			return spatialmath.Pose{}, errors.New("out of workspace")
		}
		return desired.Translate(r3.Vector{Z: 0.001}), nil
	}

	ok, err := h.planner.ComputeSuperqAndPose(context.Background(), "mug", grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)

	test.That(t, during, test.ShouldHaveLength, 2)
	for _, s := range during {
		test.That(t, s.DOF, test.ShouldResemble, cartesian.GraspDOF())
		test.That(t, s.PosePriority, test.ShouldEqual, cartesian.GraspPosePriority)
		test.That(t, s.InTargetTol, test.ShouldEqual, cartesian.GraspInTargetTol)
	}
	test.That(t, h.right.Settings(), test.ShouldResemble, fake.DefaultSettings())
	test.That(t, h.right.StoredContexts(), test.ShouldEqual, 0)
	test.That(t, h.right.Moves(), test.ShouldBeEmpty)

	poses := h.planner.last.Result(grasping.HandRight).Poses
	test.That(t, poses[0].HatErr, test.ShouldBeNil)
	test.That(t, poses[0].Hat.Point.Z, test.ShouldAlmostEqual, 0.101)
	test.That(t, poses[1].Hat, test.ShouldBeNil)
	test.That(t, poses[1].HatErr, test.ShouldNotBeNil)
}

func TestLocalReachabilityMissingController(t *testing.T) {
	h := newHarness(t, `{"robot": "icub"}`, nil)
	delete(h.planner.deps.Controllers, grasping.HandLeft)

	ok, err := h.planner.ComputeSuperqAndPose(context.Background(), "mug", grasping.HandLeft)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	for _, pose := range h.planner.last.Result(grasping.HandLeft).Poses {
		test.That(t, pose.Hat, test.ShouldBeNil)
		test.That(t, errors.Is(pose.HatErr, rpc.ErrNotConnected), test.ShouldBeTrue)
	}
}

func TestRemoteReachability(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	h.costs = map[string][]float64{grasping.HandRight: {0.4, 0.2, 0.3, 0.5}}
	reached := spatialmath.NewPose(r3.Vector{X: -0.31, Y: 0, Z: 0.12}, spatialmath.R4AA{Theta: 1, RZ: 1})
	h.action.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
		if !cmd.IsVocab(0, askCmd) {
			return rpc.NewBottle(rpc.AckToken), nil
		}
		desired, _ := cmd.List(1)
		y, _ := desired.Float(1)
		switch {
		case y < 0.005:
			return rpc.NewBottle(rpc.AckToken, rpc.NewBottle("pose", rpc.FloatsBottle(reached.Floats())), rpc.NewBottle("cost", 0.1)), nil
		case y < 0.015:
			return rpc.NewBottle(rpc.AckToken), nil
		case y < 0.025:
			return rpc.NewBottle("nack", "unreachable", "x"), nil
		default:
			return rpc.NewBottle(rpc.AckToken, rpc.NewBottle("x", rpc.FloatsBottle(reached.Floats())), "done"), nil
		}
	}

	ok, err := h.planner.ComputeSuperqAndPose(context.Background(), "mug", grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)

	asks := writesOf(h.action, askCmd)
	test.That(t, asks, test.ShouldHaveLength, 4)
	first := candidates(grasping.HandRight, []float64{0}).Poses[0].Pose()
	test.That(t, asks[0], test.ShouldResemble, rpc.NewBottle("ask", rpc.FloatsBottle(first.Floats()), "right"))

	poses := h.planner.last.Result(grasping.HandRight).Poses
	test.That(t, poses[0].HatErr, test.ShouldBeNil)
	test.That(t, *poses[0].Hat, test.ShouldResemble, reached)
	for _, pose := range poses[1:] {
		test.That(t, pose.Hat, test.ShouldBeNil)
		test.That(t, errors.Is(pose.HatErr, rpc.ErrMalformedReply), test.ShouldBeTrue)
	}
	test.That(t, h.refined, test.ShouldResemble, []string{grasping.HandRight})
}

func TestRemoteReachabilityWithoutActionService(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	disconnect(h.action)

	ok, err := h.planner.FromOffFile(context.Background(), writeOFF(t, 150, 0), grasping.HandRight)
	test.That(t, errors.Is(err, rpc.ErrNotConnected), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.refined, test.ShouldBeEmpty)

	_, err = h.planner.LastSelection(context.Background())
	test.That(t, errors.Is(err, grasping.ErrNoSelection), test.ShouldBeTrue)
}

func TestGraspWithoutSelection(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	ok, err := h.planner.Grasp(context.Background())
	test.That(t, errors.Is(err, grasping.ErrNoSelection), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.action.Writes(), test.ShouldBeEmpty)
}

func TestGraspRemote(t *testing.T) {
	ctx := context.Background()
	var graspReply rpc.Bottle
	setup := func(t *testing.T, robot string) *harness {
		h := newHarness(t, fmt.Sprintf(`{"robot": %q}`, robot), nil)
		h.action.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
			if cmd.IsVocab(0, graspCmd) {
				return graspReply, nil
			}
			return rpc.NewBottle(rpc.AckToken), nil
		}
		h.reachCalib.ConnectedFunc = func(context.Context) bool { return true }
		h.reachCalib.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
			return rpc.NewBottle("ok", 0.5, 0.6, 0.7), nil
		}
		ok, err := h.planner.FromOffFile(ctx, writeOFF(t, 150, 0), grasping.HandLeft)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		return h
	}

	t.Run("calibrated and acknowledged", func(t *testing.T) {
		graspReply = rpc.NewBottle(rpc.AckToken)
		h := setup(t, config.RobotR1)
		sel := h.planner.last.Selection

		ok, err := h.planner.Grasp(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)

		p := sel.Pose.Point
		test.That(t, h.reachCalib.Writes(), test.ShouldResemble, []rpc.Bottle{
			rpc.NewBottle("get_location_nolook", "iol-left", p.X, p.Y, p.Z, 0),
		})
		grasps := writesOf(h.action, graspCmd)
		test.That(t, grasps, test.ShouldHaveLength, 1)
		o := sel.Pose.Orientation
		test.That(t, grasps[0], test.ShouldResemble, rpc.NewBottle(
			"grasp",
			rpc.NewBottle("cartesian", 0.5, 0.6, 0.7, o.RX, o.RY, o.RZ, o.Theta),
			rpc.NewBottle("approach", rpc.FloatsBottle([]float64{0, 0, 0, 0})),
			"left",
		))
	})

	t.Run("reply must be a bare ack", func(t *testing.T) {
		graspReply = rpc.NewBottle(rpc.AckToken, "done")
		h := setup(t, config.RobotR1)
		ok, err := h.planner.Grasp(ctx)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("failed calibration keeps pose", func(t *testing.T) {
		graspReply = rpc.NewBottle(rpc.AckToken)
		h := setup(t, config.RobotR1)
		h.reachCalib.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
			return rpc.NewBottle("fail"), nil
		}
		ok, err := h.planner.Grasp(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		cart, _ := writesOf(h.action, graspCmd)[0].List(1)
		x, _ := cart.Float(1)
		test.That(t, x, test.ShouldEqual, h.planner.last.Selection.Pose.Point.X)
	})

	t.Run("action service missing", func(t *testing.T) {
		graspReply = rpc.NewBottle(rpc.AckToken)
		h := setup(t, config.RobotR1)
		disconnect(h.action)
		ok, err := h.planner.Grasp(ctx)
		test.That(t, errors.Is(err, rpc.ErrNotConnected), test.ShouldBeTrue)
		test.That(t, ok, test.ShouldBeFalse)
	})
}

func TestGraspSimulated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, `{"robot": "icubSim"}`, nil)
	ok, err := h.planner.FromOffFile(ctx, writeOFF(t, 150, 0), grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	sel := h.planner.last.Selection

	ok, err = h.planner.Grasp(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)

	moves := h.right.Moves()
	test.That(t, moves, test.ShouldHaveLength, 2)
	intermediate := sel.Pose.Translate(r3.Vector{X: -0.05})
	test.That(t, spatialmath.PoseAlmostEqual(moves[0], intermediate, 1e-9), test.ShouldBeTrue)
	test.That(t, moves[1], test.ShouldResemble, sel.Pose)
	test.That(t, h.right.StoredContexts(), test.ShouldEqual, 0)
	test.That(t, h.right.Settings(), test.ShouldResemble, fake.DefaultSettings())
	test.That(t, h.left.Moves(), test.ShouldBeEmpty)
	test.That(t, writesOf(h.action, graspCmd), test.ShouldBeEmpty)
}

func TestSimpleActions(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		token string
		run   func(*Planner) (bool, error)
	}{
		{"drop", func(p *Planner) (bool, error) { return p.Drop(ctx) }},
		{"home", func(p *Planner) (bool, error) { return p.Home(ctx) }},
		{"hand", func(p *Planner) (bool, error) { return p.OpenHand(ctx) }},
	} {
		t.Run(tc.token, func(t *testing.T) {
			h := newHarness(t, `{"robot": "r1"}`, nil)
			ok, err := tc.run(h.planner)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, h.action.Writes(), test.ShouldResemble, []rpc.Bottle{rpc.NewBottle(tc.token)})

			h.action.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
				return rpc.NewBottle("nack"), nil
			}
			ok, err = tc.run(h.planner)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, ok, test.ShouldBeFalse)

			disconnect(h.action)
			ok, err = tc.run(h.planner)
			test.That(t, errors.Is(err, rpc.ErrNotConnected), test.ShouldBeTrue)
			test.That(t, ok, test.ShouldBeFalse)
		})
	}
}

func TestTakeTool(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		hand  string
		wantY float64
	}{
		{grasping.HandRight, 0.25},
		{grasping.HandLeft, -0.05},
	} {
		t.Run(tc.hand, func(t *testing.T) {
			h := newHarness(t, `{"robot": "icubSim"}`, nil)
			_, err := h.planner.FromOffFile(ctx, writeOFF(t, 150, 0), tc.hand)
			test.That(t, err, test.ShouldBeNil)

			ok, err := h.planner.TakeTool(ctx)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, ok, test.ShouldBeTrue)

			moves := h.right.Moves()
			test.That(t, moves, test.ShouldHaveLength, 3)
			test.That(t, moves[0].Point.Z, test.ShouldAlmostEqual, 0.02)
			test.That(t, moves[1].Point.X, test.ShouldAlmostEqual, -0.22)
			test.That(t, moves[2].Point.Y, test.ShouldAlmostEqual, tc.wantY)
			test.That(t, moves[2].Orientation, test.ShouldResemble, moves[0].Orientation)
		})
	}

	h := newHarness(t, `{"robot": "r1"}`, nil)
	delete(h.planner.deps.Controllers, grasping.HandRight)
	ok, err := h.planner.TakeTool(ctx)
	test.That(t, errors.Is(err, rpc.ErrNotConnected), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)
}

type staticImage struct {
	img image.Image
}

func (s staticImage) Read(ctx context.Context) (image.Image, error) {
	return s.img, nil
}

func TestReconstruction(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 1, color.RGBA{R: 40, G: 50, B: 60, A: 255})
	h := newHarness(t, `{"robot": "r1", "pixel_window": {"u_i": 0, "v_i": 0, "u_f": 2, "v_f": 2}}`, staticImage{img})
	h.sfm.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
		return rpc.NewBottle(
			-0.3, 0.0, 0.0,
			0.0, 0.0, 0.0,
			-0.1, 0.0, 0.0,
			-0.32, 0.1, 0.0,
		), nil
	}

	ok, err := h.planner.ComputeSuperqAndPose(context.Background(), reconstructedObject, grasping.HandRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h.sfm.Writes(), test.ShouldResemble, []rpc.Bottle{rpc.NewBottle("Points", 0, 0, 0, 1, 1, 0, 1, 1)})
	test.That(t, h.pointCloud.Writes(), test.ShouldBeEmpty)

	cloud := h.fitted[0]
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	p, c := cloud.At(0)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: -0.3})
	test.That(t, c, test.ShouldResemble, pointcloud.Color{R: 10, G: 20, B: 30})
	p, c = cloud.At(1)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: -0.32, Y: 0.1})
	test.That(t, c, test.ShouldResemble, pointcloud.Color{R: 40, G: 50, B: 60})
}

func TestReconstructionWithoutCamera(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	ok, err := h.planner.ComputeSuperqAndPose(context.Background(), reconstructedObject, grasping.HandRight)
	test.That(t, errors.Is(err, rpc.ErrNotConnected), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.sfm.Writes(), test.ShouldBeEmpty)
}

func TestOperationsAreSerialized(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	h.planner.deps.Superquadric = &inject.SuperquadricEstimator{
		ComputeSuperqFunc: func(ctx context.Context, cloud *pointcloud.PointCloud, class string) ([]superquadric.Superquadric, error) {
			close(entered)
			<-unblock
			return []superquadric.Superquadric{testSuperq}, nil
		},
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.planner.ComputeSuperqAndPose(context.Background(), "mug", grasping.HandRight)
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ok, err := h.planner.SetSingleSuperq(ctx, false)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)

	close(unblock)
	test.That(t, <-done, test.ShouldBeNil)
	ok, err = h.planner.SetSingleSuperq(context.Background(), false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
}

func TestCameraClient(t *testing.T) {
	ctx := context.Background()
	port := inject.NewPort("camera")
	port.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
		return rpc.NewBottle(rpc.AckToken, 2, 1, rpc.NewBottle(255, 0, 0, 0, 255, 0)), nil
	}
	cam := NewCameraClient(port)
	img, err := cam.Read(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 2, 1))
	test.That(t, color.RGBAModel.Convert(img.At(1, 0)), test.ShouldResemble, color.RGBA{G: 255, A: 255})
	test.That(t, port.Writes(), test.ShouldResemble, []rpc.Bottle{rpc.NewBottle("read")})

	port.WriteFunc = func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
		return rpc.NewBottle(rpc.AckToken, 2, 2, rpc.NewBottle(255, 0, 0)), nil
	}
	_, err = cam.Read(ctx)
	test.That(t, errors.Is(err, rpc.ErrMalformedReply), test.ShouldBeTrue)

	disconnect(port)
	_, err = cam.Read(ctx)
	test.That(t, errors.Is(err, rpc.ErrNotConnected), test.ShouldBeTrue)
}

func TestClose(t *testing.T) {
	h := newHarness(t, `{"robot": "r1"}`, nil)
	closed := 0
	for _, p := range []*inject.Port{h.pointCloud, h.action, h.reachCalib, h.tableCalib, h.sfm} {
		p.CloseFunc = func(context.Context) error {
			closed++
			return nil
		}
	}
	h.tableCalib.CloseFunc = func(context.Context) error { return errors.New("already closed") }
	err := h.planner.Close(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, closed, test.ShouldEqual, 4)
}
