package pointcloud

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewFromPoints(t *testing.T) {
	_, err := NewFromPoints([]r3.Vector{{X: 1}}, nil)
	test.That(t, err, test.ShouldNotBeNil)

	cloud, err := NewFromPoints(
		[]r3.Vector{{X: 1}, {X: -2, Y: 3}, {Z: 4}},
		[]Color{{R: 1}, {G: 2}, {B: 3}},
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 3)

	meta := cloud.MetaData()
	test.That(t, meta.MaxX, test.ShouldEqual, 1.0)
	test.That(t, meta.MinX, test.ShouldEqual, -2.0)
	test.That(t, meta.MaxZ, test.ShouldEqual, 4.0)

	sub := cloud.Subset([]int{2, 0})
	test.That(t, sub.Size(), test.ShouldEqual, 2)
	p, c := sub.At(0)
	test.That(t, p, test.ShouldResemble, r3.Vector{Z: 4})
	test.That(t, c, test.ShouldResemble, Color{B: 3})

	filtered := cloud.Filter(func(p r3.Vector, _ Color) bool { return p.X >= 0 })
	test.That(t, filtered.Size(), test.ShouldEqual, 2)
	test.That(t, len(filtered.Colors()), test.ShouldEqual, 2)

	cloud.Clear()
	test.That(t, cloud.Size(), test.ShouldEqual, 0)
	var nilCloud *PointCloud
	test.That(t, nilCloud.Size(), test.ShouldEqual, 0)
}

func TestReadOFF(t *testing.T) {
	in := strings.Join([]string{
		"0.1 0.2 0.3 255 0 10",
		"0.4 0.5 0.6",
		"0.7 0.8 0.9 30 30 30",
		"1.0 1.1 1.2 200 40",
		"not a point",
		"1.3 1.4 1.5 1 2 3",
	}, "\n")
	cloud, err := ReadOFF(strings.NewReader(in))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 4)

	_, c := cloud.At(0)
	test.That(t, c, test.ShouldResemble, Color{R: 255, G: 0, B: 10})
	// no colors means default grey, which is replaced
	_, c = cloud.At(1)
	test.That(t, c, test.ShouldResemble, offGreyReplacement)
	_, c = cloud.At(2)
	test.That(t, c, test.ShouldResemble, offGreyReplacement)
	_, c = cloud.At(3)
	test.That(t, c, test.ShouldResemble, Color{R: 200, G: 40, B: offDefaultChannel})
}

func TestNewFromOFFFile(t *testing.T) {
	_, err := NewFromOFFFile(filepath.Join(t.TempDir(), "missing.off"))
	test.That(t, err, test.ShouldNotBeNil)

	fn := filepath.Join(t.TempDir(), "object.off")
	test.That(t, os.WriteFile(fn, []byte("0 0 0\n1 1 1\n"), 0o600), test.ShouldBeNil)
	cloud, err := NewFromOFFFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
}

func TestToPCD(t *testing.T) {
	cloud := New()
	cloud.Add(r3.Vector{X: 1, Y: 2, Z: 3}, Color{R: 1, G: 2, B: 3})
	var buf bytes.Buffer
	test.That(t, ToPCD(cloud, &buf), test.ShouldBeNil)
	out := buf.String()
	test.That(t, out, test.ShouldContainSubstring, "POINTS 1\n")
	test.That(t, out, test.ShouldContainSubstring, "DATA ascii\n")
	test.That(t, out, test.ShouldEndWith, "1.000000 2.000000 3.000000 66051\n")
}
