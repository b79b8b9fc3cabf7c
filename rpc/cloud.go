package rpc

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/graspplanner/pointcloud"
)

// CloudBottle encodes a cloud as a list of (x y z r g b) points.
func CloudBottle(cloud *pointcloud.PointCloud) Bottle {
	out := make(Bottle, 0, cloud.Size())
	for i := 0; i < cloud.Size(); i++ {
		p, c := cloud.At(i)
		out = append(out, NewBottle(p.X, p.Y, p.Z, int(c.R), int(c.G), int(c.B)))
	}
	return out
}

// CloudFromBottle decodes a list of (x y z r g b) points. Every point must have all six fields.
func CloudFromBottle(b Bottle) (*pointcloud.PointCloud, error) {
	cloud := pointcloud.New()
	for i := 0; i < b.Size(); i++ {
		pt, ok := b.List(i)
		if !ok || pt.Size() < 6 {
			return nil, errors.Wrapf(ErrMalformedReply, "point %d is not (x y z r g b)", i)
		}
		v, ok := pt.Floats()
		if !ok {
			return nil, errors.Wrapf(ErrMalformedReply, "point %d has non numeric fields", i)
		}
		cloud.Add(r3.Vector{X: v[0], Y: v[1], Z: v[2]}, pointcloud.Color{
			R: clampChannel(v[3]),
			G: clampChannel(v[4]),
			B: clampChannel(v[5]),
		})
	}
	return cloud, nil
}

func clampChannel(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
