package builtin

import (
	"context"
	"image"
	"image/color"

	"github.com/pkg/errors"

	"go.viam.com/graspplanner/rpc"
)

const cameraRead = "read"

// ImageSource provides the latest camera frame.
type ImageSource interface {
	Read(ctx context.Context) (image.Image, error)
}

type cameraClient struct {
	port rpc.Port
}

// NewCameraClient returns an ImageSource reading frames as (ack width height (r g b ...)) replies.
func NewCameraClient(port rpc.Port) ImageSource {
	return &cameraClient{port: port}
}

func (c *cameraClient) Read(ctx context.Context) (image.Image, error) {
	if !c.port.Connected(ctx) {
		return nil, errors.Wrap(rpc.ErrNotConnected, c.port.Name())
	}
	reply, err := c.port.Write(ctx, rpc.NewBottle(cameraRead))
	if err != nil {
		return nil, err
	}
	if err := rpc.ExpectAck(reply); err != nil {
		return nil, err
	}
	width, okW := reply.Int(1)
	height, okH := reply.Int(2)
	pixels, okP := reply.List(3)
	if !okW || !okH || !okP || width <= 0 || height <= 0 {
		return nil, errors.Wrapf(rpc.ErrMalformedReply, "camera frame header: %s", reply.Text())
	}
	if pixels.Size() != 3*width*height {
		return nil, errors.Wrapf(rpc.ErrMalformedReply, "camera frame has %d channels for %dx%d", pixels.Size(), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		var rgb [3]uint8
		for ch := range rgb {
			v, ok := pixels.Int(3*i + ch)
			if !ok || v < 0 || v > 255 {
				return nil, errors.Wrapf(rpc.ErrMalformedReply, "camera pixel %d", i)
			}
			rgb[ch] = uint8(v)
		}
		img.SetRGBA(i%width, i/width, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
	}
	return img, nil
}

func (c *cameraClient) Close(ctx context.Context) error {
	return c.port.Close(ctx)
}
