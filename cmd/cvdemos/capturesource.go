package main

import (
	"image"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// CaptureSource reads frames from an opened capture handle, applies the
// optional effect and converts them for display, all on its own goroutine.
// The capture handle is released by the node's teardown.
type CaptureSource struct {
	*SourceNode[image.Image]
	p *CaptureParameters
}

var _ Node = &CaptureSource{}

func NewCaptureSource(name string, reader FrameReader, p *CaptureParameters) *CaptureSource {
	cs := &CaptureSource{
		SourceNode: NewSourceNode[image.Image](name),
		p:          p,
	}

	var (
		frameBuffer gocv.Mat
		fx          FrameFx
	)

	cs.SetupFunc(func() error {
		var err error

		fx, err = NewFrameFx(cs.p.fx)
		if err != nil {
			return flattenErrors(err, errors.Wrap(reader.Close(), "video capture source teardown error"))
		}

		frameBuffer = gocv.NewMat()
		return nil
	})

	cs.TeardownFunc(func() error {
		return flattenErrors(
			errors.Wrap(reader.Close(), "video capture source teardown error"),
			errors.Wrap(frameBuffer.Close(), "video capture frame buffer teardown error"),
			errors.Wrap(fx.Close(), "fx teardown error"),
		)
	})

	cs.StepFunc(func() (image.Image, error) {
		if ok := reader.Read(&frameBuffer); !ok {
			return nil, io.EOF
		}

		// NOTE: Returned image is nil for an empty frame.
		if frameBuffer.Empty() {
			return nil, nil
		}

		flipFrame(&frameBuffer, cs.p.flip)

		out, err := fx.Apply(frameBuffer)
		if err != nil {
			return nil, errors.Wrapf(err, "%s failed", fx.Name())
		}

		img, err := out.ToImage()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert raw frame")
		}

		return img, nil
	})

	return cs
}

type CaptureParameters struct {
	flip FlipMode
	fx   string
}

func NewCaptureParameters(flip FlipMode, fx string) *CaptureParameters {
	return &CaptureParameters{
		flip: flip,
		fx:   fx,
	}
}
