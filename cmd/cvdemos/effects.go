package main

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const allFx = "none|canny"

// FrameFx transforms a single frame.
//
// The Mat returned by Apply is owned by the FrameFx (or is the input frame
// itself) and stays valid until the next call to Apply or Close.
type FrameFx interface {
	Name() string
	Apply(frame gocv.Mat) (gocv.Mat, error)
	Close() error
}

func NewFrameFx(name string) (FrameFx, error) {
	switch name {
	case "none", "":
		return PassThrough{}, nil
	case "canny":
		return NewCannyEdges(DefaultCannyParameters()), nil
	default:
		return nil, errors.Errorf("unknown fx '%s'", name)
	}
}

type PassThrough struct{}

var _ FrameFx = PassThrough{}

func (PassThrough) Name() string { return "none" }

func (PassThrough) Apply(frame gocv.Mat) (gocv.Mat, error) {
	return frame, nil
}

func (PassThrough) Close() error { return nil }

type CannyParameters struct {
	kernelSize    image.Point
	sigma         float64
	lowThreshold  float32
	highThreshold float32
}

func NewCannyParameters(kernelSize image.Point, sigma float64, lowThreshold, highThreshold float32) *CannyParameters {
	return &CannyParameters{
		kernelSize:    kernelSize,
		sigma:         sigma,
		lowThreshold:  lowThreshold,
		highThreshold: highThreshold,
	}
}

func DefaultCannyParameters() *CannyParameters {
	return NewCannyParameters(image.Pt(3, 3), 0, 100, 200)
}

// CannyEdges keeps the original colors on the detected edges and blacks out
// everything else.
type CannyEdges struct {
	p *CannyParameters

	gray    gocv.Mat
	blurred gocv.Mat
	edges   gocv.Mat
	colored gocv.Mat
}

var _ FrameFx = &CannyEdges{}

func NewCannyEdges(p *CannyParameters) *CannyEdges {
	return &CannyEdges{
		p:       p,
		gray:    gocv.NewMat(),
		blurred: gocv.NewMat(),
		edges:   gocv.NewMat(),
		colored: gocv.NewMat(),
	}
}

func (c *CannyEdges) Name() string { return "canny" }

func (c *CannyEdges) Apply(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return frame, nil
	}

	if frame.Channels() == 1 {
		frame.CopyTo(&c.gray)
	} else {
		gocv.CvtColor(frame, &c.gray, gocv.ColorBGRToGray)
	}

	// Reduce noise before edge detection.
	gocv.GaussianBlur(c.gray, &c.blurred, c.p.kernelSize, c.p.sigma, c.p.sigma, gocv.BorderDefault)
	gocv.Canny(c.blurred, &c.edges, c.p.lowThreshold, c.p.highThreshold)

	// The mask leaves unmasked pixels untouched, so the destination has to
	// start out black on every frame.
	if err := c.colored.Close(); err != nil {
		return gocv.Mat{}, errors.Wrap(err, "failed to close previous frame buffer")
	}
	c.colored = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frame.Rows(), frame.Cols(), frame.Type())
	gocv.BitwiseAndWithMask(frame, frame, &c.colored, c.edges)

	return c.colored, nil
}

func (c *CannyEdges) Close() error {
	return flattenErrors(
		errors.Wrap(c.gray.Close(), "gray buffer teardown error"),
		errors.Wrap(c.blurred.Close(), "blur buffer teardown error"),
		errors.Wrap(c.edges.Close(), "edges buffer teardown error"),
		errors.Wrap(c.colored.Close(), "frame buffer teardown error"),
	)
}
