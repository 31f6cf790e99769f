package main

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// defaultFileSource is read by the batch commands when no source is given.
	defaultFileSource = "resources/traffic.mp4"

	// defaultDeviceSource lets OpenCV pick any available camera.
	defaultDeviceSource = "-1"
)

var ErrSourceUnavailable = errors.New("unable to open device")

var deviceIdRegexp = regexp.MustCompile(`^-?\d+$`)

// Source identifies where the frames come from: a camera index or a file
// name / URL.
type Source struct {
	DeviceId int
	Path     string
	IsDevice bool
}

// ParseSource interprets a purely numeric (optionally negative) id as a
// camera index and anything else as a file name or URL.
func ParseSource(sourceId string) Source {
	if deviceIdRegexp.MatchString(sourceId) {
		if id, err := strconv.Atoi(sourceId); err == nil {
			return Source{DeviceId: id, IsDevice: true}
		}
	}

	return Source{Path: sourceId}
}

func (s Source) String() string {
	if s.IsDevice {
		return fmt.Sprintf("camera #%d", s.DeviceId)
	}
	return s.Path
}

// FrameReader is the capture handle. *gocv.VideoCapture implements it.
type FrameReader interface {
	Read(m *gocv.Mat) bool
	Get(prop gocv.VideoCaptureProperties) float64
	Close() error
}

var _ FrameReader = &gocv.VideoCapture{}

var openVideoCapture = func(src Source) (FrameReader, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)

	// NOTE: If the source is a camera, it starts recording here.
	if src.IsDevice {
		vc, err = gocv.VideoCaptureDevice(src.DeviceId)
	} else {
		vc, err = gocv.VideoCaptureFile(src.Path)
	}
	if err != nil {
		return nil, err
	}

	return vc, nil
}

func OpenSource(src Source) (FrameReader, error) {
	r, err := openVideoCapture(src)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open video capture source '%s'", src)
	}
	return r, nil
}

// Properties are the stream parameters reported by an opened capture handle.
type Properties struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int // 0 for live sources
}

func ReadProperties(r FrameReader) Properties {
	return Properties{
		Width:      int(r.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(r.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        r.Get(gocv.VideoCaptureFPS),
		FrameCount: int(r.Get(gocv.VideoCaptureFrameCount)),
	}
}

// Valid is false when the source could not be opened. Some backends open
// successfully and only report a zero frame size.
func (p Properties) Valid() bool {
	return p.Width > 0 && p.Height > 0
}

func (p Properties) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

type FlipMode string

const (
	FlipNone      FlipMode = "none"
	FlipLeftRight FlipMode = "lr"
	FlipUpDown    FlipMode = "ud"
	FlipBoth      FlipMode = "both"
)

const allFlipModes = "none|lr|ud|both"

const (
	flipBoth      int = -1
	flipUpDown    int = 0
	flipLeftRight int = 1
)

func ParseFlipMode(s string) (FlipMode, error) {
	switch m := FlipMode(s); m {
	case FlipNone, FlipLeftRight, FlipUpDown, FlipBoth:
		return m, nil
	case "":
		return FlipNone, nil
	default:
		return FlipNone, errors.Errorf("unknown flip mode '%s'", s)
	}
}

func flipFrame(frame *gocv.Mat, mode FlipMode) {
	switch mode {
	case FlipBoth:
		gocv.Flip(*frame, frame, flipBoth)
	case FlipLeftRight:
		gocv.Flip(*frame, frame, flipLeftRight)
	case FlipUpDown:
		gocv.Flip(*frame, frame, flipUpDown)
	}
}
