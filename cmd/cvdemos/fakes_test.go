package main

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeReader yields the same synthetic frame a fixed number of times.
type fakeReader struct {
	frame  gocv.Mat
	frames int
	reads  int
	props  map[gocv.VideoCaptureProperties]float64
	closed bool
}

var _ FrameReader = &fakeReader{}

func newFakeReader(t *testing.T, width, height, frames int, fps float64) *fakeReader {
	t.Helper()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	if width > 0 && height > 0 {
		gocv.Rectangle(&frame, image.Rect(width/4, height/4, 3*width/4, 3*height/4), color.RGBA{R: 255, G: 255, A: 255}, -1)
	}
	t.Cleanup(func() { _ = frame.Close() })

	return &fakeReader{
		frame:  frame,
		frames: frames,
		props: map[gocv.VideoCaptureProperties]float64{
			gocv.VideoCaptureFrameWidth:  float64(width),
			gocv.VideoCaptureFrameHeight: float64(height),
			gocv.VideoCaptureFPS:         fps,
			gocv.VideoCaptureFrameCount:  float64(frames),
		},
	}
}

func (r *fakeReader) Read(m *gocv.Mat) bool {
	if r.reads >= r.frames {
		return false
	}
	r.reads++
	r.frame.CopyTo(m)
	return true
}

func (r *fakeReader) Get(prop gocv.VideoCaptureProperties) float64 {
	return r.props[prop]
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeWriter struct {
	sizes    []image.Point
	channels []int
	failAt   int // 1-based; 0 never fails
	closeErr error
	closed   bool
}

var _ FrameWriter = &fakeWriter{}

func (w *fakeWriter) Write(m gocv.Mat) error {
	if w.failAt > 0 && len(w.sizes)+1 == w.failAt {
		return errors.New("disk full")
	}
	w.sizes = append(w.sizes, image.Pt(m.Cols(), m.Rows()))
	w.channels = append(w.channels, m.Channels())
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return w.closeErr
}

type writerOpenCall struct {
	path   string
	fourcc FourCC
	fps    float64
	width  int
	height int
}

// stubOpeners replaces the capture and writer openers for the duration of
// the test.
func stubOpeners(t *testing.T, reader FrameReader, writer FrameWriter) (*[]Source, *[]writerOpenCall) {
	t.Helper()

	origCapture, origWriter := openVideoCapture, openVideoWriter
	t.Cleanup(func() {
		openVideoCapture, openVideoWriter = origCapture, origWriter
	})

	var (
		sources []Source
		writes  []writerOpenCall
	)

	openVideoCapture = func(src Source) (FrameReader, error) {
		sources = append(sources, src)
		if reader == nil {
			return nil, errors.New("no such file")
		}
		return reader, nil
	}

	openVideoWriter = func(path string, fourcc FourCC, fps float64, width, height int) (FrameWriter, error) {
		writes = append(writes, writerOpenCall{path, fourcc, fps, width, height})
		if err := afero.WriteFile(fs, path, make([]byte, 2048), 0o644); err != nil {
			return nil, err
		}
		return writer, nil
	}

	return &sources, &writes
}

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()

	orig := fs
	fs = afero.NewMemMapFs()
	t.Cleanup(func() { fs = orig })

	return fs
}

type recordingDisplay struct {
	mu     sync.Mutex
	images []image.Image
}

func (d *recordingDisplay) Show(img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.images = append(d.images, img)
}

func (d *recordingDisplay) Images() []image.Image {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]image.Image(nil), d.images...)
}

func waitErr(t *testing.T, errChan <-chan error) error {
	t.Helper()

	select {
	case err := <-errChan:
		return err
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for the result")
		return nil
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}
