package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gocv.io/x/gocv"
)

// fallbackFPS is used for the output when the source does not report its
// frame rate.
const fallbackFPS = 30.0

var fs afero.Fs = afero.NewOsFs()

// FrameWriter is the writer handle. *gocv.VideoWriter implements it.
type FrameWriter interface {
	Write(img gocv.Mat) error
	Close() error
}

var _ FrameWriter = &gocv.VideoWriter{}

var openVideoWriter = func(path string, fourcc FourCC, fps float64, width, height int) (FrameWriter, error) {
	vw, err := gocv.VideoWriterFile(path, fourcc.String(), fps, width, height, true)
	if err != nil {
		return nil, err
	}

	if !vw.IsOpened() {
		_ = vw.Close()
		return nil, errors.Errorf("codec %s is not available for '%s'", fourcc, path)
	}

	return vw, nil
}

// Stats summarize a frame loop.
type Stats struct {
	Frames  int
	Elapsed time.Duration
}

func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// Transcode reads frames from src until it is exhausted, applies fx to each
// of them and writes the result to dst. Reading and writing happen on the
// calling goroutine, one frame at a time.
//
// Frames that were written before ctx got cancelled are counted in the
// returned Stats.
func Transcode(ctx context.Context, src FrameReader, dst FrameWriter, fx FrameFx, flip FlipMode) (Stats, error) {
	frame := gocv.NewMat()
	defer frame.Close()

	var stats Stats
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}

		if ok := src.Read(&frame); !ok {
			break
		}

		// NOTE: A successful read may still produce an empty frame.
		if frame.Empty() {
			continue
		}

		flipFrame(&frame, flip)

		out, err := fx.Apply(frame)
		if err != nil {
			stats.Elapsed = time.Since(start)
			return stats, errors.Wrapf(err, "%s failed on frame %d", fx.Name(), stats.Frames)
		}

		if err := dst.Write(out); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, errors.Wrapf(err, "failed to write frame %d", stats.Frames)
		}

		stats.Frames++
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

func batchMain(ctx context.Context, args *CliArgs) error {
	logger := logger.
		WithField("cmd", args.Command).
		WithField("run", uuid.NewString())

	src := ParseSource(args.SourceId)

	logger.Infof("OpenCV %s (gocv %s)", gocv.OpenCVVersion(), gocv.Version())
	logger.Infof("Input file: %s", src)
	logger.Infof("Output file: %s", args.OutputFile)

	reader, err := OpenSource(src)
	if err != nil {
		logger.WithError(err).Errorf("OpenVideoCapture failed")
		return err
	}
	defer closeLogged(logger, reader, "video capture source")

	props := ReadProperties(reader)
	logger.Infof("Resolution: %s", props.Resolution())
	if !props.Valid() {
		logger.Errorf("Unable to open device")
		return errors.Wrapf(ErrSourceUnavailable, "source '%s'", src)
	}

	fps := props.FPS
	if fps <= 0 {
		logger.Warnf("Source does not report its frame rate, using %.0f FPS", fallbackFPS)
		fps = fallbackFPS
	}
	logger.Infof("Codec: %s (0x%08x), %.2f FPS", args.fourcc, args.fourcc.Int(), fps)

	fx, err := NewFrameFx(args.Fx)
	if err != nil {
		return err
	}
	defer closeLogged(logger, fx, "fx "+fx.Name())

	stats, err := transcodeToFile(ctx, reader, fx, args, props, fps)

	logger.Infof("%d frames", stats.Frames)
	if props.FrameCount > 0 && stats.Frames != props.FrameCount {
		logger.Debugf("Source reported %d frames", props.FrameCount)
	}
	logger.Infof("Elapsed time: %4.2f seconds (%.1f FPS)", stats.Elapsed.Seconds(), stats.FPS())

	if size, sizeErr := outputSize(args.OutputFile); sizeErr == nil {
		logger.Infof("Output size: %s", humanize.Bytes(uint64(size)))
	} else {
		logger.WithError(sizeErr).Debugf("Output size unknown")
	}

	// Teardown errors get joined to the cancellation, so ask the context.
	if ctx.Err() != nil {
		entry := logger
		if err != nil && !errors.Is(err, ctx.Err()) {
			entry = logger.WithError(err)
		}
		entry.Warnf("Interrupted.")
		return nil
	}
	return err
}

// transcodeToFile owns the writer, so the output file is complete once it
// returns.
func transcodeToFile(
	ctx context.Context,
	reader FrameReader,
	fx FrameFx,
	args *CliArgs,
	props Properties,
	fps float64,
) (Stats, error) {
	if err := ensureOutputDir(args.OutputFile); err != nil {
		return Stats{}, err
	}

	writer, err := openVideoWriter(args.OutputFile, args.fourcc, fps, props.Width, props.Height)
	if err != nil {
		return Stats{}, errors.Wrapf(err, "failed to open video writer '%s'", args.OutputFile)
	}

	stats, err := Transcode(ctx, reader, writer, fx, args.flip)
	return stats, flattenErrors(err, errors.Wrap(writer.Close(), "video writer teardown error"))
}

func ensureOutputDir(outputFile string) error {
	dir := filepath.Dir(outputFile)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create output directory '%s'", dir)
	}
	return nil
}

func outputSize(outputFile string) (int64, error) {
	info, err := fs.Stat(outputFile)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

type closer interface {
	Close() error
}

func closeLogged(logger *logrus.Entry, c closer, what string) {
	if err := c.Close(); err != nil {
		logger.WithError(err).Errorf("Failed to release %s", what)
	}
}
