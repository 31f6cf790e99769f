package main

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

func captureMain(parentCtx context.Context, args *CliArgs) error {
	logger := logger.
		WithField("cmd", args.Command).
		WithField("run", uuid.NewString())

	src := ParseSource(args.SourceId)

	reader, err := OpenSource(src)
	if err != nil {
		logger.WithError(err).Errorf("Unable to open device")
		return err
	}

	props := ReadProperties(reader)
	logger.Infof("OpenCV %s (gocv %s)", gocv.OpenCVVersion(), gocv.Version())
	logger.Infof("Press [Esc] to exit")
	logger.Infof("URL: %s", src)
	logger.Infof("Resolution: %s", props.Resolution())

	// Some backends report success for sources they cannot read from. Reading
	// from such a source would block forever.
	if !props.Valid() {
		logger.Errorf("Unable to open device")
		closeLogged(logger, reader, "video capture source")
		return ErrSourceUnavailable
	}

	// Create app.

	cvdemos := app.NewWithID("cvdemos")
	cvdemos.SetIcon(theme.MediaVideoIcon())

	// Create app window.

	frameSize := fyne.NewSize(float32(props.Width), float32(props.Height))

	window := cvdemos.NewWindow("Capture " + src.String())
	window.SetFixedSize(true)
	window.SetMaster()

	display := NewCanvasDisplay(frameSize)
	window.SetContent(container.New(layout.NewCenterLayout(), display.CanvasObject()))
	window.Resize(frameSize)

	window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			window.Close()
		}
	})

	// Create the capture graph. The source node takes over the reader.

	capture := NewGraph("CAPTURE")
	vsrc := NewCaptureSource("VSRC", reader, NewCaptureParameters(args.flip, args.Fx))
	view := NewFrameViewer("VIEW", vsrc.Stream(), display)
	capture.SetNodes(vsrc, view)

	// Run background loop.
	ctx, cancelCtx := context.WithCancel(parentCtx)
	defer cancelCtx()

	logger.Tracef("Starting capture.")
	capture.Run(ctx)
	captureErr := make(chan error, 1)
	go func() {
		err := <-capture.Err()
		if err != nil {
			logger.WithError(err).Error("Capture failed.")
			window.Close()
		} else if ctx.Err() == nil {
			logger.Infof("Source exhausted after %d frames.", view.Shown())
		}
		captureErr <- err
	}()

	// Closing the window on interrupt makes ShowAndRun return.
	go func() {
		select {
		case <-parentCtx.Done():
			window.Close()
		case <-ctx.Done():
		}
	}()

	// Start GUI.
	logger.Infof("Starting GUI application.")
	window.ShowAndRun()
	cancelCtx()
	logger.Tracef("GUI application stopped.")

	// Shutdown.
	logger.Tracef("Waiting for the capture to stop...")
	err = <-captureErr
	logger.Tracef("Capture stopped.")

	logger.Infof("Shutdown complete.")
	return err
}
