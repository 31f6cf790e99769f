package main

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
)

// FrameDisplay renders one image at a time.
type FrameDisplay interface {
	Show(img image.Image)
}

type FrameViewer struct {
	*SinkNode[image.Image]
	shown int
}

var _ Node = &FrameViewer{}

func NewFrameViewer(name string, inChan <-chan image.Image, display FrameDisplay) *FrameViewer {
	fv := &FrameViewer{
		SinkNode: NewSinkNode[image.Image](name, inChan),
	}

	fv.StepFunc(func(img image.Image) error {
		if img == nil {
			return nil
		}

		display.Show(img)
		fv.shown++
		return nil
	})

	return fv
}

// Shown is the number of frames handed to the display. Only read it after
// the node stopped.
func (fv *FrameViewer) Shown() int {
	return fv.shown
}

// CanvasDisplay paints frames onto a canvas.Image.
//
// mu only orders Show and Image callers. The fyne painter reads the image
// field without it, which fyne 2.1 allows for a plain field swap.
type CanvasDisplay struct {
	mu   sync.Mutex
	view *canvas.Image
}

var _ FrameDisplay = &CanvasDisplay{}

func NewCanvasDisplay(size fyne.Size) *CanvasDisplay {
	return &CanvasDisplay{
		view: DefaultNoSignalImage(size),
	}
}

func (d *CanvasDisplay) CanvasObject() fyne.CanvasObject {
	return d.view
}

func (d *CanvasDisplay) Show(img image.Image) {
	d.mu.Lock()
	d.view.Resource = nil
	d.view.Image = img
	d.mu.Unlock()

	d.view.Refresh()
}

// Image returns the frame currently painted, nil before the first one.
func (d *CanvasDisplay) Image() image.Image {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.view.Image
}

func DefaultNoSignalImage(size fyne.Size) *canvas.Image {
	img := canvas.NewImageFromResource(theme.MediaVideoIcon())
	img.SetMinSize(size)
	img.FillMode = canvas.ImageFillContain

	return img
}
