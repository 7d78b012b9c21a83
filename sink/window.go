package sink

import (
	"gocv.io/x/gocv"
)

const (
	colorWindowName = "Color Stream"
	trackWindowName = "Track Stream"
)

// Window shows the color and track streams in desktop windows
type Window struct {
	color *gocv.Window
	track *gocv.Window
	onKey func(key int)
}

// NewWindow opens the two stream windows.  onKey, if set, receives any key
// pressed while a window has focus.
func NewWindow(onKey func(key int)) *Window {
	return &Window{
		color: gocv.NewWindow(colorWindowName),
		track: gocv.NewWindow(trackWindowName),
		onKey: onKey,
	}
}

// Name implements Sink
func (w *Window) Name() string {
	return "window"
}

// Write implements Sink
func (w *Window) Write(p *Presentation) error {

	if !p.Color.Empty() {
		w.color.IMShow(p.Color)
	}

	if !p.Track.Empty() {
		w.track.IMShow(p.Track)
	}

	if key := w.color.WaitKey(1); key >= 0 && w.onKey != nil {
		w.onKey(key)
	}

	return nil
}

// Close implements Sink
func (w *Window) Close() error {
	w.color.Close()
	w.track.Close()
	return nil
}
