package source

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/preprocess"
)

const (
	// DefaultDepthScale is the depth unit of the supported cameras, 1mm
	DefaultDepthScale = 0.001
	// floorDepth is the raw depth of the empty scene, beyond the default
	// clip distance so it reads as background
	floorDepth = 2500
)

var (
	sceneColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// Walker is a scripted rectangular object moving across the synthetic
// scene at constant velocity
type Walker struct {
	// X, Y is the top left corner on the walker's first frame
	X, Y int
	// Width, Height is the size of the walker in pixels
	Width, Height int
	// DX, DY is the movement in pixels per frame
	DX, DY int
	// Depth is the raw depth of the walker's surface
	Depth uint16
	// Start is the first frame the walker is in the scene
	Start int
	// Frames is how many frames the walker stays in the scene
	Frames int
	// Color the walker is drawn with on the color stream
	Color color.RGBA
}

// Bounds returns the walker's rectangle on frame n and whether the walker is
// in the scene on that frame
func (w Walker) Bounds(n int) (image.Rectangle, bool) {
	if n < w.Start || n >= w.Start+w.Frames {
		return image.Rectangle{}, false
	}

	step := n - w.Start
	x := w.X + w.DX*step
	y := w.Y + w.DY*step

	return image.Rect(x, y, x+w.Width, y+w.Height), true
}

// Synthetic renders scripted walkers into color and depth frames.  It is
// used for the demo mode and for testing the pipeline without a camera.
type Synthetic struct {
	walkers []Walker
	length  int
	pace    bool
	log     logrus.FieldLogger

	mu      sync.Mutex
	running bool
	width   int
	height  int
	frame   int
	pacer   *pacer
}

// SyntheticOption configures a Synthetic source
type SyntheticOption func(*Synthetic)

// WithLength sets the number of frames produced before io.EOF, zero runs
// until the last walker has left the scene
func WithLength(n int) SyntheticOption {
	return func(s *Synthetic) {
		s.length = n
	}
}

// WithSyntheticPacing sets if frames are delivered at the configured fps
func WithSyntheticPacing(pace bool) SyntheticOption {
	return func(s *Synthetic) {
		s.pace = pace
	}
}

// WithSyntheticLogger sets the logger
func WithSyntheticLogger(log logrus.FieldLogger) SyntheticOption {
	return func(s *Synthetic) {
		s.log = log
	}
}

// NewSynthetic returns a source rendering the given walkers
func NewSynthetic(walkers []Walker, opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{
		walkers: walkers,
		pace:    true,
		log:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.length == 0 {
		for _, w := range walkers {
			s.length = max(s.length, w.Start+w.Frames)
		}
	}

	return s
}

// Start begins a synthetic stream of the given size
func (s *Synthetic) Start(width, height, fps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.width = width
	s.height = height
	s.frame = 0
	s.pacer = newPacer(fps, s.pace)
	s.running = true

	s.log.WithFields(logrus.Fields{
		"walkers": len(s.walkers),
		"frames":  s.length,
	}).Info("synthetic source started")

	return nil
}

// WaitForFrames renders the next frame pair
func (s *Synthetic) WaitForFrames(ctx context.Context) (Frames, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return Frames{}, ErrSourceClosed
	}

	if s.frame >= s.length {
		return Frames{}, io.EOF
	}

	if err := s.pacer.wait(ctx); err != nil {
		return Frames{}, err
	}

	f := s.render(s.frame)
	s.frame++

	return f, nil
}

// render draws frame n of the script
func (s *Synthetic) render(n int) Frames {

	depth := preprocess.NewDepthFrame(s.width, s.height)
	depth.Fill(0, 0, s.width, s.height, floorDepth)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(
		float64(sceneColor.B), float64(sceneColor.G), float64(sceneColor.R), 0),
		s.height, s.width, gocv.MatTypeCV8UC3)

	for _, w := range s.walkers {
		r, ok := w.Bounds(n)

		if !ok {
			continue
		}

		depth.Fill(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, w.Depth)
		gocv.Rectangle(&img, r, w.Color, -1)
	}

	return Frames{
		Color: img,
		Depth: depth,
		Index: uint64(n),
	}
}

// DepthScale returns DefaultDepthScale
func (s *Synthetic) DepthScale() float64 {
	return DefaultDepthScale
}

// Stop ends the stream
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pacer.stop()
	s.pacer = nil
	s.running = false
	return nil
}

// DemoScript returns a scene for a frame of the given size: a single person
// walking down through the gate, a pair walking up, then another single
// person walking down.  Walker sizes are fractions of the frame, tuned so the
// default area bands hold at the 320x240 profile.
func DemoScript(width, height int) []Walker {

	speed := max(height/60, 2)

	walker := func(frac float64, down bool, start int, clr color.RGBA) Walker {
		w := int(float64(width) * frac)
		h := int(float64(height) * frac)

		wk := Walker{
			X: (width - w) / 2, Width: w, Height: h,
			Depth: 300, Start: start, Frames: (height + h) / speed,
			Color: clr,
		}

		if down {
			wk.Y, wk.DY = -h, speed
		} else {
			wk.Y, wk.DY = height, -speed
		}
		return wk
	}

	first := walker(0.55, true, 0, color.RGBA{R: 200, G: 120, B: 60, A: 255})
	pair := walker(0.92, false, first.Start+first.Frames+10,
		color.RGBA{R: 60, G: 160, B: 200, A: 255})
	last := walker(0.55, true, pair.Start+pair.Frames+10,
		color.RGBA{R: 120, G: 200, B: 90, A: 255})

	return []Walker{first, pair, last}
}
