package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/preprocess"
)

const (
	colorPattern = "color_%06d.png"
	depthPattern = "depth_%06d.png"
)

// Sequence replays a recorded session from a directory of numbered
// color_NNNNNN.png and 16 bit depth_NNNNNN.png image pairs
type Sequence struct {
	dir   string
	loop  bool
	pace  bool
	scale float64
	log   logrus.FieldLogger

	mu      sync.Mutex
	running bool
	count   int
	next    int
	index   uint64
	pacer   *pacer
}

// SequenceOption configures a Sequence
type SequenceOption func(*Sequence)

// WithLoop restarts the sequence from the first frame when the end is
// reached instead of returning io.EOF
func WithLoop(loop bool) SequenceOption {
	return func(s *Sequence) {
		s.loop = loop
	}
}

// WithPacing sets if frames are delivered at the configured fps or as fast
// as they can be read
func WithPacing(pace bool) SequenceOption {
	return func(s *Sequence) {
		s.pace = pace
	}
}

// WithDepthScale sets the depth unit in meters of the recording
func WithDepthScale(scale float64) SequenceOption {
	return func(s *Sequence) {
		s.scale = scale
	}
}

// WithSequenceLogger sets the logger
func WithSequenceLogger(log logrus.FieldLogger) SequenceOption {
	return func(s *Sequence) {
		s.log = log
	}
}

// NewSequence returns a source reading the recording held in dir
func NewSequence(dir string, opts ...SequenceOption) *Sequence {
	s := &Sequence{
		dir:   dir,
		pace:  true,
		scale: DefaultDepthScale,
		log:   logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start counts the frame pairs in the recording and checks their size
// matches the requested stream
func (s *Sequence) Start(width, height, fps int) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for {
		_, errC := os.Stat(s.path(colorPattern, count))
		_, errD := os.Stat(s.path(depthPattern, count))

		if errC != nil || errD != nil {
			break
		}
		count++
	}

	if count == 0 {
		return fmt.Errorf("no frame pairs found in %s", s.dir)
	}

	depth, err := s.readDepth(0)

	if err != nil {
		return err
	}

	if depth.Width != width || depth.Height != height {
		return fmt.Errorf("recording is %dx%d but stream requested %dx%d",
			depth.Width, depth.Height, width, height)
	}

	s.count = count
	s.next = 0
	s.index = 0
	s.pacer = newPacer(fps, s.pace)
	s.running = true

	s.log.WithFields(logrus.Fields{
		"dir":    s.dir,
		"frames": count,
	}).Info("recorded sequence opened")

	return nil
}

// WaitForFrames returns the next frame pair of the recording
func (s *Sequence) WaitForFrames(ctx context.Context) (Frames, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return Frames{}, ErrSourceClosed
	}

	if s.next >= s.count {
		if !s.loop {
			return Frames{}, io.EOF
		}
		s.next = 0
	}

	if err := s.pacer.wait(ctx); err != nil {
		return Frames{}, err
	}

	color := gocv.IMRead(s.path(colorPattern, s.next), gocv.IMReadColor)

	if color.Empty() {
		color.Close()
		return Frames{}, fmt.Errorf("error reading color frame %d", s.next)
	}

	depth, err := s.readDepth(s.next)

	if err != nil {
		color.Close()
		return Frames{}, err
	}

	f := Frames{
		Color: color,
		Depth: depth,
		Index: s.index,
	}

	s.next++
	s.index++

	return f, nil
}

// DepthScale returns the depth unit of the recording
func (s *Sequence) DepthScale() float64 {
	return s.scale
}

// Stop closes the sequence, further reads return ErrSourceClosed
func (s *Sequence) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pacer.stop()
	s.pacer = nil
	s.running = false
	return nil
}

func (s *Sequence) path(pattern string, n int) string {
	return filepath.Join(s.dir, fmt.Sprintf(pattern, n))
}

func (s *Sequence) readDepth(n int) (preprocess.DepthFrame, error) {

	m := gocv.IMRead(s.path(depthPattern, n), gocv.IMReadAnyDepth)
	defer m.Close()

	frame, err := preprocess.DepthFrameFromMat(m)

	if err != nil {
		return preprocess.DepthFrame{}, fmt.Errorf("error reading depth frame %d: %w", n, err)
	}

	return frame, nil
}

// WriteFrames saves a frame pair into dir using the numbering a Sequence
// reads, so captured or synthetic sessions can be replayed later
func WriteFrames(dir string, n int, f Frames) error {

	if ok := gocv.IMWrite(filepath.Join(dir, fmt.Sprintf(colorPattern, n)), f.Color); !ok {
		return fmt.Errorf("error writing color frame %d", n)
	}

	depth, err := DepthMat(f.Depth)

	if err != nil {
		return err
	}
	defer depth.Close()

	if ok := gocv.IMWrite(filepath.Join(dir, fmt.Sprintf(depthPattern, n)), depth); !ok {
		return fmt.Errorf("error writing depth frame %d", n)
	}

	return nil
}

// DepthMat converts a depth frame into a CV_16UC1 Mat
func DepthMat(f preprocess.DepthFrame) (gocv.Mat, error) {

	if err := f.Validate(); err != nil {
		return gocv.Mat{}, err
	}

	buf := make([]byte, len(f.Data)*2)

	for i, v := range f.Data {
		binary.NativeEndian.PutUint16(buf[i*2:], v)
	}

	tmp, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV16UC1, buf)

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("error creating depth mat: %w", err)
	}
	defer tmp.Close()

	// clone so the returned mat owns its memory
	return tmp.Clone(), nil
}
