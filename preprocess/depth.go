package preprocess

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrFrameDimensions is returned when a depth frame's header does not match
// the amount of data it carries
var ErrFrameDimensions = errors.New("depth frame dimensions do not match data")

// DepthFrame is a row major grid of raw 16 bit depth samples as delivered by
// the camera.  A value of 0 means the sensor had no reading for that pixel.
type DepthFrame struct {
	Width  int
	Height int
	Data   []uint16
}

// NewDepthFrame returns a zeroed depth frame of the given size
func NewDepthFrame(width, height int) DepthFrame {
	return DepthFrame{
		Width:  width,
		Height: height,
		Data:   make([]uint16, width*height),
	}
}

// Validate checks the frame header against its data
func (f DepthFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 || len(f.Data) != f.Width*f.Height {
		return fmt.Errorf("%w: %dx%d with %d samples", ErrFrameDimensions,
			f.Width, f.Height, len(f.Data))
	}
	return nil
}

// At returns the sample at column x and row y
func (f DepthFrame) At(x, y int) uint16 {
	return f.Data[y*f.Width+x]
}

// Set stores a sample at column x and row y
func (f DepthFrame) Set(x, y int, v uint16) {
	f.Data[y*f.Width+x] = v
}

// Fill sets every sample inside the rectangle, clipped to the frame, to v
func (f DepthFrame) Fill(x0, y0, x1, y1 int, v uint16) {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, f.Width), min(y1, f.Height)

	for y := y0; y < y1; y++ {
		row := f.Data[y*f.Width : (y+1)*f.Width]
		for x := x0; x < x1; x++ {
			row[x] = v
		}
	}
}

// DepthFrameFromMat copies a single channel 16 bit Mat, such as a depth PNG
// read with gocv.IMReadAnyDepth, into a DepthFrame
func DepthFrameFromMat(m gocv.Mat) (DepthFrame, error) {

	if m.Empty() {
		return DepthFrame{}, fmt.Errorf("%w: empty mat", ErrFrameDimensions)
	}

	if m.Type() != gocv.MatTypeCV16UC1 {
		return DepthFrame{}, fmt.Errorf("depth mat must be CV_16UC1, got type %v",
			m.Type())
	}

	src, err := m.DataPtrUint16()

	if err != nil {
		return DepthFrame{}, fmt.Errorf("error reading depth mat: %w", err)
	}

	frame := NewDepthFrame(m.Cols(), m.Rows())
	copy(frame.Data, src)

	return frame, nil
}
