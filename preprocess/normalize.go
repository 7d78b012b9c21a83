// Package preprocess turns raw depth frames into the 8 bit foreground image
// the blob extractor works on.
package preprocess

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

const (
	// noReading is the value far and missing samples are pushed to before
	// remapping, which maps them to black
	noReading = 65535
)

// ThresholdUnits converts a clip distance in centimeters into raw depth units
// for a device whose scale is given in meters per unit.  The result is
// truncated to a whole unit.
func ThresholdUnits(clipCentimeters, scale float64) int {
	if scale <= 0 {
		return 0
	}
	return int(clipCentimeters / (100 * scale))
}

// Level maps a single raw depth sample onto the 8 bit foreground scale.
// Samples with no reading or beyond the threshold become background (0) and
// nearer samples become brighter.
func Level(p uint16, thresholdUnits int) uint8 {

	v := int(p)

	if v == 0 || v > thresholdUnits {
		v = noReading
	}

	return uint8(255 - (v*255)/noReading)
}

// Normalizer converts depth frames into foreground frames.  Rows are split
// into contiguous ranges processed by separate goroutines and joined before
// the result is returned.
type Normalizer struct {
	// workers is the number of goroutines the rows are split across
	workers int
}

// NewNormalizer returns a normalizer using the given number of workers, a
// value below one uses a single worker
func NewNormalizer(workers int) *Normalizer {
	if workers < 1 {
		workers = 1
	}
	return &Normalizer{
		workers: workers,
	}
}

// Workers returns the number of row workers in use
func (n *Normalizer) Workers() int {
	return n.workers
}

// Normalize thresholds and remaps frame into dst, which is (re)allocated as a
// CV_8UC1 Mat of the frame's size if needed
func (n *Normalizer) Normalize(ctx context.Context, frame DepthFrame,
	thresholdUnits int, dst *gocv.Mat) error {

	if err := frame.Validate(); err != nil {
		return err
	}

	if dst.Empty() || dst.Rows() != frame.Height || dst.Cols() != frame.Width ||
		dst.Type() != gocv.MatTypeCV8UC1 {
		dst.Close()
		*dst = gocv.NewMatWithSize(frame.Height, frame.Width, gocv.MatTypeCV8UC1)
	}

	out, err := dst.DataPtrUint8()

	if err != nil {
		return fmt.Errorf("error accessing foreground mat: %w", err)
	}

	rowsPer := (frame.Height + n.workers - 1) / n.workers

	g, gctx := errgroup.WithContext(ctx)

	for start := 0; start < frame.Height; start += rowsPer {
		end := min(start+rowsPer, frame.Height)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			lo := start * frame.Width
			hi := end * frame.Width

			for i := lo; i < hi; i++ {
				out[i] = Level(frame.Data[i], thresholdUnits)
			}

			return nil
		})
	}

	return g.Wait()
}

// Blur smooths the foreground frame in place with a Gaussian kernel of the
// given odd size.  A size of 1 or less leaves the frame untouched.
func Blur(fg *gocv.Mat, size int) {
	if size <= 1 {
		return
	}
	gocv.GaussianBlur(*fg, fg, image.Pt(size, size), 0, 0, gocv.BorderDefault)
}
