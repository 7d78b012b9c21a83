// Package source provides the synchronized color and depth frame sources the
// counting pipeline reads from.
package source

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/preprocess"
)

var (
	// ErrSourceClosed is returned when frames are requested from a source
	// that has not been started or has been stopped
	ErrSourceClosed = errors.New("frame source closed")
)

// Frames is a synchronized pair of color and depth frames captured at the
// same instant
type Frames struct {
	// Color is the BGR color frame
	Color gocv.Mat
	// Depth is the raw depth frame
	Depth preprocess.DepthFrame
	// Index is the sequence number of the frame pair from the source
	Index uint64
}

// Close frees the color frame
func (f *Frames) Close() error {
	return f.Color.Close()
}

// FrameSource delivers frame pairs to the pipeline.  Start must succeed
// before WaitForFrames is called.  WaitForFrames blocks until the next pair
// is available, the context is cancelled, or the source ends in which case
// io.EOF is returned.  The caller owns the returned Frames and must Close
// them.
type FrameSource interface {
	Start(width, height, fps int) error
	WaitForFrames(ctx context.Context) (Frames, error)
	// DepthScale returns the device's depth unit in meters
	DepthScale() float64
	Stop() error
}

// pacer delivers frames at a fixed rate to simulate a live camera
type pacer struct {
	ticker *time.Ticker
}

// newPacer returns a pacer for the given fps, a nil pacer does not wait
func newPacer(fps int, enabled bool) *pacer {
	if !enabled || fps <= 0 {
		return nil
	}
	return &pacer{
		ticker: time.NewTicker(time.Duration(float64(time.Second) / float64(fps))),
	}
}

// wait blocks until the next frame is due
func (p *pacer) wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ticker.C:
		return nil
	}
}

func (p *pacer) stop() {
	if p != nil {
		p.ticker.Stop()
	}
}
