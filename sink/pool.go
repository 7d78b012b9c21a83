// Package sink delivers annotated presentation frames to displays, video
// recorders and network viewers without blocking the counting pipeline.
package sink

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/counter"
)

// Presentation is a single annotated frame handed to the sinks.  Sinks must
// treat it as read only, it is returned to its pool once every sink has seen
// it.
type Presentation struct {
	// Color is the annotated BGR color frame
	Color gocv.Mat
	// Track is the single channel foreground frame
	Track gocv.Mat
	// Counts at the time of the frame
	Counts counter.State
	// Frame is the pipeline frame number
	Frame uint64
	// Tracks is the number of live tracks
	Tracks int

	pool *MatPool
}

// Release returns the frame to the pool it came from
func (p *Presentation) Release() {
	if p.pool != nil {
		p.pool.Return(p)
	}
}

func (p *Presentation) close() {
	p.Color.Close()
	p.Track.Close()
}

// MatPool is a fixed size pool of presentation frames so the Mats they hold
// are reused rather than allocated every frame
type MatPool struct {
	// frames available for use
	frames chan *Presentation
	// size of pool
	size   int
	mu     sync.Mutex
	closed bool
}

// NewMatPool creates a pool holding size presentation frames
func NewMatPool(size int) *MatPool {
	p := &MatPool{
		frames: make(chan *Presentation, size),
		size:   size,
	}

	for i := 0; i < size; i++ {
		p.Return(&Presentation{
			Color: gocv.NewMat(),
			Track: gocv.NewMat(),
			pool:  p,
		})
	}

	return p
}

// Get takes a frame from the pool without blocking.  ok is false when every
// frame is in use.
func (p *MatPool) Get() (frame *Presentation, ok bool) {
	select {
	case frame, ok = <-p.frames:
		return frame, ok
	default:
		return nil, false
	}
}

// Return a frame to the pool.  Frames returned to a closed pool are freed.
func (p *MatPool) Return(frame *Presentation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		frame.close()
		return
	}

	select {
	case p.frames <- frame:
	default:
		// pool is full
		frame.close()
	}
}

// Size returns the number of frames the pool was created with
func (p *MatPool) Size() int {
	return p.size
}

// Close the pool and free the frames in it
func (p *MatPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.frames)

	for next := range p.frames {
		next.close()
	}
}
