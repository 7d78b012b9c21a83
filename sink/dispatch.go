package sink

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Sink consumes presentation frames
type Sink interface {
	// Name identifies the sink in log messages
	Name() string
	// Write presents the frame, it must not retain it after returning
	Write(p *Presentation) error
	// Close releases the sink's resources
	Close() error
}

// Dispatcher fans presentation frames out to the sinks from its own
// goroutine.  Offer never blocks, when the queue is full the frame is
// dropped.
type Dispatcher struct {
	sinks   []Sink
	queue   chan *Presentation
	wg      sync.WaitGroup
	dropped atomic.Uint64
	log     logrus.FieldLogger
	close   sync.Once
}

// NewDispatcher starts a dispatcher with a queue of the given depth
func NewDispatcher(depth int, log logrus.FieldLogger, sinks ...Sink) *Dispatcher {

	if log == nil {
		log = logrus.StandardLogger()
	}

	d := &Dispatcher{
		sinks: sinks,
		queue: make(chan *Presentation, depth),
		log:   log,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Offer queues the frame for the sinks.  It returns false if the frame was
// dropped, in which case it has already been released.
func (d *Dispatcher) Offer(p *Presentation) bool {
	select {
	case d.queue <- p:
		return true
	default:
		p.Release()
		if n := d.dropped.Add(1); n%100 == 1 {
			d.log.WithField("dropped", n).Debug("presentation queue full, frame dropped")
		}
		return false
	}
}

// Dropped returns the number of frames dropped so far
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Len returns the number of sinks
func (d *Dispatcher) Len() int {
	return len(d.sinks)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for p := range d.queue {
		for _, s := range d.sinks {
			if err := s.Write(p); err != nil {
				d.log.WithFields(logrus.Fields{
					"sink":  s.Name(),
					"frame": p.Frame,
				}).WithError(err).Warn("sink write failed")
			}
		}
		p.Release()
	}
}

// Close waits for queued frames to be written then closes every sink.  No
// frames may be offered after Close.
func (d *Dispatcher) Close() error {
	var errs []error

	d.close.Do(func() {
		close(d.queue)
		d.wg.Wait()

		for _, s := range d.sinks {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})

	return errors.Join(errs...)
}
