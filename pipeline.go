package depthcount

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/blob"
	"github.com/swdee/go-depthcount/counter"
	"github.com/swdee/go-depthcount/preprocess"
	"github.com/swdee/go-depthcount/render"
	"github.com/swdee/go-depthcount/sink"
	"github.com/swdee/go-depthcount/source"
	"github.com/swdee/go-depthcount/store"
	"github.com/swdee/go-depthcount/tracker"
)

var (
	// ErrRunning is returned when starting a pipeline that is already
	// capturing
	ErrRunning = errors.New("pipeline already running")
	// ErrNotRunning is returned when stopping a pipeline that is not capturing
	ErrNotRunning = errors.New("pipeline not running")
)

// Pipeline runs the per frame counting loop on a single worker goroutine:
// normalize depth, extract blobs, associate them to tracks, detect line
// crossings, count them and age out stale tracks.  Presentation frames and
// crossing events are handed off without blocking.
type Pipeline struct {
	cfg        *Config
	src        source.FrameSource
	extractor  blob.Source
	normalizer *preprocess.Normalizer
	registry   *tracker.Registry
	agg        *counter.Aggregator
	annotator  *render.Annotator
	pool       *sink.MatPool
	dispatcher *sink.Dispatcher
	journal    *store.Journal
	log        logrus.FieldLogger

	// fg is the foreground frame reused across frames
	fg gocv.Mat

	// mu guards the capture lifecycle below
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	running atomic.Bool
	stop    atomic.Bool
	frame   atomic.Uint64
	tracks  atomic.Int64
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithExtractor replaces the default contour blob extractor
func WithExtractor(e blob.Source) PipelineOption {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

// WithDispatcher enables presentation frames, taken from pool and offered to
// the dispatcher after every frame
func WithDispatcher(d *sink.Dispatcher, pool *sink.MatPool) PipelineOption {
	return func(p *Pipeline) {
		p.dispatcher = d
		p.pool = pool
	}
}

// WithJournal records every crossing to the journal, a new session is
// started each time capture starts
func WithJournal(j *store.Journal) PipelineOption {
	return func(p *Pipeline) {
		p.journal = j
	}
}

// WithAnnotator sets the annotator used for presentation frames
func WithAnnotator(a *render.Annotator) PipelineOption {
	return func(p *Pipeline) {
		p.annotator = a
	}
}

// WithPipelineLogger sets the logger
func WithPipelineLogger(log logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// NewPipeline creates a pipeline reading from src
func NewPipeline(cfg *Config, src source.FrameSource, opts ...PipelineOption) (*Pipeline, error) {

	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	if src == nil {
		return nil, errors.New("nil frame source")
	}

	params := cfg.Snapshot()

	p := &Pipeline{
		cfg:        cfg,
		src:        src,
		normalizer: preprocess.NewNormalizer(params.NormalizeWorkers),
		agg:        counter.NewAggregator(),
		log:        logrus.StandardLogger(),
		fg:         gocv.NewMat(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.extractor == nil {
		p.extractor = blob.NewContourExtractor(params.UnclipMargin)
	}

	if p.annotator == nil {
		p.annotator = render.NewAnnotator()
	}

	if p.dispatcher != nil && p.pool == nil {
		p.pool = sink.NewMatPool(2)
	}

	assoc, err := tracker.NewAssociator(params.Association)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p.registry = tracker.NewRegistry(
		tracker.WithAssociator(assoc),
		tracker.WithLogger(p.log),
	)

	return p, nil
}

// Config returns the live configuration
func (p *Pipeline) Config() *Config {
	return p.cfg
}

// Start starts the frame source and the worker goroutine.  An error starting
// the source is an acquisition failure and nothing is started.
func (p *Pipeline) Start() error {

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		select {
		case <-p.done:
			// previous capture ended on its own
			p.cancel()
			p.done = nil
		default:
			return ErrRunning
		}
	}

	params := p.cfg.Snapshot()

	if err := p.src.Start(params.Width, params.Height, params.FPS); err != nil {
		return fmt.Errorf("error starting frame source: %w", err)
	}

	if p.journal != nil {
		if _, err := p.journal.BeginSession(params.Width, params.Height, params.FPS); err != nil {
			p.src.Stop()
			return err
		}
	}

	// tracks from a previous capture are stale, counts carry over until
	// reset
	p.registry.Reset()
	p.tracks.Store(0)

	ctx, cancel := context.WithCancel(context.Background())

	p.cancel = cancel
	p.done = make(chan struct{})
	p.err = nil
	p.stop.Store(false)
	p.running.Store(true)

	go p.run(ctx, params.WorkerCores, p.done)

	p.log.WithFields(logrus.Fields{
		"width":  params.Width,
		"height": params.Height,
		"fps":    params.FPS,
		"policy": params.Association,
	}).Info("capture started")

	return nil
}

// Stop signals the worker to finish, waits for the in-flight frame to
// complete and releases the frame source.  It returns the error that ended
// the worker, if any.
func (p *Pipeline) Stop() error {

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done == nil {
		return ErrNotRunning
	}

	p.stop.Store(true)
	p.cancel()
	<-p.done

	err := p.err
	p.done = nil
	p.cancel = nil

	p.log.WithField("frames", p.frame.Load()).Info("capture stopped")

	return err
}

// Running reports if the worker is capturing
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Done returns a channel closed when the current capture ends, nil when
// not started
func (p *Pipeline) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Run starts capture and blocks until ctx is cancelled or the source ends
func (p *Pipeline) Run(ctx context.Context) error {

	if err := p.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-p.Done():
	}

	return p.Stop()
}

// Close stops capture if running and releases the sinks and journal
func (p *Pipeline) Close() error {

	var errs []error

	if err := p.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		errs = append(errs, err)
	}

	if p.dispatcher != nil {
		errs = append(errs, p.dispatcher.Close())
	}

	if p.pool != nil {
		p.pool.Close()
	}

	if p.journal != nil {
		errs = append(errs, p.journal.Close())
	}

	p.fg.Close()

	return errors.Join(errs...)
}

// run is the worker loop
func (p *Pipeline) run(ctx context.Context, cores []int, done chan struct{}) {

	defer close(done)
	defer p.running.Store(false)

	if len(cores) > 0 {
		// affinity applies to the calling thread so keep the worker on it
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := SetCPUAffinity(CPUCoreMask(cores)); err != nil {
			p.log.WithError(err).Warn("unable to pin pipeline worker")
		} else if mask, err := GetCPUAffinity(); err == nil {
			p.log.WithField("mask", fmt.Sprintf("%#b", mask)).Info("pipeline worker pinned")
		}
	}

loop:
	for !p.stop.Load() {

		frames, err := p.src.WaitForFrames(ctx)

		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				p.log.Info("frame source ended")
			case ctx.Err() != nil:
			default:
				p.err = fmt.Errorf("error acquiring frames: %w", err)
				p.log.WithError(err).Error("frame acquisition failed")
			}
			break loop
		}

		// Step ignores cancellation so an acquired frame completes
		if _, err := p.Step(ctx, frames); err != nil {
			p.log.WithError(err).Warn("frame skipped")
		}

		frames.Close()
	}

	if err := p.src.Stop(); err != nil {
		p.log.WithError(err).Warn("error stopping frame source")
	}

	if p.journal != nil {
		p.journal.Flush()
	}
}

// Step runs one frame through the pipeline and returns the crossings it
// produced.  It must only be called from one goroutine at a time, Run does
// so from the worker.  Cancellation of ctx does not interrupt the frame.
// A frame that cannot be processed yields no crossings but still advances
// the track lifecycle.
func (p *Pipeline) Step(ctx context.Context, f source.Frames) ([]tracker.Crossing, error) {

	ctx = context.WithoutCancel(ctx)

	params := p.cfg.Snapshot()
	n := p.frame.Add(1)
	log := p.log.WithField("frame", n)

	if err := f.Depth.Validate(); err != nil {
		p.expire(params, log)
		return nil, fmt.Errorf("frame %d: %w", n, err)
	}

	scale := p.src.DepthScale()

	if scale <= 0 {
		scale = params.DepthScale
	}

	thres := preprocess.ThresholdUnits(params.ThresholdCentimeters, scale)

	if err := p.normalizer.Normalize(ctx, f.Depth, thres, &p.fg); err != nil {
		p.expire(params, log)
		return nil, fmt.Errorf("error normalizing frame %d: %w", n, err)
	}

	preprocess.Blur(&p.fg, params.BlurSize)

	if ce, ok := p.extractor.(*blob.ContourExtractor); ok {
		ce.UnclipMargin = params.UnclipMargin
	}

	blobs, err := p.extractor.Extract(p.fg)

	if err != nil {
		log.WithError(err).Warn("blob extraction failed")
		blobs = nil
	}

	if p.registry.Policy() != params.Association {
		if assoc, err := tracker.NewAssociator(params.Association); err == nil {
			p.registry.SetAssociator(assoc)
			log.WithField("policy", params.Association).Info("association policy changed")
		}
	}

	detector := tracker.NewCrossingDetector(f.Depth.Height)
	bands := params.Bands()

	var crossings []tracker.Crossing

	for _, m := range p.registry.Associate(blobs, params.TrackerParams()) {
		for _, c := range detector.DetectMatch(m) {
			c.Frame = n
			p.agg.Add(&c, bands)

			log.WithFields(logrus.Fields{
				"track":     c.TrackID,
				"direction": c.Direction,
				"area":      c.Area,
				"increment": c.Increment,
			}).Debug("line crossed")

			if p.journal != nil {
				if err := p.journal.Record(c); err != nil {
					log.WithError(err).Warn("crossing not journaled")
				}
			}

			crossings = append(crossings, c)
		}
	}

	p.expire(params, log)

	p.present(f, blobs, n, detector.Mid)

	return crossings, nil
}

// expire runs the track lifecycle for the frame
func (p *Pipeline) expire(params Params, log logrus.FieldLogger) {

	for _, t := range p.registry.Tick(params.MaxAgeFrames()) {
		log.WithFields(logrus.Fields{
			"track": t.ID(),
			"area":  t.Area(),
		}).Debug("track expired")
	}

	p.tracks.Store(int64(p.registry.Len()))
}

// present annotates a copy of the color frame and offers it to the sinks,
// the frame is dropped when no pooled frame is free
func (p *Pipeline) present(f source.Frames, blobs []tracker.Blob, n uint64, mid int) {

	if p.dispatcher == nil {
		return
	}

	pres, ok := p.pool.Get()

	if !ok {
		p.log.WithField("frame", n).Debug("no presentation frame free")
		return
	}

	if f.Color.Empty() {
		gocv.CvtColor(p.fg, &pres.Color, gocv.ColorGrayToBGR)
	} else {
		f.Color.CopyTo(&pres.Color)
	}

	p.fg.CopyTo(&pres.Track)

	pres.Counts = p.agg.Counts()
	pres.Frame = n
	pres.Tracks = p.registry.Len()

	err := p.annotator.Annotate(&pres.Color, render.Scene{
		Mid:    mid,
		Blobs:  blobs,
		Tracks: p.registry.Tracks(),
		Counts: pres.Counts,
	})

	if err != nil {
		p.log.WithError(err).Warn("annotation failed")
	}

	p.dispatcher.Offer(pres)
}

// Counts returns a snapshot of the in and out counts
func (p *Pipeline) Counts() counter.State {
	return p.agg.Counts()
}

// ResetCounters zeroes the counts, live tracks are kept
func (p *Pipeline) ResetCounters() counter.State {
	p.agg.Reset()
	p.log.Info("counters reset")
	return p.agg.Counts()
}

// Status returns a snapshot of the pipeline state
func (p *Pipeline) Status() Status {

	s := Status{
		Counts:  p.agg.Counts(),
		Tracks:  int(p.tracks.Load()),
		Frame:   p.frame.Load(),
		Running: p.running.Load(),
	}

	if p.dispatcher != nil {
		s.Dropped = p.dispatcher.Dropped()
	}

	if p.journal != nil {
		s.Session = p.journal.Session().String()
	}

	return s
}
