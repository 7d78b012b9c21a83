package depthcount

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/counter"
	"github.com/swdee/go-depthcount/preprocess"
	"github.com/swdee/go-depthcount/sink"
	"github.com/swdee/go-depthcount/source"
	"github.com/swdee/go-depthcount/store"
	"github.com/swdee/go-depthcount/tracker"
)

// stubSource fails on demand
type stubSource struct {
	startErr error
	waitErr  error
	stopped  bool
}

func (s *stubSource) Start(width, height, fps int) error {
	return s.startErr
}

func (s *stubSource) WaitForFrames(ctx context.Context) (source.Frames, error) {
	return source.Frames{}, s.waitErr
}

func (s *stubSource) DepthScale() float64 {
	return 0
}

func (s *stubSource) Stop() error {
	s.stopped = true
	return nil
}

// countingSink records what the dispatcher delivers
type countingSink struct {
	mu     sync.Mutex
	writes int
	last   counter.State
	closed bool
}

func (s *countingSink) Name() string {
	return "counting"
}

func (s *countingSink) Write(p *sink.Presentation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.last = p.Counts
	return nil
}

func (s *countingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// personFrame returns a depth frame holding a single person sized region
// with its top edge at y
func personFrame(y int) source.Frames {
	d := preprocess.NewDepthFrame(320, 240)
	d.Fill(0, 0, 320, 240, 2500)
	d.Fill(70, y, 250, y+130, 300)

	return source.Frames{
		Color: gocv.NewMat(),
		Depth: d,
	}
}

func demoPipeline(t *testing.T, opts ...PipelineOption) *Pipeline {
	t.Helper()

	src := source.NewSynthetic(source.DemoScript(320, 240),
		source.WithSyntheticPacing(false),
		source.WithSyntheticLogger(quietLogger()))

	opts = append([]PipelineOption{WithPipelineLogger(quietLogger())}, opts...)

	p, err := NewPipeline(DefaultConfig(quietLogger()), src, opts...)
	require.NoError(t, err)

	return p
}

func TestPipelineDemoCounts(t *testing.T) {

	journal, err := store.Open(filepath.Join(t.TempDir(), "journal.db"), 64, quietLogger())
	require.NoError(t, err)

	out := &countingSink{}
	pool := sink.NewMatPool(2)
	disp := sink.NewDispatcher(4, quietLogger(), out)

	p := demoPipeline(t, WithJournal(journal), WithDispatcher(disp, pool))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	// one person down, a pair up, one person down
	assert.Equal(t, counter.State{In: 2, Out: 2}, p.Counts())

	status := p.Status()
	assert.False(t, status.Running)
	assert.Greater(t, status.Frame, uint64(300))
	assert.NotEmpty(t, status.Session)

	totals, err := journal.Totals(journal.Session())
	require.NoError(t, err)
	assert.Equal(t, p.Counts(), totals)

	require.NoError(t, p.Close())

	out.mu.Lock()
	defer out.mu.Unlock()
	assert.Greater(t, out.writes, 0)
	assert.True(t, out.closed)
}

func TestPipelineStep(t *testing.T) {

	p := demoPipeline(t)
	defer p.Close()

	ctx := context.Background()

	f := personFrame(40)
	crossings, err := p.Step(ctx, f)
	f.Close()

	require.NoError(t, err)
	assert.Empty(t, crossings)
	assert.Equal(t, 1, p.Status().Tracks)

	f = personFrame(60)
	crossings, err = p.Step(ctx, f)
	f.Close()

	require.NoError(t, err)
	require.Len(t, crossings, 1)

	c := crossings[0]
	assert.Equal(t, tracker.Out, c.Direction)
	assert.Equal(t, 1, c.TrackID)
	assert.Equal(t, 1, c.Increment)
	assert.Equal(t, uint64(2), c.Frame)
	assert.Less(t, c.From.Y, 120)
	assert.GreaterOrEqual(t, c.To.Y, 120)

	assert.Equal(t, counter.State{Out: 1}, p.Counts())

	assert.Equal(t, counter.State{}, p.ResetCounters())
	assert.Equal(t, 1, p.Status().Tracks)
}

func TestPipelineStepBadFrame(t *testing.T) {

	p := demoPipeline(t)
	defer p.Close()

	crossings, err := p.Step(context.Background(), source.Frames{
		Depth: preprocess.DepthFrame{Width: 10, Height: 10, Data: make([]uint16, 5)},
	})

	assert.ErrorIs(t, err, preprocess.ErrFrameDimensions)
	assert.Empty(t, crossings)
}

func TestPipelineBadFrameAgesTracks(t *testing.T) {

	p := demoPipeline(t)
	defer p.Close()

	// 0.02s at 60fps keeps a track for one unmatched frame
	require.NoError(t, p.Config().SetMaxTrackAge(0.02))

	f := personFrame(40)
	_, err := p.Step(context.Background(), f)
	f.Close()
	require.NoError(t, err)
	require.Equal(t, 1, p.Status().Tracks)

	bad := source.Frames{
		Depth: preprocess.DepthFrame{Width: 10, Height: 10, Data: make([]uint16, 5)},
	}

	_, err = p.Step(context.Background(), bad)
	require.ErrorIs(t, err, preprocess.ErrFrameDimensions)
	require.NotNil(t, p.registry.Get(1))
	assert.Equal(t, 1, p.registry.Get(1).Age())

	_, err = p.Step(context.Background(), bad)
	require.ErrorIs(t, err, preprocess.ErrFrameDimensions)
	assert.Nil(t, p.registry.Get(1))
	assert.Equal(t, 0, p.Status().Tracks)
}

func TestPipelineStepCancelledContext(t *testing.T) {

	p := demoPipeline(t)
	defer p.Close()

	f := personFrame(40)
	_, err := p.Step(context.Background(), f)
	f.Close()
	require.NoError(t, err)

	// a frame already acquired when capture is stopped still completes
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f = personFrame(60)
	crossings, err := p.Step(ctx, f)
	f.Close()

	require.NoError(t, err)
	require.Len(t, crossings, 1)
	assert.Equal(t, tracker.Out, crossings[0].Direction)
	assert.Equal(t, counter.State{Out: 1}, p.Counts())
}

func TestPipelinePolicyChange(t *testing.T) {

	p := demoPipeline(t)
	defer p.Close()

	require.NoError(t, p.Config().SetAssociation("global"))

	f := personFrame(40)
	_, err := p.Step(context.Background(), f)
	f.Close()

	require.NoError(t, err)
	assert.Equal(t, tracker.GlobalNearest, p.registry.Policy())
}

func TestPipelineStartFailure(t *testing.T) {

	src := &stubSource{startErr: errors.New("no camera")}

	p, err := NewPipeline(DefaultConfig(quietLogger()), src, WithPipelineLogger(quietLogger()))
	require.NoError(t, err)

	err = p.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no camera")
	assert.False(t, p.Running())

	assert.ErrorIs(t, p.Stop(), ErrNotRunning)
}

func TestPipelineAcquisitionFailure(t *testing.T) {

	src := &stubSource{waitErr: errors.New("usb reset")}

	p, err := NewPipeline(DefaultConfig(quietLogger()), src, WithPipelineLogger(quietLogger()))
	require.NoError(t, err)

	err = p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "usb reset")
	assert.True(t, src.stopped)
}

func TestPipelineStartStop(t *testing.T) {

	// paced long running source
	src := source.NewSynthetic(source.DemoScript(320, 240),
		source.WithLength(100000),
		source.WithSyntheticLogger(quietLogger()))

	p, err := NewPipeline(DefaultConfig(quietLogger()), src, WithPipelineLogger(quietLogger()))
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.Start(), ErrRunning)

	require.Eventually(t, func() bool {
		return p.Status().Frame > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.Running())
	assert.ErrorIs(t, p.Stop(), ErrNotRunning)

	// capture can be restarted
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())
}

func TestPipelineNilArguments(t *testing.T) {

	_, err := NewPipeline(nil, &stubSource{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPipeline(DefaultConfig(quietLogger()), nil)
	assert.Error(t, err)
}
