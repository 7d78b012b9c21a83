package source

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// recordSynthetic renders n frames of a synthetic scene into dir
func recordSynthetic(t *testing.T, dir string, n int) {
	t.Helper()

	src := NewSynthetic([]Walker{testWalker}, WithSyntheticPacing(false),
		WithLength(n), WithSyntheticLogger(quietLogger()))
	require.NoError(t, src.Start(64, 48, 30))
	defer src.Stop()

	for i := 0; i < n; i++ {
		f, err := src.WaitForFrames(context.Background())
		require.NoError(t, err)
		require.NoError(t, WriteFrames(dir, i, f))
		f.Close()
	}
}

func TestSequenceReplay(t *testing.T) {

	dir := t.TempDir()
	recordSynthetic(t, dir, 4)

	seq := NewSequence(dir, WithPacing(false), WithSequenceLogger(quietLogger()))
	require.NoError(t, seq.Start(64, 48, 30))
	defer seq.Stop()

	count := 0

	for {
		f, err := seq.WaitForFrames(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		assert.Equal(t, uint64(count), f.Index)
		assert.Equal(t, 64, f.Depth.Width)
		assert.Equal(t, 48, f.Depth.Height)

		// 16 bit depth survives the PNG round trip
		if count == 2 {
			assert.Equal(t, uint16(300), f.Depth.At(15, 5))
		}
		assert.Equal(t, uint16(floorDepth), f.Depth.At(0, 0))

		f.Close()
		count++
	}

	assert.Equal(t, 4, count)
	assert.Equal(t, DefaultDepthScale, seq.DepthScale())
}

func TestSequenceLoop(t *testing.T) {

	dir := t.TempDir()
	recordSynthetic(t, dir, 2)

	seq := NewSequence(dir, WithPacing(false), WithLoop(true),
		WithSequenceLogger(quietLogger()))
	require.NoError(t, seq.Start(64, 48, 30))
	defer seq.Stop()

	for i := 0; i < 5; i++ {
		f, err := seq.WaitForFrames(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), f.Index)
		f.Close()
	}
}

func TestSequenceStartErrors(t *testing.T) {

	seq := NewSequence(t.TempDir(), WithSequenceLogger(quietLogger()))
	assert.Error(t, seq.Start(64, 48, 30))

	dir := t.TempDir()
	recordSynthetic(t, dir, 1)

	seq = NewSequence(dir, WithSequenceLogger(quietLogger()))
	assert.Error(t, seq.Start(320, 240, 30))

	_, err := seq.WaitForFrames(context.Background())
	assert.ErrorIs(t, err, ErrSourceClosed)
}
