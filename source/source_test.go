package source

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWalker = Walker{
	X: 10, Y: 0, Width: 20, Height: 10,
	DY: 5, Depth: 300, Start: 2, Frames: 4,
}

func TestWalkerBounds(t *testing.T) {

	tests := []struct {
		frame    int
		expected image.Rectangle
		visible  bool
	}{
		{1, image.Rectangle{}, false},
		{2, image.Rect(10, 0, 30, 10), true},
		{4, image.Rect(10, 10, 30, 20), true},
		{5, image.Rect(10, 15, 30, 25), true},
		{6, image.Rectangle{}, false},
	}

	for _, tc := range tests {
		r, ok := testWalker.Bounds(tc.frame)
		assert.Equal(t, tc.visible, ok, "frame %d", tc.frame)
		assert.Equal(t, tc.expected, r, "frame %d", tc.frame)
	}
}

func TestSyntheticFrames(t *testing.T) {

	src := NewSynthetic([]Walker{testWalker}, WithSyntheticPacing(false),
		WithSyntheticLogger(quietLogger()))

	_, err := src.WaitForFrames(context.Background())
	require.ErrorIs(t, err, ErrSourceClosed)

	require.NoError(t, src.Start(64, 48, 30))
	defer src.Stop()

	var frames []Frames

	for {
		f, err := src.WaitForFrames(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}

	// runs until the walker leaves the scene
	require.Len(t, frames, 6)

	for i, f := range frames {
		assert.Equal(t, uint64(i), f.Index)
		assert.Equal(t, 48, f.Color.Rows())
		assert.Equal(t, 64, f.Color.Cols())
		require.NoError(t, f.Depth.Validate())
	}

	assert.Equal(t, uint16(floorDepth), frames[0].Depth.At(15, 5))
	assert.Equal(t, uint16(300), frames[2].Depth.At(15, 5))
	assert.Equal(t, uint16(floorDepth), frames[2].Depth.At(15, 10))
	assert.Equal(t, uint16(300), frames[3].Depth.At(15, 10))

	for _, f := range frames {
		f.Close()
	}
}

func TestSyntheticCancelled(t *testing.T) {

	src := NewSynthetic([]Walker{testWalker}, WithSyntheticLogger(quietLogger()))
	require.NoError(t, src.Start(64, 48, 1))
	defer src.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.WaitForFrames(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSyntheticStop(t *testing.T) {

	src := NewSynthetic([]Walker{testWalker}, WithSyntheticPacing(false),
		WithSyntheticLogger(quietLogger()))
	require.NoError(t, src.Start(64, 48, 30))
	require.NoError(t, src.Stop())

	_, err := src.WaitForFrames(context.Background())
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestDemoScriptFits(t *testing.T) {

	walkers := DemoScript(320, 240)
	require.Len(t, walkers, 3)

	for i := 1; i < len(walkers); i++ {
		prev := walkers[i-1]
		assert.Greater(t, walkers[i].Start, prev.Start+prev.Frames,
			"walkers %d and %d overlap", i-1, i)
	}

	assert.Greater(t, walkers[0].DY, 0)
	assert.Less(t, walkers[1].DY, 0)
	assert.Greater(t, walkers[2].DY, 0)
}
