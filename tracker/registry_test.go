package tracker

import (
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobAt returns a blob whose bounding box is centered on x,y
func blobAt(x, y int, area float64) Blob {
	return NewBlob(NewRect(x-10, y-10, 20, 20), area)
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var defaultParams = Params{
	MinBlobArea: 20000,
	Gate:        Gate{XNear: 40, YNear: 90},
}

func TestRegistryCreatesTracks(t *testing.T) {

	r := NewRegistry(WithLogger(quietLogger()))

	matches := r.Associate([]Blob{
		blobAt(50, 50, 30000),
		blobAt(250, 200, 30000),
	}, defaultParams)

	assert.Empty(t, matches)
	require.Equal(t, 2, r.Len())

	assert.Equal(t, 1, r.Tracks()[0].ID())
	assert.Equal(t, 2, r.Tracks()[1].ID())
	assert.Equal(t, Pt(50, 50), r.Tracks()[0].Center())
	assert.Equal(t, 1, r.Tracks()[0].Trail().Len())
	assert.Equal(t, 2, r.LastID())
}

func TestRegistryFirstMatchInCreationOrder(t *testing.T) {

	r := NewRegistry(WithLogger(quietLogger()))

	// create two tracks far enough apart to not match each other
	r.Associate([]Blob{blobAt(100, 100, 30000)}, defaultParams)
	r.Tick(10)
	r.Associate([]Blob{blobAt(160, 100, 30000)}, defaultParams)
	r.Tick(10)
	require.Equal(t, 2, r.Len())

	// blob sits within the gate of both tracks, the older one wins
	matches := r.Associate([]Blob{blobAt(130, 100, 30000)}, defaultParams)

	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Track.ID())
	assert.Equal(t, Pt(130, 100), r.Get(1).Center())
	assert.Equal(t, Pt(160, 100), r.Get(2).Center())
}

func TestRegistryCreationVisibleWithinFrame(t *testing.T) {

	r := NewRegistry(WithLogger(quietLogger()))

	// the second blob matches the track created by the first
	matches := r.Associate([]Blob{
		blobAt(100, 100, 30000),
		blobAt(110, 100, 30000),
	}, defaultParams)

	require.Equal(t, 1, r.Len())
	require.Len(t, matches, 1)

	diff := cmp.Diff([]Point{Pt(100, 100), Pt(110, 100)}, r.Get(1).Trail().Points())
	assert.Empty(t, diff)
}

func TestRegistryMultiMatchSameFrame(t *testing.T) {

	r := NewRegistry(WithLogger(quietLogger()))

	r.Associate([]Blob{blobAt(100, 100, 30000)}, defaultParams)
	r.Tick(10)

	// both blobs land on track 1.  The second is gated against the center
	// the first match moved the track to: (165,100) is 35 from (130,100) but
	// 65 from the center the track had at the start of the frame
	matches := r.Associate([]Blob{
		blobAt(130, 100, 30000),
		blobAt(165, 100, 30000),
	}, defaultParams)

	require.Len(t, matches, 2)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, matches[0].Track, matches[1].Track)
	assert.Equal(t, Pt(130, 100), matches[1].From)

	diff := cmp.Diff([]Point{Pt(100, 100), Pt(130, 100), Pt(165, 100)},
		r.Get(1).Trail().Points())
	assert.Empty(t, diff)
}

func TestRegistryMinimumArea(t *testing.T) {

	tests := []struct {
		name   string
		area   float64
		tracks int
	}{
		{"below minimum discarded", 19999, 0},
		{"at minimum kept", 20000, 1},
		{"above minimum kept", 90001, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry(WithLogger(quietLogger()))
			r.Associate([]Blob{blobAt(100, 100, tc.area)}, defaultParams)
			assert.Equal(t, tc.tracks, r.Len())
		})
	}
}

func TestRegistryLifecycle(t *testing.T) {

	const maxAge = 3

	r := NewRegistry(WithLogger(quietLogger()))

	r.Associate([]Blob{blobAt(100, 100, 30000)}, defaultParams)
	removed := r.Tick(maxAge)

	assert.Empty(t, removed)
	require.Equal(t, 1, r.Len())
	assert.Equal(t, 0, r.Get(1).Age())

	// an unmatched track survives maxAge frames
	for i := 1; i <= maxAge; i++ {
		r.Associate(nil, defaultParams)
		removed = r.Tick(maxAge)
		assert.Empty(t, removed)
		assert.Equal(t, i, r.Get(1).Age())
	}

	// and is removed on the frame after
	r.Associate(nil, defaultParams)
	removed = r.Tick(maxAge)

	require.Len(t, removed, 1)
	assert.Equal(t, 1, removed[0].ID())
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Get(1))
}

func TestRegistryMatchResetsAge(t *testing.T) {

	r := NewRegistry(WithLogger(quietLogger()))

	r.Associate([]Blob{blobAt(100, 100, 30000)}, defaultParams)
	r.Tick(5)
	r.Associate(nil, defaultParams)
	r.Tick(5)
	r.Associate(nil, defaultParams)
	r.Tick(5)
	require.Equal(t, 2, r.Get(1).Age())

	r.Associate([]Blob{blobAt(105, 120, 30000)}, defaultParams)
	r.Tick(5)

	assert.Equal(t, 0, r.Get(1).Age())
	assert.Equal(t, Pt(105, 120), r.Get(1).Center())
	assert.Equal(t, 30000.0, r.Get(1).Area())
}

func TestRegistryResetKeepsIDs(t *testing.T) {

	r := NewRegistry(WithLogger(quietLogger()))

	r.Associate([]Blob{blobAt(50, 50, 30000), blobAt(250, 50, 30000)}, defaultParams)
	r.Reset()

	assert.Equal(t, 0, r.Len())

	r.Associate([]Blob{blobAt(50, 50, 30000)}, defaultParams)

	require.Equal(t, 1, r.Len())
	assert.Equal(t, 3, r.Tracks()[0].ID())
}

func TestRegistryTrailSize(t *testing.T) {

	p := defaultParams
	p.TrailSize = 2

	r := NewRegistry(WithLogger(quietLogger()))

	r.Associate([]Blob{blobAt(100, 100, 30000)}, p)
	r.Associate([]Blob{blobAt(100, 110, 30000)}, p)
	r.Associate([]Blob{blobAt(100, 120, 30000)}, p)

	diff := cmp.Diff([]Point{Pt(100, 110), Pt(100, 120)}, r.Get(1).Trail().Points())
	assert.Empty(t, diff)
}
