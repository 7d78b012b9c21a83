package store

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-depthcount/counter"
	"github.com/swdee/go-depthcount/tracker"
)

func openJournal(t *testing.T, depth int) *Journal {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), depth, log)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	return j
}

func TestJournalRequiresSession(t *testing.T) {

	j := openJournal(t, 8)

	err := j.Record(tracker.Crossing{TrackID: 1, Direction: tracker.In, Increment: 1})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestJournalTotalsMatchAggregator(t *testing.T) {

	j := openJournal(t, 64)

	session, err := j.BeginSession(320, 240, 60)
	require.NoError(t, err)
	assert.Equal(t, session, j.Session())

	agg := counter.NewAggregator()
	bands := counter.Bands{SingleMax: 60000, DoubleMax: 90000}

	events := []tracker.Crossing{
		{TrackID: 1, Direction: tracker.Out, Area: 30000, Frame: 10},
		{TrackID: 2, Direction: tracker.In, Area: 75000, Frame: 20},
		{TrackID: 3, Direction: tracker.In, Area: 95000, Frame: 30},
		{TrackID: 3, Direction: tracker.Out, Area: 61000, Frame: 31},
	}

	for _, e := range events {
		agg.Add(&e, bands)
		require.NoError(t, j.Record(e))
	}

	j.Flush()

	totals, err := j.Totals(session)
	require.NoError(t, err)
	assert.Equal(t, agg.Counts(), totals)
	assert.Equal(t, counter.State{In: 5, Out: 3}, totals)
}

func TestJournalSessionsIsolated(t *testing.T) {

	j := openJournal(t, 8)

	first, err := j.BeginSession(320, 240, 60)
	require.NoError(t, err)
	require.NoError(t, j.Record(tracker.Crossing{TrackID: 1, Direction: tracker.In, Increment: 2}))

	second, err := j.BeginSession(640, 480, 30)
	require.NoError(t, err)
	require.NoError(t, j.Record(tracker.Crossing{TrackID: 1, Direction: tracker.Out, Increment: 1}))

	j.Flush()

	t1, err := j.Totals(first)
	require.NoError(t, err)
	t2, err := j.Totals(second)
	require.NoError(t, err)

	assert.Equal(t, counter.State{In: 2}, t1)
	assert.Equal(t, counter.State{Out: 1}, t2)

	sessions, err := j.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	ids := []uuid.UUID{sessions[0].ID, sessions[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{first, second}, ids)
}

func TestJournalTotalsUnknownSession(t *testing.T) {

	j := openJournal(t, 8)

	totals, err := j.Totals(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, counter.State{}, totals)
}

func TestJournalClose(t *testing.T) {

	j := openJournal(t, 8)
	_, err := j.BeginSession(320, 240, 60)
	require.NoError(t, err)

	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	err = j.Record(tracker.Crossing{TrackID: 1, Direction: tracker.In, Increment: 1})
	assert.ErrorIs(t, err, ErrNoSession)
}
