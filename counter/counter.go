// Package counter accumulates line crossing events into bidirectional people
// counts, estimating group size from blob area.
package counter

import (
	"sync"

	"github.com/swdee/go-depthcount/tracker"
)

// Bands are the area thresholds used to estimate how many people a single
// blob holds
type Bands struct {
	// SingleMax is the largest area counted as one person
	SingleMax float64
	// DoubleMax is the largest area counted as two people, anything bigger
	// counts as three
	DoubleMax float64
}

// Increment returns the number of people represented by a blob of the
// given area
func (b Bands) Increment(area float64) int {
	switch {
	case area <= b.SingleMax:
		return 1
	case area <= b.DoubleMax:
		return 2
	default:
		return 3
	}
}

// State is a snapshot of the running totals
type State struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

// Aggregator holds the running in/out counts.  Add is called from the
// pipeline worker, Counts and Reset may be called from any goroutine.
type Aggregator struct {
	mu    sync.Mutex
	state State
}

// NewAggregator returns an aggregator with zero counts
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add applies a crossing event to the counts using the given area bands.
// The increment applied is stored on the event and returned.
func (a *Aggregator) Add(c *tracker.Crossing, bands Bands) int {

	inc := bands.Increment(c.Area)
	c.Increment = inc

	a.mu.Lock()
	defer a.mu.Unlock()

	switch c.Direction {
	case tracker.In:
		a.state.In += inc
	case tracker.Out:
		a.state.Out += inc
	}

	return inc
}

// Counts returns a snapshot of the current totals
func (a *Aggregator) Counts() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Reset sets both counts to zero
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = State{}
}
