package tracker

import (
	"fmt"
	"strings"
)

// Gate is the (xNear, yNear) window inside which a blob center is considered
// close enough to a track center to be the same object
type Gate struct {
	XNear int
	YNear int
}

// Admits returns true if the candidate point lies within the gate of the
// track center.  Both axes are inclusive.
func (g Gate) Admits(center, candidate Point) bool {
	return abs(candidate.X-center.X) <= g.XNear &&
		abs(candidate.Y-center.Y) <= g.YNear
}

// Association is the view of the registry an Associator works on for a
// single frame.  Matches and creations are applied immediately so they are
// visible to the remainder of the frame's association.
type Association interface {
	// Tracks returns the live tracks in creation order, including tracks
	// created earlier in this frame
	Tracks() []*Track
	// Match records that blob belongs to track t
	Match(t *Track, blob Blob)
	// Create starts a new track from blob
	Create(blob Blob) *Track
}

// Associator maps a frame's blobs onto the live track set
type Associator interface {
	// Associate assigns every blob either to an existing track or to a new
	// track
	Associate(a Association, blobs []Blob, gate Gate)
	// Policy returns the tagged name of the association policy
	Policy() Policy
}

// Policy names an association strategy
type Policy string

const (
	// FirstMatchInCreationOrder matches each blob to the first track, in
	// creation order, whose center is inside the gate.  Greedy and order
	// dependent: earlier tracks win ties and a track can be matched by more
	// than one blob in the same frame.
	FirstMatchInCreationOrder Policy = "first-match"
	// GlobalNearest solves a gated one-to-one assignment that minimizes the
	// total squared center distance between blobs and tracks
	GlobalNearest Policy = "global"
)

// ParsePolicy converts a policy name to a Policy
func ParsePolicy(name string) (Policy, error) {

	switch Policy(strings.ToLower(strings.TrimSpace(name))) {
	case FirstMatchInCreationOrder:
		return FirstMatchInCreationOrder, nil
	case GlobalNearest:
		return GlobalNearest, nil
	}

	return "", fmt.Errorf("unknown association policy %q, use %q or %q",
		name, FirstMatchInCreationOrder, GlobalNearest)
}

// NewAssociator returns the Associator implementing the given policy
func NewAssociator(p Policy) (Associator, error) {

	switch p {
	case FirstMatchInCreationOrder:
		return FirstMatch{}, nil
	case GlobalNearest:
		return NewNearest(), nil
	}

	return nil, fmt.Errorf("unknown association policy %q", p)
}

// FirstMatch implements the FirstMatchInCreationOrder policy
type FirstMatch struct{}

// Policy returns FirstMatchInCreationOrder
func (FirstMatch) Policy() Policy {
	return FirstMatchInCreationOrder
}

// Associate scans the tracks for each blob in turn and takes the first track
// whose center is inside the gate, otherwise it creates a new track
func (FirstMatch) Associate(a Association, blobs []Blob, gate Gate) {

	for _, blob := range blobs {

		center := blob.Center()
		matched := false

		for _, t := range a.Tracks() {
			// if blob is near a known track assume they are the same object
			if gate.Admits(t.Center(), center) {
				a.Match(t, blob)
				matched = true
				break
			}
		}

		if !matched {
			a.Create(blob)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
