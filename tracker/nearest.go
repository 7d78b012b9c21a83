package tracker

import (
	"gonum.org/v1/gonum/mat"
)

const (
	// gatedLimit is the assignment cost limit for the normalized distance,
	// the corner of a gate window sits at exactly 2
	gatedLimit = 2.0 + 1e-9
	// outsideGate is the cost given to pairs outside the gate window
	outsideGate = 4.0
)

// Nearest implements the GlobalNearest policy.  All blobs of a frame are
// solved against all tracks at once so each track receives at most one blob.
type Nearest struct {
	// solve is the assignment function, replaced in tests
	solve func(cost *mat.Dense, limit float64) ([]int, []int, error)
}

// NewNearest returns a GlobalNearest associator
func NewNearest() *Nearest {
	return &Nearest{
		solve: solveGated,
	}
}

// Policy returns GlobalNearest
func (n *Nearest) Policy() Policy {
	return GlobalNearest
}

// Associate builds the gated cost matrix of blobs against tracks, solves it
// and applies the matches.  Blobs left unassigned start new tracks.
func (n *Nearest) Associate(a Association, blobs []Blob, gate Gate) {

	tracks := a.Tracks()

	if len(blobs) == 0 {
		return
	}

	if len(tracks) == 0 {
		for _, blob := range blobs {
			a.Create(blob)
		}
		return
	}

	cost := mat.NewDense(len(blobs), len(tracks), nil)

	for i, blob := range blobs {
		center := blob.Center()

		for j, t := range tracks {
			if !gate.Admits(t.Center(), center) {
				cost.Set(i, j, outsideGate)
				continue
			}
			cost.Set(i, j, gatedDistance(t.Center(), center, gate))
		}
	}

	rowsol, _, err := n.solve(cost, gatedLimit)

	if err != nil {
		// fall back to the greedy policy rather than lose the frame
		FirstMatch{}.Associate(a, blobs, gate)
		return
	}

	for i, blob := range blobs {
		if j := rowsol[i]; j >= 0 {
			a.Match(tracks[j], blob)
		} else {
			a.Create(blob)
		}
	}
}

// gatedDistance returns the squared distance between two points with each
// axis normalized by the gate size, so the gate boundary maps to 1 per axis
func gatedDistance(a, b Point, gate Gate) float64 {
	return axisTerm(b.X-a.X, gate.XNear) + axisTerm(b.Y-a.Y, gate.YNear)
}

func axisTerm(delta, near int) float64 {
	if near == 0 {
		// only an exact match passes a zero sized gate
		return 0
	}
	r := float64(delta) / float64(near)
	return r * r
}
