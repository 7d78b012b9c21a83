package tracker

// Trail is the ordered history of center points of a single track.  When
// constructed with a size greater than zero only the most recent size points
// are kept, otherwise the history grows for the whole life of the track.
type Trail struct {
	// size is the maximum number of most recent points to keep in history,
	// zero means unbounded
	size int
	// history of tracked points, oldest first
	points []Point
}

// NewTrail returns a new trail seeded with its first point
func NewTrail(size int, first Point) *Trail {
	t := &Trail{
		size:   size,
		points: make([]Point, 0, 2),
	}

	t.Add(first)
	return t
}

// Add appends a point to the history
func (t *Trail) Add(p Point) {

	t.points = append(t.points, p)

	// check if history is exceeded and drop oldest point
	if t.size > 0 && len(t.points) > t.size {
		// copy down rather than reslice so the backing array does not keep
		// growing over a long lived track
		copy(t.points, t.points[1:])
		t.points = t.points[:len(t.points)-1]
	}
}

// Len returns the number of points held
func (t *Trail) Len() int {
	return len(t.points)
}

// Last returns the most recent point
func (t *Trail) Last() Point {
	return t.points[len(t.points)-1]
}

// LastTwo returns the previous and current points of the trail.  ok is false
// when fewer than two points have been recorded.
func (t *Trail) LastTwo() (prev, curr Point, ok bool) {

	n := len(t.points)

	if n < 2 {
		return Point{}, Point{}, false
	}

	return t.points[n-2], t.points[n-1], true
}

// Points returns a copy of the point history
func (t *Trail) Points() []Point {
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}
