package tracker

// Track represents a single hypothesized moving object
type Track struct {
	// id is unique for the life of the process and never reused
	id int
	// center is the last matched blob center
	center Point
	// trail is the trajectory of matched centers
	trail *Trail
	// age is the number of frames since the track was last matched
	age int
	// area is the area of the most recently matched blob
	area float64
}

// newTrack creates a track seeded with a single point
func newTrack(id int, blob Blob, trailSize int) *Track {
	center := blob.Center()

	return &Track{
		id:     id,
		center: center,
		trail:  NewTrail(trailSize, center),
		area:   blob.Area,
	}
}

// ID returns the unique track id
func (t *Track) ID() int {
	return t.id
}

// Center returns the current center of the track
func (t *Track) Center() Point {
	return t.center
}

// Age returns the number of frames since the track was last matched
func (t *Track) Age() int {
	return t.age
}

// Area returns the area of the last blob matched to this track
func (t *Track) Area() float64 {
	return t.area
}

// Color returns the display color tag of the track.  It is opaque to the
// tracker and only used by renderers to pick a palette entry.
func (t *Track) Color() int {
	return t.id
}

// Trail returns the trajectory history of the track
func (t *Track) Trail() *Trail {
	return t.trail
}

// update records a newly matched blob center
func (t *Track) update(blob Blob) {
	t.center = blob.Center()
	t.trail.Add(t.center)
	t.area = blob.Area
	t.age = 0
}

// grow increments the age of the track by one frame
func (t *Track) grow() {
	t.age++
}
