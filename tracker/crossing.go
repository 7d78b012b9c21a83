package tracker

// Direction is the direction a track crossed the gate line in
type Direction int

const (
	// In is an upward crossing, from the bottom half of the frame to the top
	In Direction = iota + 1
	// Out is a downward crossing, from the top half of the frame to the bottom
	Out
)

// String implements fmt.Stringer for Direction
func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return "unknown"
	}
}

// Crossing is the event emitted when a track moves across the gate line
type Crossing struct {
	// TrackID is the id of the track that crossed
	TrackID int
	// Direction of travel
	Direction Direction
	// Area of the blob that triggered the crossing
	Area float64
	// From and To are the two trajectory points either side of the line
	From, To Point
	// Frame is the pipeline frame number the crossing happened on
	Frame uint64
	// Increment is the number of people counted for this crossing, filled
	// in by the count aggregator
	Increment int
}

// CrossingDetector decides if a track's latest movement crossed the
// horizontal midline of the frame
type CrossingDetector struct {
	// Mid is the y coordinate of the gate line
	Mid int
}

// NewCrossingDetector returns a detector whose gate line is at half of the
// frame height
func NewCrossingDetector(frameHeight int) CrossingDetector {
	return CrossingDetector{
		Mid: frameHeight / 2,
	}
}

// Detect inspects the last two trajectory points of the track.  Tracks with
// fewer than two points produce nothing.
func (c CrossingDetector) Detect(t *Track, area float64) []Crossing {

	last, curr, ok := t.Trail().LastTwo()

	if !ok {
		return nil
	}

	return c.detect(t.ID(), last, curr, area)
}

// DetectMatch inspects the movement made by a single match.  When a track is
// matched more than once in a frame each movement is judged on its own.
func (c CrossingDetector) DetectMatch(m Match) []Crossing {
	return c.detect(m.Track.ID(), m.From, m.To, m.Blob.Area)
}

// detect evaluates the downward and upward tests independently and each one
// that holds produces an event, so a track resting on the line and then
// leaving it is counted again
func (c CrossingDetector) detect(id int, last, curr Point, area float64) []Crossing {

	var events []Crossing

	if c.down(last.Y, curr.Y) {
		events = append(events, Crossing{
			TrackID:   id,
			Direction: Out,
			Area:      area,
			From:      last,
			To:        curr,
		})
	}

	if c.up(last.Y, curr.Y) {
		events = append(events, Crossing{
			TrackID:   id,
			Direction: In,
			Area:      area,
			From:      last,
			To:        curr,
		})
	}

	return events
}

// down tests a crossing from above the line to below it
func (c CrossingDetector) down(last, curr int) bool {
	return (last < c.Mid && curr >= c.Mid) || (last <= c.Mid && curr > c.Mid)
}

// up tests a crossing from below the line to above it
func (c CrossingDetector) up(last, curr int) bool {
	return (last > c.Mid && curr <= c.Mid) || (last >= c.Mid && curr < c.Mid)
}
