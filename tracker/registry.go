package tracker

import (
	"github.com/sirupsen/logrus"
)

// Params are the per frame association settings.  They are passed on every
// call so configuration changes apply from the next frame.
type Params struct {
	// MinBlobArea discards blobs with a smaller area
	MinBlobArea float64
	// Gate is the proximity window used to match blobs to tracks
	Gate Gate
	// TrailSize bounds the trajectory of newly created tracks, zero is
	// unbounded
	TrailSize int
}

// Match records a blob that was assigned to an existing track along with
// the movement it caused
type Match struct {
	Track *Track
	Blob  Blob
	// From is the track center before the match and To the center after
	From, To Point
}

// Registry owns the live set of tracks.  It is not safe for concurrent use,
// all mutation happens from the single pipeline worker.
type Registry struct {
	// tracks in creation order
	tracks []*Track
	// ids allocates track ids
	ids *IDGenerator
	// assoc is the association policy
	assoc Associator
	// touched records tracks matched or created in the current frame
	touched map[int]bool
	// matches made in the current frame
	matches []Match
	// trailSize for tracks created in the current frame
	trailSize int
	log       logrus.FieldLogger
}

// Option configures a Registry
type Option func(*Registry)

// WithAssociator sets the association policy, the default is FirstMatch
func WithAssociator(a Associator) Option {
	return func(r *Registry) {
		r.assoc = a
	}
}

// WithLogger sets the logger used for track lifecycle messages
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry returns an empty track registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		ids:     NewIDGenerator(),
		assoc:   FirstMatch{},
		touched: make(map[int]bool),
		log:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// SetAssociator swaps the association policy.  Live tracks are kept.
func (r *Registry) SetAssociator(a Associator) {
	r.assoc = a
}

// Policy returns the current association policy
func (r *Registry) Policy() Policy {
	return r.assoc.Policy()
}

// Associate maps the frame's blobs onto the live tracks.  Blobs below the
// minimum area are discarded, matched tracks are updated and unmatched blobs
// start new tracks.  The returned matches are in the order they were made
// and are the input to crossing detection.
func (r *Registry) Associate(blobs []Blob, p Params) []Match {

	r.touched = make(map[int]bool)
	r.matches = nil
	r.trailSize = p.TrailSize

	candidates := make([]Blob, 0, len(blobs))

	for _, blob := range blobs {
		if blob.Area < p.MinBlobArea {
			continue
		}
		candidates = append(candidates, blob)
	}

	if len(candidates) == 0 {
		return nil
	}

	r.assoc.Associate(r, candidates, p.Gate)

	return r.matches
}

// Tracks returns the live tracks in creation order
func (r *Registry) Tracks() []*Track {
	return r.tracks
}

// Match updates track t with the blob
func (r *Registry) Match(t *Track, blob Blob) {
	from := t.center
	t.update(blob)
	r.touched[t.id] = true
	r.matches = append(r.matches, Match{
		Track: t,
		Blob:  blob,
		From:  from,
		To:    t.center,
	})
}

// Create starts a new track from the blob
func (r *Registry) Create(blob Blob) *Track {
	t := newTrack(r.ids.GetNext(), blob, r.trailSize)
	r.tracks = append(r.tracks, t)
	r.touched[t.id] = true

	r.log.WithFields(logrus.Fields{
		"track":  t.id,
		"center": t.center,
		"area":   blob.Area,
	}).Debug("track created")

	return t
}

// Tick advances the lifecycle by one frame.  Every track not matched or
// created since the last Associate call ages by one frame, then tracks older
// than maxAge frames are removed.  The removed tracks are returned.
// Tracks matched this frame end it at age 0 rather than 1, so an unmatched
// track is removed on the maxAge+1th empty frame after its last match.
func (r *Registry) Tick(maxAge int) []*Track {

	var removed []*Track
	live := r.tracks[:0]

	for _, t := range r.tracks {
		if !r.touched[t.id] {
			t.grow()
		}

		if t.age > maxAge {
			removed = append(removed, t)
			r.log.WithFields(logrus.Fields{
				"track":  t.id,
				"age":    t.age,
				"points": t.trail.Len(),
			}).Debug("track removed")
			continue
		}

		live = append(live, t)
	}

	// clear dangling pointers in the tail of the shared backing array
	for i := len(live); i < len(r.tracks); i++ {
		r.tracks[i] = nil
	}

	r.tracks = live
	r.touched = make(map[int]bool)

	return removed
}

// Len returns the number of live tracks
func (r *Registry) Len() int {
	return len(r.tracks)
}

// Get returns the live track with the given id or nil
func (r *Registry) Get(id int) *Track {
	for _, t := range r.tracks {
		if t.id == id {
			return t
		}
	}
	return nil
}

// LastID returns the id of the most recently created track
func (r *Registry) LastID() int {
	return r.ids.Last()
}

// Reset drops every live track.  Ids continue from where they were so they
// are never reused.
func (r *Registry) Reset() {
	r.tracks = nil
	r.touched = make(map[int]bool)
	r.matches = nil
}
