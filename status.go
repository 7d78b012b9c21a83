package depthcount

import (
	"github.com/tidwall/sjson"

	"github.com/swdee/go-depthcount/counter"
)

// Status is a point in time view of the pipeline
type Status struct {
	Counts counter.State
	// Tracks is the number of live tracks after the last frame
	Tracks int
	// Frame is the number of frames processed
	Frame   uint64
	Running bool
	// Dropped is the number of presentation frames dropped because the sinks
	// were busy
	Dropped uint64
	// Session is the journal session id, empty without a journal
	Session string
}

// JSON renders the status as a JSON object
func (s Status) JSON() string {

	out := `{}`
	out, _ = sjson.Set(out, "in", s.Counts.In)
	out, _ = sjson.Set(out, "out", s.Counts.Out)
	out, _ = sjson.Set(out, "tracks", s.Tracks)
	out, _ = sjson.Set(out, "frame", s.Frame)
	out, _ = sjson.Set(out, "running", s.Running)
	out, _ = sjson.Set(out, "dropped", s.Dropped)

	if s.Session != "" {
		out, _ = sjson.Set(out, "session", s.Session)
	}

	return out
}
