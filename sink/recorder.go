package sink

import (
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"
)

const (
	// RecorderCodec is the FourCC the streams are encoded with
	RecorderCodec = "MJPG"
)

// Recorder writes the color and track streams to color.avi and track.avi
// in a directory
type Recorder struct {
	color *gocv.VideoWriter
	track *gocv.VideoWriter
}

// NewRecorder creates the two video files in dir
func NewRecorder(dir string, width, height, fps int) (*Recorder, error) {

	color, err := gocv.VideoWriterFile(filepath.Join(dir, "color.avi"),
		RecorderCodec, float64(fps), width, height, true)

	if err != nil {
		return nil, fmt.Errorf("error opening color recording: %w", err)
	}

	track, err := gocv.VideoWriterFile(filepath.Join(dir, "track.avi"),
		RecorderCodec, float64(fps), width, height, false)

	if err != nil {
		color.Close()
		return nil, fmt.Errorf("error opening track recording: %w", err)
	}

	return &Recorder{
		color: color,
		track: track,
	}, nil
}

// Name implements Sink
func (r *Recorder) Name() string {
	return "recorder"
}

// Write implements Sink
func (r *Recorder) Write(p *Presentation) error {

	if err := r.color.Write(p.Color); err != nil {
		return fmt.Errorf("error recording color frame: %w", err)
	}

	if err := r.track.Write(p.Track); err != nil {
		return fmt.Errorf("error recording track frame: %w", err)
	}

	return nil
}

// Close finalizes both video files
func (r *Recorder) Close() error {
	errC := r.color.Close()
	errT := r.track.Close()

	if errC != nil {
		return errC
	}
	return errT
}
