// Package render draws the counting state onto the color stream.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/counter"
	"github.com/swdee/go-depthcount/tracker"
)

// Scene is everything drawn onto a single color frame
type Scene struct {
	// Mid is the y coordinate of the gate line
	Mid    int
	Blobs  []tracker.Blob
	Tracks []*tracker.Track
	Counts counter.State
}

// Annotator draws the gate line, blobs, track trails and count banner
type Annotator struct {
	GateColor     color.RGBA
	GateThickness int
	Blob          BlobStyle
	Trail         TrailStyle
	// Text is used for the count banner
	Text Text
}

// NewAnnotator returns an annotator with the default styles and Hershey
// banner text
func NewAnnotator() *Annotator {
	return &Annotator{
		GateColor:     Green,
		GateThickness: 2,
		Blob:          DefaultBlobStyle(),
		Trail:         DefaultTrailStyle(),
		Text:          DefaultFont(),
	}
}

// Annotate draws the scene onto img
func (a *Annotator) Annotate(img *gocv.Mat, s Scene) error {

	gocv.Line(img, image.Pt(img.Cols(), s.Mid), image.Pt(0, s.Mid),
		a.GateColor, a.GateThickness)

	Blobs(img, s.Blobs, a.Blob)
	Trails(img, s.Tracks, a.Trail)

	return a.Banner(img, s.Counts)
}

// Banner writes the in and out counts at the bottom left of the image
func (a *Annotator) Banner(img *gocv.Mat, counts counter.State) error {

	h := img.Rows()

	if err := a.Text.Put(img, fmt.Sprintf("Count IN:  %d", counts.In),
		image.Pt(0, h-30)); err != nil {
		return err
	}

	return a.Text.Put(img, fmt.Sprintf("Count OUT: %d", counts.Out),
		image.Pt(0, h-10))
}
