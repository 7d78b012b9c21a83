// Package blob finds the foreground regions of a depth derived image and
// reports their geometry to the tracker.
package blob

import (
	"fmt"
	"image"

	clipper "github.com/ctessum/go.clipper"
	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/tracker"
)

const (
	// DefaultEpsilon is the polygon approximation accuracy as a fraction of
	// the contour perimeter
	DefaultEpsilon = 0.02
)

// Source produces the blob geometry found in a foreground frame
type Source interface {
	Extract(fg gocv.Mat) ([]tracker.Blob, error)
}

// ContourExtractor finds the external contours of a foreground frame and
// converts each into a bounding box and area
type ContourExtractor struct {
	// Epsilon is the ApproxPolyDP accuracy relative to the contour perimeter
	Epsilon float64
	// UnclipMargin expands each approximated polygon outward by this many
	// pixels before the bounding box is taken, zero disables
	UnclipMargin float64
}

// NewContourExtractor returns an extractor using the default approximation
// accuracy and the given unclip margin
func NewContourExtractor(unclipMargin float64) *ContourExtractor {
	return &ContourExtractor{
		Epsilon:      DefaultEpsilon,
		UnclipMargin: unclipMargin,
	}
}

// Extract returns a blob for every external contour in fg, in no particular
// order.  fg must be a single channel 8 bit image, non zero pixels are
// foreground.
func (e *ContourExtractor) Extract(fg gocv.Mat) ([]tracker.Blob, error) {

	if fg.Empty() {
		return nil, nil
	}

	if fg.Channels() != 1 {
		return nil, fmt.Errorf("foreground must be single channel, got %d",
			fg.Channels())
	}

	contours := gocv.FindContours(fg, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	blobs := make([]tracker.Blob, 0, contours.Size())

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		if contour.Size() == 0 {
			continue
		}

		epsilon := e.Epsilon * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)

		area := gocv.ContourArea(approx)
		if area < 0 {
			area = -area
		}

		bounds := gocv.BoundingRect(contour)

		if e.UnclipMargin > 0 {
			bounds = unclip(approx.ToPoints(), e.UnclipMargin, bounds)
		}

		approx.Close()

		blobs = append(blobs, tracker.NewBlob(tracker.RectFromImage(bounds), area))
	}

	return blobs, nil
}

// unclip offsets the polygon outward by margin pixels using round joins and
// returns the bounding box of the result.  fallback is returned if the offset
// produces no polygon.
func unclip(poly []image.Point, margin float64,
	fallback image.Rectangle) image.Rectangle {

	if len(poly) < 3 {
		return fallback
	}

	var path clipper.Path

	for _, pt := range poly {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	solution := co.Execute(margin)

	var points []image.Point

	for _, sol := range solution {
		for _, pt := range sol {
			points = append(points, image.Pt(int(pt.X), int(pt.Y)))
		}
	}

	if len(points) == 0 {
		return fallback
	}

	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()

	return gocv.BoundingRect(pv)
}
