package render

import (
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/tracker"
)

// TrailStyle defines the parameters used for rendering track trajectories
type TrailStyle struct {
	// LineSame draws the trail in the track's palette color, otherwise
	// LineColor is used
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleRadius of the marker drawn on the latest point, zero disables
	CircleRadius int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      true,
		LineColor:     Yellow,
		LineThickness: 2,
		CircleRadius:  0,
	}
}

// Trails draws the trajectory of every track as connected line segments
func Trails(img *gocv.Mat, tracks []*tracker.Track, style TrailStyle) {

	for _, trk := range tracks {

		points := trk.Trail().Points()

		if len(points) < 2 {
			continue
		}

		lineClr := TrackColor(trk.Color())

		if !style.LineSame {
			lineClr = style.LineColor
		}

		for i := 1; i < len(points); i++ {
			gocv.Line(img, points[i-1].ImagePoint(), points[i].ImagePoint(),
				lineClr, style.LineThickness)
		}

		if style.CircleRadius > 0 {
			gocv.Circle(img, points[len(points)-1].ImagePoint(),
				style.CircleRadius, lineClr, -1)
		}
	}
}
