package render

import (
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-depthcount/tracker"
)

// BlobStyle defines how detected blobs are drawn
type BlobStyle struct {
	BoxColor      color.RGBA
	BoxThickness  int
	CenterColor   color.RGBA
	CenterRadius  int
	CenterOutline int
}

// DefaultBlobStyle returns green boxes with a red ring on the center
func DefaultBlobStyle() BlobStyle {
	return BlobStyle{
		BoxColor:      Green,
		BoxThickness:  1,
		CenterColor:   Red,
		CenterRadius:  5,
		CenterOutline: 2,
	}
}

// Blobs draws the bounding box and center of each blob
func Blobs(img *gocv.Mat, blobs []tracker.Blob, style BlobStyle) {
	for _, b := range blobs {
		gocv.Rectangle(img, b.Rect.ImageRect(), style.BoxColor, style.BoxThickness)
		gocv.Circle(img, b.Center().ImagePoint(), style.CenterRadius,
			style.CenterColor, style.CenterOutline)
	}
}
