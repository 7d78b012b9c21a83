package tracker

// Blob represents the geometry of a foreground region found in a single
// depth frame.  Blobs are produced fresh each frame and are not persisted.
type Blob struct {
	// Rect is the bounding box of the region
	Rect Rect
	// Area is the region's contour area in pixels, used both for the
	// minimum size gate and to estimate how many people the blob holds
	Area float64
}

// NewBlob is a constructor function for the Blob struct
func NewBlob(rect Rect, area float64) Blob {
	return Blob{
		Rect: rect,
		Area: area,
	}
}

// Center returns the center point of the blob's bounding box
func (b Blob) Center() Point {
	return b.Rect.Center()
}
