package tracker

import (
	"image"
)

// Point represents the x,y pixel coordinates of the center of a blob's
// bounding box
type Point struct {
	X, Y int
}

// Pt is a shorthand constructor for Point
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// ImagePoint converts the point into an image.Point for drawing
func (p Point) ImagePoint() image.Point {
	return image.Pt(p.X, p.Y)
}

// Rect represents an axis aligned bounding box in (top, left, width, height)
// format using integer pixel coordinates
type Rect struct {
	X, Y          int
	Width, Height int
}

// NewRect creates a new Rect with given coordinates
func NewRect(x, y, width, height int) Rect {
	return Rect{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// RectFromImage converts an image.Rectangle, such as the result of
// gocv.BoundingRect, into a Rect
func RectFromImage(r image.Rectangle) Rect {
	return NewRect(r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

// TLX returns the top-left x coordinate of the rectangle
func (r Rect) TLX() int {
	return r.X
}

// TLY returns the top-left y coordinate of the rectangle
func (r Rect) TLY() int {
	return r.Y
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() int {
	return r.X + r.Width
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() int {
	return r.Y + r.Height
}

// Center returns the center point of the rectangle.  Integer division is
// used so the result is stable pixel coordinates.
func (r Rect) Center() Point {
	return Point{
		X: r.X + r.Width/2,
		Y: r.Y + r.Height/2,
	}
}

// ImageRect converts the rectangle to an image.Rectangle for drawing
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(r.TLX(), r.TLY(), r.BRX(), r.BRY())
}
