package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Text draws a line of text onto an image with its baseline starting at pt
type Text interface {
	Put(img *gocv.Mat, text string, pt image.Point) error
}

// Font defines the parameters for rendering text on an image using the
// built in Hershey fonts
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheyPlain,
		Scale:     1,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
	}
}

// Put implements Text
func (f Font) Put(img *gocv.Mat, text string, pt image.Point) error {
	gocv.PutTextWithParams(img, text, pt, f.Face, f.Scale, f.Color,
		f.Thickness, f.LineType, false)
	return nil
}

// FaceText renders text with a golang.org/x/image font face, such as a
// TrueType font loaded from disk
type FaceText struct {
	face  font.Face
	color color.RGBA
}

// NewFaceText returns text rendered with the given face
func NewFaceText(face font.Face, clr color.RGBA) *FaceText {
	return &FaceText{
		face:  face,
		color: clr,
	}
}

// BasicText returns text rendered with the fixed 7x13 bitmap face
func BasicText(clr color.RGBA) *FaceText {
	return NewFaceText(basicfont.Face7x13, clr)
}

// LoadFaceText loads a TTF/OTF font file at the given point size
func LoadFaceText(path string, size float64, clr color.RGBA) (*FaceText, error) {

	fontBytes, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return NewFaceText(face, clr), nil
}

// Put implements Text.  The string is drawn onto a transparent layer which
// is then added over the image.
func (t *FaceText) Put(img *gocv.Mat, text string, pt image.Point) error {

	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0}),
		image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(t.color),
		Face: t.face,
		Dot: fixed.Point26_6{
			X: fixed.I(pt.X),
			Y: fixed.I(pt.Y),
		},
	}
	dr.DrawString(text)

	layer, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(),
		gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil || layer.Empty() {
		return fmt.Errorf("error creating text layer: %v", err)
	}

	defer layer.Close()

	gocv.CvtColor(layer, &layer, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, layer, 1.0, 0, img)

	return nil
}
