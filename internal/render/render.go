// Package render draws recognition results onto images.
package render

import (
	"image"
	"image/color"

	"github.com/andresmejia3/facedetector/internal/imageio"
	"github.com/andresmejia3/facedetector/internal/types"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	BoxColor  = color.RGBA{B: 255, A: 255}
	TextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotate returns a copy of img with every match outlined and labeled.
func Annotate(img image.Image, matches []types.Match) *image.RGBA {
	dst := imageio.ToRGBA(img)
	for _, m := range matches {
		DrawFace(dst, m.Box, m.Label)
	}
	return dst
}

// DrawFace outlines box and writes label in a filled box whose top-left corner sits on
// the bottom-left corner of the face.
func DrawFace(dst *image.RGBA, box types.Box, label string) {
	outline(dst, box.Rect(), BoxColor)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(TextColor),
		Face: face,
	}
	bg := LabelRect(box, label)
	draw.Draw(dst, bg, image.NewUniform(BoxColor), image.Point{}, draw.Src)

	d.Dot = fixed.P(bg.Min.X, bg.Min.Y+face.Metrics().Ascent.Ceil())
	d.DrawString(label)
}

// LabelRect is the area covered by the label background for box.
func LabelRect(box types.Box, label string) image.Rectangle {
	face := basicfont.Face7x13
	m := face.Metrics()
	width := font.MeasureString(face, label).Ceil()
	height := (m.Ascent + m.Descent).Ceil()
	return image.Rect(box.Left, box.Bottom, box.Left+width, box.Bottom+height)
}

// outline draws a 1px rectangle including both corner pixels.
func outline(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x <= r.Max.X; x++ {
		dst.SetRGBA(x, r.Min.Y, c)
		dst.SetRGBA(x, r.Max.Y, c)
	}
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		dst.SetRGBA(r.Min.X, y, c)
		dst.SetRGBA(r.Max.X, y, c)
	}
}
