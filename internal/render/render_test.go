package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/andresmejia3/facedetector/internal/types"
	"github.com/stretchr/testify/assert"
)

func gray(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

func TestAnnotate(t *testing.T) {
	src := gray(120, 120)
	box := types.Box{Top: 10, Right: 60, Bottom: 50, Left: 20}

	out := Annotate(src, []types.Match{{Box: box, Label: "AA"}})

	// Source is left untouched
	assert.Equal(t, uint8(128), src.Pix[0])

	// Outline corners and edges
	for _, p := range []image.Point{{20, 10}, {60, 10}, {20, 50}, {60, 50}, {40, 10}, {20, 30}} {
		assert.Equal(t, BoxColor, out.RGBAAt(p.X, p.Y), "outline pixel %v", p)
	}
	// Interior is untouched
	assert.Equal(t, color.RGBA{128, 128, 128, 128}, out.RGBAAt(40, 30))

	label := LabelRect(box, "AA")
	assert.Equal(t, image.Pt(20, 50), label.Min)
	assert.Equal(t, 14, label.Dx(), "basicfont advances 7px per glyph")
	assert.Equal(t, 13, label.Dy())

	// Bottom row of the label is descent space, so it is pure background
	assert.Equal(t, BoxColor, out.RGBAAt(label.Min.X, label.Max.Y-1))

	white := 0
	for y := label.Min.Y; y < label.Max.Y; y++ {
		for x := label.Min.X; x < label.Max.X; x++ {
			if out.RGBAAt(x, y) == TextColor {
				white++
			}
		}
	}
	assert.Greater(t, white, 0, "expected label text pixels")
}

func TestAnnotateClipsOutOfBounds(t *testing.T) {
	src := gray(30, 30)
	box := types.Box{Top: 5, Right: 40, Bottom: 29, Left: 5}

	assert.NotPanics(t, func() {
		Annotate(src, []types.Match{{Box: box, Label: "Unknown"}})
	})
}

func TestAnnotateNoMatches(t *testing.T) {
	src := gray(10, 10)
	out := Annotate(src, nil)
	assert.Equal(t, src.Pix, out.Pix)
}
