// Package imageio loads images from disk and normalises them for the face engines,
// which only accept JPEG input.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Quality used when re-encoding non-JPEG input.
const Quality = 95

// Image is a decoded picture plus the JPEG bytes handed to the engine.
type Image struct {
	Path   string
	Format string
	Pixels image.Image
	JPEG   []byte
}

// Load reads and decodes the file at path.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	img.Path = path
	return img, nil
}

// Decode decodes data in any registered format. JPEG input is passed through untouched;
// everything else is re-encoded as JPEG.
func Decode(data []byte) (*Image, error) {
	pixels, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	out := &Image{Format: format, Pixels: pixels, JPEG: data}
	if format != "jpeg" {
		out.JPEG, err = EncodeJPEG(pixels)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeJPEG encodes img as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ToRGBA returns a mutable copy of img.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
