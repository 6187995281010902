package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: 100, B: 200, A: 255})
		}
	}
	return img
}

func TestDecodePNGReencodesAsJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "png", img.Format)
	require.Equal(t, 16, img.Pixels.Bounds().Dx())

	_, format, err := image.Decode(bytes.NewReader(img.JPEG))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
}

func TestDecodeJPEGPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "jpeg", img.Format)
	require.Equal(t, buf.Bytes(), img.JPEG)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	img, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, img.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
}

func TestToRGBAResetsOrigin(t *testing.T) {
	src := testImage().SubImage(image.Rect(4, 2, 12, 6))
	dst := ToRGBA(src)
	require.Equal(t, image.Rect(0, 0, 8, 4), dst.Bounds())
	require.Equal(t, src.At(4, 2), color.Color(dst.RGBAAt(0, 0)))
}
