// Package display owns everything that touches a screen or a camera. It is the only
// package that links OpenCV.
package display

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ShowImage opens a window with img and blocks until a key is pressed.
func ShowImage(img image.Image, title string) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	window := gocv.NewWindow(title)
	defer window.Close()

	if err := window.IMShow(mat); err != nil {
		return fmt.Errorf("show image: %w", err)
	}
	window.WaitKey(0)
	return nil
}
