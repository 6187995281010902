package types

import (
	"fmt"
	"image"
	"strings"
)

// Model selects the face detector: hog (CPU) or cnn (GPU, more precise).
type Model string

const (
	ModelHOG Model = "hog"
	ModelCNN Model = "cnn"
)

// ParseModel accepts "hog" or "cnn" (case-insensitive).
func ParseModel(s string) (Model, error) {
	switch Model(strings.ToLower(strings.TrimSpace(s))) {
	case ModelHOG:
		return ModelHOG, nil
	case ModelCNN:
		return ModelCNN, nil
	}
	return "", fmt.Errorf("invalid model %q: must be 'hog' or 'cnn'", s)
}

// Box is a face location in pixel coordinates, ordered [top, right, bottom, left].
type Box struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// BoxFromRect is the inverse of Rect.
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Detection is one face found in an image together with its embedding.
type Detection struct {
	Box       Box
	Embedding []float64
}

// Record is one training face: the label of the folder it came from and its embedding.
type Record struct {
	Label     string
	Embedding []float64
}

// Match is the recognition result for a single detected face.
type Match struct {
	Box   Box
	Label string
}
