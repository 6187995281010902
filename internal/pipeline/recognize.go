package pipeline

import (
	"context"
	"fmt"

	"github.com/andresmejia3/facedetector/internal/imageio"
	"github.com/andresmejia3/facedetector/internal/matcher"
	"github.com/andresmejia3/facedetector/internal/store"
	"github.com/andresmejia3/facedetector/internal/types"
)

// UnknownLabel is shown for faces that matched nothing in the store.
const UnknownLabel = "Unknown"

// Loader reads the encodings store.
type Loader interface {
	Load(ctx context.Context) (*store.Snapshot, error)
}

// Recognizer matches detected faces against a loaded store.
type Recognizer struct {
	engine    Engine
	snapshot  *store.Snapshot
	tolerance float64
}

// NewRecognizer loads the whole store up front. A missing store is an error
// (store.ErrNoEncodings), never an empty reference set.
func NewRecognizer(ctx context.Context, engine Engine, loader Loader, tolerance float64) (*Recognizer, error) {
	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if tolerance <= 0 {
		tolerance = matcher.DefaultTolerance
	}
	return &Recognizer{engine: engine, snapshot: snap, tolerance: tolerance}, nil
}

// Snapshot exposes the loaded store.
func (r *Recognizer) Snapshot() *store.Snapshot {
	return r.snapshot
}

// Label returns the plurality label for one embedding, or UnknownLabel.
func (r *Recognizer) Label(embedding []float64) string {
	if name, ok := matcher.Recognize(r.snapshot.Records, embedding, r.tolerance); ok {
		return name
	}
	return UnknownLabel
}

// Match labels every detection, keeping detection order.
func (r *Recognizer) Match(dets []types.Detection) []types.Match {
	matches := make([]types.Match, len(dets))
	for i, d := range dets {
		matches[i] = types.Match{Box: d.Box, Label: r.Label(d.Embedding)}
	}
	return matches
}

// RecognizeJPEG detects and labels faces in an encoded frame.
func (r *Recognizer) RecognizeJPEG(ctx context.Context, data []byte, model types.Model) ([]types.Match, error) {
	dets, err := r.engine.Detect(ctx, data, model)
	if err != nil {
		return nil, err
	}
	return r.Match(dets), nil
}

// RecognizeFile loads an image from disk, detects and labels its faces. The decoded
// image is returned so callers can draw on it. A file that cannot be read as an image
// yields a *DecodeError.
func (r *Recognizer) RecognizeFile(ctx context.Context, path string, model types.Model) (*imageio.Image, []types.Match, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, nil, &DecodeError{Path: path, Err: err}
	}
	matches, err := r.RecognizeJPEG(ctx, img.JPEG, model)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, matches, nil
}
