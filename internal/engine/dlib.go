package engine

import (
	"context"
	"fmt"

	"github.com/Kagami/go-face"
	"github.com/andresmejia3/facedetector/internal/types"
)

// Dlib runs detection and embedding in-process through dlib.
//
// The models directory must contain shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and mmod_human_face_detector.dat. All three
// are loaded up front, even when only the hog model is used.
type Dlib struct {
	rec *face.Recognizer
}

// NewDlib loads the dlib models from modelsDir.
func NewDlib(modelsDir string) (*Dlib, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load recognizer models from %s: %w", modelsDir, err)
	}
	return &Dlib{rec: rec}, nil
}

// Detect finds every face in the image using the HOG or CNN detector.
func (d *Dlib) Detect(ctx context.Context, jpeg []byte, model types.Model) ([]types.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		faces []face.Face
		err   error
	)
	if model == types.ModelCNN {
		faces, err = d.rec.RecognizeCNN(jpeg)
	} else {
		faces, err = d.rec.Recognize(jpeg)
	}
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	dets := make([]types.Detection, len(faces))
	for i, f := range faces {
		vec := make([]float64, len(f.Descriptor))
		for j, v := range f.Descriptor {
			vec[j] = float64(v)
		}
		dets[i] = types.Detection{Box: types.BoxFromRect(f.Rectangle), Embedding: vec}
	}
	return dets, nil
}

// Close releases the dlib models.
func (d *Dlib) Close() error {
	d.rec.Close()
	return nil
}
