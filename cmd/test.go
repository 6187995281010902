package cmd

import (
	"context"

	"github.com/andresmejia3/facedetector/internal/pipeline"
	"github.com/andresmejia3/facedetector/internal/types"
)

func runTest(ctx context.Context, rec *pipeline.Recognizer, model types.Model, o Options) error {
	return recognizeAndShow(ctx, rec, model, o.File, o)
}
