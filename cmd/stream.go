package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/facedetector/internal/display"
	"github.com/andresmejia3/facedetector/internal/pipeline"
	"github.com/andresmejia3/facedetector/internal/types"
)

func runStream(ctx context.Context, rec *pipeline.Recognizer, model types.Model) error {
	fmt.Fprintf(os.Stderr, "🎥 Streaming from camera %d, press 'q' to quit\n", cfg.CameraDevice)

	return display.Stream(ctx, display.StreamOptions{
		Device:  cfg.CameraDevice,
		Window:  "Video",
		QuitKey: 'q',
		Logger:  logger,
	}, func(ctx context.Context, frame []byte) ([]types.Match, error) {
		return rec.RecognizeJPEG(ctx, frame, model)
	})
}
