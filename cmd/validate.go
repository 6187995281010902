package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/facedetector/internal/pipeline"
	"github.com/andresmejia3/facedetector/internal/types"
	"github.com/andresmejia3/facedetector/internal/utils"
)

// runValidate recognizes every file under the validation directory. A file that is not
// a readable image is reported and skipped; any other failure ends the run.
func runValidate(ctx context.Context, rec *pipeline.Recognizer, model types.Model, o Options) error {
	files, err := pipeline.ListFiles(cfg.ValidationDir)
	if err != nil {
		return fmt.Errorf("failed to list validation images: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "⚠️  No files in %s\n", cfg.ValidationDir)
		return nil
	}

	bar := newProgressBar(len(files), "🔍 Validating")
	defer func() {
		if bar != nil {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
	}()

	skipped := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := recognizeAndShow(ctx, rec, model, path, o)
		if bar != nil {
			bar.Add(1)
		}
		if err != nil {
			var decodeErr *pipeline.DecodeError
			if !errors.As(err, &decodeErr) {
				return fmt.Errorf("validation failed on %s: %w", path, err)
			}
			skipped++
			utils.ShowError("Skipping unreadable file "+path, decodeErr.Err, nil)
		}
	}

	logger.Info("validation complete", "files", len(files), "skipped", skipped)
	return nil
}
