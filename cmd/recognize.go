package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/facedetector/internal/display"
	"github.com/andresmejia3/facedetector/internal/imageio"
	"github.com/andresmejia3/facedetector/internal/pipeline"
	"github.com/andresmejia3/facedetector/internal/render"
	"github.com/andresmejia3/facedetector/internal/store"
	"github.com/andresmejia3/facedetector/internal/types"
)

func newRecognizer(ctx context.Context, eng pipeline.Engine, st store.Store) (*pipeline.Recognizer, error) {
	rec, err := pipeline.NewRecognizer(ctx, eng, st, cfg.Tolerance)
	if err != nil {
		if errors.Is(err, store.ErrNoEncodings) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load encodings: %w", err)
	}

	snap := rec.Snapshot()
	if snap.Model != "" {
		if model, _ := types.ParseModel(cfg.Model); model != snap.Model {
			logger.Warn("store was trained with a different detection model", "trained", snap.Model, "current", model)
		}
	}
	logger.Debug("encodings loaded", "records", len(snap.Records), "trained_at", snap.TrainedAt)
	return rec, nil
}

// recognizeAndShow runs one image through the recognizer and presents the result.
func recognizeAndShow(ctx context.Context, rec *pipeline.Recognizer, model types.Model, path string, o Options) error {
	img, matches, err := rec.RecognizeFile(ctx, path, model)
	if err != nil {
		return err
	}

	unknown := 0
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Label == pipeline.UnknownLabel {
			unknown++
		}
		names = append(names, m.Label)
	}
	logger.Info("recognized", "path", path, "faces", len(matches), "unknown", unknown)
	if len(matches) == 0 {
		fmt.Fprintf(stdout, "🔍 %s: no faces found\n", path)
	} else {
		fmt.Fprintf(stdout, "🔍 %s: %s\n", path, strings.Join(names, ", "))
	}

	annotated := render.Annotate(img.Pixels, matches)

	if o.SaveDir != "" {
		out, err := saveAnnotated(o.SaveDir, path, annotated)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "💾 Saved %s\n", out)
	}
	if o.NoDisplay {
		return nil
	}
	return display.ShowImage(annotated, filepath.Base(path))
}

func saveAnnotated(dir, src string, img *image.RGBA) (string, error) {
	data, err := imageio.EncodeJPEG(img)
	if err != nil {
		return "", fmt.Errorf("encode annotated image: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".jpg"
	out := filepath.Join(dir, name)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}
