// Package pipeline holds the detect-and-match logic shared by every mode. Nothing here
// opens a window or a camera, so it runs the same in tests and on a headless box.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/andresmejia3/facedetector/internal/imageio"
	"github.com/andresmejia3/facedetector/internal/types"
	"golang.org/x/text/unicode/norm"
)

// Engine finds faces and computes their embeddings.
type Engine interface {
	Detect(ctx context.Context, jpeg []byte, model types.Model) ([]types.Detection, error)
}

// TrainResult is the outcome of one training pass.
type TrainResult struct {
	Records []types.Record
	Images  int // files decoded and sent to the engine
	NoFace  int // images in which no face was found
	Skipped int // files that could not be decoded
}

// Trainer builds the records for the encodings store.
type Trainer struct {
	Engine Engine
	Model  types.Model
	Logger *slog.Logger

	// Progress, when set, is called after each file.
	Progress func(path string)
}

// TrainingFiles lists root/<label>/<file> entries in lexical order. Nested directories
// and files directly under root are ignored.
func TrainingFiles(root string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*", "*"))
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if parent, err := os.Stat(filepath.Dir(m)); err != nil || !parent.IsDir() {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}

// Label derives the training label from the directory holding path.
// Names are NFC-normalised so decomposed filenames (macOS) compare equal to typed ones.
func Label(path string) string {
	return norm.NFC.String(filepath.Base(filepath.Dir(path)))
}

// Train embeds every face of every image under root. Images without faces add nothing.
func (t *Trainer) Train(ctx context.Context, root string) (*TrainResult, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files, err := TrainingFiles(root)
	if err != nil {
		return nil, fmt.Errorf("list training images: %w", err)
	}

	res := &TrainResult{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		faces, err := t.encodeFile(ctx, path)
		if t.Progress != nil {
			t.Progress(path)
		}
		if err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				res.Skipped++
				logger.Warn("skipping unreadable training file", "path", path, "error", decodeErr.Err)
				continue
			}
			return nil, err
		}

		res.Images++
		if len(faces) == 0 {
			res.NoFace++
			logger.Debug("no face found", "path", path)
			continue
		}

		label := Label(path)
		for _, f := range faces {
			res.Records = append(res.Records, types.Record{Label: label, Embedding: f.Embedding})
		}
		logger.Debug("encoded training image", "path", path, "label", label, "faces", len(faces))
	}
	return res, nil
}

// DecodeError marks an input file that is not an image we can read. Engine failures
// never carry it.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

func (t *Trainer) encodeFile(ctx context.Context, path string) ([]types.Detection, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	faces, err := t.Engine.Detect(ctx, img.JPEG, t.Model)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return faces, nil
}

// ListFiles walks root recursively and returns every regular file in lexical order.
func ListFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
