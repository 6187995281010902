// Package engine wraps the external libraries that find faces in an image and turn
// each one into an embedding.
package engine

import (
	"context"
	"fmt"

	"github.com/andresmejia3/facedetector/internal/types"
)

const (
	NameDlib   = "dlib"
	NamePython = "python"
)

// Engine detects faces in a JPEG image and computes one embedding per face.
type Engine interface {
	Detect(ctx context.Context, jpeg []byte, model types.Model) ([]types.Detection, error)
	Close() error
}

// Options selects and configures an engine.
type Options struct {
	Name         string // dlib or python
	ModelsDir    string // dlib model files
	PythonBin    string
	WorkerScript string
}

// Open starts the engine named in opts.
func Open(ctx context.Context, opts Options) (Engine, error) {
	switch opts.Name {
	case NameDlib, "":
		return NewDlib(opts.ModelsDir)
	case NamePython:
		return NewPythonWorker(ctx, opts.PythonBin, opts.WorkerScript)
	}
	return nil, fmt.Errorf("unknown engine %q: must be 'dlib' or 'python'", opts.Name)
}
