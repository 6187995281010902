package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/facedetector/internal/types"
	"github.com/andresmejia3/facedetector/internal/utils"
)

// ErrWorker wraps errors reported by the Python side.
var ErrWorker = errors.New("python worker error")

const (
	statusOK    = 0
	statusError = 1

	// Upper bounds for length fields read from the worker.
	maxEmbeddingDim = 4096
	maxFaces        = 1 << 12
)

// PythonWorker delegates detection to python/worker.py, which runs the
// face_recognition library.
//
// Protocol, big endian, both directions framed as [uint32 length][body]:
//
//	request:  [model byte: 0 hog, 1 cnn] [jpeg bytes]
//	response: [status byte]
//	          status 0: [uint32 faces] then per face [4 x int32 top,right,bottom,left] [uint32 dim] [dim x float64]
//	          status 1: [uint32 msgLen] [msg]
type PythonWorker struct {
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
}

// NewPythonWorker starts the worker script.
func NewPythonWorker(ctx context.Context, pythonBin, script string) (*PythonWorker, error) {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	if script == "" {
		script = "python/worker.py"
	}
	py := utils.NewSafeCommand(ctx, pythonBin, "-u", script)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("python worker failed to start: %w", err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonWorker{
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
	}, nil
}

// Communicate sends one framed request and reads one framed response.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, fmt.Errorf("worker exited before answering: %w", err)
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// Detect sends the image to the worker and decodes the detections.
func (w *PythonWorker) Detect(ctx context.Context, jpeg []byte, model types.Model) ([]types.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := make([]byte, 0, len(jpeg)+1)
	if model == types.ModelCNN {
		req = append(req, 1)
	} else {
		req = append(req, 0)
	}
	req = append(req, jpeg...)

	resp, err := w.Communicate(req)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

func decodeResponse(resp []byte) ([]types.Detection, error) {
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrWorker)
	}
	r := bytes.NewReader(resp[1:])

	switch resp[0] {
	case statusOK:
	case statusError:
		var msgLen uint32
		if err := binary.Read(r, binary.BigEndian, &msgLen); err != nil {
			return nil, fmt.Errorf("%w: truncated error message", ErrWorker)
		}
		msg := make([]byte, msgLen)
		if _, err := io.ReadFull(r, msg); err != nil {
			return nil, fmt.Errorf("%w: truncated error message", ErrWorker)
		}
		return nil, fmt.Errorf("%w: %s", ErrWorker, msg)
	default:
		return nil, fmt.Errorf("%w: unknown status %d", ErrWorker, resp[0])
	}

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("read face count: %w", err)
	}
	if n > maxFaces {
		return nil, fmt.Errorf("%w: face count %d out of range", ErrWorker, n)
	}

	dets := make([]types.Detection, 0, n)
	for i := uint32(0); i < n; i++ {
		var box [4]int32
		if err := binary.Read(r, binary.BigEndian, &box); err != nil {
			return nil, fmt.Errorf("read box %d: %w", i, err)
		}
		var dim uint32
		if err := binary.Read(r, binary.BigEndian, &dim); err != nil {
			return nil, fmt.Errorf("read embedding size %d: %w", i, err)
		}
		if dim > maxEmbeddingDim {
			return nil, fmt.Errorf("%w: embedding size %d out of range", ErrWorker, dim)
		}
		vec := make([]float64, dim)
		if err := binary.Read(r, binary.BigEndian, vec); err != nil {
			return nil, fmt.Errorf("read embedding %d: %w", i, err)
		}
		dets = append(dets, types.Detection{
			Box:       types.Box{Top: int(box[0]), Right: int(box[1]), Bottom: int(box[2]), Left: int(box[3])},
			Embedding: vec,
		})
	}
	return dets, nil
}

// Close shuts the worker down and waits for it to exit.
func (w *PythonWorker) Close() error {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd == nil {
		return nil
	}
	return w.Cmd.Wait()
}
