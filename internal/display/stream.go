package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/andresmejia3/facedetector/internal/types"
	"gocv.io/x/gocv"
)

// OverlayColor is used for boxes and names in the live view.
var OverlayColor = color.RGBA{R: 255, A: 255}

const (
	// labelLift is how far above the box the name baseline sits.
	labelLift = 10
	fontScale = 1
	thickness = 2
)

// FrameFunc recognizes the faces in one JPEG-encoded frame.
type FrameFunc func(ctx context.Context, jpeg []byte) ([]types.Match, error)

// StreamOptions configures the live loop.
type StreamOptions struct {
	Device  int
	Window  string
	QuitKey rune
	Logger  *slog.Logger
}

type camera interface {
	Read(m *gocv.Mat) bool
	Close() error
}

type screen interface {
	IMShow(img gocv.Mat) error
	WaitKey(delay int) int
	Close() error
}

// Stream reads frames from the camera until the quit key is pressed or ctx is done.
// A failing FrameFunc is logged and the unannotated frame is still shown.
func Stream(ctx context.Context, opts StreamOptions, fn FrameFunc) error {
	capture, err := gocv.OpenVideoCapture(opts.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", opts.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open camera %d: device not available", opts.Device)
	}

	if opts.Window == "" {
		opts.Window = "Video"
	}
	window := gocv.NewWindow(opts.Window)

	return run(ctx, capture, window, opts, fn)
}

func run(ctx context.Context, cam camera, win screen, opts StreamOptions, fn FrameFunc) error {
	defer cam.Close()
	defer win.Close()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	quit := opts.QuitKey
	if quit == 0 {
		quit = 'q'
	}

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if !cam.Read(&frame) || frame.Empty() {
			if win.WaitKey(1)&0xFF == int(quit) {
				return nil
			}
			continue
		}

		matches, err := recognizeFrame(ctx, frame, fn)
		if err != nil {
			logger.Warn("frame recognition failed", "error", err)
		}
		Overlay(&frame, matches)

		if err := win.IMShow(frame); err != nil {
			logger.Warn("failed to show frame", "error", err)
		}
		if win.WaitKey(1)&0xFF == int(quit) {
			return nil
		}
	}
}

func recognizeFrame(ctx context.Context, frame gocv.Mat, fn FrameFunc) ([]types.Match, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory freed by buf.Close
	data := append([]byte(nil), buf.GetBytes()...)
	return fn(ctx, data)
}

// Overlay draws a rectangle and the label for every match onto frame.
func Overlay(frame *gocv.Mat, matches []types.Match) {
	for _, m := range matches {
		gocv.Rectangle(frame, m.Box.Rect(), OverlayColor, thickness)
		gocv.PutText(frame, m.Label, LabelOrigin(m.Box), gocv.FontHersheySimplex, fontScale, OverlayColor, thickness)
	}
}

// LabelOrigin is the text baseline for a label drawn above box.
func LabelOrigin(box types.Box) image.Point {
	return image.Pt(box.Left, box.Top-labelLift)
}
