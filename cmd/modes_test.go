package cmd

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/facedetector/internal/config"
	"github.com/andresmejia3/facedetector/internal/pipeline"
	"github.com/andresmejia3/facedetector/internal/store"
	"github.com/andresmejia3/facedetector/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// widthEngine returns preset detections keyed by the width of the submitted image.
type widthEngine struct {
	byWidth map[int][]types.Detection
	err     error
	calls   int
}

func (e *widthEngine) Detect(ctx context.Context, data []byte, model types.Model) ([]types.Detection, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	c, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return e.byWidth[c.Width], nil
}

func faceAt(seed float64) types.Detection {
	v := make([]float64, 128)
	v[0] = seed
	return types.Detection{Box: types.Box{Top: 2, Right: 12, Bottom: 12, Left: 2}, Embedding: v}
}

func writeJPEG(t *testing.T, path string, width int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, 20)), nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// headless points the package configuration at a temporary layout and captures stdout.
func headless(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()

	c := config.Default()
	c.TrainingDir = filepath.Join(root, "training")
	c.ValidationDir = filepath.Join(root, "validation")
	c.OutputDir = filepath.Join(root, "output")
	c.EncodingsPath = filepath.Join(root, "output", "encodings.gob")

	var out bytes.Buffer
	prevCfg, prevLogger, prevOut := cfg, logger, stdout
	cfg, logger, stdout = c, slog.New(slog.NewTextHandler(io.Discard, nil)), &out
	t.Cleanup(func() { cfg, logger, stdout = prevCfg, prevLogger, prevOut })

	return root, &out
}

func trainedRecognizer(t *testing.T, eng *widthEngine) *pipeline.Recognizer {
	t.Helper()
	st := store.NewFile(cfg.EncodingsPath)
	require.NoError(t, st.Save(context.Background(), types.ModelHOG, []types.Record{
		{Label: "alice", Embedding: faceAt(0.7).Embedding},
	}))
	rec, err := newRecognizer(context.Background(), eng, st)
	require.NoError(t, err)
	return rec
}

func TestRunPipelineTrainThenTest(t *testing.T) {
	root, out := headless(t)
	writeJPEG(t, filepath.Join(cfg.TrainingDir, "alice", "1.jpg"), 30)
	target := filepath.Join(root, "group.jpg")
	writeJPEG(t, target, 40)

	eng := &widthEngine{byWidth: map[int][]types.Detection{
		30: {faceAt(0.7)},
		40: {faceAt(0.72), faceAt(9)},
	}}
	st := store.NewFile(cfg.EncodingsPath)
	saveDir := filepath.Join(root, "annotated")

	err := runPipeline(context.Background(), eng, st, types.ModelHOG,
		Options{Train: true, Test: true, File: target, NoDisplay: true, SaveDir: saveDir})
	require.NoError(t, err)

	snap, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "alice", snap.Records[0].Label)

	assert.Contains(t, out.String(), target+": alice, Unknown")
	assert.FileExists(t, filepath.Join(saveDir, "group.jpg"))
}

func TestRunPipelineTestWithoutStore(t *testing.T) {
	root, _ := headless(t)
	target := filepath.Join(root, "x.jpg")
	writeJPEG(t, target, 40)

	err := runPipeline(context.Background(), &widthEngine{}, store.NewFile(cfg.EncodingsPath), types.ModelHOG,
		Options{Test: true, File: target, NoDisplay: true})
	assert.ErrorIs(t, err, store.ErrNoEncodings)
}

func TestRunValidateSkipsUnreadableFiles(t *testing.T) {
	_, out := headless(t)
	eng := &widthEngine{byWidth: map[int][]types.Detection{30: {faceAt(0.7)}}}
	rec := trainedRecognizer(t, eng)

	require.NoError(t, os.MkdirAll(cfg.ValidationDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ValidationDir, "a-notes.txt"), []byte("not an image"), 0o644))
	writeJPEG(t, filepath.Join(cfg.ValidationDir, "b.jpg"), 30)

	err := runValidate(context.Background(), rec, types.ModelHOG, Options{NoDisplay: true})
	require.NoError(t, err)
	assert.Equal(t, 1, eng.calls)
	assert.Contains(t, out.String(), "b.jpg: alice")
}

func TestRunValidateStopsOnEngineFailure(t *testing.T) {
	headless(t)
	eng := &widthEngine{}
	rec := trainedRecognizer(t, eng)
	eng.err = errors.New("worker exited before answering")

	writeJPEG(t, filepath.Join(cfg.ValidationDir, "a.jpg"), 30)
	writeJPEG(t, filepath.Join(cfg.ValidationDir, "b.jpg"), 30)

	err := runValidate(context.Background(), rec, types.ModelHOG, Options{NoDisplay: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, eng.err)
	assert.Equal(t, 1, eng.calls, "the run must stop at the first engine failure")
}

func TestRunValidateCancelled(t *testing.T) {
	headless(t)
	eng := &widthEngine{}
	rec := trainedRecognizer(t, eng)
	writeJPEG(t, filepath.Join(cfg.ValidationDir, "a.jpg"), 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runValidate(ctx, rec, types.ModelHOG, Options{NoDisplay: true})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, eng.calls)
}

func TestSaveAnnotated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))

	path, err := saveAnnotated(dir, filepath.Join("validation", "holiday.png"), img)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "holiday.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	c, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16, c.Width)
}
