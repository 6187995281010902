package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/andresmejia3/facedetector/internal/pipeline"
	"github.com/andresmejia3/facedetector/internal/store"
	"github.com/andresmejia3/facedetector/internal/types"
	"github.com/andresmejia3/facedetector/internal/utils"
	"github.com/schollz/progressbar/v3"
)

func runTrain(ctx context.Context, eng pipeline.Engine, st store.Store, model types.Model) error {
	files, err := pipeline.TrainingFiles(cfg.TrainingDir)
	if err != nil {
		return fmt.Errorf("failed to list training images: %w", err)
	}
	fmt.Fprintf(os.Stderr, "🧠 Training on %d images from %s (%s model)\n", len(files), cfg.TrainingDir, model)

	bar := newProgressBar(len(files), "🧠 Encoding faces")
	trainer := &pipeline.Trainer{
		Engine: eng,
		Model:  model,
		Logger: logger,
		Progress: func(string) {
			if bar != nil {
				bar.Add(1)
			}
		},
	}

	res, err := trainer.Train(ctx, cfg.TrainingDir)
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := st.Save(ctx, model, res.Records); err != nil {
		return fmt.Errorf("failed to save encodings: %w", err)
	}
	logger.Info("training complete", "records", len(res.Records), "images", res.Images, "no_face", res.NoFace, "skipped", res.Skipped)

	printTrainSummary(stdout, res)
	return nil
}

// newProgressBar returns nil when stderr is not a terminal.
func newProgressBar(total int, description string) *progressbar.ProgressBar {
	if total == 0 || !utils.IsTerminal(os.Stderr) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
}

func printTrainSummary(w io.Writer, res *pipeline.TrainResult) {
	labels := make(map[string]int)
	var order []string
	for _, r := range res.Records {
		if _, ok := labels[r.Label]; !ok {
			order = append(order, r.Label)
		}
		labels[r.Label]++
	}

	rows := make([][]string, 0, len(order))
	for _, l := range order {
		rows = append(rows, []string{l, strconv.Itoa(labels[l])})
	}
	fmt.Fprintln(w, renderTable([]string{"Label", "Faces"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(w, "✅ Stored %d faces from %d images (%d without a face, %d unreadable)\n",
		len(res.Records), res.Images, res.NoFace, res.Skipped)
}
