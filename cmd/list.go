package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/andresmejia3/facedetector/internal/store"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the labels in the encodings store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	snap, err := st.Load(ctx)
	if errors.Is(err, store.ErrNoEncodings) {
		fmt.Fprintln(cmd.OutOrStdout(), "No encodings stored yet. Run --train first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load encodings: %w", err)
	}

	labels, counts := snap.Labels()
	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, []string{l, strconv.Itoa(counts[l])})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Label", "Faces"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(out, "%d faces, %d labels, model %s, trained %s\n",
		len(snap.Records), len(labels), snap.Model, snap.TrainedAt.Local().Format("2006-01-02 15:04"))
	return nil
}
