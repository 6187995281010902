package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the encodings store",
	Long:  "Removes every stored face encoding (the file store, or the database tables when --db is set). Training images are left alone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		target := cfg.EncodingsPath
		if cfg.DatabaseURL != "" {
			target = "database tables"
		}
		if !resetYes && !confirm(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), fmt.Sprintf("⚠️  Delete all face encodings (%s)?", target)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close(ctx)

		fmt.Fprintln(cmd.OutOrStdout(), "🗑️  Clearing encodings...")
		if err := st.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset store: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✨ Reset complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}
