package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureLayout(t *testing.T) {
	root := t.TempDir()
	dirs := []string{
		filepath.Join(root, "training"),
		filepath.Join(root, "validation"),
		filepath.Join(root, "output"),
		"", // ignored
	}

	if err := EnsureLayout(dirs...); err != nil {
		t.Fatalf("EnsureLayout failed: %v", err)
	}
	// Running it again on an existing layout is a no-op
	if err := EnsureLayout(dirs...); err != nil {
		t.Fatalf("Second EnsureLayout failed: %v", err)
	}

	for _, d := range dirs[:3] {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s to exist", d)
		}
	}
}

func TestEnsureLayoutFileInTheWay(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "output")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureLayout(blocker); err == nil {
		t.Error("Expected an error when a file occupies the directory path")
	}
}

func TestSafeCommandCapturesStderr(t *testing.T) {
	cmd := NewSafeCommand(context.Background(), "sh", "-c", "echo boom 1>&2; exit 3")
	if err := cmd.Run(); err == nil {
		t.Fatal("Expected non-zero exit")
	}
	if got := cmd.Stderr.String(); got != "boom\n" {
		t.Errorf("Expected captured stderr %q, got %q", "boom\n", got)
	}
}

func TestIsTerminalOnPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	if IsTerminal(w) {
		t.Error("A pipe must not be reported as a terminal")
	}
}
