package store

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/facedetector/internal/types"
	"github.com/gofrs/flock"
)

// File stores records as a gob blob on disk.
type File struct {
	path string
}

// NewFile returns a file store rooted at path. Nothing is touched until Save or Load.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the encodings file.
func (f *File) Path() string {
	return f.path
}

// Save writes the records to a temp file next to the target and renames it into place.
// A sibling .lock file keeps two training runs from writing at the same time.
func (f *File) Save(ctx context.Context, model types.Model, records []types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(f.path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock encodings file: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, ".encodings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	// Clean up on any failure before the rename
	defer os.Remove(tmp.Name())

	snap := Snapshot{Model: model, TrainedAt: time.Now().UTC(), Records: records}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flush encodings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace encodings file: %w", err)
	}
	return nil
}

// Load reads the whole store.
func (f *File) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (%s)", ErrNoEncodings, f.path)
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var snap Snapshot
	if err := gob.NewDecoder(fh).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return &snap, nil
}

// Reset deletes the encodings file. A missing file is not an error.
func (f *File) Reset(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op; files are only held open during Save and Load.
func (f *File) Close(ctx context.Context) {}
