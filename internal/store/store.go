// Package store persists the training records that recognition compares against.
//
// Two backends are available: a flat file (the default) and PostgreSQL. Both are
// rebuilt wholesale by every training run and read wholesale by every recognition run.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/andresmejia3/facedetector/internal/types"
)

var (
	// ErrNoEncodings is returned by Load when no training run has been persisted yet.
	ErrNoEncodings = errors.New("no face encodings found, run --train first")
	// ErrLocked is returned by Save when another process is writing the store.
	ErrLocked = errors.New("encodings store is locked by another training run")
)

// Snapshot is the full content of a store.
type Snapshot struct {
	Model     types.Model
	TrainedAt time.Time
	Records   []types.Record
}

// Labels counts records per label, in first-seen order.
func (s *Snapshot) Labels() ([]string, map[string]int) {
	counts := make(map[string]int)
	var order []string
	for _, r := range s.Records {
		if _, ok := counts[r.Label]; !ok {
			order = append(order, r.Label)
		}
		counts[r.Label]++
	}
	return order, counts
}

// Store is implemented by the file and PostgreSQL backends.
type Store interface {
	// Save replaces the stored records. There is no merge with earlier runs.
	Save(ctx context.Context, model types.Model, records []types.Record) error
	// Load returns everything that was saved, or ErrNoEncodings.
	Load(ctx context.Context) (*Snapshot, error)
	// Reset removes all stored data.
	Reset(ctx context.Context) error
	Close(ctx context.Context)
}

// Open picks the PostgreSQL backend when dbURL is set and the file backend otherwise.
func Open(ctx context.Context, path, dbURL string) (Store, error) {
	if dbURL != "" {
		return New(ctx, dbURL)
	}
	return NewFile(path), nil
}
