package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/facedetector/internal/types"
	"github.com/jackc/pgx/v5"
)

// Postgres keeps the records in two tables: one row describing the training run and one
// row per face.
type Postgres struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Postgres{conn: conn}, nil
}

// initSchema creates the tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS encoding_sets (
			id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			model TEXT NOT NULL,
			trained_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS face_encodings (
			id BIGSERIAL PRIMARY KEY,
			label TEXT NOT NULL,
			embedding DOUBLE PRECISION[] NOT NULL
		);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Postgres) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// Save replaces every stored face in a single transaction.
func (s *Postgres) Save(ctx context.Context, model types.Model, records []types.Record) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// RESTART IDENTITY keeps ids equal to training order
	if _, err := tx.Exec(ctx, "TRUNCATE face_encodings RESTART IDENTITY"); err != nil {
		return err
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"face_encodings"},
		[]string{"label", "embedding"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return []any{records[i].Label, records[i].Embedding}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy face encodings: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO encoding_sets (id, model, trained_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET model = EXCLUDED.model, trained_at = NOW()
	`, string(model))
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Load returns the last training run. A database that was never trained yields
// ErrNoEncodings rather than an empty snapshot.
func (s *Postgres) Load(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	var model string
	err := s.conn.QueryRow(ctx, "SELECT model, trained_at FROM encoding_sets WHERE id = 1").Scan(&model, &snap.TrainedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoEncodings
	}
	if err != nil {
		return nil, err
	}
	snap.Model = types.Model(model)

	rows, err := s.conn.Query(ctx, "SELECT label, embedding FROM face_encodings ORDER BY id")
	if err != nil {
		return nil, err
	}
	snap.Records, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Record, error) {
		var rec types.Record
		err := row.Scan(&rec.Label, &rec.Embedding)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("read face encodings: %w", err)
	}
	return &snap, nil
}

// Reset empties both tables. The schema stays in place.
func (s *Postgres) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		TRUNCATE face_encodings RESTART IDENTITY;
		DELETE FROM encoding_sets;
	`)
	return err
}
