package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/db"
	"github.com/hpungsan/trawl/internal/errors"
)

// StoreOutput contains the result of the Store operation.
type StoreOutput struct {
	ID string `json:"id"`
}

// Store persists a record with a fresh ULID.
func Store(ctx context.Context, database *sql.DB, rec *capture.Record) (*StoreOutput, error) {
	if rec == nil || len(rec.Messages) == 0 {
		return nil, errors.NewRecordInvalid("record must contain at least one message")
	}

	now := time.Now()
	capturedAt := now
	if ts, err := time.Parse(time.RFC3339, rec.Metadata[capture.MetaCapturedAt]); err == nil {
		capturedAt = ts
	}

	id, err := generateULID(capturedAt)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	c := &capture.Stored{
		ID:         id,
		Record:     *rec,
		Source:     rec.Metadata[capture.MetaSource],
		URL:        rec.Metadata[capture.MetaURL],
		CapturedAt: capturedAt.Unix(),
		CreatedAt:  now.Unix(),
	}
	if err := db.Insert(ctx, database, c); err != nil {
		return nil, err
	}
	return &StoreOutput{ID: id}, nil
}

// Sink stores dispatched records in SQLite.
type Sink struct {
	DB *sql.DB
}

// NewSink returns a Sink writing to database.
func NewSink(database *sql.DB) *Sink {
	return &Sink{DB: database}
}

// Store implements dispatch.Sink.
func (s *Sink) Store(ctx context.Context, rec *capture.Record) (string, error) {
	out, err := Store(ctx, s.DB, rec)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// generateULID generates a new ULID timestamped at t.
func generateULID(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
