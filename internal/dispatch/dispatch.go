// Package dispatch hands built capture records to a storage sink.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/errors"
)

// Sink persists a record and returns its identifier. Durability and retry
// are the sink's business.
type Sink interface {
	Store(ctx context.Context, rec *capture.Record) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec *capture.Record) (string, error)

// Store implements Sink.
func (f SinkFunc) Store(ctx context.Context, rec *capture.Record) (string, error) {
	return f(ctx, rec)
}

// Result is the outcome of one dispatch. Err is a DISPATCH_FAILURE (or
// RECORD_INVALID for a nil record) when Success is false.
type Result struct {
	Success bool
	ID      string
	Err     error
}

// Dispatcher calls the sink. It keeps no state between calls; deciding
// whether a record should be dispatched at all is the caller's job.
type Dispatcher struct {
	sink   Sink
	logger *zap.Logger
}

// New returns a Dispatcher over sink. A nil logger discards output.
func New(sink Sink, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sink: sink, logger: logger}
}

// Dispatch stores rec and reports the outcome. It never retries.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *capture.Record) Result {
	if rec == nil || len(rec.Messages) == 0 {
		return Result{Err: errors.NewRecordInvalid("record must contain at least one message")}
	}

	id, err := d.sink.Store(ctx, rec)
	if err != nil {
		d.logger.Debug("sink rejected record",
			zap.String("source", rec.Metadata[capture.MetaSource]),
			zap.Error(err))
		return Result{Err: errors.NewDispatchFailure(err)}
	}
	return Result{Success: true, ID: id}
}
