package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/trawl/internal/capture"
)

// flushTimeout bounds the acknowledgement wait when ctx carries no deadline.
const flushTimeout = 5 * time.Second

// DefaultSubject is the subject prefix records are published under.
const DefaultSubject = "trawl.captures"

// Envelope is the message body published for each record.
type Envelope struct {
	ID          string          `json:"id"`
	PublishedAt time.Time       `json:"published_at"`
	Record      *capture.Record `json:"record"`
}

// NATSSink publishes records to a NATS subject of the form
// <prefix>.<source>. Store returns once the server has acknowledged the
// publish via a flush round trip.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSSink returns a sink publishing on nc. An empty prefix uses
// DefaultSubject.
func NewNATSSink(nc *nats.Conn, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return &NATSSink{nc: nc, prefix: prefix}
}

// Subject returns the subject a record from source is published on.
func (s *NATSSink) Subject(source string) string {
	if source == "" {
		source = "unknown"
	}
	return s.prefix + "." + source
}

// Store implements Sink.
func (s *NATSSink) Store(ctx context.Context, rec *capture.Record) (string, error) {
	env := Envelope{
		ID:          ulid.Make().String(),
		PublishedAt: time.Now().UTC(),
		Record:      rec,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	if err := s.nc.Publish(s.Subject(rec.Metadata[capture.MetaSource]), data); err != nil {
		return "", fmt.Errorf("publish record: %w", err)
	}
	if err := s.flush(ctx); err != nil {
		return "", fmt.Errorf("flush publish: %w", err)
	}
	return env.ID, nil
}

func (s *NATSSink) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	return s.nc.FlushWithContext(ctx)
}
