package ops

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/db"
	"github.com/hpungsan/trawl/internal/dispatch"
	"github.com/hpungsan/trawl/internal/errors"
)

var _ dispatch.Sink = (*Sink)(nil)

func TestStore_AssignsULIDAndPersists(t *testing.T) {
	database := setupTestDB(t)
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	rec := buildRecord(t, "chatgpt", capture.TypeConversation, at)

	id := mustStore(t, database, rec)

	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("ID %q is not a ULID: %v", id, err)
	}
	if got := ulid.Time(parsed.Time()); !got.Equal(at) {
		t.Errorf("ULID time = %v, want %v", got, at)
	}

	stored, err := db.GetByID(context.Background(), database, id, false)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Source != "chatgpt" {
		t.Errorf("Source = %q, want chatgpt", stored.Source)
	}
	if stored.URL != rec.Metadata[capture.MetaURL] {
		t.Errorf("URL = %q, want %q", stored.URL, rec.Metadata[capture.MetaURL])
	}
	if stored.CapturedAt != at.Unix() {
		t.Errorf("CapturedAt = %d, want %d", stored.CapturedAt, at.Unix())
	}
	if len(stored.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(stored.Messages))
	}
	if stored.ContentHash() != rec.ContentHash() {
		t.Errorf("content hash = %q, want %q", stored.ContentHash(), rec.ContentHash())
	}
}

func TestStore_RejectsEmptyRecord(t *testing.T) {
	database := setupTestDB(t)

	for _, rec := range []*capture.Record{nil, {Type: capture.TypeConversation}} {
		_, err := Store(context.Background(), database, rec)
		if !errors.Is(err, errors.ErrRecordInvalid) {
			t.Errorf("Store(%v) error = %v, want RECORD_INVALID", rec, err)
		}
	}
}

func TestSink_ThroughDispatcher(t *testing.T) {
	database := setupTestDB(t)
	d := dispatch.New(NewSink(database), nil)

	res := d.Dispatch(context.Background(), buildRecord(t, "claude", capture.TypeConversation, time.Now()))
	if !res.Success {
		t.Fatalf("Dispatch failed: %v", res.Err)
	}

	out, err := Fetch(context.Background(), database, FetchInput{ID: res.ID})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if out.Source != "claude" {
		t.Errorf("Source = %q, want claude", out.Source)
	}
}

func TestFlags(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	flags := Flags{DB: database}

	enabled, err := flags.GetEnabled(ctx, "github")
	if err != nil {
		t.Fatalf("GetEnabled failed: %v", err)
	}
	if !enabled {
		t.Error("untoggled source should be enabled")
	}

	if err := flags.SetEnabled(ctx, "github", false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	enabled, err = flags.GetEnabled(ctx, "github")
	if err != nil {
		t.Fatalf("GetEnabled failed: %v", err)
	}
	if enabled {
		t.Error("github should be disabled after SetEnabled(false)")
	}
}
